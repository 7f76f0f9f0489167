package scene

// Handle identifies an entity inside a Backend. Handles are opaque and never
// reused by the reference backend.
type Handle string

// NoHandle is the zero Handle; as a parent it means the scene root.
const NoHandle Handle = ""

func (h Handle) Valid() bool { return h != NoHandle }

// Kind is the type of entity a backend creates.
type Kind string

const (
	KindTransform Kind = "transform"
	KindJoint     Kind = "joint"
	KindGroup     Kind = "group"
	KindControl   Kind = "control"
	KindIKHandle  Kind = "ikHandle"
	// KindInternal marks bookkeeping entities a backend creates on its own
	// account; trackers never report them.
	KindInternal Kind = "internal"
)

func (k Kind) String() string { return string(k) }

// Space selects which transform of an entity is read or written.
type Space uint8

const (
	SpaceLocal Space = iota
	SpaceWorld
)

func (s Space) String() string {
	switch s {
	case SpaceLocal:
		return "local"
	case SpaceWorld:
		return "world"
	default:
		return "unknown"
	}
}

// Vec3 is a three component vector.
type Vec3 [3]float64

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }
func (v Vec3) Mul(o Vec3) Vec3 { return Vec3{v[0] * o[0], v[1] * o[1], v[2] * o[2]} }

// Div divides component-wise; a zero divisor leaves the component unchanged.
func (v Vec3) Div(o Vec3) Vec3 {
	out := v
	for i := range out {
		if o[i] != 0 {
			out[i] = v[i] / o[i]
		}
	}
	return out
}

// Transform attribute keys used in snapshot records.
const (
	AttrTranslate = "translate"
	AttrRotate    = "rotate"
	AttrScale     = "scale"
)

// Transform is the translate/rotate/scale record of an entity in one space.
type Transform struct {
	Translate Vec3 `yaml:"translate"`
	Rotate    Vec3 `yaml:"rotate"`
	Scale     Vec3 `yaml:"scale"`
}

func Identity() Transform {
	return Transform{Scale: Vec3{1, 1, 1}}
}

// At returns an identity transform translated to p.
func At(p Vec3) Transform {
	t := Identity()
	t.Translate = p
	return t
}

// Values flattens the transform into snapshot record entries.
func (t Transform) Values() map[string]Value {
	return map[string]Value{
		AttrTranslate: Vector(t.Translate),
		AttrRotate:    Vector(t.Rotate),
		AttrScale:     Vector(t.Scale),
	}
}

// WithValue returns t with the transform key set to v. It reports false when
// key is not a transform key or v is not a vector.
func (t Transform) WithValue(key string, v Value) (Transform, bool) {
	if v.Type() != VectorType {
		return t, false
	}
	switch key {
	case AttrTranslate:
		t.Translate = v.Vec()
	case AttrRotate:
		t.Rotate = v.Vec()
	case AttrScale:
		t.Scale = v.Vec()
	default:
		return t, false
	}
	return t, true
}

// SpaceValues is Values with every key qualified by space, as in
// "world.translate".
func (t Transform) SpaceValues(space Space) map[string]Value {
	out := make(map[string]Value, 3)
	for k, v := range t.Values() {
		out[SpaceKey(space, k)] = v
	}
	return out
}

// SpaceKey qualifies a transform key with a space.
func SpaceKey(space Space, key string) string {
	return space.String() + "." + key
}

// SplitSpaceKey reverses SpaceKey. It reports false for keys that are not a
// space qualified transform key.
func SplitSpaceKey(key string) (Space, string, bool) {
	for _, space := range []Space{SpaceLocal, SpaceWorld} {
		prefix := space.String() + "."
		if len(key) > len(prefix) && key[:len(prefix)] == prefix && IsTransformKey(key[len(prefix):]) {
			return space, key[len(prefix):], true
		}
	}
	return 0, "", false
}

// IsTransformKey reports whether key addresses a transform field.
func IsTransformKey(key string) bool {
	return key == AttrTranslate || key == AttrRotate || key == AttrScale
}
