package widget

// State is the build stage of a component.
type State uint8

const (
	StateUnbuilt State = iota
	StateLayoutBuilt
	StateRigged
)

func (s State) String() string {
	switch s {
	case StateUnbuilt:
		return "unbuilt"
	case StateLayoutBuilt:
		return "layout-built"
	case StateRigged:
		return "rigged"
	default:
		return "unknown"
	}
}

// Categories the assembly parenting pass understands.
const (
	CategoryFK         = "forward-kinematic"
	CategoryIK         = "inverse-kinematic"
	CategoryDoNotTouch = "do-not-touch"
)
