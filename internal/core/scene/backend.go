package scene

// Backend is the scene-authoring host the build core drives. Every
// construction call of every component goes through a single Backend.
type Backend interface {
	CreateEntity(kind Kind, name string) (Handle, error)
	DestroyEntity(h Handle) error
	EntityExists(h Handle) bool

	Attribute(h Handle, key string) (Value, error)
	SetAttribute(h Handle, key string, v Value) error
	AttributeKeys(h Handle) ([]string, error)

	Transform(h Handle, space Space) (Transform, error)
	SetTransform(h Handle, space Space, t Transform) error

	// SubscribeEntityCreated registers fn to be called with every entity the
	// backend creates, bookkeeping entities included.
	SubscribeEntityCreated(fn func(Handle)) (Subscription, error)
	Unsubscribe(sub Subscription) error

	// Parent returns NoHandle for entities parented to the scene root.
	Parent(h Handle) (Handle, error)
	// SetParent reparents h under parent, or under the scene root for NoHandle.
	SetParent(h, parent Handle) error
	Children(h Handle) ([]Handle, error)

	FindEntity(name string) (Handle, bool)
	Name(h Handle) (string, error)
	EntityKind(h Handle) (Kind, error)
}

// Subscription is the handle returned by SubscribeEntityCreated.
type Subscription interface {
	ID() string
	Cancel() error
}
