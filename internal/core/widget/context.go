package widget

import (
	"fmt"

	"github.com/zeusync/rigsmith/internal/core/naming"
	"github.com/zeusync/rigsmith/internal/core/observability/log"
	"github.com/zeusync/rigsmith/internal/core/scene"
)

// Kind is the kind-specific part of a component: it declares plugs and
// options and performs the two construction procedures against the backend.
type Kind interface {
	Name() string
	Plugs() []string
	DeclareOptions(o *Options)
	BuildLayout(ctx *LayoutContext) error
	BuildRig(ctx *RigContext) error
}

type buildContext struct {
	w       *Widget
	Backend scene.Backend
	Namer   *naming.Namer
	Options *Options
	Logger  log.Log
}

func (c *buildContext) Name(description, suffix string) string {
	return c.Namer.Name(naming.Tokens{naming.Description: description, naming.Suffix: suffix})
}

// Create makes an entity named after description and suffix.
func (c *buildContext) Create(kind scene.Kind, description, suffix string) (scene.Handle, error) {
	return c.Backend.CreateEntity(kind, c.Name(description, suffix))
}

// CreateAt makes an entity and places it at world.
func (c *buildContext) CreateAt(kind scene.Kind, description, suffix string, world scene.Transform) (scene.Handle, error) {
	h, err := c.Create(kind, description, suffix)
	if err != nil {
		return scene.NoHandle, err
	}
	if err = c.Backend.SetTransform(h, scene.SpaceWorld, world); err != nil {
		return scene.NoHandle, err
	}
	return h, nil
}

// CreateUnder makes an entity parented under parent with a local transform.
func (c *buildContext) CreateUnder(kind scene.Kind, description, suffix string, parent scene.Handle, local scene.Transform) (scene.Handle, error) {
	h, err := c.Create(kind, description, suffix)
	if err != nil {
		return scene.NoHandle, err
	}
	if err = c.Backend.SetParent(h, parent); err != nil {
		return scene.NoHandle, err
	}
	if err = c.Backend.SetTransform(h, scene.SpaceLocal, local); err != nil {
		return scene.NoHandle, err
	}
	return h, nil
}

// LayoutContext is handed to Kind.BuildLayout.
type LayoutContext struct {
	buildContext
}

// Register makes h part of the layout snapshot. Its transform in space and
// the listed custom attributes are compared by CacheDiffs.
func (c *LayoutContext) Register(h scene.Handle, space scene.Space, attrs ...string) error {
	name, err := c.Backend.Name(h)
	if err != nil {
		return err
	}
	return c.w.layoutDiffer.Register(name, h, space, attrs...)
}

// RegisterBind designates h as a skeleton anchor to duplicate into the rig.
// parent must be another bind entity or NoHandle.
func (c *LayoutContext) RegisterBind(h, parent scene.Handle, description string) error {
	for _, b := range c.w.binds {
		if b.handle == h || b.description == description {
			return fmt.Errorf("%s: bind %q registered twice", c.w.ID(), description)
		}
	}
	c.w.binds = append(c.w.binds, bindDecl{handle: h, parent: parent, description: description})
	return nil
}

// RegisterControl keeps h for reconstruction in the rig under key. Only the
// listed attributes are carried over; none means all of them.
func (c *LayoutContext) RegisterControl(key string, h scene.Handle, attrs ...string) error {
	for _, ctl := range c.w.controls {
		if ctl.key == key {
			return fmt.Errorf("%w: %s", ErrDuplicateControl, key)
		}
	}
	c.w.controls = append(c.w.controls, controlDecl{key: key, handle: h, attrs: attrs})
	return nil
}

// RigContext is handed to Kind.BuildRig. Bind duplicates and reconstructed
// controls are available by description and key.
type RigContext struct {
	buildContext
	binds     map[string]scene.Handle
	bindOrder []string
	controls  map[string]scene.Handle
}

func (c *RigContext) Bind(description string) (scene.Handle, bool) {
	h, ok := c.binds[description]
	return h, ok
}

// Binds returns the bind duplicates parent first.
func (c *RigContext) Binds() []scene.Handle {
	out := make([]scene.Handle, 0, len(c.bindOrder))
	for _, d := range c.bindOrder {
		out = append(out, c.binds[d])
	}
	return out
}

func (c *RigContext) Control(key string) (scene.Handle, bool) {
	h, ok := c.controls[key]
	return h, ok
}

// SetPlug resolves a declared plug to h.
func (c *RigContext) SetPlug(name string, h scene.Handle) error {
	if !c.w.declaresPlug(name) {
		return fmt.Errorf("%w: %s has no plug %q", ErrUnknownPlug, c.w.ID(), name)
	}
	c.w.plugs[name] = h
	return nil
}

// Tag adds handles to category for the assembly parenting pass.
func (c *RigContext) Tag(category string, handles ...scene.Handle) {
	c.w.categories[category] = append(c.w.categories[category], handles...)
}

// Register makes h part of the rig snapshot used by CacheRigDiffs.
func (c *RigContext) Register(h scene.Handle, space scene.Space, attrs ...string) error {
	name, err := c.Backend.Name(h)
	if err != nil {
		return err
	}
	return c.w.rigDiffer.Register(name, h, space, attrs...)
}

// ParentPlug resolves the plug this component is attached to on its parent.
// It reports false for root components and unresolved plugs.
func (c *RigContext) ParentPlug() (scene.Handle, bool) {
	if c.w.parent == nil {
		return scene.NoHandle, false
	}
	return c.w.parent.Plug(c.w.parentPlug)
}
