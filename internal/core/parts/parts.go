// Package parts holds the built-in component kinds.
package parts

import (
	"github.com/zeusync/rigsmith/internal/core/scene"
	"github.com/zeusync/rigsmith/internal/core/widget"
)

// Register adds every built-in kind to reg.
func Register(reg *widget.Registry) error {
	for name, factory := range map[string]widget.Factory{
		CogKind:  func() widget.Kind { return Cog{} },
		LimbKind: func() widget.Kind { return Limb{} },
		PropKind: func() widget.Kind { return Prop{} },
	} {
		if err := reg.Register(name, factory); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in kinds.
func NewRegistry() (*widget.Registry, error) {
	reg := widget.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// offset wraps ctl in a group at the control's world position and returns
// the group.
func offset(ctx *widget.RigContext, ctl scene.Handle, description string) (scene.Handle, error) {
	world, err := ctx.Backend.Transform(ctl, scene.SpaceWorld)
	if err != nil {
		return scene.NoHandle, err
	}
	grp, err := ctx.CreateAt(scene.KindGroup, description, "offset", world)
	if err != nil {
		return scene.NoHandle, err
	}
	if err = ctx.Backend.SetParent(ctl, grp); err != nil {
		return scene.NoHandle, err
	}
	return grp, nil
}

func control(ctx *widget.LayoutContext, description string, world scene.Transform, size float64) (scene.Handle, error) {
	ctl, err := ctx.CreateAt(scene.KindControl, description, "ctl", world)
	if err != nil {
		return scene.NoHandle, err
	}
	if err = ctx.Backend.SetAttribute(ctl, AttrSize, scene.Scalar(size)); err != nil {
		return scene.NoHandle, err
	}
	if err = ctx.Register(ctl, scene.SpaceWorld, AttrSize); err != nil {
		return scene.NoHandle, err
	}
	return ctl, ctx.RegisterControl(description, ctl, AttrSize)
}

// Shared option and attribute names.
const (
	OptionSize   = "size"
	OptionOrigin = "origin"
	AttrSize     = "size"
)
