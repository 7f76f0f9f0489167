package parts

import (
	"errors"

	"github.com/zeusync/rigsmith/internal/core/rig"
	"github.com/zeusync/rigsmith/internal/core/scene"
	"github.com/zeusync/rigsmith/internal/core/widget"
)

const CogKind = "cog"

// Cog is the root control of a character. Its master control receives the
// inverse-kinematic setups of the whole assembly.
type Cog struct{}

func (Cog) Name() string    { return CogKind }
func (Cog) Plugs() []string { return []string{rig.MasterPlug} }

func (Cog) DeclareOptions(o *widget.Options) {
	o.Declare(OptionSize, scene.Scalar(4), "master control size")
	o.Declare(OptionOrigin, scene.Vec(0, 0, 0), "world position of the root")
}

func (Cog) BuildLayout(ctx *widget.LayoutContext) error {
	at := scene.At(ctx.Options.Vec(OptionOrigin))
	root, err := ctx.CreateAt(scene.KindJoint, "root", "guide", at)
	if err != nil {
		return err
	}
	if err = ctx.Register(root, scene.SpaceWorld); err != nil {
		return err
	}
	if err = ctx.RegisterBind(root, scene.NoHandle, "root"); err != nil {
		return err
	}
	_, err = control(ctx, "master", at, ctx.Options.Float(OptionSize))
	return err
}

func (Cog) BuildRig(ctx *widget.RigContext) error {
	ctl, ok := ctx.Control("master")
	if !ok {
		return errors.New("cog: master control was not rebuilt")
	}
	root, _ := ctx.Bind("root")
	if err := ctx.Backend.SetParent(root, ctl); err != nil {
		return err
	}
	grp, err := offset(ctx, ctl, "master")
	if err != nil {
		return err
	}
	if err = ctx.SetPlug(rig.MasterPlug, ctl); err != nil {
		return err
	}
	ctx.Tag(widget.CategoryFK, grp)
	return ctx.Register(ctl, scene.SpaceLocal, AttrSize)
}
