package parts

import (
	"errors"

	"github.com/zeusync/rigsmith/internal/core/scene"
	"github.com/zeusync/rigsmith/internal/core/widget"
)

const PropKind = "prop"

// PropPlug resolves to the prop control.
const PropPlug = "ctl"

// Prop is a single free control, for accessories and attachments.
type Prop struct{}

func (Prop) Name() string    { return PropKind }
func (Prop) Plugs() []string { return []string{PropPlug} }

func (Prop) DeclareOptions(o *widget.Options) {
	o.Declare(OptionSize, scene.Scalar(1), "control size")
	o.Declare(OptionOrigin, scene.Vec(0, 0, 0), "world position of the control")
}

func (Prop) BuildLayout(ctx *widget.LayoutContext) error {
	_, err := control(ctx, "main", scene.At(ctx.Options.Vec(OptionOrigin)), ctx.Options.Float(OptionSize))
	return err
}

func (Prop) BuildRig(ctx *widget.RigContext) error {
	ctl, ok := ctx.Control("main")
	if !ok {
		return errors.New("prop: control was not rebuilt")
	}
	grp, err := offset(ctx, ctl, "main")
	if err != nil {
		return err
	}
	if err = ctx.SetPlug(PropPlug, ctl); err != nil {
		return err
	}
	ctx.Tag(widget.CategoryFK, grp)
	return ctx.Register(ctl, scene.SpaceLocal)
}
