package parts

import (
	"errors"
	"fmt"

	"github.com/zeusync/rigsmith/internal/core/scene"
	"github.com/zeusync/rigsmith/internal/core/widget"
)

const LimbKind = "limb"

// LimbPlug resolves to the last joint of the bind chain.
const LimbPlug = "end"

const (
	OptionJoints = "joints"
	OptionLength = "length"
	OptionAim    = "aim"
)

// Limb is a joint chain with forward and inverse kinematic controls.
type Limb struct{}

func (Limb) Name() string    { return LimbKind }
func (Limb) Plugs() []string { return []string{LimbPlug} }

func (Limb) DeclareOptions(o *widget.Options) {
	o.Declare(OptionJoints, scene.Scalar(3), "joints in the chain, at least 2")
	o.Declare(OptionLength, scene.Scalar(10), "distance from the first to the last joint")
	o.Declare(OptionAim, scene.Vec(0, -1, 0), "direction the chain grows in")
	o.Declare(OptionOrigin, scene.Vec(0, 0, 0), "world position of the first joint")
	o.Declare(OptionSize, scene.Scalar(1), "control size")
}

func jointName(i int) string { return fmt.Sprintf("j%d", i) }

func (Limb) BuildLayout(ctx *widget.LayoutContext) error {
	n := ctx.Options.Int(OptionJoints)
	if n < 2 {
		return fmt.Errorf("limb: %s must be at least 2, got %d", OptionJoints, n)
	}
	step := ctx.Options.Float(OptionLength) / float64(n-1)
	aim := ctx.Options.Vec(OptionAim)
	segment := scene.At(aim.Mul(scene.Vec3{step, step, step}))

	prev := scene.NoHandle
	var end scene.Transform
	for i := range n {
		var (
			guide scene.Handle
			err   error
		)
		if prev.Valid() {
			guide, err = ctx.CreateUnder(scene.KindJoint, jointName(i), "guide", prev, segment)
		} else {
			guide, err = ctx.CreateAt(scene.KindJoint, jointName(i), "guide", scene.At(ctx.Options.Vec(OptionOrigin)))
		}
		if err != nil {
			return err
		}
		space := scene.SpaceLocal
		if i == 0 {
			space = scene.SpaceWorld
		}
		if err = ctx.Register(guide, space); err != nil {
			return err
		}
		if err = ctx.RegisterBind(guide, prev, jointName(i)); err != nil {
			return err
		}
		if end, err = ctx.Backend.Transform(guide, scene.SpaceWorld); err != nil {
			return err
		}
		prev = guide
	}
	_, err := control(ctx, "ik", scene.At(end.Translate), ctx.Options.Float(OptionSize))
	return err
}

func (Limb) BuildRig(ctx *widget.RigContext) error {
	binds := ctx.Binds()
	if len(binds) == 0 {
		return errors.New("limb: no bind joints")
	}
	size := scene.Scalar(ctx.Options.Float(OptionSize))

	skel, err := ctx.Create(scene.KindGroup, "skel", "grp")
	if err != nil {
		return err
	}
	if err = ctx.Backend.SetParent(binds[0], skel); err != nil {
		return err
	}
	ctx.Tag(widget.CategoryDoNotTouch, skel)

	var parentCtl scene.Handle
	for i, bind := range binds {
		world, err := ctx.Backend.Transform(bind, scene.SpaceWorld)
		if err != nil {
			return err
		}
		ctl, err := ctx.CreateAt(scene.KindControl, "fk"+jointName(i), "ctl", world)
		if err != nil {
			return err
		}
		if err = ctx.Backend.SetAttribute(ctl, AttrSize, size); err != nil {
			return err
		}
		grp, err := offset(ctx, ctl, "fk"+jointName(i))
		if err != nil {
			return err
		}
		if parentCtl.Valid() {
			if err = ctx.Backend.SetParent(grp, parentCtl); err != nil {
				return err
			}
		} else {
			ctx.Tag(widget.CategoryFK, grp)
		}
		if err = ctx.Register(ctl, scene.SpaceLocal, AttrSize); err != nil {
			return err
		}
		parentCtl = ctl
	}

	ikCtl, ok := ctx.Control("ik")
	if !ok {
		return errors.New("limb: ik control was not rebuilt")
	}
	ikGrp, err := offset(ctx, ikCtl, "ik")
	if err != nil {
		return err
	}
	end := binds[len(binds)-1]
	endWorld, err := ctx.Backend.Transform(end, scene.SpaceWorld)
	if err != nil {
		return err
	}
	handle, err := ctx.Create(scene.KindIKHandle, "ik", "hdl")
	if err != nil {
		return err
	}
	if err = ctx.Backend.SetTransform(handle, scene.SpaceWorld, endWorld); err != nil {
		return err
	}
	if err = ctx.Backend.SetParent(handle, ikCtl); err != nil {
		return err
	}
	if err = ctx.Backend.SetAttribute(handle, "startJoint", scene.String(nameOf(ctx, binds[0]))); err != nil {
		return err
	}
	ctx.Tag(widget.CategoryIK, ikGrp)
	if err = ctx.Register(ikCtl, scene.SpaceLocal, AttrSize); err != nil {
		return err
	}
	return ctx.SetPlug(LimbPlug, end)
}

func nameOf(ctx *widget.RigContext, h scene.Handle) string {
	name, err := ctx.Backend.Name(h)
	if err != nil {
		return string(h)
	}
	return name
}
