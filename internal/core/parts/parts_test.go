package parts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/rigsmith/internal/core/parts"
	"github.com/zeusync/rigsmith/internal/core/rig"
	"github.com/zeusync/rigsmith/internal/core/scene"
	"github.com/zeusync/rigsmith/internal/core/widget"
)

func newWidget(t *testing.T, backend *scene.Memory, kind, part, side string) *widget.Widget {
	t.Helper()
	reg, err := parts.NewRegistry()
	require.NoError(t, err)
	k, err := reg.New(kind)
	require.NoError(t, err)
	return widget.New(backend, k, part, side)
}

func worldTranslate(t *testing.T, backend *scene.Memory, name string) scene.Vec3 {
	t.Helper()
	h, ok := backend.FindEntity(name)
	require.True(t, ok, "entity %s not found", name)
	tr, err := backend.Transform(h, scene.SpaceWorld)
	require.NoError(t, err)
	return tr.Translate
}

func TestRegister(t *testing.T) {
	reg := widget.NewRegistry()
	require.NoError(t, parts.Register(reg))
	assert.Equal(t, []string{parts.CogKind, parts.LimbKind, parts.PropKind}, reg.Names())
	assert.ErrorIs(t, parts.Register(reg), widget.ErrKindExists)
}

func TestLimbLayout(t *testing.T) {
	backend := scene.NewMemory()
	w := newWidget(t, backend, parts.LimbKind, "leg", "L")
	require.NoError(t, w.BuildLayout())

	assert.Len(t, w.Entities(), 4)
	assert.Equal(t, scene.Vec3{0, -5, 0}, worldTranslate(t, backend, "L_leg_j1_guide"))
	assert.Equal(t, scene.Vec3{0, -10, 0}, worldTranslate(t, backend, "L_leg_j2_guide"))
	assert.Equal(t, scene.Vec3{0, -10, 0}, worldTranslate(t, backend, "L_leg_ik_ctl"))
}

func TestLimbLayoutOptions(t *testing.T) {
	backend := scene.NewMemory()
	w := newWidget(t, backend, parts.LimbKind, "tail", "C")
	require.NoError(t, w.Options().SetRaw(parts.OptionJoints, 5))
	require.NoError(t, w.Options().SetRaw(parts.OptionAim, []any{0, 0, -1}))
	require.NoError(t, w.Options().SetRaw(parts.OptionOrigin, []any{0, 8, 0}))
	require.NoError(t, w.BuildLayout())

	assert.Len(t, w.Entities(), 6)
	assert.Equal(t, scene.Vec3{0, 8, -10}, worldTranslate(t, backend, "C_tail_j4_guide"))
}

func TestLimbRejectsShortChain(t *testing.T) {
	backend := scene.NewMemory()
	w := newWidget(t, backend, parts.LimbKind, "leg", "L")
	require.NoError(t, w.Options().SetRaw(parts.OptionJoints, 1))
	assert.Error(t, w.BuildLayout())
	assert.Equal(t, widget.StateUnbuilt, w.State())
}

func TestLimbRig(t *testing.T) {
	backend := scene.NewMemory()
	w := newWidget(t, backend, parts.LimbKind, "leg", "L")
	require.NoError(t, w.BuildRig())

	end, ok := w.Plug(parts.LimbPlug)
	require.True(t, ok)
	name, err := backend.Name(end)
	require.NoError(t, err)
	assert.Equal(t, "L_leg_j2_bind_jnt", name)

	assert.Len(t, w.Entities(), 13)
	assert.Len(t, w.Category(widget.CategoryFK), 1)
	assert.Len(t, w.Category(widget.CategoryIK), 1)
	assert.Len(t, w.Category(widget.CategoryDoNotTouch), 1)
	assert.Equal(t, scene.Vec3{0, -10, 0}, worldTranslate(t, backend, "L_leg_fkj2_ctl"))
	assert.Equal(t, scene.Vec3{0, -10, 0}, worldTranslate(t, backend, "L_leg_ik_hdl"))

	for _, guide := range []string{"L_leg_j0_guide", "L_leg_j1_guide", "L_leg_j2_guide"} {
		_, ok := backend.FindEntity(guide)
		assert.False(t, ok, "%s survived the rig build", guide)
	}

	require.NoError(t, w.Delete())
	assert.Zero(t, backend.Len())
}

func TestLimbRigFollowsGuideEdits(t *testing.T) {
	backend := scene.NewMemory()
	w := newWidget(t, backend, parts.LimbKind, "arm", "R")
	require.NoError(t, w.BuildLayout())
	h, ok := backend.FindEntity("R_arm_j2_guide")
	require.True(t, ok)
	require.NoError(t, backend.SetTransform(h, scene.SpaceLocal, scene.At(scene.Vec3{2, -5, 0})))

	require.NoError(t, w.BuildRig())
	assert.Equal(t, scene.Vec3{2, -10, 0}, worldTranslate(t, backend, "R_arm_j2_bind_jnt"))
	assert.Equal(t, scene.Vec3{2, -10, 0}, worldTranslate(t, backend, "R_arm_fkj2_ctl"))
}

func TestCogRig(t *testing.T) {
	backend := scene.NewMemory()
	w := newWidget(t, backend, parts.CogKind, "cog", "C")
	require.NoError(t, w.Options().SetRaw(parts.OptionOrigin, []any{0, 10, 0}))
	require.NoError(t, w.BuildRig())

	ctl, ok := w.Plug(rig.MasterPlug)
	require.True(t, ok)
	name, err := backend.Name(ctl)
	require.NoError(t, err)
	assert.Equal(t, "C_cog_master_ctl", name)
	assert.Equal(t, scene.Vec3{0, 10, 0}, worldTranslate(t, backend, "C_cog_master_ctl"))

	size, err := backend.Attribute(ctl, parts.AttrSize)
	require.NoError(t, err)
	assert.Equal(t, 4.0, size.Float())

	root, ok := backend.FindEntity("C_cog_root_bind_jnt")
	require.True(t, ok)
	parent, err := backend.Parent(root)
	require.NoError(t, err)
	assert.Equal(t, ctl, parent)
}

func TestPropRig(t *testing.T) {
	backend := scene.NewMemory()
	w := newWidget(t, backend, parts.PropKind, "sword", "R")
	require.NoError(t, w.BuildRig())

	ctl, ok := w.Plug(parts.PropPlug)
	require.True(t, ok)
	fk := w.Category(widget.CategoryFK)
	require.Len(t, fk, 1)
	parent, err := backend.Parent(ctl)
	require.NoError(t, err)
	assert.Equal(t, fk[0], parent)
}
