package widget

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/rigsmith/internal/core/differ"
	"github.com/zeusync/rigsmith/internal/core/observability/log"
	"github.com/zeusync/rigsmith/internal/core/scene"
)

const (
	rootGuide = "hero_L_arm_root_guide"
	tipGuide  = "hero_L_arm_tip_guide"
	mainCtl   = "hero_L_arm_main_ctl"
	rootBind  = "hero_L_arm_root_bind_jnt"
	tipBind   = "hero_L_arm_tip_bind_jnt"
)

// chainKind lays out a two joint chain with one control and rigs it by
// hanging the bind chain under the control.
type chainKind struct {
	orphanBind bool
	rigErr     error
}

func (k *chainKind) Name() string    { return "chain" }
func (k *chainKind) Plugs() []string { return []string{"end"} }

func (k *chainKind) DeclareOptions(o *Options) {
	o.Declare("length", scene.Scalar(10), "distance from root to tip")
}

func (k *chainKind) BuildLayout(ctx *LayoutContext) error {
	root, err := ctx.CreateAt(scene.KindJoint, "root", "guide", scene.Identity())
	if err != nil {
		return err
	}
	tip, err := ctx.CreateUnder(scene.KindJoint, "tip", "guide", root,
		scene.At(scene.Vec3{0, ctx.Options.Float("length"), 0}))
	if err != nil {
		return err
	}
	ctl, err := ctx.CreateAt(scene.KindControl, "main", "ctl", scene.At(scene.Vec3{0, 0, 5}))
	if err != nil {
		return err
	}
	if err = ctx.Backend.SetAttribute(ctl, "size", scene.Scalar(1)); err != nil {
		return err
	}
	for _, reg := range []struct {
		h     scene.Handle
		space scene.Space
		attrs []string
	}{
		{root, scene.SpaceWorld, nil},
		{tip, scene.SpaceLocal, nil},
		{ctl, scene.SpaceWorld, []string{"size"}},
	} {
		if err = ctx.Register(reg.h, reg.space, reg.attrs...); err != nil {
			return err
		}
	}
	tipParent := root
	if k.orphanBind {
		tipParent = ctl
	}
	if err = ctx.RegisterBind(root, scene.NoHandle, "root"); err != nil {
		return err
	}
	if err = ctx.RegisterBind(tip, tipParent, "tip"); err != nil {
		return err
	}
	return ctx.RegisterControl("main", ctl)
}

func (k *chainKind) BuildRig(ctx *RigContext) error {
	if k.rigErr != nil {
		return k.rigErr
	}
	ctl, ok := ctx.Control("main")
	if !ok {
		return errors.New("main control missing")
	}
	root, _ := ctx.Bind("root")
	tip, _ := ctx.Bind("tip")
	grp, err := ctx.Create(scene.KindGroup, "helpers", "grp")
	if err != nil {
		return err
	}
	if err = ctx.Backend.SetParent(root, ctl); err != nil {
		return err
	}
	if err = ctx.SetPlug("end", tip); err != nil {
		return err
	}
	ctx.Tag(CategoryFK, ctl)
	ctx.Tag(CategoryDoNotTouch, grp)
	return ctx.Register(ctl, scene.SpaceWorld, "size")
}

func newChain(t *testing.T, kind *chainKind, opts ...Option) (*Widget, *scene.Memory) {
	t.Helper()
	backend := scene.NewMemory()
	opts = append([]Option{WithCharacter("hero")}, opts...)
	return New(backend, kind, "arm", "L", opts...), backend
}

func mustFind(t *testing.T, backend *scene.Memory, name string) scene.Handle {
	t.Helper()
	h, ok := backend.FindEntity(name)
	require.True(t, ok, "entity %s not found", name)
	return h
}

func translate(t *testing.T, backend *scene.Memory, name string, space scene.Space) scene.Vec3 {
	t.Helper()
	tr, err := backend.Transform(mustFind(t, backend, name), space)
	require.NoError(t, err)
	return tr.Translate
}

func moveTip(t *testing.T, backend *scene.Memory, y float64) {
	t.Helper()
	require.NoError(t, backend.SetTransform(mustFind(t, backend, tipGuide), scene.SpaceLocal, scene.At(scene.Vec3{0, y, 0})))
}

func TestNewWidget(t *testing.T) {
	w, _ := newChain(t, &chainKind{})
	assert.Equal(t, "arm_L", w.ID())
	assert.Equal(t, StateUnbuilt, w.State())
	assert.Equal(t, []string{"end"}, w.Plugs())
	assert.Equal(t, 10.0, w.Options().Float("length"))
	assert.Empty(t, w.Entities())
}

func TestBuildLayout(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	require.NoError(t, w.BuildLayout())

	assert.Equal(t, StateLayoutBuilt, w.State())
	assert.Len(t, w.Entities(), 3)
	assert.Equal(t, scene.Vec3{0, 10, 0}, translate(t, backend, tipGuide, scene.SpaceWorld))
}

func TestBuildLayoutUsesOptions(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	require.NoError(t, w.Options().Set("length", scene.Scalar(4)))
	require.NoError(t, w.BuildLayout())
	assert.Equal(t, scene.Vec3{0, 4, 0}, translate(t, backend, tipGuide, scene.SpaceWorld))
}

func TestBuildLayoutGuard(t *testing.T) {
	logger, logs := log.NewObserved(log.LevelDebug)
	w, backend := newChain(t, &chainKind{}, WithLogger(logger))
	require.NoError(t, w.BuildLayout())
	before := backend.Len()

	require.NoError(t, w.BuildLayout())
	assert.Equal(t, StateLayoutBuilt, w.State())
	assert.Equal(t, before, backend.Len())
	assert.Equal(t, 1, logs.FilterMessage("operation skipped").Len())

	err := w.BuildLayout(Strict(true))
	require.ErrorIs(t, err, ErrGuardViolation)
	var gerr *GuardError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "build layout", gerr.Op)
	assert.Equal(t, StateLayoutBuilt, gerr.State)
	assert.Equal(t, []State{StateUnbuilt}, gerr.Allowed)
	assert.Equal(t, before, backend.Len())
}

func TestStrictWidgetCanBeRelaxedPerCall(t *testing.T) {
	w, _ := newChain(t, &chainKind{}, WithStrict(true))
	assert.ErrorIs(t, w.CacheDiffs(), ErrGuardViolation)
	assert.NoError(t, w.CacheDiffs(Strict(false)))
	assert.ErrorIs(t, w.Delete(), ErrGuardViolation)
	assert.ErrorIs(t, w.CacheRigDiffs(), ErrGuardViolation)
}

func TestCacheSurvivesRebuild(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	require.NoError(t, w.BuildLayout())
	moveTip(t, backend, 10.25)

	require.NoError(t, w.CacheDiffs())
	require.NoError(t, w.Delete())
	assert.Equal(t, StateUnbuilt, w.State())
	assert.Zero(t, backend.Len())

	require.NoError(t, w.BuildLayout())
	assert.Equal(t, scene.Vec3{0, 10.25, 0}, translate(t, backend, tipGuide, scene.SpaceLocal))
}

func TestDeleteCachesLayoutByDefault(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	require.NoError(t, w.BuildLayout())
	moveTip(t, backend, 7)
	require.NoError(t, w.Delete())

	diff := w.CachedDiffs().Layout
	require.Contains(t, diff, tipGuide)
	assert.Equal(t, []string{scene.AttrTranslate}, diff[tipGuide].Keys())
}

func TestDeleteWithoutCache(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	require.NoError(t, w.BuildLayout())
	moveTip(t, backend, 7)
	require.NoError(t, w.Delete(Cache(false)))
	assert.True(t, w.CachedDiffs().Empty())

	require.NoError(t, w.BuildLayout())
	assert.Equal(t, scene.Vec3{0, 10, 0}, translate(t, backend, tipGuide, scene.SpaceLocal))
}

func TestBuildLayoutWithoutCachedDiffs(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	require.NoError(t, w.BuildLayout())
	moveTip(t, backend, 7)
	require.NoError(t, w.Delete())

	require.NoError(t, w.BuildLayout(UseCachedDiffs(false)))
	assert.Equal(t, scene.Vec3{0, 10, 0}, translate(t, backend, tipGuide, scene.SpaceLocal))
}

func TestBuildLayoutAltDiffs(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	w.SetCachedDiffs(DiffPair{Layout: differ.Diff{
		tipGuide: {scene.AttrTranslate: scene.Vec(0, 3, 0)},
	}})
	alt := differ.Diff{tipGuide: {scene.AttrTranslate: scene.Vec(0, 5, 0)}}

	require.NoError(t, w.BuildLayout(AltDiffs(alt)))
	assert.Equal(t, scene.Vec3{0, 5, 0}, translate(t, backend, tipGuide, scene.SpaceLocal))
}

func TestDeleteToleratesMissingEntities(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	require.NoError(t, w.BuildLayout())
	require.NoError(t, backend.DestroyEntity(mustFind(t, backend, mainCtl)))

	require.NoError(t, w.Delete(Cache(false)))
	assert.Zero(t, backend.Len())
}

func TestBuildRigFromUnbuilt(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	require.NoError(t, w.BuildRig())
	assert.Equal(t, StateRigged, w.State())

	for _, name := range []string{rootGuide, tipGuide} {
		_, ok := backend.FindEntity(name)
		assert.False(t, ok, "layout entity %s survived", name)
	}
	assert.Equal(t, 4, backend.Len())
	assert.Len(t, w.Entities(), 4)

	end, ok := w.Plug("end")
	require.True(t, ok)
	assert.Equal(t, mustFind(t, backend, tipBind), end)

	ctl := mustFind(t, backend, mainCtl)
	assert.Equal(t, []scene.Handle{ctl}, w.Category(CategoryFK))
	parent, err := backend.Parent(mustFind(t, backend, rootBind))
	require.NoError(t, err)
	assert.Equal(t, ctl, parent)
	tipParent, err := backend.Parent(end)
	require.NoError(t, err)
	assert.Equal(t, mustFind(t, backend, rootBind), tipParent)
}

func TestBuildRigRebuildsControls(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	require.NoError(t, w.BuildLayout())
	ctl := mustFind(t, backend, mainCtl)
	require.NoError(t, backend.SetAttribute(ctl, "size", scene.Scalar(2)))
	require.NoError(t, backend.SetTransform(ctl, scene.SpaceWorld, scene.At(scene.Vec3{1, 2, 3})))

	require.NoError(t, w.BuildRig())

	rebuilt := mustFind(t, backend, mainCtl)
	assert.NotEqual(t, ctl, rebuilt)
	assert.Equal(t, scene.Vec3{1, 2, 3}, translate(t, backend, mainCtl, scene.SpaceWorld))
	size, err := backend.Attribute(rebuilt, "size")
	require.NoError(t, err)
	assert.Equal(t, 2.0, size.Float())

	specs := w.ControlSpecs()
	require.Len(t, specs, 1)
	assert.Equal(t, "main", specs[0].Key)
	assert.Equal(t, scene.KindControl, specs[0].Kind)
	assert.Equal(t, mainCtl, specs[0].Name)
}

func TestBuildRigKeepsLayoutCustomisation(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	require.NoError(t, w.BuildLayout())
	moveTip(t, backend, 12)

	require.NoError(t, w.BuildRig())
	assert.Equal(t, scene.Vec3{0, 12, 0}, translate(t, backend, tipBind, scene.SpaceWorld))

	require.NoError(t, w.Delete())
	require.NoError(t, w.BuildLayout())
	assert.Equal(t, scene.Vec3{0, 12, 0}, translate(t, backend, tipGuide, scene.SpaceLocal))
}

func TestBuildRigIsRepeatable(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	require.NoError(t, w.BuildLayout())
	moveTip(t, backend, 12)
	require.NoError(t, w.BuildRig())
	count := backend.Len()

	require.NoError(t, w.BuildRig())
	assert.Equal(t, StateRigged, w.State())
	assert.Equal(t, count, backend.Len())
	assert.Equal(t, scene.Vec3{0, 12, 0}, translate(t, backend, tipBind, scene.SpaceWorld))
}

func TestRigDiffsAreCachedExplicitly(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	require.NoError(t, w.BuildRig())

	require.NoError(t, backend.SetAttribute(mustFind(t, backend, mainCtl), "size", scene.Scalar(3)))
	require.NoError(t, w.BuildRig())
	size, err := backend.Attribute(mustFind(t, backend, mainCtl), "size")
	require.NoError(t, err)
	assert.Equal(t, 1.0, size.Float())

	require.NoError(t, backend.SetAttribute(mustFind(t, backend, mainCtl), "size", scene.Scalar(3)))
	require.NoError(t, w.CacheRigDiffs())
	require.NoError(t, w.BuildRig())
	size, err = backend.Attribute(mustFind(t, backend, mainCtl), "size")
	require.NoError(t, err)
	assert.Equal(t, 3.0, size.Float())
	assert.Contains(t, w.CachedDiffs().Rig, mainCtl)
}

func TestRiggedDeleteDoesNotCache(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	require.NoError(t, w.BuildRig())
	require.NoError(t, backend.SetAttribute(mustFind(t, backend, mainCtl), "size", scene.Scalar(3)))

	require.NoError(t, w.Delete())
	assert.Equal(t, StateUnbuilt, w.State())
	assert.Zero(t, backend.Len())
	assert.True(t, w.CachedDiffs().Empty())
}

func TestDeleteReleasesForeignChildren(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	require.NoError(t, w.BuildRig())
	end, _ := w.Plug("end")
	other, err := backend.CreateEntity(scene.KindControl, "other_ctl")
	require.NoError(t, err)
	require.NoError(t, backend.SetParent(other, end))

	require.NoError(t, w.Delete())
	assert.True(t, backend.EntityExists(other))
	parent, err := backend.Parent(other)
	require.NoError(t, err)
	assert.Equal(t, scene.NoHandle, parent)
}

func TestUnregisteredBindParent(t *testing.T) {
	w, backend := newChain(t, &chainKind{orphanBind: true})
	require.NoError(t, w.BuildLayout())

	err := w.BuildRig()
	require.ErrorIs(t, err, ErrUnregisteredParent)
	assert.Equal(t, StateLayoutBuilt, w.State())
	assert.False(t, w.tracker.Active())

	require.NoError(t, w.Discard())
	assert.Zero(t, backend.Len())
}

func TestBindOrderIsParentFirst(t *testing.T) {
	binds := []bindDecl{
		{handle: "c", parent: "b", description: "c"},
		{handle: "a", description: "a"},
		{handle: "b", parent: "a", description: "b"},
	}
	order, err := bindOrder(binds)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 0}, order)

	binds[1].parent = "c"
	_, err = bindOrder(binds)
	assert.ErrorIs(t, err, ErrBindCycle)
}

func TestBackendFailureLeavesEntitiesTracked(t *testing.T) {
	w, backend := newChain(t, &chainKind{})
	backend.FailOn(scene.OpCreate, tipGuide, errors.New("host refused"))

	err := w.BuildLayout()
	require.ErrorIs(t, err, scene.ErrBackendFailure)
	assert.Equal(t, StateUnbuilt, w.State())
	assert.False(t, w.tracker.Active())
	assert.Equal(t, []scene.Handle{mustFind(t, backend, rootGuide)}, w.Entities())

	require.NoError(t, w.Discard())
	assert.Zero(t, backend.Len())
}

func TestRigFailureAfterLayoutDeletion(t *testing.T) {
	kind := &chainKind{rigErr: errors.New("solver missing")}
	w, backend := newChain(t, kind)
	require.NoError(t, w.BuildLayout())

	require.Error(t, w.BuildRig())
	assert.Equal(t, StateUnbuilt, w.State())
	_, ok := backend.FindEntity(rootGuide)
	assert.False(t, ok)
	assert.NotEmpty(t, w.Entities())

	require.NoError(t, w.Discard())
	assert.Zero(t, backend.Len())
}

func TestAttach(t *testing.T) {
	backend := scene.NewMemory()
	parent := New(backend, &chainKind{}, "arm", "L")
	child := New(backend, &chainKind{}, "hand", "L")

	assert.ErrorIs(t, child.Attach(parent, "wrist"), ErrUnknownPlug)
	require.NoError(t, child.Attach(parent, "end"))
	assert.ErrorIs(t, child.Attach(parent, "end"), ErrAlreadyAttached)

	p, plug := child.Parent()
	assert.Same(t, parent, p)
	assert.Equal(t, "end", plug)

	child.Detach()
	p, _ = child.Parent()
	assert.Nil(t, p)
	require.NoError(t, child.Attach(parent, "end"))
}

func TestAttachAsRootIsRecorded(t *testing.T) {
	root := New(scene.NewMemory(), &chainKind{}, "arm", "L")
	require.NoError(t, root.Attach(nil, ""))
	assert.ErrorIs(t, root.Attach(nil, ""), ErrAlreadyAttached)

	p, plug := root.Parent()
	assert.Nil(t, p)
	assert.Empty(t, plug)

	root.Detach()
	assert.NoError(t, root.Attach(nil, ""))
}
