package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/rigsmith/internal/core/differ"
	"github.com/zeusync/rigsmith/internal/core/parts"
	"github.com/zeusync/rigsmith/internal/core/rig"
	"github.com/zeusync/rigsmith/internal/core/scene"
	"github.com/zeusync/rigsmith/internal/core/widget"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "diffs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func samplePair() widget.DiffPair {
	return widget.DiffPair{
		Layout: differ.Diff{
			"L_leg_j1_guide": {scene.AttrTranslate: scene.Vec(0.1+0.2, -4.7, 1e-17)},
		},
		Rig: differ.Diff{
			"L_leg_fkj0_ctl": {"size": scene.Scalar(2.5), "label": scene.String("hip")},
		},
	}
}

func TestPutGet(t *testing.T) {
	s := openStore(t)
	written, err := s.Put("hero", "leg_L", samplePair())
	require.NoError(t, err)
	assert.True(t, written)

	got, err := s.Get("hero", "leg_L")
	require.NoError(t, err)
	assert.True(t, got.Layout.Equal(samplePair().Layout, 0))
	assert.True(t, got.Rig.Equal(samplePair().Rig, 0))
	assert.Equal(t, 0.1+0.2, got.Layout["L_leg_j1_guide"][scene.AttrTranslate].Vec()[0])
}

func TestPutSkipsUnchanged(t *testing.T) {
	s := openStore(t)
	_, err := s.Put("hero", "leg_L", samplePair())
	require.NoError(t, err)

	written, err := s.Put("hero", "leg_L", samplePair())
	require.NoError(t, err)
	assert.False(t, written)

	changed := samplePair()
	changed.Rig["L_leg_fkj0_ctl"]["size"] = scene.Scalar(3)
	written, err = s.Put("hero", "leg_L", changed)
	require.NoError(t, err)
	assert.True(t, written)
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)
	_, err := s.Get("hero", "leg_L")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Put("hero", "cog_C", widget.DiffPair{})
	require.NoError(t, err)
	_, err = s.Get("hero", "leg_L")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDeleteAssemblies(t *testing.T) {
	s := openStore(t)
	for _, id := range []string{"leg_R", "cog_C", "leg_L"} {
		_, err := s.Put("hero", id, samplePair())
		require.NoError(t, err)
	}
	_, err := s.Put("villain", "cog_C", samplePair())
	require.NoError(t, err)

	ids, err := s.List("hero")
	require.NoError(t, err)
	assert.Equal(t, []string{"cog_C", "leg_L", "leg_R"}, ids)

	require.NoError(t, s.Delete("hero", "leg_R"))
	require.NoError(t, s.Delete("hero", "leg_R"))
	require.NoError(t, s.Delete("nobody", "leg_R"))
	ids, err = s.List("hero")
	require.NoError(t, err)
	assert.Equal(t, []string{"cog_C", "leg_L"}, ids)

	ids, err = s.List("nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)

	names, err := s.Assemblies()
	require.NoError(t, err)
	assert.Equal(t, []string{"hero", "villain"}, names)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diffs.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Put("hero", "leg_L", samplePair())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
	got, err := s.Get("hero", "leg_L")
	require.NoError(t, err)
	assert.True(t, got.Layout.Equal(samplePair().Layout, 0))
}

func newAssembly(t *testing.T) (*rig.Assembly, *scene.Memory) {
	t.Helper()
	backend := scene.NewMemory()
	asm := rig.New("hero", backend)
	cog := widget.New(backend, parts.Cog{}, "cog", "C")
	leg := widget.New(backend, parts.Limb{}, "leg", "L")
	require.NoError(t, asm.AddComponent(cog, nil, ""))
	require.NoError(t, asm.AddComponent(leg, cog, rig.MasterPlug))
	return asm, backend
}

func TestSaveLoadAssembly(t *testing.T) {
	s := openStore(t)

	asm, backend := newAssembly(t)
	require.NoError(t, asm.BuildLayout())
	knee, ok := backend.FindEntity("L_leg_j1_guide")
	require.True(t, ok)
	require.NoError(t, backend.SetTransform(knee, scene.SpaceLocal, scene.At(scene.Vec3{0.5, -5, 0})))
	require.NoError(t, asm.CacheDiffs())

	changed, err := s.SaveAssembly(asm)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	changed, err = s.SaveAssembly(asm)
	require.NoError(t, err)
	assert.Zero(t, changed)

	fresh, freshBackend := newAssembly(t)
	loaded, err := s.LoadAssembly(fresh)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)
	require.NoError(t, fresh.BuildLayout())

	knee, ok = freshBackend.FindEntity("L_leg_j1_guide")
	require.True(t, ok)
	tr, err := freshBackend.Transform(knee, scene.SpaceLocal)
	require.NoError(t, err)
	assert.Equal(t, scene.Vec3{0.5, -5, 0}, tr.Translate)
}

func TestLoadAssemblyWithoutDiffs(t *testing.T) {
	s := openStore(t)
	asm, _ := newAssembly(t)
	loaded, err := s.LoadAssembly(asm)
	require.NoError(t, err)
	assert.Zero(t, loaded)
}

func TestSaveAssemblyForgetsRevertedDiffs(t *testing.T) {
	s := openStore(t)
	asm, backend := newAssembly(t)
	require.NoError(t, asm.BuildLayout())
	root, ok := backend.FindEntity("C_cog_root_guide")
	require.True(t, ok)

	require.NoError(t, backend.SetTransform(root, scene.SpaceWorld, scene.At(scene.Vec3{5, 0, 0})))
	require.NoError(t, asm.CacheDiffs())
	changed, err := s.SaveAssembly(asm)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	_, err = s.Get("hero", "cog_C")
	require.NoError(t, err)

	require.NoError(t, backend.SetTransform(root, scene.SpaceWorld, scene.At(scene.Vec3{0, 0, 0})))
	require.NoError(t, asm.CacheDiffs())
	changed, err = s.SaveAssembly(asm)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	_, err = s.Get("hero", "cog_C")
	assert.ErrorIs(t, err, ErrNotFound)

	fresh, freshBackend := newAssembly(t)
	loaded, err := s.LoadAssembly(fresh)
	require.NoError(t, err)
	assert.Zero(t, loaded)
	require.NoError(t, fresh.BuildLayout())
	root, ok = freshBackend.FindEntity("C_cog_root_guide")
	require.True(t, ok)
	tr, err := freshBackend.Transform(root, scene.SpaceWorld)
	require.NoError(t, err)
	assert.Equal(t, scene.Vec3{0, 0, 0}, tr.Translate)
}
