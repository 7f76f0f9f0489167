package widget

import (
	"fmt"
	"sort"

	"github.com/zeusync/rigsmith/internal/core/naming"
	"github.com/zeusync/rigsmith/internal/core/scene"
)

// ResolutionBind is the resolution token of bind duplicates.
const ResolutionBind = "bind"

type bindDecl struct {
	handle      scene.Handle
	parent      scene.Handle
	description string
}

type controlDecl struct {
	key    string
	handle scene.Handle
	attrs  []string
}

// ControlSpec is the data needed to recreate a layout control after the
// layout is gone.
type ControlSpec struct {
	Key        string                 `yaml:"key"`
	Kind       scene.Kind             `yaml:"kind"`
	Name       string                 `yaml:"name"`
	Transform  scene.Transform        `yaml:"transform"`
	Attributes map[string]scene.Value `yaml:"attributes,omitempty"`
}

func (w *Widget) captureControls() ([]ControlSpec, error) {
	specs := make([]ControlSpec, 0, len(w.controls))
	for _, ctl := range w.controls {
		spec := ControlSpec{Key: ctl.key, Attributes: make(map[string]scene.Value)}
		var err error
		if spec.Name, err = w.backend.Name(ctl.handle); err != nil {
			return nil, err
		}
		if spec.Kind, err = w.backend.EntityKind(ctl.handle); err != nil {
			return nil, err
		}
		if spec.Transform, err = w.backend.Transform(ctl.handle, scene.SpaceWorld); err != nil {
			return nil, err
		}
		keys := ctl.attrs
		if len(keys) == 0 {
			if keys, err = w.backend.AttributeKeys(ctl.handle); err != nil {
				return nil, err
			}
		}
		for _, key := range keys {
			v, err := w.backend.Attribute(ctl.handle, key)
			if err != nil {
				return nil, err
			}
			spec.Attributes[key] = v
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (w *Widget) rebuildControls(specs []ControlSpec) (map[string]scene.Handle, error) {
	out := make(map[string]scene.Handle, len(specs))
	for _, spec := range specs {
		h, err := w.backend.CreateEntity(spec.Kind, spec.Name)
		if err != nil {
			return nil, err
		}
		if err = w.backend.SetTransform(h, scene.SpaceWorld, spec.Transform); err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(spec.Attributes))
		for key := range spec.Attributes {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err = w.backend.SetAttribute(h, key, spec.Attributes[key]); err != nil {
				return nil, err
			}
		}
		out[spec.Key] = h
	}
	return out, nil
}

// bindOrder sorts binds so every parent precedes its children. Siblings keep
// registration order.
func bindOrder(binds []bindDecl) ([]int, error) {
	index := make(map[scene.Handle]int, len(binds))
	for i, b := range binds {
		index[b.handle] = i
	}
	for _, b := range binds {
		if !b.parent.Valid() {
			continue
		}
		if _, ok := index[b.parent]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnregisteredParent, b.description)
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	marks := make([]int, len(binds))
	order := make([]int, 0, len(binds))
	var visit func(i int) error
	visit = func(i int) error {
		switch marks[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: at %s", ErrBindCycle, binds[i].description)
		}
		marks[i] = visiting
		if p := binds[i].parent; p.Valid() {
			if err := visit(index[p]); err != nil {
				return err
			}
		}
		marks[i] = done
		order = append(order, i)
		return nil
	}
	for i := range binds {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// duplicateBinds copies every bind entity with its world transform and
// attributes, and rebuilds the declared hierarchy between the copies.
func (w *Widget) duplicateBinds() (map[string]scene.Handle, []string, error) {
	order, err := bindOrder(w.binds)
	if err != nil {
		return nil, nil, err
	}
	copies := make(map[scene.Handle]scene.Handle, len(w.binds))
	byDesc := make(map[string]scene.Handle, len(w.binds))
	descs := make([]string, 0, len(w.binds))
	for _, i := range order {
		b := w.binds[i]
		kind, err := w.backend.EntityKind(b.handle)
		if err != nil {
			return nil, nil, err
		}
		world, err := w.backend.Transform(b.handle, scene.SpaceWorld)
		if err != nil {
			return nil, nil, err
		}
		suffix := "jnt"
		if kind != scene.KindJoint {
			suffix = "srt"
		}
		name := w.namer.Name(naming.Tokens{
			naming.Description: b.description,
			naming.Resolution:  ResolutionBind,
			naming.Suffix:      suffix,
		})
		dup, err := w.backend.CreateEntity(kind, name)
		if err != nil {
			return nil, nil, err
		}
		keys, err := w.backend.AttributeKeys(b.handle)
		if err != nil {
			return nil, nil, err
		}
		for _, key := range keys {
			v, err := w.backend.Attribute(b.handle, key)
			if err != nil {
				return nil, nil, err
			}
			if err = w.backend.SetAttribute(dup, key, v); err != nil {
				return nil, nil, err
			}
		}
		if b.parent.Valid() {
			if err = w.backend.SetParent(dup, copies[b.parent]); err != nil {
				return nil, nil, err
			}
		}
		if err = w.backend.SetTransform(dup, scene.SpaceWorld, world); err != nil {
			return nil, nil, err
		}
		copies[b.handle] = dup
		byDesc[b.description] = dup
		descs = append(descs, b.description)
	}
	return byDesc, descs, nil
}
