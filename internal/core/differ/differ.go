// Package differ captures entity state, computes sparse diffs against the
// captured baseline and replays diffs onto rebuilt entities.
package differ

import (
	"fmt"
	"sort"

	"github.com/zeusync/rigsmith/internal/core/observability/log"
	"github.com/zeusync/rigsmith/internal/core/scene"
)

type registration struct {
	name   string
	handle scene.Handle
	space  scene.Space
	attrs  []string
}

// Differ tracks a set of named entities. Names, not handles, key snapshots
// and diffs so a diff stays meaningful after the entities are rebuilt.
type Differ struct {
	backend   scene.Backend
	logger    log.Log
	tolerance float64

	order    []string
	entries  map[string]registration
	snapshot Snapshot
}

type Option func(*Differ)

// WithTolerance sets the absolute tolerance for numeric comparison. Zero
// keeps exact equality.
func WithTolerance(eps float64) Option {
	return func(d *Differ) {
		if eps > 0 {
			d.tolerance = eps
		}
	}
}

func WithLogger(l log.Log) Option {
	return func(d *Differ) { d.logger = l }
}

func New(backend scene.Backend, opts ...Option) *Differ {
	d := &Differ{
		backend: backend,
		entries: make(map[string]registration),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = log.OrNop(d.logger)
	return d
}

func (d *Differ) Tolerance() float64 { return d.tolerance }

// Register adds an entity under name. SetInitialState captures its listed
// custom attributes and its local and world transforms; diffs carry the
// transform in space only.
func (d *Differ) Register(name string, h scene.Handle, space scene.Space, attrs ...string) error {
	if _, dup := d.entries[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateEntity, name)
	}
	custom := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if !scene.IsTransformKey(a) {
			custom = append(custom, a)
		}
	}
	d.entries[name] = registration{name: name, handle: h, space: space, attrs: custom}
	d.order = append(d.order, name)
	return nil
}

// Names returns registered names in registration order.
func (d *Differ) Names() []string {
	return append([]string(nil), d.order...)
}

func (d *Differ) Registered(name string) bool {
	_, ok := d.entries[name]
	return ok
}

func (d *Differ) HasSnapshot() bool { return d.snapshot != nil }

// Snapshot returns a copy of the captured baseline, or nil.
func (d *Differ) Snapshot() Snapshot {
	if d.snapshot == nil {
		return nil
	}
	return d.snapshot.Clone()
}

// Reset drops every registration and the snapshot.
func (d *Differ) Reset() {
	d.order = nil
	d.entries = make(map[string]registration)
	d.snapshot = nil
}

// capture records the declared custom attributes and the transform in both
// spaces, keyed "local.translate", "world.translate" and so on.
func (d *Differ) capture(reg registration) (Record, error) {
	rec := make(Record, 6+len(reg.attrs))
	for _, space := range []scene.Space{scene.SpaceLocal, scene.SpaceWorld} {
		t, err := d.backend.Transform(reg.handle, space)
		if err != nil {
			return nil, err
		}
		for k, v := range t.SpaceValues(space) {
			rec[k] = v
		}
	}
	for _, a := range reg.attrs {
		v, err := d.backend.Attribute(reg.handle, a)
		if err != nil {
			return nil, err
		}
		rec[a] = v
	}
	return rec, nil
}

// diffKey maps a snapshot key onto the key a diff carries. Transform keys
// of the space the entity was not registered in never enter a diff.
func diffKey(reg registration, key string) (string, bool) {
	space, field, ok := scene.SplitSpaceKey(key)
	if !ok {
		return key, true
	}
	return field, space == reg.space
}

// SetInitialState captures every registered entity, replacing any previous
// snapshot.
func (d *Differ) SetInitialState() error {
	snap := make(Snapshot, len(d.order))
	for _, name := range d.order {
		rec, err := d.capture(d.entries[name])
		if err != nil {
			return fmt.Errorf("capture %s: %w", name, err)
		}
		snap[name] = rec
	}
	d.snapshot = snap
	return nil
}

// ComputeDiff compares the current state of registered entities with the
// snapshot. Entities that no longer exist are skipped.
func (d *Differ) ComputeDiff() (Diff, error) {
	if d.snapshot == nil {
		return nil, ErrNoSnapshot
	}
	diff := make(Diff)
	for _, name := range d.order {
		reg := d.entries[name]
		base, ok := d.snapshot[name]
		if !ok {
			continue
		}
		if !d.backend.EntityExists(reg.handle) {
			d.logger.Warn("registered entity no longer exists, skipped", log.String("entity", name))
			continue
		}
		cur, err := d.capture(reg)
		if err != nil {
			return nil, fmt.Errorf("capture %s: %w", name, err)
		}
		var changed Record
		for k, v := range cur {
			key, ok := diffKey(reg, k)
			if !ok {
				continue
			}
			if old, ok := base[k]; ok && old.Equal(v, d.tolerance) {
				continue
			}
			if changed == nil {
				changed = make(Record)
			}
			changed[key] = v
		}
		if changed != nil {
			diff[name] = changed
		}
	}
	return diff, nil
}

// ApplyDiff writes every value in diff onto the entity with the matching
// name. Missing entities are skipped with a warning; backend failures on
// existing entities are returned.
func (d *Differ) ApplyDiff(diff Diff) error {
	for _, name := range d.applyOrder(diff) {
		rec := diff[name]
		h, ok := d.backend.FindEntity(name)
		if !ok {
			d.logger.Warn("diff target not found, skipped", log.String("entity", name))
			continue
		}
		space := scene.SpaceLocal
		if reg, ok := d.entries[name]; ok {
			space = reg.space
		}
		if err := d.applyRecord(h, name, space, rec); err != nil {
			return err
		}
	}
	return nil
}

func (d *Differ) applyRecord(h scene.Handle, name string, space scene.Space, rec Record) error {
	var (
		t          scene.Transform
		haveT      bool
		transformK bool
	)
	for _, k := range rec.Keys() {
		v := rec[k]
		if !scene.IsTransformKey(k) {
			if err := d.backend.SetAttribute(h, k, v); err != nil {
				return fmt.Errorf("apply %s.%s: %w", name, k, err)
			}
			continue
		}
		if !haveT {
			cur, err := d.backend.Transform(h, space)
			if err != nil {
				return fmt.Errorf("apply %s: %w", name, err)
			}
			t, haveT = cur, true
		}
		next, ok := t.WithValue(k, v)
		if !ok {
			d.logger.Warn("diff value is not a vector, skipped",
				log.String("entity", name),
				log.String("key", k),
				log.String("type", v.Type().String()))
			continue
		}
		t, transformK = next, true
	}
	if transformK {
		if err := d.backend.SetTransform(h, space, t); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

// applyOrder puts registered names first, in registration order, then the
// rest sorted. Registration order is parent before child, which keeps world
// space writes stable.
func (d *Differ) applyOrder(diff Diff) []string {
	out := make([]string, 0, len(diff))
	for _, name := range d.order {
		if _, ok := diff[name]; ok {
			out = append(out, name)
		}
	}
	var rest []string
	for name := range diff {
		if _, ok := d.entries[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
