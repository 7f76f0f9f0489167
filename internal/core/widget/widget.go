// Package widget implements the component state machine: a component lays
// out editable guides, turns them into a final rig, and keeps the user's
// customisations as diffs across rebuilds.
package widget

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zeusync/rigsmith/internal/core/differ"
	"github.com/zeusync/rigsmith/internal/core/naming"
	"github.com/zeusync/rigsmith/internal/core/observability/log"
	"github.com/zeusync/rigsmith/internal/core/scene"
	"github.com/zeusync/rigsmith/internal/core/tracker"
	"github.com/zeusync/rigsmith/pkg/sequence"
)

// DiffPair is the persisted customisation cache of one component.
type DiffPair struct {
	Layout differ.Diff `yaml:"layout,omitempty" json:"layout,omitempty"`
	Rig    differ.Diff `yaml:"rig,omitempty" json:"rig,omitempty"`
}

func (p DiffPair) Empty() bool { return p.Layout.Empty() && p.Rig.Empty() }

func (p DiffPair) Clone() DiffPair {
	return DiffPair{Layout: p.Layout.Clone(), Rig: p.Rig.Clone()}
}

// Option configures a Widget at construction.
type Option func(*Widget)

func WithLogger(l log.Log) Option {
	return func(w *Widget) { w.logger = l }
}

// WithStrict makes guard violations return a *GuardError by default.
func WithStrict(strict bool) Option {
	return func(w *Widget) { w.strict = strict }
}

// WithTolerance sets the float tolerance of both differs.
func WithTolerance(eps float64) Option {
	return func(w *Widget) { w.tolerance = eps }
}

func WithCharacter(name string) Option {
	return func(w *Widget) { w.character = name }
}

func WithSeparator(sep string) Option {
	return func(w *Widget) { w.separator = sep }
}

// CallOption adjusts a single state machine call.
type CallOption func(*callConfig)

type callConfig struct {
	strict    *bool
	useCached bool
	cache     bool
	altDiffs  differ.Diff
}

// Strict overrides the widget strictness for one call.
func Strict(on bool) CallOption {
	return func(c *callConfig) { c.strict = &on }
}

// UseCachedDiffs controls whether cached diffs are re-applied after a build.
// Defaults to true.
func UseCachedDiffs(on bool) CallOption {
	return func(c *callConfig) { c.useCached = on }
}

// AltDiffs applies diff after the build instead of the cached one.
func AltDiffs(diff differ.Diff) CallOption {
	return func(c *callConfig) { c.altDiffs = diff }
}

// Cache controls whether Delete caches layout diffs first. Defaults to true.
func Cache(on bool) CallOption {
	return func(c *callConfig) { c.cache = on }
}

// Widget is one buildable component of an assembly.
type Widget struct {
	kind      Kind
	part      string
	side      string
	backend   scene.Backend
	logger    log.Log
	namer     *naming.Namer
	options   *Options
	strict    bool
	tolerance float64
	character string
	separator string

	state        State
	tracker      *tracker.Tracker
	layoutDiffer *differ.Differ
	rigDiffer    *differ.Differ
	cached       DiffPair

	binds        []bindDecl
	controls     []controlDecl
	controlSpecs []ControlSpec
	plugs        map[string]scene.Handle
	categories   map[string][]scene.Handle

	attached   bool
	parent     *Widget
	parentPlug string
}

// New creates an unbuilt component of kind identified by part and side.
func New(backend scene.Backend, kind Kind, part, side string, opts ...Option) *Widget {
	w := &Widget{
		kind:       kind,
		part:       part,
		side:       side,
		backend:    backend,
		separator:  naming.DefaultSeparator,
		plugs:      make(map[string]scene.Handle),
		categories: make(map[string][]scene.Handle),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = log.OrNop(w.logger).Named("widget").With(
		log.String("component", w.ID()),
		log.String("kind", kind.Name()),
	)
	w.namer = naming.New(naming.Tokens{
		naming.Character: w.character,
		naming.Side:      side,
		naming.Part:      part,
	}, naming.WithSeparator(w.separator), naming.WithLogger(w.logger))
	w.namer.Lock(naming.Side, naming.Part)
	w.options = NewOptions()
	kind.DeclareOptions(w.options)
	w.tracker = tracker.New(backend, w.logger)
	w.layoutDiffer = w.newDiffer()
	w.rigDiffer = w.newDiffer()
	return w
}

func (w *Widget) newDiffer() *differ.Differ {
	return differ.New(w.backend, differ.WithTolerance(w.tolerance), differ.WithLogger(w.logger))
}

// ID is the assembly-wide identity of the component.
func (w *Widget) ID() string {
	if w.side == "" {
		return w.part
	}
	return w.part + "_" + w.side
}

func (w *Widget) Part() string           { return w.part }
func (w *Widget) Side() string           { return w.side }
func (w *Widget) State() State           { return w.state }
func (w *Widget) Kind() Kind             { return w.kind }
func (w *Widget) Options() *Options      { return w.options }
func (w *Widget) Namer() *naming.Namer   { return w.namer }
func (w *Widget) Backend() scene.Backend { return w.backend }
func (w *Widget) Strict() bool           { return w.strict }

func (w *Widget) Plugs() []string {
	return append([]string(nil), w.kind.Plugs()...)
}

func (w *Widget) declaresPlug(name string) bool {
	return slices.Contains(w.kind.Plugs(), name)
}

// Plug returns the entity a plug resolved to in the last rig build.
func (w *Widget) Plug(name string) (scene.Handle, bool) {
	h, ok := w.plugs[name]
	if !ok || !w.backend.EntityExists(h) {
		return scene.NoHandle, false
	}
	return h, true
}

// Entities lists the live entities the current build produced.
func (w *Widget) Entities() []scene.Handle {
	return w.tracker.Entities()
}

// Category returns the live entities tagged with name.
func (w *Widget) Category(name string) []scene.Handle {
	return sequence.From(w.categories[name]).Filter(w.backend.EntityExists).Collect()
}

func (w *Widget) Categories() map[string][]scene.Handle {
	out := make(map[string][]scene.Handle, len(w.categories))
	for name := range w.categories {
		if live := w.Category(name); len(live) > 0 {
			out[name] = live
		}
	}
	return out
}

// ControlSpecs returns the rebuild data captured by the last rig build.
func (w *Widget) ControlSpecs() []ControlSpec {
	return append([]ControlSpec(nil), w.controlSpecs...)
}

func (w *Widget) CachedDiffs() DiffPair { return w.cached.Clone() }

func (w *Widget) SetCachedDiffs(p DiffPair) { w.cached = p.Clone() }

// Attach records that w hangs off plug of parent, or that it is a root when
// parent is nil. A widget is attached once until Detach.
func (w *Widget) Attach(parent *Widget, plug string) error {
	if w.attached {
		at := "a root"
		if w.parent != nil {
			at = "attached to " + w.parent.ID()
		}
		return fmt.Errorf("%w: %s is %s", ErrAlreadyAttached, w.ID(), at)
	}
	if parent != nil && plug != "" && !parent.declaresPlug(plug) {
		return fmt.Errorf("%w: %s has no plug %q", ErrUnknownPlug, parent.ID(), plug)
	}
	w.attached = true
	w.parent = parent
	w.parentPlug = plug
	return nil
}

// Detach clears the attachment.
func (w *Widget) Detach() {
	w.attached = false
	w.parent = nil
	w.parentPlug = ""
}

func (w *Widget) Parent() (*Widget, string) { return w.parent, w.parentPlug }

func (w *Widget) callConfig(opts []CallOption) *callConfig {
	c := &callConfig{useCached: true, cache: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// guard reports whether the current state is allowed. A rejected call is
// logged, and returns a *GuardError in strict mode.
func (w *Widget) guard(c *callConfig, op string, allowed ...State) (bool, error) {
	if slices.Contains(allowed, w.state) {
		return true, nil
	}
	strict := w.strict
	if c.strict != nil {
		strict = *c.strict
	}
	gerr := &GuardError{Component: w.ID(), Op: op, State: w.state, Allowed: allowed}
	w.logger.Warn("operation skipped",
		log.String("op", op),
		log.String("state", w.state.String()),
		log.Bool("strict", strict))
	if strict {
		return false, gerr
	}
	return false, nil
}

func (w *Widget) context() buildContext {
	return buildContext{
		w:       w,
		Backend: w.backend,
		Namer:   w.namer,
		Options: w.options,
		Logger:  w.logger,
	}
}

// BuildLayout constructs the editable layout. The component must be unbuilt.
func (w *Widget) BuildLayout(opts ...CallOption) error {
	c := w.callConfig(opts)
	if ok, err := w.guard(c, "build layout", StateUnbuilt); !ok {
		return err
	}
	return w.buildLayout(c)
}

func (w *Widget) buildLayout(c *callConfig) error {
	w.binds, w.controls = nil, nil
	w.plugs = make(map[string]scene.Handle)
	w.categories = make(map[string][]scene.Handle)
	w.layoutDiffer = w.newDiffer()

	ctx := &LayoutContext{buildContext: w.context()}
	if err := w.tracker.Track(func() error { return w.kind.BuildLayout(ctx) }); err != nil {
		return fmt.Errorf("%s: build layout: %w", w.ID(), err)
	}
	if err := w.layoutDiffer.SetInitialState(); err != nil {
		return fmt.Errorf("%s: layout snapshot: %w", w.ID(), err)
	}
	if err := w.applyDiffs(w.layoutDiffer, c, w.cached.Layout); err != nil {
		return fmt.Errorf("%s: apply layout diffs: %w", w.ID(), err)
	}
	w.state = StateLayoutBuilt
	w.logger.Debug("layout built", log.Int("entities", w.tracker.Len()))
	return nil
}

func (w *Widget) applyDiffs(d *differ.Differ, c *callConfig, cached differ.Diff) error {
	switch {
	case c.altDiffs != nil:
		return d.ApplyDiff(c.altDiffs)
	case c.useCached && !cached.Empty():
		return d.ApplyDiff(cached)
	}
	return nil
}

// CacheDiffs stores the current layout customisations, replacing any prior
// layout cache.
func (w *Widget) CacheDiffs(opts ...CallOption) error {
	c := w.callConfig(opts)
	if ok, err := w.guard(c, "cache diffs", StateLayoutBuilt); !ok {
		return err
	}
	return w.cacheLayout()
}

func (w *Widget) cacheLayout() error {
	diff, err := w.layoutDiffer.ComputeDiff()
	if err != nil {
		return fmt.Errorf("%s: cache layout diffs: %w", w.ID(), err)
	}
	w.cached.Layout = diff
	return nil
}

// CacheRigDiffs stores the current rig customisations. Rig diffs are never
// cached implicitly.
func (w *Widget) CacheRigDiffs(opts ...CallOption) error {
	c := w.callConfig(opts)
	if ok, err := w.guard(c, "cache rig diffs", StateRigged); !ok {
		return err
	}
	diff, err := w.rigDiffer.ComputeDiff()
	if err != nil {
		return fmt.Errorf("%s: cache rig diffs: %w", w.ID(), err)
	}
	w.cached.Rig = diff
	return nil
}

// Delete destroys everything the component built. A laid out component
// caches its layout diffs first unless Cache(false) is given.
func (w *Widget) Delete(opts ...CallOption) error {
	c := w.callConfig(opts)
	if ok, err := w.guard(c, "delete", StateLayoutBuilt, StateRigged); !ok {
		return err
	}
	if c.cache && w.state == StateLayoutBuilt {
		if err := w.cacheLayout(); err != nil {
			return err
		}
	}
	return w.teardown()
}

// Discard destroys whatever the component still tracks, whatever its state.
// It cleans up after a failed build.
func (w *Widget) Discard() error {
	w.logger.Debug("discarding", log.String("state", w.state.String()))
	return w.teardown()
}

func (w *Widget) teardown() error {
	if err := w.destroy(w.tracker.Entities()); err != nil {
		return fmt.Errorf("%s: delete: %w", w.ID(), err)
	}
	w.tracker.Reset()
	w.binds, w.controls = nil, nil
	w.plugs = make(map[string]scene.Handle)
	w.categories = make(map[string][]scene.Handle)
	w.layoutDiffer.Reset()
	w.rigDiffer.Reset()
	w.state = StateUnbuilt
	return nil
}

// destroy removes handles. Children owned by other components are moved to
// the scene root first so they survive.
func (w *Widget) destroy(handles []scene.Handle) error {
	owned := sequence.ToSet(sequence.From(handles))
	for _, h := range handles {
		children, err := w.backend.Children(h)
		if err != nil {
			if !w.backend.EntityExists(h) {
				continue
			}
			return err
		}
		for _, child := range children {
			if _, mine := owned[child]; mine {
				continue
			}
			if kind, err := w.backend.EntityKind(child); err == nil && kind == scene.KindInternal {
				continue
			}
			if err = w.backend.SetParent(child, scene.NoHandle); err != nil {
				return err
			}
		}
	}

	var errs []error
	for _, h := range sequence.From(handles).Reverse().Collect() {
		if !w.backend.EntityExists(h) {
			continue
		}
		if err := w.backend.DestroyEntity(h); err != nil && !errors.Is(err, scene.ErrNoEntity) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildRig turns the layout into the final rig. An unbuilt component is laid
// out first; a rigged one is torn down and laid out again.
func (w *Widget) BuildRig(opts ...CallOption) error {
	c := w.callConfig(opts)
	relayout := &callConfig{useCached: true}
	switch w.state {
	case StateUnbuilt:
		if err := w.buildLayout(relayout); err != nil {
			return err
		}
	case StateRigged:
		if err := w.teardown(); err != nil {
			return err
		}
		if err := w.buildLayout(relayout); err != nil {
			return err
		}
	}
	return w.buildRig(c)
}

func (w *Widget) buildRig(c *callConfig) error {
	if err := w.cacheLayout(); err != nil {
		return err
	}
	layout := w.tracker.Entities()
	rigTracker := tracker.New(w.backend, w.logger)
	w.rigDiffer = w.newDiffer()

	ctx := &RigContext{buildContext: w.context()}
	layoutGone := false
	err := rigTracker.Track(func() error {
		specs, err := w.captureControls()
		if err != nil {
			return err
		}
		w.controlSpecs = specs
		if ctx.binds, ctx.bindOrder, err = w.duplicateBinds(); err != nil {
			return err
		}
		if err = w.destroy(layout); err != nil {
			return err
		}
		layoutGone = true
		if ctx.controls, err = w.rebuildControls(specs); err != nil {
			return err
		}
		return w.kind.BuildRig(ctx)
	})
	if err != nil {
		if layoutGone {
			w.tracker = rigTracker
			w.state = StateUnbuilt
		} else {
			w.tracker.Add(rigTracker.Entities()...)
		}
		return fmt.Errorf("%s: build rig: %w", w.ID(), err)
	}

	w.tracker = rigTracker
	w.binds, w.controls = nil, nil
	if err = w.rigDiffer.SetInitialState(); err != nil {
		return fmt.Errorf("%s: rig snapshot: %w", w.ID(), err)
	}
	if err = w.applyDiffs(w.rigDiffer, c, w.cached.Rig); err != nil {
		return fmt.Errorf("%s: apply rig diffs: %w", w.ID(), err)
	}
	w.state = StateRigged
	for _, plug := range w.kind.Plugs() {
		if _, ok := w.Plug(plug); !ok {
			w.logger.Warn("plug left unresolved", log.String("plug", plug))
		}
	}
	w.logger.Debug("rig built", log.Int("entities", w.tracker.Len()))
	return nil
}
