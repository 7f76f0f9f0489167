// Package rig assembles components into a tree, builds them in dependency
// order and wires their outputs together.
package rig

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zeusync/rigsmith/internal/core/observability/log"
	"github.com/zeusync/rigsmith/internal/core/scene"
	"github.com/zeusync/rigsmith/internal/core/widget"
)

// MasterPlug is the plug a root component declares to receive every
// inverse-kinematic entity of the assembly.
const MasterPlug = "master_ctl"

type node struct {
	widget   *widget.Widget
	parent   *node
	plug     string
	children []*node
}

// Assembly owns a tree of components sharing one backend.
type Assembly struct {
	name    string
	backend scene.Backend
	logger  log.Log
	strict  *bool

	roots []*node
	nodes map[*widget.Widget]*node
	ids   map[string]*node

	master     *node
	masterPlug string

	top      scene.Handle
	dnt      scene.Handle
	warnings []Warning
}

type Option func(*Assembly)

func WithLogger(l log.Log) Option {
	return func(a *Assembly) { a.logger = l }
}

// WithStrict forces the strictness of every component call the assembly
// makes.
func WithStrict(strict bool) Option {
	return func(a *Assembly) { a.strict = &strict }
}

func New(name string, backend scene.Backend, opts ...Option) *Assembly {
	a := &Assembly{
		name:    name,
		backend: backend,
		nodes:   make(map[*widget.Widget]*node),
		ids:     make(map[string]*node),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = log.OrNop(a.logger).Named("rig").With(log.String("assembly", name))
	return a
}

func (a *Assembly) Name() string           { return a.name }
func (a *Assembly) Backend() scene.Backend { return a.backend }

func (a *Assembly) callOpts() []widget.CallOption {
	if a.strict == nil {
		return nil
	}
	return []widget.CallOption{widget.Strict(*a.strict)}
}

// AddComponent attaches w under plug of parent, or as a root when parent is
// nil. Roots take no plug.
func (a *Assembly) AddComponent(w *widget.Widget, parent *widget.Widget, plug string) error {
	if _, ok := a.nodes[w]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, w.ID())
	}
	if _, ok := a.ids[w.ID()]; ok {
		return fmt.Errorf("%w: another component is named %s", ErrDuplicateIdentity, w.ID())
	}
	if w.Backend() != a.backend {
		return fmt.Errorf("%w: %s", ErrBackendMismatch, w.ID())
	}

	var pn *node
	if parent == nil {
		if plug != "" {
			return fmt.Errorf("%w: root component %s cannot use plug %q", ErrInvalidPlug, w.ID(), plug)
		}
	} else {
		var ok bool
		if pn, ok = a.nodes[parent]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownParent, parent.ID())
		}
		if plug != "" && !slices.Contains(parent.Plugs(), plug) {
			return fmt.Errorf("%w: %s declares no plug %q", ErrInvalidPlug, parent.ID(), plug)
		}
	}
	if err := w.Attach(parent, plug); err != nil {
		return fmt.Errorf("%w: %v", ErrDuplicateIdentity, err)
	}

	n := &node{widget: w, parent: pn, plug: plug}
	if pn == nil {
		a.roots = append(a.roots, n)
	} else {
		pn.children = append(pn.children, n)
	}
	a.nodes[w] = n
	a.ids[w.ID()] = n
	a.logger.Debug("component added",
		log.String("component", w.ID()),
		log.String("kind", w.Kind().Name()),
		log.String("plug", plug))
	return nil
}

// SetMaster selects the plug that receives inverse-kinematic entities.
func (a *Assembly) SetMaster(w *widget.Widget, plug string) error {
	n, ok := a.nodes[w]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, w.ID())
	}
	if !slices.Contains(w.Plugs(), plug) {
		return fmt.Errorf("%w: %s declares no plug %q", ErrInvalidPlug, w.ID(), plug)
	}
	a.master, a.masterPlug = n, plug
	return nil
}

// Master returns the component and plug used as master. Without an explicit
// choice it is the first root declaring MasterPlug.
func (a *Assembly) Master() (*widget.Widget, string, bool) {
	if a.master != nil {
		return a.master.widget, a.masterPlug, true
	}
	for _, r := range a.roots {
		if slices.Contains(r.widget.Plugs(), MasterPlug) {
			return r.widget, MasterPlug, true
		}
	}
	return nil, "", false
}

func (a *Assembly) walk(nodes []*node, depth int, fn func(n *node, depth int) error) error {
	for _, n := range nodes {
		if err := fn(n, depth); err != nil {
			return err
		}
		if err := a.walk(n.children, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Walk visits components parent first. Returning an error stops the walk.
func (a *Assembly) Walk(fn func(w *widget.Widget, depth int) error) error {
	return a.walk(a.roots, 0, func(n *node, depth int) error { return fn(n.widget, depth) })
}

// Components lists every component parent first.
func (a *Assembly) Components() []*widget.Widget {
	out := make([]*widget.Widget, 0, len(a.nodes))
	_ = a.Walk(func(w *widget.Widget, _ int) error {
		out = append(out, w)
		return nil
	})
	return out
}

func (a *Assembly) Len() int { return len(a.nodes) }

func (a *Assembly) Find(part, side string) (*widget.Widget, bool) {
	for _, n := range a.nodes {
		if n.widget.Part() == part && n.widget.Side() == side {
			return n.widget, true
		}
	}
	return nil, false
}

// FindID looks a component up by its part_side identity.
func (a *Assembly) FindID(id string) (*widget.Widget, bool) {
	n, ok := a.ids[id]
	if !ok {
		return nil, false
	}
	return n.widget, true
}

// Parent returns the parent of w and the plug it hangs off.
func (a *Assembly) Parent(w *widget.Widget) (*widget.Widget, string) {
	n, ok := a.nodes[w]
	if !ok || n.parent == nil {
		return nil, ""
	}
	return n.parent.widget, n.plug
}

func (a *Assembly) Children(w *widget.Widget) []*widget.Widget {
	n, ok := a.nodes[w]
	if !ok {
		return nil
	}
	out := make([]*widget.Widget, len(n.children))
	for i, c := range n.children {
		out[i] = c.widget
	}
	return out
}

func (a *Assembly) TopGroup() (scene.Handle, bool) {
	return a.top, a.top.Valid() && a.backend.EntityExists(a.top)
}

func (a *Assembly) DoNotTouchGroup() (scene.Handle, bool) {
	return a.dnt, a.dnt.Valid() && a.backend.EntityExists(a.dnt)
}

// Warnings returns what the last parenting pass could not resolve.
func (a *Assembly) Warnings() []Warning {
	return append([]Warning(nil), a.warnings...)
}

// BuildLayout lays out every component.
func (a *Assembly) BuildLayout() error {
	for _, w := range a.Components() {
		if err := w.BuildLayout(a.callOpts()...); err != nil {
			return err
		}
	}
	a.logger.Info("layout built", log.Int("components", a.Len()))
	return nil
}

// BuildRig rigs every component parent first, then parents their outputs.
func (a *Assembly) BuildRig() error {
	if err := a.ensureGroups(); err != nil {
		return err
	}
	for _, w := range a.Components() {
		if err := w.BuildRig(a.callOpts()...); err != nil {
			return err
		}
	}
	if err := a.parent(); err != nil {
		return err
	}
	if len(a.warnings) > 0 {
		a.logger.Warn("rig built with warnings", log.Int("warnings", len(a.warnings)))
	} else {
		a.logger.Info("rig built", log.Int("components", a.Len()))
	}
	return nil
}

func (a *Assembly) ensureGroups() error {
	var err error
	if a.top, err = a.ensureGroup(a.top, a.name+"_rig_grp"); err != nil {
		return err
	}
	if a.dnt, err = a.ensureGroup(a.dnt, a.name+"_dnt_grp"); err != nil {
		return err
	}
	return a.backend.SetParent(a.dnt, a.top)
}

func (a *Assembly) ensureGroup(h scene.Handle, name string) (scene.Handle, error) {
	if h.Valid() && a.backend.EntityExists(h) {
		return h, nil
	}
	if found, ok := a.backend.FindEntity(name); ok {
		return found, nil
	}
	return a.backend.CreateEntity(scene.KindGroup, name)
}

// Delete tears every component down children first, then removes the
// assembly groups.
func (a *Assembly) Delete() error {
	var errs []error
	comps := a.Components()
	for i := len(comps) - 1; i >= 0; i-- {
		w := comps[i]
		var err error
		switch {
		case w.State() != widget.StateUnbuilt:
			err = w.Delete(a.callOpts()...)
		case len(w.Entities()) > 0:
			err = w.Discard()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	for _, h := range []scene.Handle{a.dnt, a.top} {
		if h.Valid() && a.backend.EntityExists(h) {
			if err := a.backend.DestroyEntity(h); err != nil && !errors.Is(err, scene.ErrNoEntity) {
				errs = append(errs, err)
			}
		}
	}
	a.top, a.dnt = scene.NoHandle, scene.NoHandle
	a.warnings = nil
	return errors.Join(errs...)
}

// CacheDiffs caches layout diffs of laid out components and rig diffs of
// rigged ones.
func (a *Assembly) CacheDiffs() error {
	for _, w := range a.Components() {
		var err error
		switch w.State() {
		case widget.StateLayoutBuilt:
			err = w.CacheDiffs(a.callOpts()...)
		case widget.StateRigged:
			err = w.CacheRigDiffs(a.callOpts()...)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ExportDiffs returns the cached diffs of every component by identity.
func (a *Assembly) ExportDiffs() map[string]widget.DiffPair {
	out := make(map[string]widget.DiffPair, len(a.nodes))
	for id, n := range a.ids {
		if p := n.widget.CachedDiffs(); !p.Empty() {
			out[id] = p
		}
	}
	return out
}

// ImportDiffs replaces cached diffs of the named components. Unknown
// identities are reported and returned.
func (a *Assembly) ImportDiffs(diffs map[string]widget.DiffPair) []string {
	var unknown []string
	for id, p := range diffs {
		n, ok := a.ids[id]
		if !ok {
			unknown = append(unknown, id)
			a.logger.Warn("diffs for unknown component ignored", log.String("component", id))
			continue
		}
		n.widget.SetCachedDiffs(p)
	}
	slices.Sort(unknown)
	return unknown
}
