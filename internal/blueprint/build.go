package blueprint

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zeusync/rigsmith/internal/core/observability/log"
	"github.com/zeusync/rigsmith/internal/core/rig"
	"github.com/zeusync/rigsmith/internal/core/scene"
	"github.com/zeusync/rigsmith/internal/core/widget"
)

// Validate checks the blueprint against reg and reports every problem found.
func (bp *Blueprint) Validate(reg *widget.Registry) error {
	_, err := bp.plan(reg)
	return err
}

type planned struct {
	comp Component
	kind widget.Kind
	opts *widget.Options
}

// plan validates the blueprint and orders its components parent first.
func (bp *Blueprint) plan(reg *widget.Registry) ([]planned, error) {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	if bp.Name == "" {
		fail("name is required")
	}
	if len(bp.Components) == 0 {
		fail("no components")
	}

	byID := make(map[string]planned, len(bp.Components))
	ids := make([]string, 0, len(bp.Components))
	for i, c := range bp.Components {
		if c.Part == "" {
			fail("component %d: part is required", i)
			continue
		}
		if _, dup := byID[c.ID()]; dup {
			fail("component %s: %w", c.ID(), rig.ErrDuplicateIdentity)
			continue
		}
		kind, err := reg.New(c.Kind)
		if err != nil {
			fail("component %s: %w", c.ID(), err)
			continue
		}
		opts := widget.NewOptions()
		kind.DeclareOptions(opts)
		for _, name := range sortedKeys(c.Options) {
			if err := opts.SetRaw(name, c.Options[name]); err != nil {
				fail("component %s: %w", c.ID(), err)
			}
		}
		byID[c.ID()] = planned{comp: c, kind: kind, opts: opts}
		ids = append(ids, c.ID())
	}

	for _, id := range ids {
		c := byID[id].comp
		if c.Parent == "" {
			if c.Plug != "" {
				fail("component %s: %w: root component cannot use plug %q", id, rig.ErrInvalidPlug, c.Plug)
			}
			continue
		}
		parent, ok := byID[c.Parent]
		if !ok {
			fail("component %s: %w: %s", id, rig.ErrUnknownParent, c.Parent)
			continue
		}
		if c.Plug != "" && !slices.Contains(parent.kind.Plugs(), c.Plug) {
			fail("component %s: %w: %s declares no plug %q", id, rig.ErrInvalidPlug, c.Parent, c.Plug)
		}
	}

	if bp.Master != nil {
		m, ok := byID[bp.Master.Component]
		switch {
		case !ok:
			fail("master: %w: %s", rig.ErrUnknownComponent, bp.Master.Component)
		case !slices.Contains(m.kind.Plugs(), bp.Master.Plug):
			fail("master: %w: %s declares no plug %q", rig.ErrInvalidPlug, bp.Master.Component, bp.Master.Plug)
		}
	}

	order, err := parentFirst(ids, byID)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalid, bp.Name, errors.Join(errs...))
	}
	out := make([]planned, len(order))
	for i, id := range order {
		out[i] = byID[id]
	}
	return out, nil
}

func parentFirst(ids []string, byID map[string]planned) ([]string, error) {
	state := make(map[string]int, len(ids))
	order := make([]string, 0, len(ids))
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case 2:
			return nil
		case 1:
			return fmt.Errorf("component %s: parent cycle", id)
		}
		state[id] = 1
		if p := byID[id].comp.Parent; p != "" {
			if _, ok := byID[p]; ok {
				if err := visit(p); err != nil {
					return err
				}
			}
		}
		state[id] = 2
		order = append(order, id)
		return nil
	}
	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// BuildOption configures the components and assembly Build creates.
type BuildOption func(*buildConfig)

type buildConfig struct {
	logger    log.Log
	strict    bool
	tolerance float64
	separator string
	character string
}

func WithLogger(l log.Log) BuildOption {
	return func(c *buildConfig) { c.logger = l }
}

func WithStrict(strict bool) BuildOption {
	return func(c *buildConfig) { c.strict = strict }
}

func WithTolerance(eps float64) BuildOption {
	return func(c *buildConfig) { c.tolerance = eps }
}

func WithSeparator(sep string) BuildOption {
	return func(c *buildConfig) { c.separator = sep }
}

// WithCharacter sets the character token when the blueprint names none.
func WithCharacter(name string) BuildOption {
	return func(c *buildConfig) { c.character = name }
}

// Build validates the blueprint and assembles unbuilt components on backend.
func (bp *Blueprint) Build(reg *widget.Registry, backend scene.Backend, opts ...BuildOption) (*rig.Assembly, error) {
	cfg := buildConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.logger = log.OrNop(cfg.logger)
	plan, err := bp.plan(reg)
	if err != nil {
		return nil, err
	}

	character := bp.Character
	if character == "" {
		character = cfg.character
	}
	wopts := []widget.Option{
		widget.WithLogger(cfg.logger),
		widget.WithStrict(cfg.strict),
		widget.WithTolerance(cfg.tolerance),
		widget.WithCharacter(character),
	}
	if cfg.separator != "" {
		wopts = append(wopts, widget.WithSeparator(cfg.separator))
	}

	asm := rig.New(bp.Name, backend, rig.WithLogger(cfg.logger))
	built := make(map[string]*widget.Widget, len(plan))
	for _, p := range plan {
		w := widget.New(backend, p.kind, p.comp.Part, p.comp.Side, wopts...)
		for name, v := range p.opts.Values() {
			if err := w.Options().Set(name, v); err != nil {
				return nil, fmt.Errorf("component %s: %w", p.comp.ID(), err)
			}
		}
		if err := asm.AddComponent(w, built[p.comp.Parent], p.comp.Plug); err != nil {
			return nil, err
		}
		built[p.comp.ID()] = w
	}
	if bp.Master != nil {
		if err := asm.SetMaster(built[bp.Master.Component], bp.Master.Plug); err != nil {
			return nil, err
		}
	}
	cfg.logger.Debug("blueprint assembled",
		log.String("assembly", bp.Name),
		log.Int("components", len(plan)))
	return asm, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
