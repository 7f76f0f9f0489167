package widget

import (
	"fmt"
	"math"

	"github.com/zeusync/rigsmith/internal/core/scene"
)

type option struct {
	def scene.Value
	val scene.Value
	set bool
	doc string
}

// Options is the declared, typed option set of one component. Kinds declare
// options with defaults; blueprints and callers override them.
type Options struct {
	order []string
	defs  map[string]*option
}

func NewOptions() *Options {
	return &Options{defs: make(map[string]*option)}
}

// Declare adds an option. Declaring an existing option replaces its default
// and keeps an explicit value of the same type.
func (o *Options) Declare(name string, def scene.Value, doc string) {
	if opt, ok := o.defs[name]; ok {
		opt.def = def
		opt.doc = doc
		if opt.set && opt.val.Type() != def.Type() {
			opt.set = false
		}
		return
	}
	o.defs[name] = &option{def: def, doc: doc}
	o.order = append(o.order, name)
}

func (o *Options) Set(name string, v scene.Value) error {
	opt, ok := o.defs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	if v.Type() != opt.def.Type() {
		return fmt.Errorf("%w: %s wants %s, got %s", ErrOptionType, name, opt.def.Type(), v.Type())
	}
	opt.val = v
	opt.set = true
	return nil
}

// SetRaw converts decoded configuration data with scene.ValueOf and sets it.
func (o *Options) SetRaw(name string, raw any) error {
	v, err := scene.ValueOf(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOptionType, name, err)
	}
	return o.Set(name, v)
}

// Reset restores the default of name.
func (o *Options) Reset(name string) {
	if opt, ok := o.defs[name]; ok {
		opt.set = false
		opt.val = scene.Value{}
	}
}

func (o *Options) Get(name string) (scene.Value, bool) {
	opt, ok := o.defs[name]
	if !ok {
		return scene.Value{}, false
	}
	if opt.set {
		return opt.val, true
	}
	return opt.def, true
}

func (o *Options) Float(name string) float64 {
	v, _ := o.Get(name)
	return v.Float()
}

// Int rounds a scalar option to the nearest integer.
func (o *Options) Int(name string) int {
	return int(math.Round(o.Float(name)))
}

func (o *Options) String(name string) string {
	v, _ := o.Get(name)
	return v.Str()
}

func (o *Options) Vec(name string) scene.Vec3 {
	v, _ := o.Get(name)
	return v.Vec()
}

func (o *Options) Doc(name string) string {
	if opt, ok := o.defs[name]; ok {
		return opt.doc
	}
	return ""
}

// Names lists declared options in declaration order.
func (o *Options) Names() []string {
	return append([]string(nil), o.order...)
}

// Values returns the effective value of every option.
func (o *Options) Values() map[string]scene.Value {
	out := make(map[string]scene.Value, len(o.order))
	for _, name := range o.order {
		out[name], _ = o.Get(name)
	}
	return out
}
