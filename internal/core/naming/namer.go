// Package naming builds deterministic entity names from an ordered set of
// tokens.
package naming

import (
	"strings"

	"github.com/zeusync/rigsmith/internal/core/observability/log"
)

// Token is one slot of a generated name. Tokens are joined in declaration
// order.
type Token uint8

const (
	Character Token = iota
	Side
	Part
	Description
	Resolution
	Suffix

	tokenCount
)

// Order lists every token in the order names are assembled.
var Order = [...]Token{Character, Side, Part, Description, Resolution, Suffix}

func (t Token) String() string {
	switch t {
	case Character:
		return "character"
	case Side:
		return "side"
	case Part:
		return "part"
	case Description:
		return "description"
	case Resolution:
		return "resolution"
	case Suffix:
		return "suffix"
	default:
		return "unknown"
	}
}

// Sides.
const (
	SideLeft   = "L"
	SideRight  = "R"
	SideCenter = "C"
)

// MirrorSide returns the opposite side; center and unknown sides map to themselves.
func MirrorSide(side string) string {
	switch side {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	default:
		return side
	}
}

// DefaultSeparator joins non-empty tokens.
const DefaultSeparator = "_"

// Tokens binds token slots to values.
type Tokens map[Token]string

// Namer holds token bindings and produces names from them. A Namer is not
// safe for concurrent use.
type Namer struct {
	values    [tokenCount]string
	locked    [tokenCount]bool
	separator string
	logger    log.Log
}

type Option func(*Namer)

func WithSeparator(sep string) Option {
	return func(n *Namer) { n.separator = sep }
}

func WithLogger(l log.Log) Option {
	return func(n *Namer) { n.logger = l }
}

// New returns a Namer bound to tokens.
func New(tokens Tokens, opts ...Option) *Namer {
	n := &Namer{separator: DefaultSeparator}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = log.OrNop(n.logger)
	for t, v := range tokens {
		if t < tokenCount {
			n.values[t] = v
		}
	}
	return n
}

// Name joins the bound tokens, with overrides applied to unlocked slots, in
// token order. Empty tokens are dropped.
func (n *Namer) Name(overrides Tokens) string {
	values := n.values
	for t, v := range overrides {
		if t >= tokenCount {
			continue
		}
		if n.locked[t] {
			if v != values[t] {
				n.logger.Warn("namer token is locked, override ignored",
					log.String("token", t.String()),
					log.String("value", values[t]),
					log.String("override", v))
			}
			continue
		}
		values[t] = v
	}
	parts := make([]string, 0, len(values))
	for _, t := range Order {
		if values[t] != "" {
			parts = append(parts, values[t])
		}
	}
	return strings.Join(parts, n.separator)
}

// Set binds t to value unless t is locked.
func (n *Namer) Set(t Token, value string) {
	if t >= tokenCount {
		return
	}
	if n.locked[t] {
		n.logger.Warn("namer token is locked, set ignored",
			log.String("token", t.String()),
			log.String("value", n.values[t]),
			log.String("override", value))
		return
	}
	n.values[t] = value
}

// Get returns the value bound to t.
func (n *Namer) Get(t Token) string {
	if t >= tokenCount {
		return ""
	}
	return n.values[t]
}

// Lock prevents later calls from overriding tokens.
func (n *Namer) Lock(tokens ...Token) {
	for _, t := range tokens {
		if t < tokenCount {
			n.locked[t] = true
		}
	}
}

func (n *Namer) Unlock(tokens ...Token) {
	for _, t := range tokens {
		if t < tokenCount {
			n.locked[t] = false
		}
	}
}

func (n *Namer) IsLocked(t Token) bool {
	return t < tokenCount && n.locked[t]
}

// Tokens returns a copy of the non-empty bindings.
func (n *Namer) Tokens() Tokens {
	out := make(Tokens)
	for _, t := range Order {
		if n.values[t] != "" {
			out[t] = n.values[t]
		}
	}
	return out
}

// Clone copies bindings, locks and separator.
func (n *Namer) Clone() *Namer {
	c := *n
	return &c
}
