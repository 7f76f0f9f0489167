package rig

import "errors"

var (
	ErrDuplicateIdentity = errors.New("component identity already in assembly")
	ErrInvalidPlug       = errors.New("invalid plug")
	ErrUnknownParent     = errors.New("parent component is not in assembly")
	ErrUnknownComponent  = errors.New("component is not in assembly")
	ErrBackendMismatch   = errors.New("component uses a different backend")
)

// Warning is a non-fatal problem found by the parenting pass.
type Warning struct {
	Component string
	Category  string
	Plug      string
	Reason    string
}

func (w Warning) String() string {
	s := w.Component + ": " + w.Reason
	if w.Plug != "" {
		s += " (plug " + w.Plug + ")"
	}
	if w.Category != "" {
		s += " [" + w.Category + "]"
	}
	return s
}
