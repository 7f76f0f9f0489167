package widget

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrGuardViolation     = errors.New("state guard violation")
	ErrUnregisteredParent = errors.New("bind parent is not a registered bind entity")
	ErrBindCycle          = errors.New("bind hierarchy contains a cycle")
	ErrUnknownPlug        = errors.New("plug is not declared")
	ErrUnknownKind        = errors.New("unknown component kind")
	ErrKindExists         = errors.New("component kind already registered")
	ErrUnknownOption      = errors.New("unknown option")
	ErrOptionType         = errors.New("option value has the wrong type")
	ErrDuplicateControl   = errors.New("control key already registered")
	ErrAlreadyAttached    = errors.New("component is already attached")
)

// GuardError is returned in strict mode when an operation is called in a
// state it does not accept.
type GuardError struct {
	Component string
	Op        string
	State     State
	Allowed   []State
}

func (e *GuardError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = s.String()
	}
	return fmt.Sprintf("%s: %s requires state %s, component is %s",
		e.Component, e.Op, strings.Join(allowed, "|"), e.State)
}

func (e *GuardError) Unwrap() error { return ErrGuardViolation }
