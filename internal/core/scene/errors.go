package scene

import (
	"errors"
	"fmt"
)

var (
	ErrBackendFailure = errors.New("scene backend failure")
	ErrNoEntity       = errors.New("entity does not exist")
	ErrNameTaken      = errors.New("entity name already in use")
	ErrNoAttribute    = errors.New("attribute does not exist")
	ErrInvalidParent  = errors.New("invalid parent")
	ErrInvalidName    = errors.New("invalid entity name")
)

// BackendError reports a failed backend call. It matches ErrBackendFailure
// as well as the underlying cause.
type BackendError struct {
	Op     Op
	Entity string
	Err    error
}

func (e *BackendError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("scene: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("scene: %s %q: %v", e.Op, e.Entity, e.Err)
}

func (e *BackendError) Unwrap() []error { return []error{ErrBackendFailure, e.Err} }

// Op names a backend operation, for errors and fault injection.
type Op string

const (
	OpCreate       Op = "create"
	OpDestroy      Op = "destroy"
	OpAttribute    Op = "get-attribute"
	OpSetAttribute Op = "set-attribute"
	OpTransform    Op = "get-transform"
	OpSetTransform Op = "set-transform"
	OpSetParent    Op = "set-parent"
	OpQuery        Op = "query"
)
