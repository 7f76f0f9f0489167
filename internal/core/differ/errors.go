package differ

import "errors"

var (
	ErrDuplicateEntity = errors.New("entity already registered")
	ErrNoSnapshot      = errors.New("no initial state captured")
	ErrInvalidDiff     = errors.New("invalid diff data")
)
