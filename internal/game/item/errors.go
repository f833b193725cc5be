package item

import "errors"

// ErrNotFound is returned when a static item ID, modified item ID, or
// inventory ID cannot be resolved.
var ErrNotFound = errors.New("not found")

// ErrInvalidOperation is returned for structurally invalid requests such as
// adding more than one unit of a modified item, or creating a modified item
// with an ID that is already in use.
var ErrInvalidOperation = errors.New("invalid operation")
