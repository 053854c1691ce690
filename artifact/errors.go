package artifact

import "errors"

var (
	// ErrNotFound is returned when an artifact for the given namespace / id
	// pair does not exist in the underlying store.
	ErrNotFound = errors.New("artifact not found")
	// ErrInvalidID is returned for empty ids or ids containing path elements.
	ErrInvalidID = errors.New("invalid artifact id")
)
