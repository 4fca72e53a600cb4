package store

import "errors"

var (
	// ErrEmptyDocument is returned when asked to write an empty document.
	ErrEmptyDocument = errors.New("store: empty document")
)
