package settings

import (
	"errors"
	"fmt"
)

// Domain errors for the settings package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, settings.ErrNodeNotFound) {
//	    // handle missing id
//	}
var (
	// ErrNodeNotFound is returned when an id is not in the collection.
	ErrNodeNotFound = errors.New("settings: node not found")

	// ErrParse is returned when an element is malformed or misses a required attribute.
	ErrParse = errors.New("settings: malformed element")

	// ErrDuplicateID is returned when a document declares the same id twice.
	ErrDuplicateID = errors.New("settings: duplicate id")

	// ErrInvalidID is returned for ids that are not strictly positive.
	ErrInvalidID = errors.New("settings: invalid id")

	// ErrNoRoot is returned when a document has no root element.
	ErrNoRoot = errors.New("settings: document has no root element")
)

// ElementError describes one element that was skipped while parsing.
type ElementError struct {
	Element     string
	ID          string
	FactoryName string
	Err         error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("element <%s id=%q type=%q>: %v", e.Element, e.ID, e.FactoryName, e.Err)
}

func (e *ElementError) Unwrap() error {
	return e.Err
}
