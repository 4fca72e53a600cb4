package migration

import (
	"errors"
	"fmt"
)

// Domain errors for the migration package.
var (
	// ErrInvalidVersion is returned for unparseable version strings.
	ErrInvalidVersion = errors.New("migration: invalid version")

	// ErrDuplicateMigrator is returned when two migrators share a source version.
	ErrDuplicateMigrator = errors.New("migration: duplicate source version")

	// ErrInvalidMigrator is returned when a migrator does not move forward.
	ErrInvalidMigrator = errors.New("migration: target version must be newer than source")

	// ErrMalformed is returned when a document is not well-formed XML.
	ErrMalformed = errors.New("migration: malformed document")

	// ErrNoRoot is returned when a document has no root element.
	ErrNoRoot = errors.New("migration: document has no root element")
)

// StepError wraps a failure inside one migration step.
type StepError struct {
	From Version
	To   Version
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("migrating %s -> %s: %v", e.From, e.To, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
