package factory

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Domain errors for the factory package.
var (
	// ErrCyclicDependency is matched by *CyclicDependencyError.
	ErrCyclicDependency = errors.New("factory: cyclic dependency")

	// ErrConstruction is matched by *ConstructionError.
	ErrConstruction = errors.New("factory: construction failed")

	// ErrTypeMismatch is matched by *TypeMismatchError.
	ErrTypeMismatch = errors.New("factory: type mismatch")
)

// CyclicDependencyError reports an id that was requested while it was
// already under construction. Chain ends with the repeated id.
type CyclicDependencyError struct {
	Chain []int
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, id := range e.Chain {
		parts[i] = strconv.Itoa(id)
	}
	return "cyclic dependency: " + strings.Join(parts, " -> ")
}

// Is reports whether target is ErrCyclicDependency.
func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// ConstructionError wraps a failure to build or configure one originator.
type ConstructionError struct {
	ID          int
	FactoryName string
	Type        reflect.Type
	Err         error
}

func (e *ConstructionError) Error() string {
	if e.Type != nil {
		return fmt.Sprintf("constructing %d (%s, %s): %v", e.ID, e.FactoryName, e.Type, e.Err)
	}
	return fmt.Sprintf("constructing %d (%s): %v", e.ID, e.FactoryName, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConstruction.
func (e *ConstructionError) Is(target error) bool {
	return target == ErrConstruction
}

// TypeMismatchError reports an originator that exists but is not of the
// requested type.
type TypeMismatchError struct {
	ID   int
	Want reflect.Type
	Got  reflect.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("originator %d is %s, want %s", e.ID, e.Got, e.Want)
}

// Is reports whether target is ErrTypeMismatch.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}
