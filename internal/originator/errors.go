package originator

import (
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

// Domain errors for the originator package.
var (
	// ErrInvalidTransition is returned when a lifecycle step would be skipped.
	ErrInvalidTransition = errors.New("originator: invalid state transition")

	// ErrNotLoaded is returned when starting an originator whose settings were never applied.
	ErrNotLoaded = errors.New("originator: settings not loaded")

	// ErrDisposed is returned when using an originator after Dispose.
	ErrDisposed = errors.New("originator: disposed")

	// ErrWrongSettings is returned when ApplySettings receives a settings type
	// the originator does not understand.
	ErrWrongSettings = errors.New("originator: unexpected settings type")
)

// WrongSettings builds the error returned by ApplySettings implementations
// handed a settings node of the wrong concrete type.
func WrongSettings(node settings.Node, o Originator) error {
	return fmt.Errorf("%w: %T for %T", ErrWrongSettings, node, o)
}
