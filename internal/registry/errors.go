package registry

import "errors"

// Domain errors for the registry package.
var (
	// ErrUnknownFactory is returned when no registration exists for a factory name
	// or settings type.
	ErrUnknownFactory = errors.New("registry: unknown factory")

	// ErrDuplicateFactory is returned when a factory name is registered twice.
	ErrDuplicateFactory = errors.New("registry: duplicate factory name")

	// ErrDuplicateSettingsType is returned when two factory names share a settings type.
	ErrDuplicateSettingsType = errors.New("registry: settings type already registered")

	// ErrInvalidRegistration is returned for registrations missing a name or constructor.
	ErrInvalidRegistration = errors.New("registry: invalid registration")
)
