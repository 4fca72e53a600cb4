package core

import "errors"

var (
	// ErrNoRegistry is returned by New without a type registry.
	ErrNoRegistry = errors.New("core: registry is required")

	// ErrNoStore is returned by Load, Reload and Save when no store is configured.
	ErrNoStore = errors.New("core: no document store configured")

	// ErrNotLoaded is returned by Save before any document was installed, so
	// a failed first load never overwrites the stored document.
	ErrNotLoaded = errors.New("core: no document loaded")

	// ErrUnknownCommand is returned by Command for an unsupported name.
	ErrUnknownCommand = errors.New("core: unknown command")
)
