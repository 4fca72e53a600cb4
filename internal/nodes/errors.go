package nodes

import "errors"

// Domain errors for the nodes package.
var (
	// ErrMissingDevice is returned when a node that needs a device has none set.
	ErrMissingDevice = errors.New("nodes: device reference required")

	// ErrInvalidPort is returned for network ports outside 0-65535.
	ErrInvalidPort = errors.New("nodes: invalid network port")

	// ErrInvalidAddress is returned for negative port or routing addresses.
	ErrInvalidAddress = errors.New("nodes: invalid address")
)
