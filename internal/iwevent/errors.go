package iwevent

import "errors"

var (
	// ErrExecutableNotFound is returned by New when the monitoring
	// executable cannot be resolved on the host.
	ErrExecutableNotFound = errors.New("iwevent executable not found")

	// ErrUnsupportedEvent is returned when registering a callback for a kind
	// outside the event catalog.
	ErrUnsupportedEvent = errors.New("unsupported event")

	// ErrUncleanShutdown is returned by Stop when the reading loop did not
	// terminate within the shutdown timeout.
	ErrUncleanShutdown = errors.New("unclean shutdown")
)
