package device

import "errors"

var (
	// ErrNotConnected indicates the device layer is not initialized
	ErrNotConnected = errors.New("device layer not connected")

	// ErrTimeout indicates a tag write did not complete in time
	ErrTimeout = errors.New("operation timed out")

	// ErrRejected indicates the device layer refused a tag write
	ErrRejected = errors.New("tag write rejected")
)
