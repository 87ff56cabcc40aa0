package device

import (
	"context"
	"time"
)

// TagWriter defines the device-control collaborator used by the scheduler.
// A tag is an individually addressable device attribute; implementations
// translate a tag write into whatever protocol the device layer speaks.
type TagWriter interface {
	// SetTagValue writes value to the tag. It returns false without an error
	// when the device layer refused the write.
	SetTagValue(ctx context.Context, tagID, value string) (bool, error)

	// IsConnected returns true once the device layer is ready for writes
	IsConnected() bool

	// Close disconnects the writer
	Close() error
}

// WriteResult records the outcome of a single tag write
type WriteResult struct {
	TagID string    `json:"tagId"`
	Value string    `json:"value"`
	OK    bool      `json:"ok"`
	Error string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}
