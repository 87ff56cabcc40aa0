package device

import "context"

// NullWriter is a no-op writer used when no device layer is available.
// It allows the API to run in limited mode: schedules can be listed but not changed.
type NullWriter struct{}

// NewNullWriter creates a new NullWriter.
func NewNullWriter() *NullWriter {
	return &NullWriter{}
}

func (w *NullWriter) SetTagValue(ctx context.Context, tagID, value string) (bool, error) {
	return false, ErrNotConnected
}

func (w *NullWriter) IsConnected() bool {
	return false
}

func (w *NullWriter) Close() error { return nil }
