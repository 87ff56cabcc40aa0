package serialtag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/homai-scheduler/pkg/device"
)

// fakePort answers every request line with the next scripted reply. A reply
// is a format string given the request id; an empty reply sends nothing.
type fakePort struct {
	mu       sync.Mutex
	replies  []string
	pending  bytes.Buffer
	written  bytes.Buffer
	writeErr error
	readErr  error
	closed   bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written.Write(b)
	if len(p.replies) > 0 {
		var req request
		if err := json.Unmarshal(bytes.TrimSpace(b), &req); err != nil {
			return 0, err
		}
		if p.replies[0] != "" {
			p.pending.WriteString(fmt.Sprintf(p.replies[0], req.ID))
		}
		p.replies = p.replies[1:]
	}
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.readErr != nil {
		p.mu.Unlock()
		return 0, p.readErr
	}
	if p.pending.Len() == 0 {
		p.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		return 0, nil
	}
	defer p.mu.Unlock()
	return p.pending.Read(b)
}

func (p *fakePort) inject(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending.WriteString(line)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) SetReadTimeout(time.Duration) error { return nil }

func newWriter(t *testing.T, replies ...string) (*Writer, *fakePort) {
	t.Helper()
	port := &fakePort{replies: replies}
	w, err := New("fake", port)
	require.NoError(t, err)
	return w, port
}

func TestSetTagValue_Acknowledged(t *testing.T) {
	w, port := newWriter(t, "{\"id\":%d,\"ok\":true}\n")

	ok, err := w.SetTagValue(context.Background(), "T1", "on")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "{\"id\":1,\"op\":\"set\",\"tag\":\"T1\",\"value\":\"on\"}\n", port.written.String())
}

func TestSetTagValue_NotOK(t *testing.T) {
	w, _ := newWriter(t, "{\"id\":%d,\"ok\":false}\n")

	ok, err := w.SetTagValue(context.Background(), "T1", "on")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetTagValue_Rejected(t *testing.T) {
	w, _ := newWriter(t, "{\"id\":%d,\"ok\":false,\"error\":\"unknown tag\"}\n")

	ok, err := w.SetTagValue(context.Background(), "T9", "on")
	assert.False(t, ok)
	require.ErrorIs(t, err, device.ErrRejected)
	assert.Contains(t, err.Error(), "unknown tag")
}

func TestSetTagValue_ReplyInPieces(t *testing.T) {
	w, port := newWriter(t)
	port.pending.WriteString("{\"id\":1,\"ok\"")

	done := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		port.mu.Lock()
		port.pending.WriteString(":true}\r\n")
		port.mu.Unlock()
		close(done)
	}()

	ok, err := w.SetTagValue(context.Background(), "T1", "off")
	<-done
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetTagValue_Timeout(t *testing.T) {
	w, _ := newWriter(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	ok, err := w.SetTagValue(ctx, "T1", "on")
	assert.False(t, ok)
	assert.ErrorIs(t, err, device.ErrTimeout)
	assert.True(t, w.IsConnected(), "a slow bridge is not a lost port")
}

func TestSetTagValue_MalformedReply(t *testing.T) {
	w, _ := newWriter(t, "garbage %d\n")

	ok, err := w.SetTagValue(context.Background(), "T1", "on")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestSetTagValue_WriteFailureDisconnects(t *testing.T) {
	w, port := newWriter(t)
	port.writeErr = errors.New("device unplugged")

	_, err := w.SetTagValue(context.Background(), "T1", "on")
	require.ErrorIs(t, err, device.ErrNotConnected)
	assert.False(t, w.IsConnected())

	_, err = w.SetTagValue(context.Background(), "T1", "on")
	assert.ErrorIs(t, err, device.ErrNotConnected)
}

func TestSetTagValue_ReadFailureDisconnects(t *testing.T) {
	w, port := newWriter(t)
	port.readErr = errors.New("io error")

	_, err := w.SetTagValue(context.Background(), "T1", "on")
	require.ErrorIs(t, err, device.ErrNotConnected)
	assert.False(t, w.IsConnected())
}

func TestClose(t *testing.T) {
	w, port := newWriter(t)

	require.NoError(t, w.Close())
	assert.True(t, port.closed)
	assert.False(t, w.IsConnected())

	_, err := w.SetTagValue(context.Background(), "T1", "on")
	assert.ErrorIs(t, err, device.ErrNotConnected)
}

func TestSetTagValue_LateReplyIsDiscarded(t *testing.T) {
	w, port := newWriter(t, "", "{\"id\":%d,\"ok\":true}\n")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := w.SetTagValue(ctx, "T1", "on")
	require.ErrorIs(t, err, device.ErrTimeout)

	// the bridge answers the timed out request after all
	port.inject("{\"id\":1,\"ok\":false}\n")

	ok, err := w.SetTagValue(context.Background(), "T2", "on")
	require.NoError(t, err)
	assert.True(t, ok, "T2 must get its own reply")
}

func TestSetTagValue_RepliesInOneChunk(t *testing.T) {
	w, port := newWriter(t, "{\"id\":%d,\"ok\":true}\n")
	port.inject("{\"id\":99,\"ok\":false}\n")

	ok, err := w.SetTagValue(context.Background(), "T1", "on")
	require.NoError(t, err)
	assert.True(t, ok)
}
