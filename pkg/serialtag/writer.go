// Package serialtag writes tag values to a device bridge over a serial line.
//
// Each write is one JSON request line answered by one JSON response line
// echoing the request id:
//
//	-> {"id":7,"op":"set","tag":"T1","value":"on"}
//	<- {"id":7,"ok":true}
//
// Replies carrying another id belong to requests that already timed out and
// are discarded.
package serialtag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-scheduler/pkg/device"
	"go.bug.st/serial"
)

// DefaultBaudRate is used when Open is given a non-positive baud rate.
const DefaultBaudRate = 115200

// pollInterval is how long a single port read may block before ctx is checked again
const pollInterval = 100 * time.Millisecond

// maxLineLength caps a response line
const maxLineLength = 4096

// Port is the subset of serial.Port the writer needs.
type Port interface {
	io.ReadWriter
	Close() error
	SetReadTimeout(t time.Duration) error
}

type request struct {
	ID    uint64 `json:"id"`
	Op    string `json:"op"`
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

type response struct {
	ID    uint64 `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Writer is a device.TagWriter speaking the line protocol over a Port.
type Writer struct {
	// mu holds for a whole request/response exchange
	mu        sync.Mutex
	port      Port
	name      string
	seq       uint64
	rbuf      bytes.Buffer
	connected atomic.Bool
}

var _ device.TagWriter = (*Writer)(nil)

// Open opens the serial port at baud, 8N1.
func Open(portPath string, baud int) (*Writer, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portPath, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portPath, err)
	}

	w, err := New(portPath, port)
	if err != nil {
		_ = port.Close()
		return nil, err
	}

	log.Info().Str("port", portPath).Int("baud", baud).Msg("Serial port opened")
	return w, nil
}

// New wraps an already open port.
func New(name string, port Port) (*Writer, error) {
	if err := port.SetReadTimeout(pollInterval); err != nil {
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	w := &Writer{port: port, name: name}
	w.connected.Store(true)
	return w, nil
}

// IsConnected reports whether the port is usable.
func (w *Writer) IsConnected() bool {
	return w.connected.Load()
}

// Close closes the port. Later writes fail with device.ErrNotConnected.
func (w *Writer) Close() error {
	w.connected.Store(false)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.port.Close()
}

// SetTagValue sends a set request and waits for the response with its id.
// A response of {"ok":false} without an error message yields (false, nil).
func (w *Writer) SetTagValue(ctx context.Context, tagID, value string) (bool, error) {
	if !w.connected.Load() {
		return false, device.ErrNotConnected
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	id := w.seq

	line, err := json.Marshal(request{ID: id, Op: "set", Tag: tagID, Value: value})
	if err != nil {
		return false, err
	}
	line = append(line, '\n')

	if _, err := w.port.Write(line); err != nil {
		w.disconnect(err)
		return false, fmt.Errorf("%w: %v", device.ErrNotConnected, err)
	}

	resp, err := w.awaitResponse(ctx, id)
	if err != nil {
		return false, err
	}

	if !resp.OK && resp.Error != "" {
		return false, fmt.Errorf("%w: %s", device.ErrRejected, resp.Error)
	}

	log.Debug().Str("port", w.name).Str("tag", tagID).Str("value", value).Bool("ok", resp.OK).Msg("Tag write acknowledged")
	return resp.OK, nil
}

// awaitResponse reads response lines until one carries id.
func (w *Writer) awaitResponse(ctx context.Context, id uint64) (response, error) {
	for {
		reply, err := w.readLine(ctx)
		if err != nil {
			return response{}, err
		}

		var resp response
		if err := json.Unmarshal(reply, &resp); err != nil {
			return response{}, fmt.Errorf("malformed response %q: %w", reply, err)
		}
		if resp.ID == id {
			return resp, nil
		}
		log.Debug().Str("port", w.name).Uint64("want", id).Uint64("got", resp.ID).Msg("Discarding stale response")
	}
}

// readLine returns the next line from the port. Bytes after the newline stay
// buffered for the next call. The port returns (0, nil) when its read timeout
// elapses, which gives ctx a chance to end the wait.
func (w *Writer) readLine(ctx context.Context) ([]byte, error) {
	chunk := make([]byte, 256)

	for {
		if i := bytes.IndexByte(w.rbuf.Bytes(), '\n'); i >= 0 {
			line := bytes.TrimSpace(w.rbuf.Next(i + 1))
			if len(line) == 0 {
				continue
			}
			return append([]byte(nil), line...), nil
		}
		if w.rbuf.Len() > maxLineLength {
			w.rbuf.Reset()
			return nil, fmt.Errorf("response exceeds %d bytes", maxLineLength)
		}

		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: waiting for response", device.ErrTimeout)
			}
			return nil, err
		}

		n, err := w.port.Read(chunk)
		if n > 0 {
			w.rbuf.Write(chunk[:n])
		}
		if err != nil {
			w.disconnect(err)
			return nil, fmt.Errorf("%w: %v", device.ErrNotConnected, err)
		}
	}
}

func (w *Writer) disconnect(err error) {
	if w.connected.Swap(false) {
		log.Error().Err(err).Str("port", w.name).Msg("Serial port lost")
	}
}
