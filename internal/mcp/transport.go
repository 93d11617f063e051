package mcp

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/go-faster/errors"
)

// MaxMessageSize bounds one inbound line.
const MaxMessageSize = 10 << 20

var (
	// ErrTransportClosed is returned once the peer has gone away or Close
	// was called.
	ErrTransportClosed = errors.New("transport closed")

	// ErrMessageTooLarge is returned for a line over MaxMessageSize. The line
	// is discarded and the transport stays usable.
	ErrMessageTooLarge = errors.New("message too large")

	ErrTransportNotImplemented = errors.New("transport not implemented")
)

// Transport moves framed messages between the session and the client.
type Transport interface {
	// Receive blocks until the next message arrives.
	Receive(ctx context.Context) ([]byte, error)
	Send(ctx context.Context, msg []byte) error
	Close() error
}

type line struct {
	data []byte
	err  error
}

// StdioTransport speaks newline-delimited JSON. Blank lines are skipped.
type StdioTransport struct {
	r *bufio.Reader

	writeMu sync.Mutex
	w       io.Writer

	start  sync.Once
	lines  chan line
	done   chan struct{}
	closed sync.Once
}

func NewStdioTransport(r io.Reader, w io.Writer) *StdioTransport {
	return &StdioTransport{
		r:     bufio.NewReaderSize(r, 64<<10),
		w:     w,
		lines: make(chan line),
		done:  make(chan struct{}),
	}
}

// Receive returns the next non-blank line. Reads happen on a background
// goroutine so that a cancelled ctx unblocks the caller even while the
// reader is stuck.
func (t *StdioTransport) Receive(ctx context.Context) ([]byte, error) {
	t.start.Do(func() { go t.readLoop() })

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, ErrTransportClosed
	case l, ok := <-t.lines:
		if !ok {
			return nil, ErrTransportClosed
		}
		return l.data, l.err
	}
}

func (t *StdioTransport) readLoop() {
	defer close(t.lines)
	for {
		data, err := t.readLine()
		if errors.Is(err, io.EOF) {
			return
		}
		if err == nil && len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		select {
		case t.lines <- line{data: data, err: err}:
		case <-t.done:
			return
		}
		if err != nil && !errors.Is(err, ErrMessageTooLarge) {
			return
		}
	}
}

// readLine reads up to the next '\n'. A line over MaxMessageSize is drained
// and reported as ErrMessageTooLarge.
func (t *StdioTransport) readLine() ([]byte, error) {
	var (
		buf     []byte
		tooLong bool
	)
	for {
		chunk, isPrefix, err := t.r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, "read message")
		}
		if !tooLong {
			if len(buf)+len(chunk) > MaxMessageSize {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			break
		}
	}
	if tooLong {
		return nil, ErrMessageTooLarge
	}
	return buf, nil
}

// Send writes msg followed by a newline. Concurrent sends never interleave.
func (t *StdioTransport) Send(ctx context.Context, msg []byte) error {
	select {
	case <-t.done:
		return ErrTransportClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	out := make([]byte, 0, len(msg)+1)
	out = append(out, msg...)
	out = append(out, '\n')
	if _, err := t.w.Write(out); err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			return ErrTransportClosed
		}
		return errors.Wrap(err, "write message")
	}
	return nil
}

// Close stops Receive and Send. The underlying reader and writer are owned by
// the caller and stay open.
func (t *StdioTransport) Close() error {
	t.closed.Do(func() { close(t.done) })
	return nil
}

// NewWebSocketTransport is a placeholder for a socket transport. It always
// fails.
func NewWebSocketTransport(port int) (Transport, error) {
	return nil, errors.Wrapf(ErrTransportNotImplemented, "websocket on port %d", port)
}
