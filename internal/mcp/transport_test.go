package mcp

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdioTransport_Receive(t *testing.T) {
	in := strings.NewReader("{\"a\":1}\n\n   \r\n{\"b\":2}\r\n{\"c\":3}")
	tr := NewStdioTransport(in, io.Discard)
	ctx := context.Background()

	for _, want := range []string{`{"a":1}`, `{"b":2}`, `{"c":3}`} {
		got, err := tr.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	_, err := tr.Receive(ctx)
	assert.ErrorIs(t, err, ErrTransportClosed)
	_, err = tr.Receive(ctx)
	assert.ErrorIs(t, err, ErrTransportClosed)
}

func TestStdioTransport_TooLargeLineIsSkipped(t *testing.T) {
	big := strings.Repeat("x", MaxMessageSize+1)
	tr := NewStdioTransport(strings.NewReader(big+"\n{\"ok\":true}\n"), io.Discard)
	ctx := context.Background()

	_, err := tr.Receive(ctx)
	assert.ErrorIs(t, err, ErrMessageTooLarge)

	got, err := tr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(got))
}

func TestStdioTransport_ReceiveHonoursContext(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	tr := NewStdioTransport(r, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := tr.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStdioTransport_Close(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	tr := NewStdioTransport(r, io.Discard)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, err := tr.Receive(context.Background())
	assert.ErrorIs(t, err, ErrTransportClosed)
	assert.ErrorIs(t, tr.Send(context.Background(), []byte("{}")), ErrTransportClosed)
}

func TestStdioTransport_SendDoesNotInterleave(t *testing.T) {
	var out bytes.Buffer
	tr := NewStdioTransport(strings.NewReader(""), &out)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := strings.Repeat(string(rune('a'+i)), 1000)
			assert.NoError(t, tr.Send(context.Background(), []byte(msg)))
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 20)
	for _, l := range lines {
		require.Len(t, l, 1000)
		assert.Equal(t, strings.Repeat(l[:1], 1000), l)
	}
}

func TestNewWebSocketTransport(t *testing.T) {
	tr, err := NewWebSocketTransport(8080)
	assert.Nil(t, tr)
	assert.ErrorIs(t, err, ErrTransportNotImplemented)
}

func TestSession_StdioRoundTrip(t *testing.T) {
	in := strings.NewReader(initLine + "\n" + `{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n")
	var out bytes.Buffer
	tr := NewStdioTransport(in, &out)
	h := NewHandler(&stubTools{}, ServerInfo{Name: "test", Version: "0"}, "")

	require.NoError(t, NewSession(tr, h).Run(context.Background()))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"id":1`)
	assert.Contains(t, lines[1], `"name":"get_issue"`)
}
