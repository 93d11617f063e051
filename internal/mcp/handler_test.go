package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easyproject-mcp/server/internal/modules"
)

// memTransport replays inbound lines and records everything sent. Receive
// reports closure once the inbound lines run out.
type memTransport struct {
	mu      sync.Mutex
	inbound []string
	sent    []string
}

func (m *memTransport) Receive(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inbound) == 0 {
		return nil, ErrTransportClosed
	}
	next := m.inbound[0]
	m.inbound = m.inbound[1:]
	return []byte(next), nil
}

func (m *memTransport) Send(ctx context.Context, msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, string(msg))
	return nil
}

func (m *memTransport) Close() error { return nil }

// stubTools is a one-tool registry.
type stubTools struct {
	calls int
}

func (s *stubTools) Tools() []modules.Tool {
	return []modules.Tool{{
		Name:        "get_issue",
		Description: "Get an issue",
		InputSchema: modules.InputSchema{Type: "object", Properties: map[string]modules.Property{}},
	}}
}

func (s *stubTools) Call(ctx context.Context, name string, params map[string]any) (*modules.ToolCallResult, error) {
	s.calls++
	switch name {
	case "get_issue":
		return modules.TextResult("# #1: Fix login"), nil
	case "explode":
		return nil, modules.ErrToolPanic
	case "failing":
		return modules.ErrorResult("API error (status 500): boom"), nil
	default:
		return nil, modules.ErrToolNotFound
	}
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

func runSession(t *testing.T, tools ToolCaller, lines ...string) []rpcResponse {
	t.Helper()
	tr := &memTransport{inbound: lines}
	h := NewHandler(tools, ServerInfo{Name: "EasyProject MCP Server", Version: "1.0.0"}, DefaultInstructions)
	require.NoError(t, NewSession(tr, h).Run(context.Background()))

	out := make([]rpcResponse, len(tr.sent))
	for i, line := range tr.sent {
		require.NoError(t, json.Unmarshal([]byte(line), &out[i]), line)
		assert.Equal(t, "2.0", out[i].JSONRPC)
	}
	return out
}

const initLine = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"0.1"}}}`

func TestSession_Initialize(t *testing.T) {
	resps := runSession(t, &stubTools{}, initLine)
	require.Len(t, resps, 1)
	require.Nil(t, resps[0].Error)
	assert.JSONEq(t, "1", string(resps[0].ID))

	var result InitializeResult
	require.NoError(t, json.Unmarshal(resps[0].Result, &result))
	assert.Equal(t, "2024-11-05", result.ProtocolVersion)
	assert.Equal(t, "EasyProject MCP Server", result.ServerInfo.Name)
	assert.NotNil(t, result.Capabilities.Tools)
	assert.NotEmpty(t, result.Instructions)
}

func TestSession_VersionMismatchIsNotFatal(t *testing.T) {
	resps := runSession(t, &stubTools{},
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2099-01-01","clientInfo":{"name":"new"}}}`,
	)
	require.Len(t, resps, 1)
	require.Nil(t, resps[0].Error)
	assert.Contains(t, string(resps[0].Result), `"protocolVersion":"2024-11-05"`)
}

func TestSession_CallBeforeInitializeIsRejected(t *testing.T) {
	tools := &stubTools{}
	resps := runSession(t, tools,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_issue","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		strings.Replace(initLine, `"id":1`, `"id":3`, 1),
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"get_issue","arguments":{}}}`,
	)
	require.Len(t, resps, 4)

	for _, r := range resps[:2] {
		require.NotNil(t, r.Error)
		assert.Equal(t, InvalidRequest, r.Error.Code)
		assert.Equal(t, "server not initialized", r.Error.Message)
	}
	assert.Nil(t, resps[2].Error)
	assert.Nil(t, resps[3].Error)
	assert.JSONEq(t, "4", string(resps[3].ID))
	assert.Equal(t, 1, tools.calls)
}

func TestSession_UnknownTool(t *testing.T) {
	resps := runSession(t, &stubTools{},
		initLine,
		`{"jsonrpc":"2.0","id":"abc","method":"tools/call","params":{"name":"nope"}}`,
	)
	require.Len(t, resps, 2)
	r := resps[1]
	assert.JSONEq(t, `"abc"`, string(r.ID))
	require.NotNil(t, r.Error)
	assert.Equal(t, ToolNotFound, r.Error.Code)
	assert.Equal(t, map[string]any{"tool": "nope"}, r.Error.Data)
}

func TestSession_ToolOutcomes(t *testing.T) {
	resps := runSession(t, &stubTools{},
		initLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_issue","arguments":{"id":1}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"failing"}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"explode"}}`,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":"not an object"}`,
		`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{}}`,
	)
	require.Len(t, resps, 6)

	assert.JSONEq(t, `{"content":[{"type":"text","text":"# #1: Fix login"}]}`, string(resps[1].Result))
	assert.JSONEq(t, `{"content":[{"type":"text","text":"API error (status 500): boom"}],"isError":true}`, string(resps[2].Result))

	require.NotNil(t, resps[3].Error)
	assert.Equal(t, ToolExecutionError, resps[3].Error.Code)

	require.NotNil(t, resps[4].Error)
	assert.Equal(t, InvalidParams, resps[4].Error.Code)
	require.NotNil(t, resps[5].Error)
	assert.Equal(t, InvalidParams, resps[5].Error.Code)
}

func TestSession_ToolsListIsIdempotent(t *testing.T) {
	resps := runSession(t, &stubTools{},
		initLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_issue"}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/list","params":{"cursor":"x"}}`,
	)
	require.Len(t, resps, 4)
	assert.JSONEq(t, string(resps[1].Result), string(resps[3].Result))
	assert.NotContains(t, string(resps[1].Result), "nextCursor")
	assert.Contains(t, string(resps[1].Result), `"inputSchema"`)
}

func TestSession_ProtocolErrors(t *testing.T) {
	resps := runSession(t, &stubTools{},
		`{not json`,
		`[1,2]`,
		`{"jsonrpc":"1.0","id":7,"method":"initialize"}`,
		`{"jsonrpc":"2.0","id":8,"method":""}`,
		`{"jsonrpc":"2.0","id":9,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":{"x":1},"method":"ping"}`,
	)
	require.Len(t, resps, 6)

	wantCodes := []int{ParseError, ParseError, InvalidRequest, InvalidRequest, MethodNotFound, InvalidRequest}
	wantIDs := []string{"null", "null", "7", "8", "9", "null"}
	for i, r := range resps {
		require.NotNil(t, r.Error, "response %d", i)
		assert.Equal(t, wantCodes[i], r.Error.Code, "response %d", i)
		assert.JSONEq(t, wantIDs[i], string(r.ID), "response %d", i)
		assert.NotEmpty(t, r.Error.Message, "response %d", i)
	}
}

func TestSession_NotificationsGetNoResponse(t *testing.T) {
	tools := &stubTools{}
	resps := runSession(t, tools,
		initLine,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":1,"reason":"user"}}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled","params":"garbage"}`,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"get_issue"}}`,
		`{"jsonrpc":"1.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":""}`,
		`{"jsonrpc":"2.0","id":99,"result":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)
	require.Len(t, resps, 2)
	assert.JSONEq(t, "2", string(resps[1].ID))
	assert.JSONEq(t, "{}", string(resps[1].Result))
	assert.Equal(t, 0, tools.calls)
}

func TestSession_SecondInitializeIsRejected(t *testing.T) {
	resps := runSession(t, &stubTools{}, initLine, strings.Replace(initLine, `"id":1`, `"id":2`, 1))
	require.Len(t, resps, 2)
	require.NotNil(t, resps[1].Error)
	assert.Equal(t, InvalidRequest, resps[1].Error.Code)
}

func TestHandler_RecordsClient(t *testing.T) {
	h := NewHandler(&stubTools{}, ServerInfo{}, "")
	assert.False(t, h.Initialized())

	var req Request
	require.NoError(t, json.Unmarshal([]byte(initLine), &req))
	_, rpcErr := h.ProcessRequest(context.Background(), &req)
	require.Nil(t, rpcErr)

	assert.True(t, h.Initialized())
	assert.Equal(t, ClientInfo{Name: "test", Version: "0.1"}, h.Client())
}
