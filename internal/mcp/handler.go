package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"

	"easyproject-mcp/server/internal/jsonrpc"
	"easyproject-mcp/server/internal/modules"
)

// DefaultInstructions is sent to clients in the initialize result.
const DefaultInstructions = `This server exposes the EasyProject project management API.
List tools return a header line and a CSV block; single records come back as markdown.
Dates use YYYY-MM-DD. Use get_issue_enumerations to discover status, priority and tracker IDs.
Use log_time to record work; it defaults to today.`

// ToolCaller is the tool registry as seen by the protocol layer.
type ToolCaller interface {
	Tools() []modules.Tool
	Call(ctx context.Context, name string, params map[string]any) (*modules.ToolCallResult, error)
}

// Handler implements the session state machine. It starts uninitialized and
// moves to initialized on the first successful initialize request; there is
// no way back.
type Handler struct {
	tools        ToolCaller
	info         ServerInfo
	instructions string

	mu          sync.Mutex
	initialized bool
	client      ClientInfo
}

func NewHandler(tools ToolCaller, info ServerInfo, instructions string) *Handler {
	return &Handler{
		tools:        tools,
		info:         info,
		instructions: instructions,
	}
}

// Initialized reports whether the initialize handshake has completed.
func (h *Handler) Initialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initialized
}

// Client returns what the client reported about itself in initialize.
func (h *Handler) Client() ClientInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.client
}

// ProcessRequest routes a JSON-RPC request to the appropriate handler.
// Called by the session loop.
func (h *Handler) ProcessRequest(ctx context.Context, req *jsonrpc.Request) (any, *jsonrpc.Error) {
	switch req.Method {
	case "initialize":
		return h.handleInitialize(ctx, req)
	case "ping":
		return struct{}{}, nil
	case "tools/list", "tools/call":
		if !h.Initialized() {
			return nil, &jsonrpc.Error{Code: InvalidRequest, Message: "server not initialized"}
		}
		if req.Method == "tools/list" {
			return h.handleToolsList(req)
		}
		return h.handleToolCall(ctx, req)
	default:
		return nil, &jsonrpc.Error{Code: MethodNotFound, Message: fmt.Sprintf("Method not found: %s", req.Method)}
	}
}

// HandleNotification processes a message without id. Nothing is ever sent
// back, so problems are only logged.
func (h *Handler) HandleNotification(ctx context.Context, req *jsonrpc.Request) {
	log := zerolog.Ctx(ctx)
	switch req.Method {
	case "notifications/initialized":
		log.Debug().Bool("initialized", h.Initialized()).Msg("client reported initialized")
	case "notifications/cancelled":
		var params CancelledParams
		if err := decodeParams(req.Params, &params); err != nil {
			log.Warn().Err(err).Msg("malformed cancellation")
			return
		}
		// Requests are handled one at a time, so the target has already
		// finished by the time this is read.
		log.Info().
			RawJSON("request_id", nonEmptyJSON(params.RequestID)).
			Str("reason", params.Reason).
			Msg("client cancelled request")
	default:
		log.Debug().Str("method", req.Method).Msg("ignoring notification")
	}
}

func (h *Handler) handleInitialize(ctx context.Context, req *jsonrpc.Request) (*InitializeResult, *jsonrpc.Error) {
	var params InitializeParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: "Invalid params structure", Data: err.Error()}
	}

	h.mu.Lock()
	if h.initialized {
		h.mu.Unlock()
		return nil, &jsonrpc.Error{Code: InvalidRequest, Message: "server already initialized"}
	}
	h.initialized = true
	h.client = params.ClientInfo
	h.mu.Unlock()

	log := zerolog.Ctx(ctx)
	if params.ProtocolVersion != ProtocolVersion {
		log.Warn().
			Str("client_version", params.ProtocolVersion).
			Str("server_version", ProtocolVersion).
			Msg("protocol version mismatch")
	}
	log.Info().
		Str("client", params.ClientInfo.Name).
		Str("client_version", params.ClientInfo.Version).
		Msg("session initialized")

	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo:   h.info,
		Instructions: h.instructions,
	}, nil
}

func (h *Handler) handleToolsList(req *jsonrpc.Request) (*ToolsListResult, *jsonrpc.Error) {
	// The cursor is accepted and ignored: the whole catalog fits one page.
	var params ToolsListParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: "Invalid params structure", Data: err.Error()}
	}
	tools := h.tools.Tools()
	if tools == nil {
		tools = []modules.Tool{}
	}
	return &ToolsListResult{Tools: tools}, nil
}

func (h *Handler) handleToolCall(ctx context.Context, req *jsonrpc.Request) (*ToolCallResult, *jsonrpc.Error) {
	var params ToolCallParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: "Invalid params structure", Data: err.Error()}
	}
	if params.Name == "" {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: "name is required"}
	}

	result, err := h.tools.Call(ctx, params.Name, params.Arguments)
	switch {
	case errors.Is(err, modules.ErrToolNotFound):
		return nil, &jsonrpc.Error{
			Code:    ToolNotFound,
			Message: fmt.Sprintf("Tool not found: %s", params.Name),
			Data:    map[string]string{"tool": params.Name},
		}
	case errors.Is(err, modules.ErrToolPanic):
		return nil, &jsonrpc.Error{Code: ToolExecutionError, Message: fmt.Sprintf("Tool %s failed unexpectedly", params.Name)}
	case err != nil:
		return nil, &jsonrpc.Error{Code: InternalError, Message: err.Error()}
	}
	return result, nil
}

// decodeParams unmarshals params into v. Absent or null params leave v at
// its zero value.
func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func nonEmptyJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
