package jsonrpc

import "encoding/json"

// Version is the only protocol version accepted in the jsonrpc member.
const Version = "2.0"

// Request is a JSON-RPC 2.0 Request. A notification is a Request without ID.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 Response. ID is always present; a nil ID is
// written as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 Error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// JSON-RPC 2.0 standard error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// Server-defined error codes (-32000 ~ -32099)
const (
	ToolExecutionError = -32000
	ToolNotFound       = -32001
	UpstreamAPIError   = -32002
)

// NewResult builds a success response for id.
func NewResult(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: Version, ID: nullable(id), Result: result}
}

// NewError builds an error response for id. A nil id becomes null, as
// required when the request id could not be read.
func NewError(id json.RawMessage, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      nullable(id),
		Error:   &Error{Code: code, Message: message, Data: data},
	}
}

var null = json.RawMessage("null")

func nullable(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return null
	}
	return id
}
