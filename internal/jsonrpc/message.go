package jsonrpc

import (
	"bytes"
	"encoding/json"

	"github.com/go-faster/errors"
)

// Kind classifies an inbound message.
type Kind int

const (
	KindRequest Kind = iota
	KindNotification
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Message is one decoded inbound line.
type Message struct {
	Kind    Kind
	Request Request

	// Result and Error are kept raw for inbound responses, which are only
	// logged.
	Result json.RawMessage
	Error  json.RawMessage
}

// envelope records which members are present, so that "id": null can be told
// apart from a missing id.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  *string         `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// ErrParse is returned by Parse when data is not a JSON object.
var ErrParse = errors.New("parse error")

// InvalidMessageError is a well-formed JSON object that violates the
// JSON-RPC envelope. ID carries the request id when one could be read.
// Notification is set when the message had no id member at all.
type InvalidMessageError struct {
	ID           json.RawMessage
	Notification bool
	Reason       string
}

func (e *InvalidMessageError) Error() string {
	return "invalid request: " + e.Reason
}

// Parse decodes and classifies one message. A message with result or error is
// a response; one without an id member is a notification; anything else is a
// request.
func Parse(data []byte) (*Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.Wrap(ErrParse, "message is not a JSON object")
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, errors.Wrapf(ErrParse, "%v", err)
	}

	msg := &Message{}
	switch {
	case env.Result != nil || env.Error != nil:
		msg.Kind = KindResponse
		msg.Request.ID = env.ID
		msg.Result = env.Result
		msg.Error = env.Error
		return msg, nil
	case env.ID == nil:
		msg.Kind = KindNotification
	default:
		msg.Kind = KindRequest
	}

	if env.JSONRPC != Version {
		return nil, &InvalidMessageError{ID: env.ID, Notification: env.ID == nil, Reason: `jsonrpc must be "2.0"`}
	}
	if env.Method == nil || *env.Method == "" {
		return nil, &InvalidMessageError{ID: env.ID, Notification: env.ID == nil, Reason: "method is required"}
	}
	if msg.Kind == KindRequest && !validID(env.ID) {
		return nil, &InvalidMessageError{Reason: "id must be a string, number or null"}
	}

	msg.Request = Request{
		JSONRPC: env.JSONRPC,
		ID:      env.ID,
		Method:  *env.Method,
		Params:  env.Params,
	}
	return msg, nil
}

func validID(id json.RawMessage) bool {
	trimmed := bytes.TrimSpace(id)
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case '"', 'n', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return true
	default:
		return false
	}
}
