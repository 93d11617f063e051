package mcp

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"

	"easyproject-mcp/server/internal/jsonrpc"
	"easyproject-mcp/server/internal/middleware"
)

// Session runs the message loop for one connection.
type Session struct {
	transport Transport
	handler   *Handler
}

func NewSession(transport Transport, handler *Handler) *Session {
	return &Session{transport: transport, handler: handler}
}

// Run handles one message at a time, in arrival order, until the transport
// closes or ctx ends; both count as a clean shutdown. Only a failing
// transport is returned as an error. Protocol and tool failures become
// responses.
func (s *Session) Run(ctx context.Context) error {
	log := zerolog.Ctx(ctx)
	log.Info().Msg("session started")
	defer log.Info().Msg("session ended")

	for {
		data, err := s.transport.Receive(ctx)
		switch {
		case errors.Is(err, ErrTransportClosed), ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrMessageTooLarge):
			if err := s.send(ctx, jsonrpc.NewError(nil, ParseError, "Parse error", err.Error())); err != nil {
				return err
			}
			continue
		case err != nil:
			return errors.Wrap(err, "receive")
		}

		resp := s.handle(ctx, data)
		if resp == nil {
			continue
		}
		if err := s.send(ctx, resp); err != nil {
			return err
		}
	}
}

func (s *Session) send(ctx context.Context, resp *jsonrpc.Response) error {
	out, err := json.Marshal(resp)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
		out, _ = json.Marshal(jsonrpc.NewError(resp.ID, InternalError, "failed to encode response", nil))
	}
	err = s.transport.Send(ctx, out)
	if errors.Is(err, ErrTransportClosed) || ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "send")
	}
	return nil
}

// handle processes one inbound message and returns the response to send, or
// nil when nothing must be sent.
func (s *Session) handle(ctx context.Context, data []byte) *jsonrpc.Response {
	msg, err := jsonrpc.Parse(data)
	if err != nil {
		var invalid *jsonrpc.InvalidMessageError
		if errors.As(err, &invalid) {
			if invalid.Notification {
				zerolog.Ctx(ctx).Warn().Str("reason", invalid.Reason).Msg("dropping invalid notification")
				return nil
			}
			return jsonrpc.NewError(invalid.ID, InvalidRequest, "Invalid Request", invalid.Reason)
		}
		return jsonrpc.NewError(nil, ParseError, "Parse error", err.Error())
	}

	req := &msg.Request
	log := zerolog.Ctx(ctx).With().
		Str("kind", msg.Kind.String()).
		Str("method", req.Method).
		RawJSON("id", nonEmptyJSON(req.ID)).
		Logger()
	ctx = log.WithContext(ctx)

	switch msg.Kind {
	case jsonrpc.KindResponse:
		log.Debug().RawJSON("error", nonEmptyJSON(msg.Error)).Msg("dropping inbound response")
		return nil
	case jsonrpc.KindNotification:
		err := middleware.Recover(ctx, "notification "+req.Method, func() error {
			s.handler.HandleNotification(ctx, req)
			return nil
		})
		if err != nil {
			log.Error().Err(err).Msg("notification failed")
		}
		return nil
	}

	log.Debug().Msg("received request")

	var (
		result any
		rpcErr *jsonrpc.Error
	)
	err = middleware.Recover(ctx, "request "+req.Method, func() error {
		result, rpcErr = s.handler.ProcessRequest(ctx, req)
		return nil
	})
	if err != nil {
		return jsonrpc.NewError(req.ID, InternalError, "Internal error", nil)
	}
	if rpcErr != nil {
		log.Debug().Int("code", rpcErr.Code).Str("error", rpcErr.Message).Msg("request failed")
		return jsonrpc.NewError(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}
	return jsonrpc.NewResult(req.ID, result)
}
