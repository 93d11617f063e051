package observability

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"easyproject-mcp/server/internal/config"
)

// ConfigureLogging sets the global logger from cfg and returns it. out must
// not be the protocol channel; callers pass stderr.
func ConfigureLogging(cfg config.LoggingConfig, out io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), errors.Wrapf(err, "parse log level %q", cfg.Level)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var w io.Writer = out
	switch cfg.Format {
	case "", "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), errors.Errorf("unknown log format %q (expected json or console)", cfg.Format)
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger
	return logger, nil
}

// LogToolCall records the outcome of one tool call on the context logger.
func LogToolCall(ctx context.Context, tool string, duration time.Duration, status string, errMsg string) {
	ev := zerolog.Ctx(ctx).Info()
	if status != StatusSuccess {
		ev = zerolog.Ctx(ctx).Warn()
	}
	ev = ev.
		Str("tool", tool).
		Int64("duration_ms", duration.Milliseconds()).
		Str("status", status)
	if errMsg != "" {
		ev = ev.Str("error", errMsg)
	}
	ev.Msg("tool call")
}
