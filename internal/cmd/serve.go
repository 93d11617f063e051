package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"easyproject-mcp/server/internal/cache"
	"easyproject-mcp/server/internal/config"
	"easyproject-mcp/server/internal/mcp"
	"easyproject-mcp/server/internal/middleware"
	"easyproject-mcp/server/internal/modules"
	"easyproject-mcp/server/internal/modules/easyproject"
	"easyproject-mcp/server/internal/observability"
	"easyproject-mcp/server/pkg/easyprojectapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on the configured transport",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	// stdout carries protocol frames, logs go to stderr.
	logger, err := observability.ConfigureLogging(cfg.Logging, os.Stderr)
	if err != nil {
		return errors.Wrap(err, "configure logging")
	}
	ctx = logger.WithContext(ctx)

	provider, reader := observability.NewMeterProvider()
	defer func() {
		observability.LogSummary(context.WithoutCancel(ctx), reader)
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("meter provider shutdown")
		}
	}()

	api, err := newAPIClient(cfg, logger, provider)
	if err != nil {
		return err
	}
	registry, err := buildRegistry(cfg, api, provider)
	if err != nil {
		return err
	}

	transport, err := openTransport(cfg.Server, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer transport.Close()

	handler := mcp.NewHandler(registry, mcp.ServerInfo{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, mcp.DefaultInstructions)

	logger.Info().
		Str("transport", cfg.Server.Transport).
		Str("base_url", cfg.EasyProject.BaseURL).
		Int("tools", registry.Len()).
		Bool("cache", cfg.Cache.Enabled).
		Bool("rate_limit", cfg.RateLimit.Enabled).
		Msg("server starting")

	if err := mcp.NewSession(transport, handler).Run(ctx); err != nil {
		return errors.Wrap(err, "session")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newAPIClient builds the upstream client with the configured cache and
// rate limiter.
func newAPIClient(cfg config.Config, logger zerolog.Logger, provider metric.MeterProvider) (*easyprojectapi.Client, error) {
	var respCache cache.Cache
	if cfg.Cache.Enabled {
		mem, err := cache.NewMemory(cfg.Cache.TierTTLs(), cfg.Cache.MaxEntries)
		if err != nil {
			return nil, errors.Wrap(err, "create cache")
		}
		respCache = cache.NewInstrumented(mem, provider)
	}

	limiter := middleware.NoopRateLimiter()
	if cfg.RateLimit.Enabled {
		rl, err := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
		if err != nil {
			return nil, errors.Wrap(err, "create rate limiter")
		}
		limiter = rl
	}

	api, err := easyprojectapi.New(easyprojectapi.Options{
		BaseURL:       cfg.EasyProject.BaseURL,
		APIKey:        cfg.EasyProject.APIKey,
		APIKeyHeader:  cfg.EasyProject.APIKeyHeader,
		UserAgent:     cfg.HTTP.UserAgent,
		Timeout:       cfg.HTTP.Timeout(),
		Cache:         respCache,
		Limiter:       limiter,
		MeterProvider: provider,
		Logger:        logger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create API client")
	}
	return api, nil
}

// buildRegistry registers the enabled tool categories.
func buildRegistry(cfg config.Config, api easyproject.API, provider metric.MeterProvider) (*modules.Registry, error) {
	registry := modules.NewRegistry(
		modules.WithCallTimeout(cfg.Tools.CallTimeout()),
		modules.WithMetrics(observability.NewToolMetrics(provider)),
	)
	for _, m := range easyproject.Enabled(api, cfg.Tools, easyproject.Options{DefaultLimit: cfg.Tools.DefaultLimit}) {
		if err := registry.Register(m); err != nil {
			return nil, errors.Wrapf(err, "register module %s", m.Name())
		}
	}
	return registry, nil
}

func openTransport(cfg config.ServerConfig, in io.Reader, out io.Writer) (mcp.Transport, error) {
	switch cfg.Transport {
	case "websocket":
		return mcp.NewWebSocketTransport(cfg.WebSocketPort)
	default:
		return mcp.NewStdioTransport(in, out), nil
	}
}
