package modules

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"easyproject-mcp/server/internal/middleware"
	"easyproject-mcp/server/internal/observability"
)

// DefaultCallTimeout bounds a tool call when the registry was built without
// an explicit timeout.
const DefaultCallTimeout = 60 * time.Second

var (
	// ErrToolNotFound is returned by Call for a name no module registered.
	ErrToolNotFound = errors.New("tool not found")
	// ErrToolPanic is returned by Call when the handler panicked.
	ErrToolPanic = errors.New("tool panicked")
)

// =============================================================================
// Registry
// =============================================================================

type registeredTool struct {
	tool      Tool
	module    Module
	validator *Validator
}

// Registry holds the tools of every enabled module. It is filled during
// startup and read-only afterwards, so concurrent calls need no locking.
type Registry struct {
	tools   map[string]registeredTool
	order   []string
	timeout time.Duration
	metrics *observability.ToolMetrics
}

type RegistryOption func(*Registry)

// WithCallTimeout bounds each tool call.
func WithCallTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMetrics records every call on m.
func WithMetrics(m *observability.ToolMetrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:   make(map[string]registeredTool),
		timeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds every tool of m. Tool names are global: registering a name
// twice, or a tool whose schema does not compile, is an error.
func (r *Registry) Register(m Module) error {
	for _, tool := range m.Tools() {
		if _, exists := r.tools[tool.Name]; exists {
			return errors.Errorf("module %s: tool %q already registered", m.Name(), tool.Name)
		}
		validator, err := NewValidator(tool.InputSchema)
		if err != nil {
			return errors.Wrapf(err, "module %s: tool %q", m.Name(), tool.Name)
		}
		r.tools[tool.Name] = registeredTool{tool: tool, module: m, validator: validator}
		r.order = append(r.order, tool.Name)
	}
	return nil
}

// Tools lists registered tools in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].tool)
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}

// =============================================================================
// Tool Execution
// =============================================================================

// Call validates params and runs the named tool. Failures of the tool itself
// come back as a result with IsError set. The returned error is reserved for
// ErrToolNotFound and ErrToolPanic.
func (r *Registry) Call(ctx context.Context, name string, params map[string]any) (*ToolCallResult, error) {
	entry, ok := r.tools[name]
	if !ok {
		return nil, errors.Wrapf(ErrToolNotFound, "%s", name)
	}

	start := time.Now()

	validated, err := entry.validator.Validate(params)
	if err != nil {
		r.finish(ctx, name, start, observability.StatusError, err.Error())
		return ErrorResult(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}

	// Apply timeout to prevent external API calls from hanging indefinitely
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var text string
	err = middleware.Recover(callCtx, "tool "+name, func() error {
		var execErr error
		text, execErr = entry.module.ExecuteTool(callCtx, name, validated)
		return execErr
	})

	switch {
	case errors.Is(err, middleware.ErrPanic):
		r.finish(ctx, name, start, observability.StatusPanic, err.Error())
		return nil, errors.Wrapf(ErrToolPanic, "%s", name)
	case err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		msg := fmt.Sprintf("Tool %s timed out after %s. The EasyProject API did not respond in time.", name, r.timeout)
		r.finish(ctx, name, start, observability.StatusTimeout, msg)
		return ErrorResult(msg), nil
	case err != nil:
		r.finish(ctx, name, start, observability.StatusError, err.Error())
		return ErrorResult(err.Error()), nil
	}

	r.finish(ctx, name, start, observability.StatusSuccess, "")
	return TextResult(text), nil
}

func (r *Registry) finish(ctx context.Context, name string, start time.Time, status, errMsg string) {
	d := time.Since(start)
	observability.LogToolCall(ctx, name, d, status, errMsg)
	r.metrics.Record(ctx, name, status, d)
}
