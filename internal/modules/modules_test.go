package modules

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// stubModule serves fixed tools from a handler map.
type stubModule struct {
	name     string
	tools    []Tool
	handlers map[string]func(ctx context.Context, params map[string]any) (string, error)
}

func (s *stubModule) Name() string        { return s.name }
func (s *stubModule) Description() string { return s.name + " tools" }
func (s *stubModule) Tools() []Tool       { return s.tools }

func (s *stubModule) ExecuteTool(ctx context.Context, name string, params map[string]any) (string, error) {
	h, ok := s.handlers[name]
	if !ok {
		return "", errors.New("no handler")
	}
	return h(ctx, params)
}

func newStubRegistry(t *testing.T, opts ...RegistryOption) *Registry {
	t.Helper()
	m := &stubModule{
		name: "issues",
		tools: []Tool{
			{
				Name: "get_issue",
				InputSchema: InputSchema{
					Type:       "object",
					Properties: map[string]Property{"id": {Type: "integer", Minimum: Bound(1)}},
					Required:   []string{"id"},
				},
			},
			{Name: "fail", InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}}},
			{Name: "boom", InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}}},
			{Name: "slow", InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}}},
		},
		handlers: map[string]func(ctx context.Context, params map[string]any) (string, error){
			"get_issue": func(ctx context.Context, params map[string]any) (string, error) {
				id, err := Args(params).Int("id")
				if err != nil {
					return "", err
				}
				return "issue " + strings.Repeat("#", *id), nil
			},
			"fail": func(ctx context.Context, params map[string]any) (string, error) {
				return "", errors.New("API error (status 404): Not Found")
			},
			"boom": func(ctx context.Context, params map[string]any) (string, error) {
				panic("nil map write")
			},
			"slow": func(ctx context.Context, params map[string]any) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
		},
	}
	r := NewRegistry(opts...)
	if err := r.Register(m); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return r
}

func TestRegistry_ToolsStableOrder(t *testing.T) {
	r := newStubRegistry(t)

	for range 3 {
		tools := r.Tools()
		if len(tools) != 4 {
			t.Fatalf("len(Tools()) = %d, want 4", len(tools))
		}
		want := []string{"get_issue", "fail", "boom", "slow"}
		for i, tool := range tools {
			if tool.Name != want[i] {
				t.Errorf("Tools()[%d] = %s, want %s", i, tool.Name, want[i])
			}
		}
	}
}

func TestRegistry_DuplicateTool(t *testing.T) {
	r := newStubRegistry(t)
	err := r.Register(&stubModule{name: "other", tools: []Tool{{Name: "get_issue"}}})
	if err == nil {
		t.Error("expected error for duplicate tool name")
	}
}

func TestRegistry_Call(t *testing.T) {
	r := newStubRegistry(t)

	result, err := r.Call(context.Background(), "get_issue", map[string]any{"id": float64(3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}
	if result.Content[0].Text != "issue ###" {
		t.Errorf("text = %q", result.Content[0].Text)
	}
}

func TestRegistry_CallUnknownTool(t *testing.T) {
	r := newStubRegistry(t)

	_, err := r.Call(context.Background(), "nonexistent", nil)
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("err = %v, want ErrToolNotFound", err)
	}
}

func TestRegistry_CallInBandErrors(t *testing.T) {
	r := newStubRegistry(t)

	tests := []struct {
		name     string
		tool     string
		params   map[string]any
		contains string
	}{
		{"missing required", "get_issue", nil, "missing required parameter(s): id"},
		{"constraint", "get_issue", map[string]any{"id": float64(0)}, `parameter "id"`},
		{"handler error", "fail", nil, "API error (status 404)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := r.Call(context.Background(), tt.tool, tt.params)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected IsError result")
			}
			if !strings.Contains(result.Content[0].Text, tt.contains) {
				t.Errorf("text %q does not contain %q", result.Content[0].Text, tt.contains)
			}
		})
	}
}

func TestRegistry_CallPanic(t *testing.T) {
	r := newStubRegistry(t)

	_, err := r.Call(context.Background(), "boom", nil)
	if !errors.Is(err, ErrToolPanic) {
		t.Errorf("err = %v, want ErrToolPanic", err)
	}
}

func TestRegistry_CallTimeout(t *testing.T) {
	r := newStubRegistry(t, WithCallTimeout(20*time.Millisecond))

	result, err := r.Call(context.Background(), "slow", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content[0].Text, "timed out") {
		t.Errorf("result = %+v, want timeout error", result)
	}
}
