package modules

import (
	"strings"
	"testing"
)

func TestValidateParams_Required(t *testing.T) {
	schema := InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"project_id": {Type: "integer", Description: "Project ID"},
			"subject":    {Type: "string", Description: "Issue subject"},
		},
		Required: []string{"project_id", "subject"},
	}

	tests := []struct {
		name   string
		params map[string]any
		errMsg string
	}{
		{"all required present", map[string]any{"project_id": float64(7), "subject": "Login broken"}, ""},
		{"missing subject", map[string]any{"project_id": float64(7)}, "missing required parameter(s): subject"},
		{"missing both", map[string]any{}, "missing required parameter(s): project_id, subject"},
		{"nil params", nil, "missing required parameter(s): project_id, subject"},
		{"empty subject", map[string]any{"project_id": float64(7), "subject": ""}, "missing required parameter(s): subject"},
		{"null project", map[string]any{"project_id": nil, "subject": "x"}, "missing required parameter(s): project_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateParams(schema, tt.params)
			checkValidation(t, err, tt.errMsg)
		})
	}
}

func TestValidateParams_Types(t *testing.T) {
	schema := InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"subject":     {Type: "string"},
			"hours":       {Type: "number"},
			"is_public":   {Type: "boolean"},
			"project_ids": {Type: "array", Items: &Property{Type: "integer"}},
			"custom":      {Type: "object"},
			"limit":       {Type: "integer"},
		},
	}

	tests := []struct {
		name   string
		params map[string]any
		errMsg string
	}{
		{
			name: "all correct types",
			params: map[string]any{
				"subject": "x", "hours": 1.5, "is_public": true, "limit": float64(10),
				"project_ids": []any{float64(1)}, "custom": map[string]any{"k": "v"},
			},
		},
		{"string for number", map[string]any{"hours": "two"}, `parameter "hours": expected number, got string`},
		{"number for string", map[string]any{"subject": float64(42)}, `parameter "subject": expected string, got float64`},
		{"string for boolean", map[string]any{"is_public": "true"}, `parameter "is_public": expected boolean, got string`},
		{"string for array", map[string]any{"project_ids": "1,2"}, `parameter "project_ids": expected array, got string`},
		{"string for object", map[string]any{"custom": "x"}, `parameter "custom": expected object, got string`},
		{"string for integer", map[string]any{"limit": "ten"}, `parameter "limit"`},
		{"unknown parameter passes", map[string]any{"sort": "id:desc"}, ""},
		{"null skips type check", map[string]any{"subject": nil}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateParams(schema, tt.params)
			checkValidation(t, err, tt.errMsg)
		})
	}
}

func TestValidateParams_NoArguments(t *testing.T) {
	// get_current_user takes nothing
	schema := InputSchema{Type: "object", Properties: map[string]Property{}}

	result, err := ValidateParams(schema, map[string]any{})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result == nil {
		t.Errorf("expected non-nil result")
	}
}

// checkValidation fails unless err matches want. An empty want expects no
// error; otherwise the message must start with want.
func checkValidation(t *testing.T, err error, want string) {
	t.Helper()
	if want == "" {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		return
	}
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if !strings.HasPrefix(err.Error(), want) {
		t.Errorf("expected error %q, got %q", want, err.Error())
	}
}

func TestFindTool(t *testing.T) {
	tools := []Tool{
		{Name: "get_issue", Description: "Get one issue"},
		{Name: "list_issues", Description: "List issues"},
	}

	tool, found := findTool(tools, "list_issues")
	if !found {
		t.Fatal("expected to find list_issues")
	}
	if tool.Description != "List issues" {
		t.Errorf("expected description List issues, got %s", tool.Description)
	}

	_, found = findTool(tools, "nonexistent")
	if found {
		t.Error("expected not to find nonexistent tool")
	}
}

func TestValidateParams_Constraints(t *testing.T) {
	schema := InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"limit":     {Type: "integer", Minimum: Bound(1), Maximum: Bound(100)},
			"hours":     {Type: "number", Minimum: Bound(0.01), Maximum: Bound(24)},
			"status":    {Type: "string", Enum: []any{"open", "locked", "closed"}},
			"from_date": {Type: "string", Pattern: `^\d{4}-\d{2}-\d{2}$`},
		},
	}

	tests := []struct {
		name    string
		params  map[string]any
		wantErr string
	}{
		{"within bounds", map[string]any{"limit": float64(100), "hours": 0.5}, ""},
		{"limit too large", map[string]any{"limit": float64(101)}, `parameter "limit"`},
		{"limit too small", map[string]any{"limit": float64(0)}, `parameter "limit"`},
		{"fractional integer", map[string]any{"limit": 2.5}, `parameter "limit"`},
		{"hours above day", map[string]any{"hours": float64(25)}, `parameter "hours"`},
		{"enum member", map[string]any{"status": "open"}, ""},
		{"enum violation", map[string]any{"status": "archived"}, `parameter "status"`},
		{"pattern match", map[string]any{"from_date": "2024-01-31"}, ""},
		{"pattern violation", map[string]any{"from_date": "31.1.2024"}, `parameter "from_date"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateParams(schema, tt.params)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateParams_DropsNulls(t *testing.T) {
	schema := InputSchema{
		Type:       "object",
		Properties: map[string]Property{"name": {Type: "string", Enum: []any{"a"}}},
	}

	got, err := ValidateParams(schema, map[string]any{"name": nil, "other": float64(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got["name"]; ok {
		t.Error("expected null parameter to be dropped")
	}
	if got["other"] != float64(1) {
		t.Error("expected undeclared parameter to pass through")
	}
}

func TestNewValidator_InvalidPattern(t *testing.T) {
	_, err := NewValidator(InputSchema{
		Type:       "object",
		Properties: map[string]Property{"q": {Type: "string", Pattern: "("}},
	})
	if err == nil {
		t.Error("expected error for invalid pattern")
	}
}

// findTool looks up a tool by name from a tool list.
func findTool(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}
