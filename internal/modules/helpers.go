package modules

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-faster/errors"
)

// DateLayout is the YYYY-MM-DD form used by every date argument.
const DateLayout = "2006-01-02"

// ToJSON marshals any value to an indented JSON string.
// Used for aggregate results such as reports.
func ToJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal response")
	}
	return string(b), nil
}

// ToStringSlice converts []interface{} (from MCP params) to []string.
// Non-string elements are silently skipped.
func ToStringSlice(v []any) []string {
	out := make([]string, 0, len(v))
	for _, item := range v {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Args decodes tool arguments. Each accessor returns nil when the argument
// is absent or null and an error when it is present with the wrong shape.
type Args map[string]any

func (a Args) Int(name string) (*int, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, nil
	}
	n, err := toInt(name, v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (a Args) Float(name string) (*float64, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil, errors.Errorf("parameter %q: expected number, got %T", name, v)
	}
	return &f, nil
}

func (a Args) String(name string) (*string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, errors.Errorf("parameter %q: expected string, got %T", name, v)
	}
	return &s, nil
}

func (a Args) Bool(name string) (*bool, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil, errors.Errorf("parameter %q: expected boolean, got %T", name, v)
	}
	return &b, nil
}

// Date reads a YYYY-MM-DD string and checks that it names a real day.
func (a Args) Date(name string) (*string, error) {
	s, err := a.String(name)
	if err != nil || s == nil {
		return s, err
	}
	if _, err := time.Parse(DateLayout, *s); err != nil {
		return nil, errors.Errorf("parameter %q: %q is not a YYYY-MM-DD date", name, *s)
	}
	return s, nil
}

func (a Args) IntSlice(name string) ([]int, error) {
	items, err := a.slice(name)
	if err != nil || items == nil {
		return nil, err
	}
	out := make([]int, 0, len(items))
	for i, item := range items {
		n, err := toInt(fmt.Sprintf("%s[%d]", name, i), item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (a Args) StringSlice(name string) ([]string, error) {
	items, err := a.slice(name)
	if err != nil || items == nil {
		return nil, err
	}
	for i, item := range items {
		if _, ok := item.(string); !ok {
			return nil, errors.Errorf("parameter %q: element %d: expected string, got %T", name, i, item)
		}
	}
	return ToStringSlice(items), nil
}

func (a Args) slice(name string) ([]any, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, errors.Errorf("parameter %q: expected array, got %T", name, v)
	}
	return items, nil
}

// toInt accepts JSON numbers (float64) that hold a whole value.
func toInt(name string, v any) (int, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, errors.Errorf("parameter %q: expected integer, got %T", name, v)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, errors.Errorf("parameter %q: expected integer, got %v", name, f)
	}
	return int(f), nil
}
