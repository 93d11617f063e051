package easyprojectapi

import (
	"net/url"
	"strconv"
	"strings"
)

// unsetValue marks an absent parameter in a cache key. Strings are quoted in
// keys, so no string value can render as this sentinel.
const unsetValue = "<unset>"

// query builds the outgoing query string and the cache key from the same
// sequence of calls. Every parameter appears in the key, set or not, in call
// order; only set parameters reach the query string.
type query struct {
	values url.Values
	key    strings.Builder
}

func newQuery(operation string) *query {
	q := &query{values: url.Values{}}
	q.key.WriteString(operation)
	return q
}

func (q *query) writeKey(name, value string) {
	q.key.WriteByte('|')
	q.key.WriteString(name)
	q.key.WriteByte('=')
	q.key.WriteString(value)
}

// id adds a path parameter. It is part of the key but not of the query.
func (q *query) id(name string, v int) *query {
	q.writeKey(name, strconv.Itoa(v))
	return q
}

func (q *query) optInt(name string, v *int) *query {
	if v == nil {
		q.writeKey(name, unsetValue)
		return q
	}
	s := strconv.Itoa(*v)
	q.writeKey(name, s)
	q.values.Set(name, s)
	return q
}

func (q *query) optBool(name string, v *bool) *query {
	if v == nil {
		q.writeKey(name, unsetValue)
		return q
	}
	s := strconv.FormatBool(*v)
	q.writeKey(name, s)
	q.values.Set(name, s)
	return q
}

func (q *query) optString(name string, v *string) *query {
	if v == nil {
		q.writeKey(name, unsetValue)
		return q
	}
	q.writeKey(name, strconv.Quote(*v))
	q.values.Set(name, *v)
	return q
}

// optList adds a comma-joined parameter. A nil slice is unset; an empty slice is
// recorded in the key but sends nothing.
func (q *query) optList(name string, v []string) *query {
	if v == nil {
		q.writeKey(name, unsetValue)
		return q
	}
	quoted := make([]string, len(v))
	for i, s := range v {
		quoted[i] = strconv.Quote(s)
	}
	q.writeKey(name, "["+strings.Join(quoted, ",")+"]")
	if len(v) > 0 {
		q.values.Set(name, strings.Join(v, ","))
	}
	return q
}

// search maps free text onto the EasyQuery filter. Setting it also turns on
// filtering with set_filter=1, without which the upstream ignores the text.
func (q *query) search(v *string) *query {
	if v == nil {
		q.writeKey("search", unsetValue)
		return q
	}
	q.writeKey("search", strconv.Quote(*v))
	q.values.Set("easy_query_q", *v)
	q.values.Set("set_filter", "1")
	return q
}

func (q *query) cacheKey() string {
	return q.key.String()
}

// Ptr returns a pointer to v. Useful for building optional parameters.
func Ptr[T any](v T) *T {
	return &v
}
