package departure

import (
	"encoding/json"
	"strconv"
)

// Record is a decoded JSON object. Its accessors never fail: a missing key
// or a value of the wrong type yields the zero value, so a single odd field
// cannot abort parsing of a whole response.
type Record map[string]any

// AsRecord reports whether v is a JSON object.
func AsRecord(v any) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case map[string]any:
		return Record(m), true
	}
	return nil, false
}

// DecodeRecord unmarshals body and reports whether it is a JSON object.
func DecodeRecord(body []byte) (Record, bool) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, false
	}
	return AsRecord(v)
}

// Record returns the nested object at key, or an empty Record.
func (r Record) Record(key string) Record {
	if m, ok := AsRecord(r[key]); ok {
		return m
	}
	return Record{}
}

// String returns the value at key when it is a JSON string.
func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// Str returns the string at key or "".
func (r Record) Str(key string) string {
	s, _ := r.String(key)
	return s
}

// Text renders scalars at key as a string. Numbers and booleans are
// formatted; objects, arrays and null yield "".
func (r Record) Text(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// Int returns the numeric value at key. Integral strings are accepted.
func (r Record) Int(key string) (int, bool) {
	switch v := r[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

// Bool returns the value at key when it is a JSON boolean.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// List returns the array at key, or nil.
func (r Record) List(key string) []any {
	l, _ := r[key].([]any)
	return l
}

// Strings returns the string elements of the array at key.
func (r Record) Strings(key string) []string {
	var out []string
	for _, v := range r.List(key) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
