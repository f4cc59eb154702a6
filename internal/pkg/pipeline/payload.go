package pipeline

import (
	"strconv"
	"strings"
	"time"
)

// defaultWalkDepth bounds recursive payload traversal so a pathological
// or cyclic-looking input cannot blow the stack. Provider payloads in
// practice nest well below this.
const defaultWalkDepth = 12

// WalkPayload walks a decoded JSON tree (objects, arrays, scalars) down
// to maxDepth levels, calling visit for every key/value pair found in an
// object. The walk stops early when visit returns true; the return value
// reports whether it was stopped.
//
// The target key is assumed to be unique enough in the tree that the
// first match is the right one.
func WalkPayload(node any, maxDepth int, visit func(key string, value any) bool) bool {
	if maxDepth <= 0 {
		return false
	}
	switch n := node.(type) {
	case map[string]any:
		for key, value := range n {
			if visit(key, value) {
				return true
			}
			if WalkPayload(value, maxDepth-1, visit) {
				return true
			}
		}
	case []any:
		for _, item := range n {
			if WalkPayload(item, maxDepth-1, visit) {
				return true
			}
		}
	}
	return false
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// stringify renders a decoded JSON scalar as a string. Numeric ids come
// out of encoding/json as float64; integral values lose the ".0".
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	case int:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}

// nestedString resolves a dotted path of object keys to a string value.
func nestedString(m map[string]any, keys ...string) string {
	current := m
	for i, key := range keys {
		if current == nil {
			return ""
		}
		if i == len(keys)-1 {
			return stringify(current[key])
		}
		current = asMap(current[key])
	}
	return ""
}

// unwrapName handles the {"value": "..."} wrapper some providers use for
// localized names.
func unwrapName(v any) string {
	if m := asMap(v); m != nil {
		return stringify(m["value"])
	}
	return stringify(v)
}

// ParseEventTime parses the timestamp formats seen in provider payloads
// (RFC 3339 with or without fractional seconds, a bare Z suffix, or a
// space instead of the T). Returns the zero time when the value is
// absent or unparseable.
func ParseEventTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if strings.Contains(value, " ") && !strings.Contains(value, "T") {
		value = strings.Replace(value, " ", "T", 1)
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
