package rpc

import "strings"

// Sanitize normalizes request params in place before dispatch. String
// values are whitespace-trimmed, recursively through nested objects
// and arrays.
func Sanitize(params map[string]any) {
	for key, value := range params {
		params[key] = sanitizeValue(value)
	}
}

func sanitizeValue(value any) any {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		Sanitize(v)

		return v
	case []any:
		for i, elem := range v {
			v[i] = sanitizeValue(elem)
		}

		return v
	default:
		return value
	}
}
