package core

import (
	"encoding/json"
	"strconv"
	"strings"
)

// NumField extracts a numeric field from a specialist payload.
// Specialist payloads are loosely shaped: a field may be a raw number,
// a number nested under "value", or a numeric string (possibly with a
// currency prefix or percent suffix). The fallback order is fixed:
// direct number -> "value" sub-key -> string parse -> fallback.
func NumField(payload map[string]any, key string, fallback float64) float64 {
	if payload == nil {
		return fallback
	}
	v, ok := payload[key]
	if !ok {
		return fallback
	}
	if f, ok := asNumber(v); ok {
		return f
	}
	if m, ok := v.(map[string]any); ok {
		if f, ok := asNumber(m["value"]); ok {
			return f
		}
	}
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(cleanNumeric(s), 64); err == nil {
			return f
		}
	}
	return fallback
}

// StrField extracts a text field, returning fallback when absent or
// not a string.
func StrField(payload map[string]any, key, fallback string) string {
	if payload == nil {
		return fallback
	}
	if s, ok := payload[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func cleanNumeric(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	return strings.ReplaceAll(s, ",", "")
}
