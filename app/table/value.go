package table

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Cells hold nil (null), string, bool, json.Number, int, float64, *Record
// or []any. The helpers below read them regardless of which of these a
// source produced; CSV round trips turn everything into strings.

func IsNull(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	return false
}

// String renders a cell the way it is written to CSV.
func String(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case *bool:
		if val == nil {
			return ""
		}
		return String(*val)
	case *int:
		if val == nil {
			return ""
		}
		return strconv.Itoa(*val)
	case *string:
		if val == nil {
			return ""
		}
		return *val
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// Canonical renders a cell for equality checks, so that 99, "99", "99.0"
// and json.Number("99") compare equal.
func Canonical(v any) string {
	if f, ok := Float(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.TrimSpace(String(v))
}

func Float(v any) (float64, bool) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case *int:
		if val == nil {
			return 0, false
		}
		return float64(*val), true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func Int(v any) (int, bool) {
	f, ok := Float(v)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func Bool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case *bool:
		if val == nil {
			return false, false
		}
		return *val, true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// Time parses timestamps as the platform and pandas write them. Values
// without a zone are read in local time.
func Time(v any) (time.Time, bool) {
	s := strings.TrimSpace(String(v))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
