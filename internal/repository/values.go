package repository

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// toInt64 converts the numeric representations found in decoded rows.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), n == float64(int64(n))
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int64(f), f == float64(int64(f))
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

// Int64 converts a numeric column value, as decoded from any backend, to int64.
func Int64(v any) (int64, bool) {
	return toInt64(v)
}

// scalar converts json.Number to a native number for driver binding.
func scalar(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// sameValue compares two filter values across numeric representations.
func sameValue(a, b any) bool {
	return fmt.Sprint(scalar(a)) == fmt.Sprint(scalar(b))
}

// withoutID returns a shallow copy of row without the id key.
func withoutID(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		if k != "id" {
			out[k] = v
		}
	}
	return out
}

// cloneValue deep-copies maps and slices of decoded JSON.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

func cloneRow(row Row) Row {
	return cloneValue(map[string]any(row)).(map[string]any)
}
