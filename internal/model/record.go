package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is a raw client row as decoded from the push body.
// Keys starting with an underscore (_status, _changed) are client
// bookkeeping and are never read.
type Record map[string]any

// Get returns the value for key, hiding client bookkeeping keys.
func (r Record) Get(key string) (any, bool) {
	if strings.HasPrefix(key, "_") {
		return nil, false
	}
	v, ok := r[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// ID returns the record id or "" when it is not a string.
func (r Record) ID() string {
	v, _ := r.Get("id")
	s, _ := v.(string)
	return s
}

// String coerces the value for key to a string.
func (r Record) String(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// OptString is String for nullable columns; missing, null and empty values map to nil.
func (r Record) OptString(key string) *string {
	s := r.String(key)
	if s == "" {
		return nil
	}
	return &s
}

// Bool coerces booleans, numbers and "true"/"1" strings.
func (r Record) Bool(key string) bool {
	v, ok := r.Get(key)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	default:
		n, ok := toInt64(t)
		return ok && n != 0
	}
}

// Int64 coerces numeric values; anything else yields 0.
func (r Record) Int64(key string) int64 {
	v, ok := r.Get(key)
	if !ok {
		return 0
	}
	n, _ := toInt64(v)
	return n
}

// EpochMillis returns the value for key as epoch milliseconds.
func (r Record) EpochMillis(key string) (int64, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	return toInt64(v)
}

// OptTime converts an epoch-ms value to a UTC time; missing or zero values map to nil.
func (r Record) OptTime(key string) *time.Time {
	ms, ok := r.EpochMillis(key)
	if !ok || ms == 0 {
		return nil
	}
	t := FromMillis(ms)
	return &t
}

// IsNumber reports whether v is a JSON number as produced by encoding/json.
func IsNumber(v any) bool {
	switch v.(type) {
	case json.Number, float64, int64, int:
		_, ok := toInt64(v)
		return ok
	}
	return false
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		f, err := t.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(f), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int64(t), true
	case int64:
		return t, true
	case int:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
