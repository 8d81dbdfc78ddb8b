package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one stored document (ticket, account, PO, tracking item, SKU entry).
// Field names follow the stored JSON keys verbatim.
type Record map[string]any

const (
	FieldID        = "_id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// ID returns the record identifier, or "" when absent.
func (r Record) ID() string {
	s, _ := r.String(FieldID)
	return s
}

// String returns the field rendered as text. ok is false for missing or nil values.
func (r Record) String(field string) (string, bool) {
	v, exists := r[field]
	if !exists || v == nil {
		return "", false
	}
	return Stringify(v), true
}

// Text is String without the presence flag.
func (r Record) Text(field string) string {
	s, _ := r.String(field)
	return s
}

// Float parses the field as a number. Strings are trimmed before parsing.
func (r Record) Float(field string) (float64, bool) {
	v, exists := r[field]
	if !exists || v == nil {
		return 0, false
	}
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
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// Time parses the field as a timestamp, interpreting zone-less values in loc.
func (r Record) Time(field string, loc *time.Location) (time.Time, bool) {
	v, exists := r[field]
	if !exists || v == nil {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		return ParseTime(t, loc)
	case float64:
		return time.UnixMilli(int64(t)).In(loc), true
	case int64:
		return time.UnixMilli(t).In(loc), true
	}
	return time.Time{}, false
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Stringify renders a field value the way list screens display it.
func Stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case time.Time:
		return s.Format(time.RFC3339)
	case json.Number:
		return s.String()
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

// ParseTime accepts the timestamp shapes found in stored documents
// (ISO strings with or without zone, date-only, US short dates).
func ParseTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
