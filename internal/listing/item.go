package listing

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Item is one record of a collection. Fields keep the decoded JSON values untouched;
// numbers are json.Number so their original spelling survives rendering.
type Item struct {
	ID     string
	Fields map[string]any
}

// Value returns the raw field value or nil.
func (it Item) Value(field string) any {
	if it.Fields == nil {
		return nil
	}
	return it.Fields[field]
}

// String renders a field as display text. Missing fields degrade to "".
func (it Item) String(field string) string {
	switch v := it.Value(field).(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(v))
		for _, el := range v {
			parts = append(parts, Item{Fields: map[string]any{"v": el}}.String("v"))
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Float parses a numeric field.
func (it Item) Float(field string) (float64, bool) {
	switch v := it.Value(field).(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool reports whether a field is truthy ("true", "yes", "1", true, non-zero).
func (it Item) Bool(field string) bool {
	switch v := it.Value(field).(type) {
	case bool:
		return v
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1", "y":
			return true
		}
	}
	return false
}

// Collection is the ordered, immutable list of items loaded from one source.
type Collection struct {
	Source   string
	Items    []Item
	LoadedAt time.Time
}

// Len returns the number of items.
func (c Collection) Len() int { return len(c.Items) }

// Find looks up an item by identifier.
func (c Collection) Find(id string) (Item, bool) {
	for _, it := range c.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// IDs returns the item identifiers in collection order.
func IDs(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
