package listing

import "strings"

// Predicate selects items for display. Predicates are pure.
type Predicate func(Item) bool

// MatchAll keeps every item.
func MatchAll(Item) bool { return true }

// All combines predicates with logical AND. Nil predicates are ignored.
func All(preds ...Predicate) Predicate {
	active := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return MatchAll
	}
	return func(it Item) bool {
		for _, p := range active {
			if !p(it) {
				return false
			}
		}
		return true
	}
}

// Contains matches a case-insensitive substring in any of fields. An empty term matches everything.
func Contains(term string, fields ...string) Predicate {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" || len(fields) == 0 {
		return nil
	}
	return func(it Item) bool {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(it.String(f)), needle) {
				return true
			}
		}
		return false
	}
}

// Category matches items whose field equals value, ignoring case. "" and "all" match everything.
func Category(field, value string) Predicate {
	value = strings.TrimSpace(value)
	if field == "" || value == "" || strings.EqualFold(value, "all") {
		return nil
	}
	return func(it Item) bool {
		return strings.EqualFold(strings.TrimSpace(it.String(field)), value)
	}
}

// Flag keeps truthy items when on; when off it matches everything.
func Flag(field string, on bool) Predicate {
	if field == "" || !on {
		return nil
	}
	return func(it Item) bool { return it.Bool(field) }
}

// Filter applies p to items preserving order. A nil predicate keeps everything.
func Filter(items []Item, p Predicate) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if p == nil || p(it) {
			out = append(out, it)
		}
	}
	return out
}
