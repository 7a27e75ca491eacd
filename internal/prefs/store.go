package prefs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Keys under which visitor preferences are persisted.
const (
	KeyLastVisit       = "lastVisit"
	KeyTheme           = "theme"
	KeyLastBooking     = "lastBooking"
	KeyLastSearch      = "lastWeatherSearch"
	KeyRecentSearches  = "recentWeatherSearches"
	KeyLastFlights     = "lastFlights"
	RecentSearchesSize = 5
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Store is the per-visitor key-value map. Values are JSON documents; a value that
// fails to decode reads as absent.
type Store struct {
	values map[string]json.RawMessage
	dirty  bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]json.RawMessage)}
}

// Get decodes key into dst and reports whether a usable value was present.
func (s *Store) Get(key string, dst any) bool {
	if s == nil {
		return false
	}
	raw, ok := s.values[key]
	if !ok || len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// Set stores v under key.
func (s *Store) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("prefs: encode %s: %w", key, err)
	}
	if s.values == nil {
		s.values = make(map[string]json.RawMessage)
	}
	s.values[key] = raw
	s.dirty = true
	return nil
}

// Delete removes key.
func (s *Store) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// Dirty reports whether the store changed since it was loaded.
func (s *Store) Dirty() bool { return s != nil && s.dirty }

// LastVisit returns the previous visit time, or zero on the first visit.
func (s *Store) LastVisit() time.Time {
	var ms int64
	if !s.Get(KeyLastVisit, &ms) || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// SetLastVisit records t in epoch milliseconds.
func (s *Store) SetLastVisit(t time.Time) {
	_ = s.Set(KeyLastVisit, t.UnixMilli())
}

// Theme returns the stored theme or "" when none was chosen.
func (s *Store) Theme() string {
	var theme string
	if !s.Get(KeyTheme, &theme) {
		return ""
	}
	switch theme {
	case ThemeLight, ThemeDark:
		return theme
	default:
		return ""
	}
}

// SetTheme stores a theme; unknown values are ignored.
func (s *Store) SetTheme(theme string) {
	if theme == ThemeLight || theme == ThemeDark {
		_ = s.Set(KeyTheme, theme)
	}
}

// ResolveTheme picks the stored theme, then the client colour-scheme hint, then light.
func ResolveTheme(stored, hint string) string {
	if stored == ThemeLight || stored == ThemeDark {
		return stored
	}
	if strings.EqualFold(strings.TrimSpace(hint), ThemeDark) {
		return ThemeDark
	}
	return ThemeLight
}

// Booking is the last submitted booking form as ordered key/value pairs.
type Booking struct {
	Reference string      `json:"ref"`
	Fields    []BookingKV `json:"fields"`
}

// BookingKV is one submitted form field.
type BookingKV struct {
	Key   string `json:"k"`
	Value string `json:"v"`
}

// LastBooking returns the stored booking, if any.
func (s *Store) LastBooking() (Booking, bool) {
	var b Booking
	if !s.Get(KeyLastBooking, &b) || len(b.Fields) == 0 {
		return Booking{}, false
	}
	return b, true
}

// SetLastBooking stores b.
func (s *Store) SetLastBooking(b Booking) {
	_ = s.Set(KeyLastBooking, b)
}

// WeatherSearch is a remembered report query.
type WeatherSearch struct {
	ICAO string `json:"icao"`
	Type string `json:"type"`
}

// LastSearch returns the last report search.
func (s *Store) LastSearch() (WeatherSearch, bool) {
	var ws WeatherSearch
	if !s.Get(KeyLastSearch, &ws) || ws.ICAO == "" {
		return WeatherSearch{}, false
	}
	return ws, true
}

// RecentSearches returns up to RecentSearchesSize codes, most recent first.
func (s *Store) RecentSearches() []string {
	var list []string
	if !s.Get(KeyRecentSearches, &list) || list == nil {
		return []string{}
	}
	if len(list) > RecentSearchesSize {
		list = list[:RecentSearchesSize]
	}
	return list
}

// RecordSearch stores ws as the last search and pushes its code onto the recent list.
func (s *Store) RecordSearch(ws WeatherSearch) []string {
	_ = s.Set(KeyLastSearch, ws)
	recent := PushRecent(s.RecentSearches(), ws.ICAO, RecentSearchesSize)
	_ = s.Set(KeyRecentSearches, recent)
	return recent
}

// LastFlights returns the ids of the most recently rendered flights.
func (s *Store) LastFlights() []string {
	var ids []string
	if !s.Get(KeyLastFlights, &ids) || ids == nil {
		return []string{}
	}
	return ids
}

// SetLastFlights stores the rendered flight ids.
func (s *Store) SetLastFlights(ids []string) {
	_ = s.Set(KeyLastFlights, ids)
}

// PushRecent returns list with v moved or inserted at the front, without duplicates,
// truncated to limit entries. The input slice is not modified.
func PushRecent(list []string, v string, limit int) []string {
	if limit <= 0 {
		return []string{}
	}
	out := make([]string, 0, limit)
	if v != "" {
		out = append(out, v)
	}
	for _, existing := range list {
		if len(out) == limit {
			break
		}
		if existing == v || existing == "" {
			continue
		}
		out = append(out, existing)
	}
	return out
}
