package aviation

import (
	"regexp"
	"strings"

	"finitefield.org/showcase-web/internal/failure"
)

var icaoRe = regexp.MustCompile(`^[A-Z]{4}$`)

// InvalidICAOMessage is shown when a report search code is malformed.
const InvalidICAOMessage = "Please enter a valid 4-letter ICAO airport code (e.g., KJFK, EGLL)"

// Station is an airport known to the service.
type Station struct {
	ICAO string
	Name string
	Coord
}

// NormalizeICAO trims and upper-cases a code.
func NormalizeICAO(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateICAO normalises code and checks it is four letters.
func ValidateICAO(code string) (string, error) {
	code = NormalizeICAO(code)
	if !icaoRe.MatchString(code) {
		return code, failure.Invalid("icao", code, InvalidICAOMessage)
	}
	return code, nil
}

// DefaultStations is the built-in autocomplete and lookup table.
var DefaultStations = []Station{
	{ICAO: "KLAX", Name: "Los Angeles International Airport", Coord: Coord{Lat: 33.9425, Lon: -118.4081}},
	{ICAO: "KJFK", Name: "John F Kennedy International Airport", Coord: Coord{Lat: 40.6398, Lon: -73.7789}},
	{ICAO: "EGLL", Name: "London Heathrow Airport", Coord: Coord{Lat: 51.4706, Lon: -0.4619}},
	{ICAO: "HTDA", Name: "Dar es Salaam Airport", Coord: Coord{Lat: -6.8781, Lon: 39.2026}},
	{ICAO: "FAOR", Name: "O.R. Tambo International Airport", Coord: Coord{Lat: -26.1392, Lon: 28.2460}},
	{ICAO: "KSEA", Name: "Seattle-Tacoma International Airport", Coord: Coord{Lat: 47.4490, Lon: -122.3093}},
	{ICAO: "EDDF", Name: "Frankfurt Airport", Coord: Coord{Lat: 50.0333, Lon: 8.5706}},
	{ICAO: "LFPG", Name: "Charles de Gaulle Airport", Coord: Coord{Lat: 49.0097, Lon: 2.5479}},
	{ICAO: "RJTT", Name: "Tokyo Haneda Airport", Coord: Coord{Lat: 35.5523, Lon: 139.7798}},
	{ICAO: "OMDB", Name: "Dubai International Airport", Coord: Coord{Lat: 25.2528, Lon: 55.3644}},
}

// Suggest matches an ICAO prefix or a name substring, case-insensitively, returning at most limit stations.
func Suggest(stations []Station, query string, limit int) []Station {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return nil
	}
	out := make([]Station, 0, limit)
	for _, st := range stations {
		if strings.HasPrefix(st.ICAO, q) || strings.Contains(strings.ToUpper(st.Name), q) {
			out = append(out, st)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

var reportStationNames = map[string]string{
	"KJFK": "New York John F Kennedy",
	"KLAX": "Los Angeles International",
	"KORD": "Chicago O'Hare",
	"EGLL": "London Heathrow",
	"LFPG": "Paris Charles de Gaulle",
	"EDDF": "Frankfurt Main",
	"RJTT": "Tokyo Haneda",
	"YSSY": "Sydney Kingsford Smith",
}

// StationName returns the display name used in weather reports.
func StationName(icao string) string {
	if name, ok := reportStationNames[icao]; ok {
		return name
	}
	return icao + " Airport"
}
