package aviation

import (
	"fmt"
	"math"
	"time"
)

// EarthRadiusNM is the mean Earth radius in nautical miles.
const EarthRadiusNM = 3440.07

// DefaultCruiseSpeed is used when no positive speed is given, in knots.
const DefaultCruiseSpeed = 450.0

// Coord is a WGS84 position in decimal degrees.
type Coord struct {
	Lat float64
	Lon float64
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }
func deg(rad float64) float64 { return rad * 180 / math.Pi }

// Distance returns the great-circle distance between a and b in nautical miles.
func Distance(a, b Coord) float64 {
	dLat := rad(b.Lat - a.Lat)
	dLon := rad(b.Lon - a.Lon)
	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Pow(math.Sin(dLon/2), 2)
	return EarthRadiusNM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// InitialTrack returns the initial true course from a to b in [0, 360).
func InitialTrack(a, b Coord) float64 {
	phi1, phi2 := rad(a.Lat), rad(b.Lat)
	dLon := rad(b.Lon - a.Lon)
	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
	return math.Mod(deg(math.Atan2(y, x))+360, 360)
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// SuggestFlightLevel applies the semicircular rule: eastbound tracks fly odd levels,
// westbound tracks even ones.
func SuggestFlightLevel(track float64) string {
	if track >= 0 && track < 180 {
		return "Odd FL (e.g., FL330, FL350, FL370)"
	}
	return "Even FL (e.g., FL340, FL360, FL380)"
}

// FlightTime is the en-route time at speed knots, rounded to the minute.
// Non-positive speeds use DefaultCruiseSpeed.
func FlightTime(distanceNM, speed float64) time.Duration {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		speed = DefaultCruiseSpeed
	}
	minutes := math.Round(distanceNM / speed * 60)
	return time.Duration(minutes) * time.Minute
}

// FormatDuration renders d as "Xh Ymin".
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Minute) / time.Minute)
	return fmt.Sprintf("%dh %dmin", total/60, total%60)
}
