package aviation

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"finitefield.org/showcase-web/internal/failure"
)

// PlanRequest is the raw planner form input.
type PlanRequest struct {
	Departure string
	Arrival   string
	Alternate string
	Speed     string
}

// Leg is one segment of a flight plan.
type Leg struct {
	From        Station
	To          Station
	DistanceNM  float64
	TrackDeg    float64
	Time        time.Duration
	FlightLevel string
}

// TimeLabel renders the leg time as "Xh Ymin".
func (l Leg) TimeLabel() string { return FormatDuration(l.Time) }

// FlightPlan is the resolved route: departure, arrival and an optional alternate.
type FlightPlan struct {
	Stations []Station
	Legs     []Leg
	Speed    float64
}

// Primary returns the departure to arrival leg.
func (p FlightPlan) Primary() Leg {
	if len(p.Legs) == 0 {
		return Leg{}
	}
	return p.Legs[0]
}

// LookupError reports the station a plan could not resolve.
type LookupError struct {
	ICAO string
	Err  error
}

func (e *LookupError) Error() string { return "Airport not found: " + e.ICAO }

func (e *LookupError) Unwrap() error { return e.Err }

// Planner resolves stations concurrently and computes legs.
type Planner struct {
	locator Locator
}

// NewPlanner returns a planner backed by locator.
func NewPlanner(locator Locator) *Planner {
	return &Planner{locator: locator}
}

// ParseSpeed reads a cruise speed; empty, non-numeric or non-positive input yields DefaultCruiseSpeed.
func ParseSpeed(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v <= 0 {
		return DefaultCruiseSpeed
	}
	return v
}

// Plan validates the request, looks up every station in parallel and joins the results.
// Any lookup failure fails the whole plan.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (FlightPlan, error) {
	codes := []string{NormalizeICAO(req.Departure), NormalizeICAO(req.Arrival)}
	for _, c := range codes {
		if len(c) != 4 {
			return FlightPlan{}, failure.Invalid("icao", c, "Enter valid ICAO codes")
		}
	}
	if alt := NormalizeICAO(req.Alternate); alt != "" {
		if len(alt) != 4 {
			return FlightPlan{}, failure.Invalid("icao", alt, "Enter valid ICAO codes")
		}
		codes = append(codes, alt)
	}

	stations := make([]Station, len(codes))
	g, gctx := errgroup.WithContext(ctx)
	for i, code := range codes {
		g.Go(func() error {
			st, err := p.locator.Locate(gctx, code)
			if err != nil {
				return &LookupError{ICAO: code, Err: err}
			}
			stations[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FlightPlan{}, err
	}

	speed := ParseSpeed(req.Speed)
	plan := FlightPlan{Stations: stations, Speed: speed}
	for i := 0; i+1 < len(stations); i++ {
		from, to := stations[i], stations[i+1]
		dist := Round1(Distance(from.Coord, to.Coord))
		track := Round1(InitialTrack(from.Coord, to.Coord))
		if track >= 360 {
			track = 0
		}
		plan.Legs = append(plan.Legs, Leg{
			From:        from,
			To:          to,
			DistanceNM:  dist,
			TrackDeg:    track,
			Time:        FlightTime(dist, speed),
			FlightLevel: SuggestFlightLevel(track),
		})
	}
	return plan, nil
}
