package ui

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/showcase-web/internal/aviation"
	"finitefield.org/showcase-web/internal/failure"
	custommw "finitefield.org/showcase-web/internal/httpserver/middleware"
	"finitefield.org/showcase-web/internal/observability"
)

const (
	suggestLimit     = 5
	planErrorMessage = "Unable to calculate the route right now. Please try again later."
)

// DistanceView is the planner page view model.
type DistanceView struct {
	Form      aviation.PlanRequest
	Error     string
	Plan      *aviation.FlightPlan
	Waypoints string
	Stations  []aviation.Station
}

// SuggestView is the autocomplete fragment.
type SuggestView struct {
	Query       string
	Suggestions []aviation.Station
}

type waypoint struct {
	ICAO string  `json:"icao"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Distance renders the planner form, and the plan when the form was submitted.
func (h *Handlers) Distance(w http.ResponseWriter, r *http.Request) {
	view := DistanceView{Stations: h.deps.Stations}
	h.page(w, r, http.StatusOK, "distance", h.meta(r, "/distance", "Distance Calculator"), view)
}

// Plan resolves the route. Any station failure fails the whole plan.
func (h *Handlers) Plan(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	view := DistanceView{
		Stations: h.deps.Stations,
		Form: aviation.PlanRequest{
			Departure: aviation.NormalizeICAO(values.Get("departure")),
			Arrival:   aviation.NormalizeICAO(values.Get("arrival")),
			Alternate: aviation.NormalizeICAO(values.Get("alternate")),
			Speed:     values.Get("speed"),
		},
	}

	status := http.StatusOK
	plan, err := h.deps.Planner.Plan(r.Context(), view.Form)
	if h.deps.Metrics != nil && !failure.IsValidation(err) {
		h.deps.Metrics.ProviderCall("stations", err)
	}
	var lookupErr *aviation.LookupError
	switch {
	case err == nil:
		view.Plan = &plan
		view.Waypoints = waypointsJSON(plan)
	case failure.IsValidation(err):
		view.Error = failure.Message(err, aviation.InvalidICAOMessage)
		status = http.StatusUnprocessableEntity
	case errors.As(err, &lookupErr) && errors.Is(err, aviation.ErrStationNotFound):
		view.Error = lookupErr.Error()
		status = http.StatusUnprocessableEntity
	default:
		observability.FromContext(r.Context()).Warn("flight plan failed", zap.Error(err))
		view.Error = planErrorMessage
		status = http.StatusBadGateway
	}

	if custommw.IsHTMXRequest(r.Context()) {
		h.fragment(w, r, status, "plan", view)
		return
	}
	h.page(w, r, status, "distance", h.meta(r, "/distance", "Distance Calculator"), view)
}

// Suggest returns up to five stations matching the typed prefix or name.
func (h *Handlers) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	for _, field := range []string{"departure", "arrival", "alternate"} {
		if q == "" {
			q = r.URL.Query().Get(field)
		}
	}
	view := SuggestView{Query: q, Suggestions: aviation.Suggest(h.deps.Stations, q, suggestLimit)}
	h.fragment(w, r, http.StatusOK, "suggestions", view)
}

func waypointsJSON(plan aviation.FlightPlan) string {
	points := make([]waypoint, 0, len(plan.Stations))
	for _, st := range plan.Stations {
		points = append(points, waypoint{ICAO: st.ICAO, Name: st.Name, Lat: st.Lat, Lon: st.Lon})
	}
	data, err := json.Marshal(points)
	if err != nil {
		return "[]"
	}
	return string(data)
}
