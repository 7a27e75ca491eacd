package ui

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finitefield.org/showcase-web/internal/catalog"
	"finitefield.org/showcase-web/internal/listing"
	"finitefield.org/showcase-web/internal/observability"
	"finitefield.org/showcase-web/internal/weather"
)

const (
	spotlightCollection = "members"
	spotlightCount      = 3
)

var errWeatherUnavailable = errors.New("weather unavailable")

// HomeView is the landing page: member spotlights and the weather widget.
type HomeView struct {
	Spotlights       []listing.Card
	SpotlightMessage string
	Weather          *weather.Snapshot
	City             string
}

// Home renders the landing page. Spotlights and weather load independently and
// each failure stays inside its own widget.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := HomeView{City: h.deps.WeatherCity}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		view.Spotlights, view.SpotlightMessage = h.spotlights(gctx)
		return nil
	})
	if h.deps.Weather != nil {
		g.Go(func() error {
			snap := h.deps.Weather.Fetch(gctx)
			if h.deps.Metrics != nil {
				var err error
				if snap.CurrentError != "" || snap.ForecastError != "" {
					err = errWeatherUnavailable
				}
				h.deps.Metrics.ProviderCall("weather", err)
			}
			view.Weather = &snap
			return nil
		})
	}
	_ = g.Wait()

	h.page(w, r, http.StatusOK, "home", h.meta(r, "/", "Home"), view)
}

func (h *Handlers) spotlights(ctx context.Context) ([]listing.Card, string) {
	def, ok := h.deps.Catalog.Get(spotlightCollection)
	if !ok {
		return nil, catalog.SpotlightEmpty
	}
	col, err := h.deps.Store.Get(ctx, def.Name, def.NewSource(h.deps.DataFS, h.deps.Client), def.DecodeOptions())
	if err != nil {
		observability.FromContext(ctx).Warn("spotlight load failed", zap.Error(err))
		return nil, catalog.SpotlightError
	}
	picked := catalog.Spotlights(col.Items, spotlightCount, h.rng())
	if len(picked) == 0 {
		return nil, catalog.SpotlightEmpty
	}
	return h.renderers[def.Name].Render(picked, listing.ModeGrid).Cards, ""
}
