package ui

import (
	"bytes"
	"context"
	"io/fs"
	"math/rand/v2"
	"net/http"
	"time"

	"go.uber.org/zap"

	"finitefield.org/showcase-web/internal/aviation"
	"finitefield.org/showcase-web/internal/catalog"
	custommw "finitefield.org/showcase-web/internal/httpserver/middleware"
	"finitefield.org/showcase-web/internal/listing"
	"finitefield.org/showcase-web/internal/media"
	"finitefield.org/showcase-web/internal/observability"
	"finitefield.org/showcase-web/internal/prefs"
	"finitefield.org/showcase-web/internal/templates"
	"finitefield.org/showcase-web/internal/weather"
)

// WeatherSource provides the home page weather widget.
type WeatherSource interface {
	Fetch(ctx context.Context) weather.Snapshot
}

// Dependencies wires the handlers to the rest of the application.
type Dependencies struct {
	Catalog      *catalog.Catalog
	Store        *listing.Store
	DataFS       fs.FS
	Client       *http.Client
	Templates    *templates.Renderer
	Weather      WeatherSource
	WeatherCity  string
	Planner      *aviation.Planner
	Stations     []aviation.Station
	Thumbs       *media.Thumbnailer
	Metrics      *observability.Metrics
	Now          func() time.Time
	NewRand      func() *rand.Rand
	DataModified func() time.Time
}

// Handlers serves every page, fragment and API route.
type Handlers struct {
	deps      Dependencies
	renderers map[string]*listing.Renderer
}

// New builds the handlers. One renderer per collection is shared across requests.
func New(deps Dependencies) *Handlers {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Client == nil {
		deps.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if deps.Store == nil {
		deps.Store = listing.NewStore(0)
	}
	if len(deps.Stations) == 0 {
		deps.Stations = aviation.DefaultStations
	}
	if deps.Planner == nil {
		deps.Planner = aviation.NewPlanner(aviation.NewStaticLocator(deps.Stations))
	}
	h := &Handlers{deps: deps, renderers: make(map[string]*listing.Renderer)}
	if deps.Catalog != nil {
		for _, def := range deps.Catalog.Collections {
			h.renderers[def.Name] = def.Renderer()
		}
	}
	return h
}

// Meta is the layout data shared by every page.
type Meta struct {
	Title        string
	Active       string
	Theme        string
	CSRF         string
	Now          time.Time
	LastModified time.Time
	Nav          []NavItem
}

// NavItem is one primary navigation link.
type NavItem struct {
	Href   string
	Label  string
	Active bool
}

// Page is the root template value: layout data plus the page's own view model.
type Page struct {
	Meta    Meta
	Content any
}

// ErrorView is shown for 404 and other terminal errors.
type ErrorView struct {
	Status  int
	Message string
}

var primaryNav = []NavItem{
	{Href: "/", Label: "Home"},
	{Href: "/browse/members", Label: "Directory"},
	{Href: "/browse/discover", Label: "Discover"},
	{Href: "/browse/aircraft", Label: "Aircraft"},
	{Href: "/browse/flights", Label: "Flights"},
	{Href: "/reports", Label: "Reports"},
	{Href: "/distance", Label: "Distance"},
	{Href: "/browse/services", Label: "Services"},
	{Href: "/browse/courses", Label: "Courses"},
	{Href: "/booking", Label: "Booking"},
}

func (h *Handlers) meta(r *http.Request, active, title string) Meta {
	store := prefs.FromContext(r.Context())
	nav := make([]NavItem, len(primaryNav))
	for i, item := range primaryNav {
		item.Active = item.Href == active
		nav[i] = item
	}
	m := Meta{
		Title:  title,
		Active: active,
		Theme:  prefs.ResolveTheme(store.Theme(), r.Header.Get("Sec-CH-Prefers-Color-Scheme")),
		CSRF:   custommw.CSRFTokenFromContext(r.Context()),
		Now:    h.deps.Now(),
		Nav:    nav,
	}
	if h.deps.DataModified != nil {
		m.LastModified = h.deps.DataModified()
	}
	if m.LastModified.IsZero() {
		m.LastModified = m.Now
	}
	return m
}

func (h *Handlers) page(w http.ResponseWriter, r *http.Request, status int, name string, meta Meta, content any) {
	var buf bytes.Buffer
	if err := h.deps.Templates.Page(&buf, name, Page{Meta: meta, Content: content}); err != nil {
		observability.FromContext(r.Context()).Error("render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "template exec error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Add("Accept-CH", "Sec-CH-Prefers-Color-Scheme")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handlers) fragment(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.deps.Templates.Fragment(&buf, name, data); err != nil {
		observability.FromContext(r.Context()).Error("render fragment", zap.String("fragment", name), zap.Error(err))
		http.Error(w, "template exec error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// NotFound renders the shared 404 page.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.errorPage(w, r, http.StatusNotFound, "The page you requested could not be found.")
}

func (h *Handlers) errorPage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if custommw.IsHTMXRequest(r.Context()) {
		h.fragment(w, r, status, "inline-error", ErrorView{Status: status, Message: msg})
		return
	}
	h.page(w, r, status, "error", h.meta(r, "", http.StatusText(status)), ErrorView{Status: status, Message: msg})
}

func (h *Handlers) recorder() listing.Recorder {
	if h.deps.Metrics == nil {
		return nil
	}
	return h.deps.Metrics
}

func (h *Handlers) rng() *rand.Rand {
	if h.deps.NewRand == nil {
		return nil
	}
	return h.deps.NewRand()
}

// Healthz answers liveness probes.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
