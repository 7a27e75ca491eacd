package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"finitefield.org/showcase-web/internal/assets"
	"finitefield.org/showcase-web/internal/catalog"
	"finitefield.org/showcase-web/internal/httpserver"
	"finitefield.org/showcase-web/internal/httpserver/ui"
	"finitefield.org/showcase-web/internal/listing"
	"finitefield.org/showcase-web/internal/media"
	"finitefield.org/showcase-web/internal/observability"
	"finitefield.org/showcase-web/internal/prefs"
	"finitefield.org/showcase-web/internal/templates"
	"finitefield.org/showcase-web/internal/weather"
)

// CSRFCookie is the cookie the test server issues CSRF tokens in.
const CSRFCookie = "showcase_csrf"

// FixedNow is the clock every test server runs on.
var FixedNow = time.Date(2024, time.March, 9, 14, 30, 0, 0, time.UTC)

// Fixture is everything NewServer wires together; options edit it before the
// router is built.
type Fixture struct {
	Deps   ui.Dependencies
	Server httpserver.Config
}

// ServerOption customises the fixture for one test.
type ServerOption func(*Fixture)

// WithData replaces the collection data files.
func WithData(files fstest.MapFS) ServerOption {
	return func(f *Fixture) {
		f.Deps.DataFS = files
	}
}

// WithCatalog parses a YAML catalog in place of the embedded one.
func WithCatalog(t testing.TB, yaml string) ServerOption {
	t.Helper()
	cat, err := catalog.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return func(f *Fixture) {
		f.Deps.Catalog = cat
	}
}

// WithWeather installs a weather source for the home page widget.
func WithWeather(src ui.WeatherSource, city string) ServerOption {
	return func(f *Fixture) {
		f.Deps.Weather = src
		f.Deps.WeatherCity = city
	}
}

// WithMetrics records into m so tests can read the counters back.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(f *Fixture) {
		f.Deps.Metrics = m
		f.Deps.Store = listing.NewStore(time.Minute, listing.WithCacheRecorder(m))
		f.Server.Metrics = m
	}
}

// StaticWeather always returns the same snapshot.
type StaticWeather weather.Snapshot

// Fetch implements ui.WeatherSource.
func (s StaticWeather) Fetch(context.Context) weather.Snapshot { return weather.Snapshot(s) }

// SampleData is a small copy of every bundled collection.
func SampleData() fstest.MapFS {
	return fstest.MapFS{
		"members.json": {Data: []byte(`{"members": [
			{"name": "Alpha Aviation", "industry": "Aviation", "address": "1 Runway Rd", "phone": "555-0100", "membership": 3, "description": "Charter **flights**"},
			{"name": "Beta Bakery", "industry": "Food", "address": "2 Main St", "phone": "555-0101", "membership": "silver"},
			{"name": "Gamma Garage", "industry": "Automotive", "address": "3 Side St", "phone": "555-0102", "membership": 1}
		]}`)},
		"discover.json": {Data: []byte(`[
			{"name": "Harbour Walk", "address": "Pier 1", "description": "Sea views"},
			{"name": "Old Market", "address": "Market Sq", "description": "Local crafts"}
		]`)},
		"aircraft.json": {Data: []byte(`[
			{"model": "Cessna 172", "manufacturer": "Cessna", "cruiseSpeed": "122 knots", "range": "640 NM", "category": "General Aviation"},
			{"model": "Boeing 737", "manufacturer": "Boeing", "cruiseSpeed": "453 knots", "range": "2935 NM", "category": "Commercial"}
		]`)},
		"flights.json": {Data: []byte(`[
			{"id": "f1", "origin": "HTDA", "destination": "HTZA", "distance": 38, "cruiseSpeed": 120, "hours": 0.3},
			{"id": "f2", "origin": "HTDA", "destination": "HTKJ", "distance": 257, "cruiseSpeed": 140, "hours": 1.8}
		]`)},
		"services.json": {Data: []byte(`[
			{"id": "ppl", "title": "Private Pilot Licence", "description": "Flight training", "price": "$9,800", "duration": "3 months", "favorite": true},
			{"id": "charter", "title": "Island Charter", "description": "Private charter", "price": "$650", "duration": "Half day", "favorite": false}
		]`)},
		"courses.json": {Data: []byte(`[
			{"code": "CSE 110", "name": "Intro", "category": "CSE", "credits": 2, "completed": true},
			{"code": "WDD 130", "name": "Web", "category": "WDD", "credits": 3, "completed": false}
		]`)},
	}
}

// NewServer constructs an httptest server running the full HTTP stack with
// sample data and fixed cookie keys.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	tmpl, err := templates.New(templates.Options{})
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	static, err := assets.FS("")
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	manager, err := prefs.NewManager(prefs.Config{
		HashKey:  []byte("0123456789abcdef0123456789abcdef"),
		BlockKey: []byte("abcdef0123456789"),
	})
	if err != nil {
		t.Fatalf("prefs: %v", err)
	}

	f := &Fixture{
		Deps: ui.Dependencies{
			Catalog:   cat,
			Store:     listing.NewStore(time.Minute),
			DataFS:    SampleData(),
			Templates: tmpl,
			Thumbs:    media.NewThumbnailer(static, "/assets/"),
			Now:       func() time.Time { return FixedNow },
		},
		Server: httpserver.Config{
			Address:        ":0",
			Prefs:          manager,
			Assets:         static,
			AllowedOrigins: []string{"*"},
		},
	}
	for _, opt := range opts {
		opt(f)
	}

	f.Server.Handlers = ui.New(f.Deps)
	handler, err := httpserver.NewRouter(f.Server)
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

// Client is a cookie-keeping client that does not follow redirects.
type Client struct {
	t    testing.TB
	base string
	http *http.Client
}

// NewClient returns a client bound to ts.
func NewClient(t testing.TB, ts *httptest.Server) *Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &Client{
		t:    t,
		base: ts.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Get issues a plain navigation request.
func (c *Client) Get(path string) Response {
	return c.Do(http.MethodGet, path, nil, false)
}

// HTMX issues a GET the way htmx does.
func (c *Client) HTMX(path string) Response {
	return c.Do(http.MethodGet, path, nil, true)
}

// PostForm submits a form with the current CSRF token.
func (c *Client) PostForm(path string, form url.Values, htmx bool) Response {
	return c.Do(http.MethodPost, path, form, htmx)
}

// Do sends one request. A form implies a POST body carrying the CSRF token.
func (c *Client) Do(method, path string, form url.Values, htmx bool) Response {
	c.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-CSRF-Token", c.CSRFToken())
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	return Response{Status: resp.StatusCode, Header: resp.Header, Body: data}
}

// CSRFToken returns the token cookie, fetching the home page first when none
// has been issued yet.
func (c *Client) CSRFToken() string {
	c.t.Helper()
	u, err := url.Parse(c.base)
	if err != nil {
		c.t.Fatalf("parse base: %v", err)
	}
	for attempt := 0; attempt < 2; attempt++ {
		for _, ck := range c.http.Jar.Cookies(u) {
			if ck.Name == CSRFCookie {
				return ck.Value
			}
		}
		c.Get("/")
	}
	c.t.Fatalf("no csrf cookie issued")
	return ""
}
