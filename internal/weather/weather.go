package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"finitefield.org/showcase-web/internal/failure"
)

// Inline messages shown when a widget cannot load.
const (
	CurrentUnavailable  = "Unable to load current weather data."
	ForecastUnavailable = "Unable to load forecast."
)

const forecastDays = 3

// Current is the present conditions widget.
type Current struct {
	TempC       int
	Description string
	IconURL     string
}

// Day is one midday forecast entry.
type Day struct {
	Weekday     string
	TempC       int
	Description string
	IconURL     string
}

// Snapshot is what the weather widget renders. Errors are inline messages so the rest
// of the page renders regardless.
type Snapshot struct {
	Current       *Current
	CurrentError  string
	Forecast      []Day
	ForecastError string
}

// Config controls the provider endpoint and location.
type Config struct {
	BaseURL  string
	IconBase string
	APIKey   string
	City     string
	Units    string
	CacheTTL time.Duration
}

// Client talks to an OpenWeatherMap compatible API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	cached   Snapshot
	cachedAt time.Time
}

// NewClient builds a weather client.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.IconBase = strings.TrimRight(strings.TrimSpace(cfg.IconBase), "/")
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger, now: time.Now}
}

// Fetch returns current conditions and, only when those succeed, the forecast.
// Fully successful snapshots are cached for CacheTTL.
func (c *Client) Fetch(ctx context.Context) Snapshot {
	if snap, ok := c.cachedSnapshot(); ok {
		return snap
	}

	var snap Snapshot
	current, err := c.current(ctx)
	if err != nil {
		c.logger.Warn("current weather fetch failed", zap.Error(err))
		snap.CurrentError = CurrentUnavailable
		return snap
	}
	snap.Current = &current

	days, err := c.forecast(ctx)
	if err != nil {
		c.logger.Warn("forecast fetch failed", zap.Error(err))
		snap.ForecastError = ForecastUnavailable
		return snap
	}
	snap.Forecast = days

	c.mu.Lock()
	c.cached, c.cachedAt = snap, c.now()
	c.mu.Unlock()
	return snap
}

func (c *Client) cachedSnapshot() (Snapshot, bool) {
	if c.cfg.CacheTTL <= 0 {
		return Snapshot{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cached.Current == nil || c.now().Sub(c.cachedAt) >= c.cfg.CacheTTL {
		return Snapshot{}, false
	}
	snap := c.cached
	snap.Forecast = append([]Day(nil), c.cached.Forecast...)
	return snap, true
}

type owmCondition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmMain struct {
	Temp float64 `json:"temp"`
}

type owmCurrent struct {
	Main    owmMain        `json:"main"`
	Weather []owmCondition `json:"weather"`
}

type owmForecast struct {
	List []struct {
		DtTxt   string         `json:"dt_txt"`
		Main    owmMain        `json:"main"`
		Weather []owmCondition `json:"weather"`
	} `json:"list"`
}

func (c *Client) current(ctx context.Context) (Current, error) {
	var payload owmCurrent
	if err := c.get(ctx, "weather", &payload); err != nil {
		return Current{}, err
	}
	if len(payload.Weather) == 0 {
		return Current{}, &failure.ParseError{Source: "weather", Err: fmt.Errorf("no conditions")}
	}
	return Current{
		TempC:       int(math.Round(payload.Main.Temp)),
		Description: payload.Weather[0].Description,
		IconURL:     c.iconURL(payload.Weather[0].Icon),
	}, nil
}

func (c *Client) forecast(ctx context.Context) ([]Day, error) {
	var payload owmForecast
	if err := c.get(ctx, "forecast", &payload); err != nil {
		return nil, err
	}
	days := make([]Day, 0, forecastDays)
	for _, entry := range payload.List {
		if !strings.Contains(entry.DtTxt, "12:00:00") || len(entry.Weather) == 0 {
			continue
		}
		ts, err := time.Parse(time.DateTime, entry.DtTxt)
		if err != nil {
			continue
		}
		days = append(days, Day{
			Weekday:     ts.Format("Mon"),
			TempC:       int(math.Round(entry.Main.Temp)),
			Description: entry.Weather[0].Description,
			IconURL:     c.iconURL(entry.Weather[0].Icon),
		})
		if len(days) == forecastDays {
			break
		}
	}
	return days, nil
}

func (c *Client) iconURL(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || c.cfg.IconBase == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s.png", c.cfg.IconBase, url.PathEscape(code))
}

func (c *Client) get(ctx context.Context, resource string, dst any) error {
	q := url.Values{}
	q.Set("q", c.cfg.City)
	q.Set("units", c.cfg.Units)
	q.Set("appid", c.cfg.APIKey)
	endpoint := c.cfg.BaseURL + "/" + resource + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &failure.NetworkError{Source: resource, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return &failure.NetworkError{Source: resource, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &failure.NetworkError{Source: resource, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(dst); err != nil {
		return &failure.ParseError{Source: resource, Err: err}
	}
	return nil
}
