package aviation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finitefield.org/showcase-web/internal/failure"
)

// ErrStationNotFound is returned when a locator has no record of a code.
var ErrStationNotFound = errors.New("aviation: station not found")

// Locator resolves an ICAO code to a station with coordinates.
type Locator interface {
	Locate(ctx context.Context, icao string) (Station, error)
}

// StaticLocator serves lookups from an in-memory table.
type StaticLocator map[string]Station

// NewStaticLocator indexes stations by code.
func NewStaticLocator(stations []Station) StaticLocator {
	m := make(StaticLocator, len(stations))
	for _, st := range stations {
		m[st.ICAO] = st
	}
	return m
}

// Locate implements Locator.
func (l StaticLocator) Locate(_ context.Context, icao string) (Station, error) {
	st, ok := l[icao]
	if !ok {
		return Station{}, fmt.Errorf("%w: %s", ErrStationNotFound, icao)
	}
	return st, nil
}

// AVWXClient looks stations up through an AVWX-compatible REST API.
type AVWXClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewAVWXClient builds a client. The token stays server side.
func NewAVWXClient(baseURL, token string, client *http.Client) *AVWXClient {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &AVWXClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		http:    client,
	}
}

type avwxStation struct {
	ICAO      string   `json:"icao"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Locate implements Locator with a single GET.
func (c *AVWXClient) Locate(ctx context.Context, icao string) (Station, error) {
	endpoint := fmt.Sprintf("%s/api/station/%s?format=json", c.baseURL, url.PathEscape(icao))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Station{}, &failure.NetworkError{Source: "avwx", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Station{}, &failure.NetworkError{Source: "avwx", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		return Station{}, fmt.Errorf("%w: %s", ErrStationNotFound, icao)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Station{}, &failure.NetworkError{Source: "avwx", Status: resp.StatusCode}
	}
	var payload avwxStation
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return Station{}, &failure.ParseError{Source: "avwx", Err: err}
	}
	if payload.Latitude == nil || payload.Longitude == nil {
		return Station{}, &failure.ParseError{Source: "avwx", Err: errors.New("missing coordinates")}
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		name = icao
	}
	return Station{ICAO: icao, Name: name, Coord: Coord{Lat: *payload.Latitude, Lon: *payload.Longitude}}, nil
}

// FallbackLocator tries each locator in turn and returns the first hit.
type FallbackLocator []Locator

// Locate implements Locator.
func (f FallbackLocator) Locate(ctx context.Context, icao string) (Station, error) {
	var firstErr error
	for _, l := range f {
		if l == nil {
			continue
		}
		st, err := l.Locate(ctx, icao)
		if err == nil {
			return st, nil
		}
		if firstErr == nil || errors.Is(firstErr, ErrStationNotFound) {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("%w: %s", ErrStationNotFound, icao)
	}
	return Station{}, firstErr
}
