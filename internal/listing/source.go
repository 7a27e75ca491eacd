package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"finitefield.org/showcase-web/internal/failure"
)

const maxBodyBytes = 8 << 20

// ErrStaleLoad is returned when a newer load already completed while this one was in flight.
var ErrStaleLoad = errors.New("listing: stale load discarded")

// DataLoadError wraps the network or parse failure of a collection load.
type DataLoadError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

// Unwrap exposes the underlying failure.
func (e *DataLoadError) Unwrap() error { return e.Err }

// Source yields the raw JSON document of a collection.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

// HTTPSource fetches a collection over HTTP GET.
type HTTPSource struct {
	URL    string
	Client *http.Client
	Header http.Header
}

// Name implements Source.
func (s HTTPSource) Name() string { return s.URL }

// Fetch performs a single GET; there is no retry.
func (s HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, &failure.NetworkError{Source: s.URL, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	for k, vals := range s.Header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &failure.NetworkError{Source: s.URL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &failure.NetworkError{Source: s.URL, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &failure.NetworkError{Source: s.URL, Err: err}
	}
	return body, nil
}

// FileSource reads a collection from a filesystem, typically the data directory.
type FileSource struct {
	FS   fs.FS
	Path string
}

// Name implements Source.
func (s FileSource) Name() string { return s.Path }

// Fetch reads the file. A missing file is reported like an HTTP 404.
func (s FileSource) Fetch(_ context.Context) ([]byte, error) {
	body, err := fs.ReadFile(s.FS, s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &failure.NetworkError{Source: s.Path, Status: http.StatusNotFound, Err: err}
		}
		return nil, &failure.NetworkError{Source: s.Path, Err: err}
	}
	return body, nil
}

// DecodeOptions controls how a JSON document maps onto a Collection.
type DecodeOptions struct {
	// Wrapper names the object key holding the array, e.g. "members".
	Wrapper string
	// IDField names the identifying field; items without it use their 1-based position.
	IDField string
}

// Load fetches and decodes src in a single attempt.
func Load(ctx context.Context, src Source, opts DecodeOptions) (Collection, error) {
	body, err := src.Fetch(ctx)
	if err != nil {
		return Collection{}, &DataLoadError{Source: src.Name(), Err: err}
	}
	col, err := Decode(src.Name(), body, opts)
	if err != nil {
		return Collection{}, &DataLoadError{Source: src.Name(), Err: err}
	}
	return col, nil
}

// Decode accepts a top-level array or a wrapper object. Without a configured wrapper key the
// first array-valued key in sorted key order is used. Non-object entries are skipped.
func Decode(source string, body []byte, opts DecodeOptions) (Collection, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Collection{}, &failure.ParseError{Source: source, Err: errors.New("empty body")}
	}

	var raw []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return Collection{}, &failure.ParseError{Source: source, Err: err}
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return Collection{}, &failure.ParseError{Source: source, Err: err}
		}
		arr, err := unwrap(obj, opts.Wrapper)
		if err != nil {
			return Collection{}, &failure.ParseError{Source: source, Err: err}
		}
		raw = arr
	default:
		return Collection{}, &failure.ParseError{Source: source, Err: errors.New("expected JSON array or object")}
	}

	items := make([]Item, 0, len(raw))
	for _, entry := range raw {
		fields, ok := decodeObject(entry)
		if !ok {
			continue
		}
		it := Item{Fields: fields}
		if opts.IDField != "" {
			it.ID = strings.TrimSpace(it.String(opts.IDField))
		}
		if it.ID == "" {
			it.ID = strconv.Itoa(len(items) + 1)
		}
		items = append(items, it)
	}
	return Collection{Source: source, Items: items, LoadedAt: time.Now().UTC()}, nil
}

func unwrap(obj map[string]json.RawMessage, key string) ([]json.RawMessage, error) {
	if key != "" {
		rawArr, ok := obj[key]
		if !ok {
			return nil, fmt.Errorf("wrapper key %q not found", key)
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(rawArr, &arr); err != nil {
			return nil, fmt.Errorf("wrapper key %q: %w", key, err)
		}
		return arr, nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var arr []json.RawMessage
		if err := json.Unmarshal(obj[k], &arr); err == nil {
			return arr, nil
		}
	}
	return nil, errors.New("no array found in wrapper object")
}

func decodeObject(raw json.RawMessage) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}
