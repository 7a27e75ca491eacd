package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestHTMXAnnotatesContext(t *testing.T) {
	t.Parallel()

	var got HTMXInfo
	h := HTMX()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = HTMXInfoFromContext(r.Context())
		if IsHTMXRequest(r.Context()) {
			w.WriteHeader(http.StatusAccepted)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/browse/members/items", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Target", "collection")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.True(t, got.IsHTMX)
	require.Equal(t, "collection", got.Target)
	require.Contains(t, rec.Header().Values("Vary"), "HX-Request")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Boosted", "true")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRFIssuesAndValidatesToken(t *testing.T) {
	t.Parallel()

	var seen string
	h := CSRF(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CSRFTokenFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/booking", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	token := cookies[0].Value
	require.Equal(t, token, seen)

	post := func(header, field string) int {
		form := url.Values{}
		if field != "" {
			form.Set("csrf_token", field)
		}
		req := httptest.NewRequest(http.MethodPost, "/booking", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: "showcase_csrf", Value: token})
		if header != "" {
			req.Header.Set("X-CSRF-Token", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, post(token, ""))
	require.Equal(t, http.StatusOK, post("", token))
	require.Equal(t, http.StatusForbidden, post("", ""))
	require.Equal(t, http.StatusForbidden, post("nope", ""))
}

func TestAssetsWithCacheETag(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"css/app.css": {Data: []byte("body{}")}}
	h := AssetsWithCache(fsys)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/css/app.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	require.Contains(t, rec.Header().Get("Cache-Control"), "max-age")

	req := httptest.NewRequest(http.MethodGet, "/css/app.css", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotModified, rec.Code)
}
