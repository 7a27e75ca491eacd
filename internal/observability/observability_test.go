package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("chatty")
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger("DEBUG")
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestFromContextDefaultsToNoop(t *testing.T) {
	t.Parallel()

	require.NotNil(t, FromContext(context.Background()))
	logger := zap.NewExample()
	require.Same(t, logger, FromContext(WithLogger(context.Background(), logger)))
}

func TestRequestLoggerRecordsRouteAndStatus(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	metrics := NewMetrics()

	r := chi.NewRouter()
	r.Use(InjectLogger(zap.New(core)), RequestLogger(metrics))
	r.Get("/browse/{collection}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/browse/members", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	require.Equal(t, "/browse/{collection}", fields["route"])
	require.EqualValues(t, http.StatusTeapot, fields["status"])

	require.Equal(t, 1, promtest.CollectAndCount(metrics.requests))
}

func TestRecovererAnswers500(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	h := InjectLogger(zap.New(core))(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestMetricsCounters(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.LoadFinished("members", "ok")
	m.LoadFinished("members", "ok")
	m.LoadFinished("members", "error")
	m.LoadDiscarded("members")
	m.CacheLookup("members", true)
	m.CacheLookup("members", false)
	m.ProviderCall("weather", errors.New("down"))

	require.Equal(t, 2.0, promtest.ToFloat64(m.loads.WithLabelValues("members", "ok")))
	require.Equal(t, 1.0, promtest.ToFloat64(m.loads.WithLabelValues("members", "error")))
	require.Equal(t, 1.0, promtest.ToFloat64(m.discarded.WithLabelValues("members")))
	require.Equal(t, 1.0, promtest.ToFloat64(m.cacheLookups.WithLabelValues("members", "hit")))
	require.Equal(t, 1.0, promtest.ToFloat64(m.providerCalls.WithLabelValues("weather", "error")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "showcase_collection_loads_total")
}
