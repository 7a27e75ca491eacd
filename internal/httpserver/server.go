package httpserver

import (
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	custommw "finitefield.org/showcase-web/internal/httpserver/middleware"
	"finitefield.org/showcase-web/internal/httpserver/ui"
	"finitefield.org/showcase-web/internal/observability"
	"finitefield.org/showcase-web/internal/prefs"
)

// Config holds runtime options for the showcase HTTP server.
type Config struct {
	Address        string
	Handlers       *ui.Handlers
	Prefs          *prefs.Manager
	Assets         fs.FS
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	CSRFSecure     bool
	AllowedOrigins []string
	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// New constructs the HTTP server with the middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	handler, err := NewRouter(cfg)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadTimeout:       orDefault(cfg.ReadTimeout, 10*time.Second),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      orDefault(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:       orDefault(cfg.IdleTimeout, 60*time.Second),
	}, nil
}

// NewRouter builds the routing tree. Tests mount it on httptest servers directly.
func NewRouter(cfg Config) (http.Handler, error) {
	if cfg.Handlers == nil {
		return nil, errors.New("httpserver: handlers are required")
	}
	if cfg.Prefs == nil {
		return nil, errors.New("httpserver: prefs manager is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := cfg.Handlers

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLogger(logger))
	router.Use(observability.RequestLogger(cfg.Metrics))
	router.Use(observability.Recoverer)
	router.Use(chimw.Compress(5, "text/html", "text/css", "application/javascript", "application/json"))
	router.Use(chimw.Timeout(orDefault(cfg.RequestTimeout, 30*time.Second)))

	router.Get("/healthz", ui.Healthz)
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics.Handler())
	}
	if cfg.Assets != nil {
		router.Handle("/assets/*", http.StripPrefix("/assets", custommw.AssetsWithCache(cfg.Assets)))
	}
	router.Get("/media/thumb", h.Thumbnail)

	router.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Get("/collections/{name}", h.CollectionJSON)
	})

	router.Group(func(r chi.Router) {
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(prefs.Middleware(cfg.Prefs, logger))
		r.Use(custommw.CSRF(custommw.CSRFConfig{Secure: cfg.CSRFSecure}))

		r.Get("/", h.Home)
		r.Post("/theme", h.ToggleTheme)

		r.Route("/browse/{collection}", func(r chi.Router) {
			r.Get("/", h.Browse)
			r.Get("/items", h.Items)
			r.Get("/items/{id}", h.Detail)
			r.Get("/close", h.Close)
		})

		r.Get("/reports", h.Reports)
		r.Post("/reports", h.SearchReports)
		r.Get("/reports/analysis", h.ReportAnalysis)

		r.Get("/distance", h.Distance)
		r.Get("/distance/plan", h.Plan)
		r.Get("/distance/suggest", h.Suggest)

		r.Get("/booking", h.Booking)
		r.Post("/booking", h.SubmitBooking)
		r.Get("/booking/confirmation", h.Confirmation)

		r.NotFound(h.NotFound)
	})

	return router, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
