package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/showcase-web/internal/assets"
	"finitefield.org/showcase-web/internal/aviation"
	"finitefield.org/showcase-web/internal/catalog"
	"finitefield.org/showcase-web/internal/config"
	"finitefield.org/showcase-web/internal/httpserver"
	"finitefield.org/showcase-web/internal/httpserver/ui"
	"finitefield.org/showcase-web/internal/listing"
	"finitefield.org/showcase-web/internal/media"
	"finitefield.org/showcase-web/internal/observability"
	"finitefield.org/showcase-web/internal/prefs"
	"finitefield.org/showcase-web/internal/templates"
	"finitefield.org/showcase-web/internal/weather"
)

const (
	devTemplatesDir = "internal/templates/html"
	devAssetsDir    = "internal/assets/static"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		baseLogger, err := observability.NewLogger(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("initialising logger: %w", err)
		}
		defer func() {
			_ = baseLogger.Sync()
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, baseLogger.Named("showcase"))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	cat, err := catalog.LoadFile(cfg.Data.Catalog)
	if err != nil {
		return err
	}
	tmpl, err := templates.New(templates.Options{Dev: cfg.Server.Dev, Dir: devDir(cfg.Server.Dev, devTemplatesDir)})
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	static, err := assets.FS(devDir(cfg.Server.Dev, devAssetsDir))
	if err != nil {
		return fmt.Errorf("embed static: %w", err)
	}
	manager, err := newPrefsManager(cfg, logger)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	store := listing.NewStore(cfg.Data.CacheTTL,
		listing.WithStoreLogger(logger.Named("store")),
		listing.WithCacheRecorder(metrics),
	)
	defer store.Close()
	if cfg.Data.Watch {
		if err := store.Watch(ctx, cfg.Data.Dir); err != nil {
			logger.Warn("data watch disabled", zap.String("dir", cfg.Data.Dir), zap.Error(err))
		}
	}

	dataFS := os.DirFS(cfg.Data.Dir)
	deps := ui.Dependencies{
		Catalog:      cat,
		Store:        store,
		DataFS:       dataFS,
		Client:       &http.Client{Timeout: 10 * time.Second},
		Templates:    tmpl,
		Planner:      aviation.NewPlanner(newLocator(cfg)),
		Stations:     aviation.DefaultStations,
		Thumbs:       media.NewThumbnailer(static, "/assets/"),
		Metrics:      metrics,
		DataModified: func() time.Time { return latestModTime(dataFS) },
	}
	if cfg.WeatherEnabled() {
		deps.Weather = weather.NewClient(weather.Config{
			BaseURL:  cfg.Weather.BaseURL,
			IconBase: cfg.Weather.IconBase,
			APIKey:   cfg.Weather.APIKey,
			City:     cfg.Weather.City,
			Units:    cfg.Weather.Units,
			CacheTTL: cfg.Weather.CacheTTL,
		}, &http.Client{Timeout: cfg.Weather.Timeout}, logger.Named("weather"))
		deps.WeatherCity = cfg.Weather.City
	}

	server, err := httpserver.New(httpserver.Config{
		Address:        ":" + cfg.Server.Port,
		Handlers:       ui.New(deps),
		Prefs:          manager,
		Assets:         static,
		Logger:         logger,
		Metrics:        metrics,
		CSRFSecure:     cfg.Prefs.Secure,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
	})
	if err != nil {
		return err
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	errCh := make(chan error, 1)
	go func() {
		serverLogger.Info("showcase listening",
			zap.Bool("dev", cfg.Server.Dev),
			zap.Strings("collections", cat.Names()),
			zap.Bool("weather", cfg.WeatherEnabled()),
			zap.Bool("avwx", cfg.AVWXEnabled()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received; draining requests")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

func newPrefsManager(cfg config.Config, logger *zap.Logger) (*prefs.Manager, error) {
	hashKey := []byte(cfg.Prefs.HashKey)
	if len(hashKey) == 0 {
		// Validation only lets an empty key through in dev mode.
		hashKey = securecookie.GenerateRandomKey(32)
		logger.Warn("prefs hash key not set; using a random key, visitor cookies will not survive restarts")
	}
	return prefs.NewManager(prefs.Config{
		CookieName:   cfg.Prefs.CookieName,
		HashKey:      hashKey,
		BlockKey:     []byte(cfg.Prefs.BlockKey),
		CookieSecure: cfg.Prefs.Secure,
		MaxAge:       cfg.Prefs.MaxAge,
	})
}

func newLocator(cfg config.Config) aviation.Locator {
	static := aviation.NewStaticLocator(aviation.DefaultStations)
	if !cfg.AVWXEnabled() {
		return static
	}
	avwx := aviation.NewAVWXClient(cfg.AVWX.BaseURL, cfg.AVWX.Token, &http.Client{Timeout: cfg.AVWX.Timeout})
	return aviation.FallbackLocator{static, avwx}
}

func devDir(dev bool, dir string) string {
	if !dev {
		return ""
	}
	if _, err := os.Stat(dir); err != nil {
		return ""
	}
	return dir
}

// latestModTime is the newest modification time of any data file.
func latestModTime(fsys fs.FS) time.Time {
	var latest time.Time
	_ = fs.WalkDir(fsys, ".", func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil && info.ModTime().After(latest) {
			latest = info.ModTime()
		}
		return nil
	})
	return latest
}
