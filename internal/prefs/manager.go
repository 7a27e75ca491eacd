package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

const (
	defaultCookieName = "showcase_prefs"
	defaultMaxAge     = 365 * 24 * time.Hour
)

// ErrInvalidConfig indicates the manager was built without keys.
var ErrInvalidConfig = errors.New("prefs: invalid config")

// Config controls cookie encoding.
type Config struct {
	CookieName   string
	HashKey      []byte
	BlockKey     []byte
	CookieSecure bool
	MaxAge       time.Duration
}

// Manager encodes the visitor store into a signed, encrypted cookie.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
}

// NewManager validates cfg and builds the cookie codec.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultMaxAge
	}
	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.MaxAge.Seconds()))
	return &Manager{cfg: cfg, codec: codec}, nil
}

// Load decodes the visitor store. Missing, tampered or expired cookies yield an empty store.
func (m *Manager) Load(r *http.Request) *Store {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return NewStore()
	}
	values := make(map[string]json.RawMessage)
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &values); err != nil {
		return NewStore()
	}
	return &Store{values: values}
}

// Save writes the store back as a cookie.
func (m *Manager) Save(w http.ResponseWriter, s *Store) error {
	if s == nil {
		return errors.New("prefs: nil store")
	}
	encoded, err := m.codec.Encode(m.cfg.CookieName, s.values)
	if err != nil {
		return fmt.Errorf("prefs: encode cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(m.cfg.MaxAge.Seconds()),
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.dirty = false
	return nil
}

type ctxKey struct{}

// FromContext returns the request's store. It never returns nil.
func FromContext(ctx context.Context) *Store {
	if s, ok := ctx.Value(ctxKey{}).(*Store); ok && s != nil {
		return s
	}
	return NewStore()
}

// WithStore attaches s to ctx.
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// Middleware loads the store for each request and persists changes just before
// the response headers are written.
func Middleware(m *Manager, logger *zap.Logger) func(http.Handler) http.Handler {
	if m == nil {
		panic("prefs manager is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := m.Load(r)
			sw := &savingWriter{ResponseWriter: w, save: func(w http.ResponseWriter) {
				if !store.Dirty() {
					return
				}
				if err := m.Save(w, store); err != nil {
					logger.Warn("prefs save failed", zap.Error(err))
				}
			}}
			next.ServeHTTP(sw, r.WithContext(WithStore(r.Context(), store)))
			sw.flush()
		})
	}
}

type savingWriter struct {
	http.ResponseWriter
	save func(http.ResponseWriter)
	once sync.Once
}

func (w *savingWriter) flush() {
	w.once.Do(func() { w.save(w.ResponseWriter) })
}

func (w *savingWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *savingWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *savingWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
