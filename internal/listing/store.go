package listing

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type storeEntry struct {
	col     Collection
	source  string
	expires time.Time
}

// Store caches loaded collections for a TTL. Failed loads are never cached, so a
// page reload is the way to retry.
type Store struct {
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
	recorder CacheRecorder

	mu      sync.RWMutex
	entries map[string]storeEntry
	group   singleflight.Group

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
}

// CacheRecorder observes Store lookups.
type CacheRecorder interface {
	CacheLookup(key string, hit bool)
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStoreLogger attaches a logger for watch events.
func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCacheRecorder reports hits and misses to rec.
func WithCacheRecorder(rec CacheRecorder) StoreOption {
	return func(s *Store) {
		s.recorder = rec
	}
}

// NewStore returns an empty store. A non-positive ttl disables caching.
func NewStore(ttl time.Duration, opts ...StoreOption) *Store {
	s := &Store{
		ttl:     ttl,
		now:     time.Now,
		logger:  zap.NewNop(),
		entries: make(map[string]storeEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached collection for key or loads it from src. Concurrent
// misses for the same key share one fetch.
func (s *Store) Get(ctx context.Context, key string, src Source, opts DecodeOptions) (Collection, error) {
	if col, ok := s.lookup(key); ok {
		s.observe(key, true)
		return col, nil
	}
	s.observe(key, false)
	v, err, _ := s.group.Do(key, func() (any, error) {
		if col, ok := s.lookup(key); ok {
			return col, nil
		}
		col, err := Load(ctx, src, opts)
		if err != nil {
			return Collection{}, err
		}
		if s.ttl > 0 {
			s.mu.Lock()
			s.entries[key] = storeEntry{col: col, source: src.Name(), expires: s.now().Add(s.ttl)}
			s.mu.Unlock()
		}
		return col, nil
	})
	if err != nil {
		return Collection{}, err
	}
	return v.(Collection), nil
}

func (s *Store) observe(key string, hit bool) {
	if s.recorder != nil {
		s.recorder.CacheLookup(key, hit)
	}
}

func (s *Store) lookup(key string) (Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expires) {
		return Collection{}, false
	}
	return e.col, true
}

// Invalidate drops key from the cache.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// InvalidateSource drops every entry loaded from the named source.
func (s *Store) InvalidateSource(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.entries {
		if e.source == name {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Watch invalidates entries loaded from files under dir whenever those files change.
// It returns once the watch is registered; events are processed until ctx is done.
func (s *Store) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return err
	}
	s.watchMu.Lock()
	s.watcher = w
	s.watchMu.Unlock()

	go s.watchLoop(ctx, w, dir)
	return nil
}

func (s *Store) watchLoop(ctx context.Context, w *fsnotify.Watcher, dir string) {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			rel, err := filepath.Rel(dir, ev.Name)
			if err != nil {
				continue
			}
			if n := s.InvalidateSource(filepath.ToSlash(rel)); n > 0 {
				s.logger.Info("collection cache invalidated", zap.String("file", rel), zap.Int("entries", n))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("collection watcher error", zap.Error(err))
		}
	}
}

// Close stops the file watcher, if any.
func (s *Store) Close() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}
