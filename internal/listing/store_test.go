package listing

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingSource struct {
	name  string
	body  []byte
	calls atomic.Int32
}

func (s *countingSource) Name() string { return s.name }

func (s *countingSource) Fetch(context.Context) ([]byte, error) {
	s.calls.Add(1)
	return s.body, nil
}

func TestStoreCachesUntilTTL(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	store := NewStore(time.Minute, WithClock(clock))
	src := &countingSource{name: "members.json", body: []byte(`[{"name":"Alpha"}]`)}

	for i := 0; i < 3; i++ {
		col, err := store.Get(context.Background(), "members", src, DecodeOptions{})
		require.NoError(t, err)
		require.Equal(t, 1, col.Len())
	}
	require.EqualValues(t, 1, src.calls.Load())

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	_, err := store.Get(context.Background(), "members", src, DecodeOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 2, src.calls.Load())

	require.Equal(t, 1, store.InvalidateSource("members.json"))
	_, err = store.Get(context.Background(), "members", src, DecodeOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 3, src.calls.Load())
}

func TestStoreDoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	src := &countingSource{name: "broken.json", body: []byte(`{oops`)}

	_, err := store.Get(context.Background(), "broken", src, DecodeOptions{})
	require.Error(t, err)
	_, err = store.Get(context.Background(), "broken", src, DecodeOptions{})
	require.Error(t, err)
	require.EqualValues(t, 2, src.calls.Load())
}

func TestStoreWatchInvalidatesChangedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "courses.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"code":"CSE 110"}]`), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := NewStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Watch(ctx, dir))

	src := FileSource{FS: os.DirFS(dir), Path: "courses.json"}
	col, err := store.Get(ctx, "courses", src, DecodeOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, col.Len())

	require.NoError(t, os.WriteFile(path, []byte(`[{"code":"CSE 110"},{"code":"WDD 130"}]`), 0o644))

	require.Eventually(t, func() bool {
		col, err := store.Get(ctx, "courses", src, DecodeOptions{})
		return err == nil && col.Len() == 2
	}, 5*time.Second, 20*time.Millisecond)
}
