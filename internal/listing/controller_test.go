package listing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"finitefield.org/showcase-web/internal/failure"
)

func sampleLayout() Layout {
	return Layout{
		TitleField:   "name",
		ImageField:   "image",
		GridFields:   []FieldSpec{{Name: "category", Label: "Category"}, {Name: "notes", Label: "Notes", Markdown: true}},
		ListFields:   []FieldSpec{{Name: "category", Label: "Category"}},
		DetailFields: []FieldSpec{{Name: "category", Label: "Category"}, {Name: "range", Label: "Range", Suffix: " nm"}},
		EmptyMessage: "No items found.",
		ErrorMessage: "Failed to load data.",
	}
}

func staticCollection(items ...Item) Collection {
	return Collection{Source: "test", Items: items}
}

func item(id, name string, extra map[string]any) Item {
	fields := map[string]any{"id": id, "name": name}
	for k, v := range extra {
		fields[k] = v
	}
	return Item{ID: id, Fields: fields}
}

func newLoadedController(t *testing.T, items ...Item) *Controller {
	t.Helper()
	c := NewController("test", NewRenderer(sampleLayout()), nil)
	require.NoError(t, c.Use(staticCollection(items...), nil))
	return c
}

func TestRenderProducesOneCardPerItemInOrder(t *testing.T) {
	t.Parallel()

	c := newLoadedController(t,
		item("3", "Gamma", nil),
		item("1", "Alpha", nil),
		item("2", "Beta", nil),
	)
	view := c.Render()
	require.Equal(t, 3, view.Elements())
	require.Empty(t, view.Empty)
	require.Empty(t, view.Error)

	var ids []string
	for _, card := range view.Cards {
		ids = append(ids, card.ID)
	}
	require.Equal(t, []string{"3", "1", "2"}, ids)
}

func TestRenderEmptyYieldsSinglePlaceholder(t *testing.T) {
	t.Parallel()

	c := newLoadedController(t, item("1", "Alpha", nil))
	c.SetFilter(Contains("zzz", "name"))

	view := c.Render()
	require.Equal(t, 1, view.Elements())
	require.Empty(t, view.Cards)
	require.Equal(t, "No items found.", view.Empty)
}

func TestViewModeRoundTripIsIdentical(t *testing.T) {
	t.Parallel()

	c := newLoadedController(t,
		item("1", "Alpha", map[string]any{"category": "Jet", "notes": "**fast**"}),
		item("2", "Beta", map[string]any{"category": "Prop"}),
	)
	first := c.Render()

	c.SetViewMode(ModeList)
	list := c.Render()
	require.Equal(t, ModeList, list.Mode)
	require.Len(t, list.Cards[0].Fields, 1)

	c.SetViewMode(ModeGrid)
	again := c.Render()
	if diff := cmp.Diff(first, again); diff != "" {
		t.Fatalf("grid view changed after toggling (-first +again):\n%s", diff)
	}
}

func TestSetFilterIsIdempotent(t *testing.T) {
	t.Parallel()

	c := newLoadedController(t,
		item("1", "Alpha", map[string]any{"category": "Jet"}),
		item("2", "Beta", map[string]any{"category": "Prop"}),
	)
	pred := Category("category", "jet")
	c.SetFilter(pred)
	once := c.Render()
	c.SetFilter(pred)
	twice := c.Render()
	require.Empty(t, cmp.Diff(once, twice))
	require.Len(t, twice.Cards, 1)
}

func TestContainsFilterMatchesCaseInsensitive(t *testing.T) {
	t.Parallel()

	c := newLoadedController(t, item("1", "Alpha", nil), item("2", "Beta", nil))
	c.SetFilter(Contains("al", "name"))

	view := c.Render()
	require.Len(t, view.Cards, 1)
	require.Equal(t, "1", view.Cards[0].ID)
	require.EqualValues(t, "Alpha", view.Cards[0].Title)
}

func TestLoadNotFoundRendersFixedMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	c := NewController("test", NewRenderer(sampleLayout()), nil)
	_, err := c.Load(context.Background(), HTTPSource{URL: srv.URL + "/members.json", Client: srv.Client()}, DecodeOptions{})
	require.Error(t, err)

	var loadErr *DataLoadError
	require.ErrorAs(t, err, &loadErr)
	var netErr *failure.NetworkError
	require.ErrorAs(t, err, &netErr)
	require.True(t, netErr.NotFound())

	state, stateErr := c.State()
	require.Equal(t, StateLoadFailed, state)
	require.ErrorIs(t, stateErr, err)

	view := c.Render()
	require.Equal(t, "Failed to load data.", view.Error)
	require.Empty(t, view.Cards)
	require.Equal(t, 1, view.Elements())
}

func TestOverlayCloseRestoresOpenerWithoutResidue(t *testing.T) {
	t.Parallel()

	c := newLoadedController(t,
		item("a", "Alpha", map[string]any{"category": "Jet", "range": 1200}),
		item("b", "Beta", map[string]any{"category": "Prop"}),
	)

	overlay, err := c.OpenDetail("a", "open-a")
	require.NoError(t, err)
	require.True(t, overlay.Open)
	require.EqualValues(t, "Alpha", overlay.Detail.Title)

	overlay, err = c.OpenDetail("b", "open-b")
	require.NoError(t, err)
	require.Equal(t, "b", overlay.Detail.ItemID)
	for _, f := range overlay.Detail.Fields {
		require.NotContains(t, string(f.Value), "1200")
	}

	opener := c.CloseDetail(CloseCancel)
	require.Equal(t, "open-b", opener)
	require.Equal(t, Overlay{}, c.Overlay())
	require.Empty(t, c.ViewState().Selected)
}

func TestOpenDetailUnknownItem(t *testing.T) {
	t.Parallel()

	c := newLoadedController(t, item("a", "Alpha", nil))
	_, err := c.OpenDetail("missing", "")
	require.ErrorIs(t, err, ErrItemNotFound)
	require.False(t, c.Overlay().Open)
}

type countingRecorder struct {
	mu        sync.Mutex
	outcomes  []string
	discarded int
}

func (r *countingRecorder) LoadFinished(_ string, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *countingRecorder) LoadDiscarded(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discarded++
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	c := NewController("test", NewRenderer(sampleLayout()), rec)

	older := c.begin()
	newer := c.begin()

	_, err := c.apply(newer, staticCollection(item("new", "Newer", nil)), nil)
	require.NoError(t, err)

	_, err = c.apply(older, Collection{}, errors.New("late failure"))
	require.ErrorIs(t, err, ErrStaleLoad)

	state, stateErr := c.State()
	require.Equal(t, StateLoaded, state)
	require.NoError(t, stateErr)
	require.Equal(t, []string{"new"}, IDs(c.Visible()))
	require.Equal(t, 1, rec.discarded)
	require.Equal(t, []string{"ok"}, rec.outcomes)
}

func TestRenderSanitizesValues(t *testing.T) {
	t.Parallel()

	c := newLoadedController(t, item("x", `<script>alert(1)</script>Eve`, map[string]any{
		"notes": "[link](javascript:alert(1)) <img src=x onerror=alert(1)>",
		"image": "javascript:alert(1)",
	}))
	card := c.Render().Cards[0]
	require.NotContains(t, string(card.Title), "<script")
	require.Empty(t, card.Image)
	require.Equal(t, "E", card.Initial)
	for _, f := range card.Fields {
		require.NotContains(t, string(f.Value), "javascript:")
		require.NotContains(t, string(f.Value), "onerror")
	}
}

type gatedSource struct {
	body    string
	started chan struct{}
	release chan struct{}
}

func (s gatedSource) Name() string { return "gated" }

func (s gatedSource) Fetch(ctx context.Context) ([]byte, error) {
	close(s.started)
	select {
	case <-s.release:
		return []byte(s.body), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestOverlappingReloadKeepsNewestResult(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	c := NewController("test", NewRenderer(sampleLayout()), rec)
	slow := gatedSource{
		body:    `[{"id": "old", "name": "Older"}]`,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Load(context.Background(), slow, DecodeOptions{IDField: "id"})
		done <- err
	}()
	<-slow.started

	fast := gatedSource{
		body:    `[{"id": "new", "name": "Newer"}]`,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	close(fast.release)
	_, err := c.Load(context.Background(), fast, DecodeOptions{IDField: "id"})
	require.NoError(t, err)

	close(slow.release)
	require.ErrorIs(t, <-done, ErrStaleLoad)
	require.Equal(t, []string{"new"}, IDs(c.Visible()))
	require.Equal(t, 1, rec.discarded)
}

func TestElementIDKeepsRewrittenIdentifiersDistinct(t *testing.T) {
	t.Parallel()

	require.Equal(t, "open-ppl", ElementID("open", "ppl"))
	require.Equal(t, "open-a-b", ElementID("open", "a-b"))
	require.Equal(t, "open-a-b-co-1c0utty", ElementID("open", "A&B Co"))
	require.Equal(t, "open-a-b-co-1g0ss68", ElementID("open", "A B Co"))
	require.NotEqual(t, ElementID("open", "a-b"), ElementID("open", "a b"))
	require.NotEqual(t, ElementID("card", "AB"), ElementID("card", "ab"))
}
