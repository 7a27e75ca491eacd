package listing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"finitefield.org/showcase-web/internal/failure"
)

func TestDecodeWrapperAndArray(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		opts DecodeOptions
		want []string
	}{
		{
			name: "top-level array with id field",
			body: `[{"id":"a","name":"Alpha"},{"id":"b","name":"Beta"}]`,
			opts: DecodeOptions{IDField: "id"},
			want: []string{"a", "b"},
		},
		{
			name: "configured wrapper key",
			body: `{"meta":[1],"members":[{"name":"Acme"},{"name":"Bolt"}]}`,
			opts: DecodeOptions{Wrapper: "members"},
			want: []string{"1", "2"},
		},
		{
			name: "first array key in sorted order",
			body: `{"zeta":[{"name":"late"}],"alpha":[{"name":"early"}],"count":2}`,
			want: []string{"1"},
		},
		{
			name: "non-object entries skipped",
			body: `[{"name":"one"}, 7, "text", null, {"name":"two"}]`,
			want: []string{"1", "2"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			col, err := Decode("test.json", []byte(tc.body), tc.opts)
			require.NoError(t, err)
			require.Equal(t, tc.want, IDs(col.Items))
		})
	}
}

func TestDecodeKeepsNumberSpelling(t *testing.T) {
	t.Parallel()

	col, err := Decode("flights.json", []byte(`[{"speed":450,"credits":3.5,"favorite":true}]`), DecodeOptions{})
	require.NoError(t, err)
	it := col.Items[0]
	require.Equal(t, "450", it.String("speed"))
	require.Equal(t, "3.5", it.String("credits"))
	require.Equal(t, "", it.String("missing"))
	require.True(t, it.Bool("favorite"))
	f, ok := it.Float("credits")
	require.True(t, ok)
	require.InDelta(t, 3.5, f, 1e-9)
}

func TestDecodeRejectsMalformedBodies(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "not json", `"string"`, `{"count":1}`, `[{"a":1}`} {
		_, err := Decode("bad.json", []byte(body), DecodeOptions{})
		var perr *failure.ParseError
		require.ErrorAs(t, err, &perr, "body %q", body)
	}
}

func TestHTTPSourceStatusAndBody(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ok.json", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		require.Equal(t, "Token abc", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"name":"Alpha"}]`))
	})
	mux.HandleFunc("/boom.json", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	header := http.Header{}
	header.Set("Authorization", "Token abc")
	col, err := Load(context.Background(), HTTPSource{URL: srv.URL + "/ok.json", Client: srv.Client(), Header: header}, DecodeOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, col.Len())

	_, err = Load(context.Background(), HTTPSource{URL: srv.URL + "/boom.json", Client: srv.Client()}, DecodeOptions{})
	var nerr *failure.NetworkError
	require.ErrorAs(t, err, &nerr)
	require.Equal(t, http.StatusInternalServerError, nerr.Status)
}

func TestFileSourceMissingFileIsNotFound(t *testing.T) {
	t.Parallel()

	src := FileSource{FS: fstest.MapFS{}, Path: "members.json"}
	_, err := Load(context.Background(), src, DecodeOptions{})
	var nerr *failure.NetworkError
	require.ErrorAs(t, err, &nerr)
	require.True(t, nerr.NotFound())
}

func TestPredicatesCompose(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: "1", Fields: map[string]any{"title": "Charter", "category": "Jet", "favorite": true}},
		{ID: "2", Fields: map[string]any{"title": "Charter lite", "category": "Prop", "favorite": false}},
		{ID: "3", Fields: map[string]any{"title": "Cargo", "category": "Jet", "favorite": "yes"}},
	}

	require.Equal(t, []string{"1", "2", "3"}, IDs(Filter(items, All(Category("category", "all"), Contains("", "title"), Flag("favorite", false)))))
	require.Equal(t, []string{"1", "3"}, IDs(Filter(items, Category("category", "JET"))))
	require.Equal(t, []string{"1", "3"}, IDs(Filter(items, Flag("favorite", true))))
	require.Equal(t, []string{"1"}, IDs(Filter(items, All(Contains("charter", "title"), Flag("favorite", true)))))
	require.Empty(t, Filter(items, Contains("zzz", "title", "category")))
}
