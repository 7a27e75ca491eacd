package ui

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/showcase-web/internal/catalog"
	custommw "finitefield.org/showcase-web/internal/httpserver/middleware"
	"finitefield.org/showcase-web/internal/listing"
	"finitefield.org/showcase-web/internal/observability"
	"finitefield.org/showcase-web/internal/prefs"
)

// CloseEvent is the HX-Trigger event fired when the overlay closes.
const CloseEvent = "overlay:closed"

var openerRe = regexp.MustCompile(`^[a-z0-9-]{1,128}$`)

// CollectionView is the browse page and items fragment view model.
type CollectionView struct {
	Name       string
	Title      string
	Intro      string
	Searchable bool
	Categories []string
	FlagLabel  string
	NoToggle   bool
	Query      catalog.Query
	View       listing.View
	Overlay    listing.Overlay
	Greeting   string
	CSRF       string
}

// Toggle is the mode the view switch moves to.
func (v CollectionView) Toggle() listing.ViewMode { return v.View.Mode.Other() }

func (v CollectionView) values(mode listing.ViewMode) url.Values {
	q := url.Values{}
	if v.Query.Term != "" {
		q.Set("q", v.Query.Term)
	}
	if v.Query.Category != "" && v.Query.Category != "all" {
		q.Set("category", v.Query.Category)
	}
	if v.Query.Flag {
		q.Set("favorites", "1")
	}
	if mode == listing.ModeList {
		q.Set("view", string(mode))
	}
	return q
}

func withQuery(base string, q url.Values) string {
	if enc := q.Encode(); enc != "" {
		return base + "?" + enc
	}
	return base
}

// PageURL links to the full page in the current state.
func (v CollectionView) PageURL() string {
	return withQuery("/browse/"+v.Name, v.values(v.View.Mode))
}

// ToggleURL links to the full page in the other view mode.
func (v CollectionView) ToggleURL() string {
	return withQuery("/browse/"+v.Name, v.values(v.Toggle()))
}

// ToggleItemsURL is the htmx fragment URL for the other view mode.
func (v CollectionView) ToggleItemsURL() string {
	return withQuery("/browse/"+v.Name+"/items", v.values(v.Toggle()))
}

// DetailURL is the overlay URL for one card.
func (v CollectionView) DetailURL(id string) string {
	q := v.values(v.View.Mode)
	q.Set("opener", listing.ElementID("open", id))
	return withQuery("/browse/"+v.Name+"/items/"+url.PathEscape(id), q)
}

// CloseURL is the overlay close URL for the open detail.
func (v CollectionView) CloseURL(reason listing.CloseReason) string {
	q := url.Values{}
	q.Set("item", v.Overlay.Detail.ItemID)
	q.Set("opener", v.Overlay.Opener)
	q.Set("reason", string(reason))
	return withQuery("/browse/"+v.Name+"/close", q)
}

// CategorySelected reports whether c is the active category.
func (v CollectionView) CategorySelected(c string) bool {
	return strings.EqualFold(v.Query.Category, c)
}

func queryFrom(r *http.Request) (catalog.Query, listing.ViewMode) {
	values := r.URL.Query()
	q := catalog.Query{
		Term:     strings.TrimSpace(values.Get("q")),
		Category: strings.TrimSpace(values.Get("category")),
	}
	switch strings.ToLower(values.Get("favorites")) {
	case "1", "true", "on", "yes":
		q.Flag = true
	}
	return q, listing.ParseViewMode(values.Get("view"))
}

// controller loads the collection named in the URL and applies the query. The
// bool is false when the collection does not exist.
func (h *Handlers) controller(r *http.Request) (catalog.Definition, *listing.Controller, CollectionView, bool) {
	name := chi.URLParam(r, "collection")
	def, ok := h.deps.Catalog.Get(name)
	if !ok {
		return catalog.Definition{}, nil, CollectionView{}, false
	}
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	ctrl := listing.NewController(def.Name, h.renderers[def.Name], h.recorder())
	col, err := h.deps.Store.Get(ctx, def.Name, def.NewSource(h.deps.DataFS, h.deps.Client), def.DecodeOptions())
	if err := ctrl.Use(col, err); err != nil {
		logger.Warn("collection load failed", zap.String("collection", def.Name), zap.Error(err))
	}

	q, mode := queryFrom(r)
	ctrl.SetFilter(def.Predicate(q))
	ctrl.SetViewMode(mode)

	view := CollectionView{
		Name:       def.Name,
		Title:      def.Title,
		Intro:      def.Intro,
		Searchable: len(def.Search) > 0,
		Categories: def.Categories,
		FlagLabel:  def.FlagLabel,
		NoToggle:   def.NoToggle,
		Query:      q,
		CSRF:       custommw.CSRFTokenFromContext(ctx),
	}
	if def.FlagField == "" {
		view.FlagLabel = ""
	}
	return def, ctrl, view, true
}

// remember stores what the visitor just saw when the collection asks for it.
func (h *Handlers) remember(r *http.Request, def catalog.Definition, ctrl *listing.Controller) {
	if def.Remember == "" {
		return
	}
	if state, _ := ctrl.State(); state != listing.StateLoaded {
		return
	}
	store := prefs.FromContext(r.Context())
	if def.Remember == prefs.KeyLastFlights {
		store.SetLastFlights(listing.IDs(ctrl.Visible()))
		return
	}
	_ = store.Set(def.Remember, listing.IDs(ctrl.Visible()))
}

// Browse renders the full collection page. An item query parameter opens the
// overlay server-side.
func (h *Handlers) Browse(w http.ResponseWriter, r *http.Request) {
	def, ctrl, view, ok := h.controller(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	view.View = ctrl.Render()
	h.remember(r, def, ctrl)

	if def.TrackVisits {
		store := prefs.FromContext(r.Context())
		now := h.deps.Now()
		view.Greeting = catalog.LastVisitMessage(store.LastVisit(), now)
		store.SetLastVisit(now)
	}

	if id := r.URL.Query().Get("item"); id != "" {
		if overlay, err := ctrl.OpenDetail(id, listing.ElementID("open", id)); err == nil {
			view.Overlay = overlay
		}
	}
	h.page(w, r, http.StatusOK, "browse", h.meta(r, "/browse/"+def.Name, def.Title), view)
}

// Items renders only the items container, for filter and view switches.
func (h *Handlers) Items(w http.ResponseWriter, r *http.Request) {
	def, ctrl, view, ok := h.controller(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	if !custommw.IsHTMXRequest(r.Context()) {
		http.Redirect(w, r, withQuery("/browse/"+def.Name, r.URL.Query()), http.StatusSeeOther)
		return
	}
	view.View = ctrl.Render()
	h.remember(r, def, ctrl)
	w.Header().Set("HX-Push-Url", view.PageURL())
	h.fragment(w, r, http.StatusOK, "collection", view)
}

// Detail renders the overlay for one item.
func (h *Handlers) Detail(w http.ResponseWriter, r *http.Request) {
	def, ctrl, view, ok := h.controller(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	id := chi.URLParam(r, "id")
	opener := r.URL.Query().Get("opener")
	if !openerRe.MatchString(opener) {
		opener = listing.ElementID("open", id)
	}
	if state, _ := ctrl.State(); state == listing.StateLoadFailed {
		h.errorPage(w, r, http.StatusBadGateway, ctrl.Render().Error)
		return
	}
	overlay, err := ctrl.OpenDetail(id, opener)
	if errors.Is(err, listing.ErrItemNotFound) {
		h.errorPage(w, r, http.StatusNotFound, "That item is no longer available.")
		return
	}
	view.Overlay = overlay
	if !custommw.IsHTMXRequest(r.Context()) {
		view.View = ctrl.Render()
		h.page(w, r, http.StatusOK, "browse", h.meta(r, "/browse/"+def.Name, def.Title), view)
		return
	}
	h.fragment(w, r, http.StatusOK, "detail", view)
}

// Close empties the overlay and tells the client which control gets focus back.
func (h *Handlers) Close(w http.ResponseWriter, r *http.Request) {
	def, _, view, ok := h.controller(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	// Overlay state lives in the page, so the opener sent back by the close
	// control is the focus target.
	values := r.URL.Query()
	focus := values.Get("opener")
	if !openerRe.MatchString(focus) {
		focus = ""
	}
	reason := parseCloseReason(values.Get("reason"))

	if !custommw.IsHTMXRequest(r.Context()) {
		target := view.PageURL()
		if focus != "" {
			target += "#" + focus
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	payload, err := json.Marshal(map[string]any{CloseEvent: map[string]string{"focus": focus}})
	if err == nil {
		w.Header().Set("HX-Trigger", string(payload))
	}
	observability.FromContext(r.Context()).Debug("overlay closed",
		zap.String("collection", def.Name), zap.String("reason", string(reason)), zap.String("focus", focus))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
}

func parseCloseReason(s string) listing.CloseReason {
	switch listing.CloseReason(s) {
	case listing.CloseOutside:
		return listing.CloseOutside
	case listing.CloseCancel:
		return listing.CloseCancel
	default:
		return listing.CloseControl
	}
}
