package ui

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/showcase-web/internal/listing"
	"finitefield.org/showcase-web/internal/observability"
)

type collectionResponse struct {
	Name     string           `json:"name"`
	Count    int              `json:"count"`
	Total    int              `json:"total"`
	LoadedAt time.Time        `json:"loaded_at"`
	Items    []map[string]any `json:"items"`
}

type apiError struct {
	Error string `json:"error"`
}

// CollectionJSON serves the filtered collection as JSON, using the same query
// parameters as the browse page.
func (h *Handlers) CollectionJSON(w http.ResponseWriter, r *http.Request) {
	def, ok := h.deps.Catalog.Get(chi.URLParam(r, "name"))
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "unknown collection"})
		return
	}
	ctrl := listing.NewController(def.Name, h.renderers[def.Name], h.recorder())
	col, err := h.deps.Store.Get(r.Context(), def.Name, def.NewSource(h.deps.DataFS, h.deps.Client), def.DecodeOptions())
	if err := ctrl.Use(col, err); err != nil {
		observability.FromContext(r.Context()).Warn("collection api load failed", zap.String("collection", def.Name), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, apiError{Error: ctrl.Render().Error})
		return
	}
	q, _ := queryFrom(r)
	ctrl.SetFilter(def.Predicate(q))
	visible := ctrl.Visible()

	resp := collectionResponse{
		Name:     def.Name,
		Count:    len(visible),
		Total:    col.Len(),
		LoadedAt: col.LoadedAt,
		Items:    make([]map[string]any, 0, len(visible)),
	}
	for _, it := range visible {
		entry := make(map[string]any, len(it.Fields)+1)
		for k, v := range it.Fields {
			entry[k] = v
		}
		entry["_id"] = it.ID
		resp.Items = append(resp.Items, entry)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
