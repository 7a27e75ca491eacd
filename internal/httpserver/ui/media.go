package ui

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"finitefield.org/showcase-web/internal/media"
	"finitefield.org/showcase-web/internal/observability"
)

// Thumbnail serves a scaled JPEG of a local card image.
func (h *Handlers) Thumbnail(w http.ResponseWriter, r *http.Request) {
	if h.deps.Thumbs == nil {
		http.NotFound(w, r)
		return
	}
	width, _ := strconv.Atoi(r.URL.Query().Get("w"))
	out, err := h.deps.Thumbs.Thumbnail(r.URL.Query().Get("src"), width)
	switch {
	case errors.Is(err, media.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, media.ErrUnsupported):
		http.Error(w, "unsupported image", http.StatusUnsupportedMediaType)
		return
	case err != nil:
		observability.FromContext(r.Context()).Error("thumbnail failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	_, _ = w.Write(out)
}
