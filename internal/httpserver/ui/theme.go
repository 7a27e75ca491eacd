package ui

import (
	"net/http"
	"net/url"

	custommw "finitefield.org/showcase-web/internal/httpserver/middleware"
	"finitefield.org/showcase-web/internal/prefs"
)

// ToggleTheme flips or sets the stored theme and sends the visitor back.
func (h *Handlers) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	store := prefs.FromContext(r.Context())
	next := r.PostFormValue("theme")
	if next != prefs.ThemeLight && next != prefs.ThemeDark {
		current := prefs.ResolveTheme(store.Theme(), r.Header.Get("Sec-CH-Prefers-Color-Scheme"))
		next = prefs.ThemeDark
		if current == prefs.ThemeDark {
			next = prefs.ThemeLight
		}
	}
	store.SetTheme(next)

	if custommw.IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, localReferer(r), http.StatusSeeOther)
}

// localReferer returns the same-site path the request came from, or "/".
func localReferer(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return "/"
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}
