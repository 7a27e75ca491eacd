package templates

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"finitefield.org/showcase-web/internal/listing"
)

//go:embed html
var embedded embed.FS

const (
	layoutFile  = "layout.tmpl"
	partialsDir = "partials"
	pagesDir    = "pages"
)

// ErrUnknownPage is returned when a page template does not exist.
var ErrUnknownPage = errors.New("templates: unknown page")

// Options controls where templates are read from.
type Options struct {
	// Dev reparses templates from Dir on every render.
	Dev bool
	// Dir is an on-disk copy of the html directory, used only in dev mode.
	Dir string
}

// Renderer executes page and fragment templates. Every page set is cloned from a
// shared base of the layout plus partials.
type Renderer struct {
	opts Options

	mu    sync.RWMutex
	base  *template.Template
	pages map[string]*template.Template
}

// New parses all templates once.
func New(opts Options) (*Renderer, error) {
	r := &Renderer{opts: opts}
	if err := r.parse(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) source() (fs.FS, error) {
	if r.opts.Dev && r.opts.Dir != "" {
		return os.DirFS(r.opts.Dir), nil
	}
	return fs.Sub(embedded, "html")
}

func (r *Renderer) parse() error {
	fsys, err := r.source()
	if err != nil {
		return err
	}
	base, pages, err := parseTemplates(fsys)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.base, r.pages = base, pages
	r.mu.Unlock()
	return nil
}

func parseTemplates(fsys fs.FS) (*template.Template, map[string]*template.Template, error) {
	base := template.New("_root").Funcs(Funcs())
	if _, err := base.ParseFS(fsys, layoutFile); err != nil {
		return nil, nil, fmt.Errorf("parse layout: %w", err)
	}
	partials, err := fs.Glob(fsys, path.Join(partialsDir, "*.tmpl"))
	if err != nil {
		return nil, nil, err
	}
	if len(partials) > 0 {
		if _, err := base.ParseFS(fsys, partials...); err != nil {
			return nil, nil, fmt.Errorf("parse partials: %w", err)
		}
	}

	files, err := fs.Glob(fsys, path.Join(pagesDir, "*.tmpl"))
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no page templates found under %s", pagesDir)
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".tmpl")
		clone, err := base.Clone()
		if err != nil {
			return nil, nil, err
		}
		if _, err := clone.ParseFS(fsys, file); err != nil {
			return nil, nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		pages[name] = clone
	}
	return base, pages, nil
}

func (r *Renderer) current() (*template.Template, map[string]*template.Template, error) {
	if r.opts.Dev {
		if err := r.parse(); err != nil {
			return nil, nil, err
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.base, r.pages, nil
}

// Page renders a full document using the shared layout.
func (r *Renderer) Page(w io.Writer, page string, data any) error {
	_, pages, err := r.current()
	if err != nil {
		return err
	}
	t, ok := pages[page]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPage, page)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// Fragment renders one named partial template, for htmx swaps.
func (r *Renderer) Fragment(w io.Writer, name string, data any) error {
	base, _, err := r.current()
	if err != nil {
		return err
	}
	return base.ExecuteTemplate(w, name, data)
}

// Pages lists the available page names.
func (r *Renderer) Pages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.pages))
	for name := range r.pages {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Funcs is the helper set available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"elementID": listing.ElementID,
		"year":      func(t time.Time) int { return t.Year() },
		"date":      func(t time.Time) string { return t.Format("01/02/2006 15:04:05") },
		"join":      strings.Join,
		"lower":     strings.ToLower,
		"upper":     strings.ToUpper,
		"fixed1":    func(v float64) string { return fmt.Sprintf("%.1f", v) },
		"fixed0":    func(v float64) string { return fmt.Sprintf("%.0f", v) },
		"hasClass": func(classes []string, want string) bool {
			for _, c := range classes {
				if c == want {
					return true
				}
			}
			return false
		},
	}
}
