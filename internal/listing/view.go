package listing

import (
	"hash/fnv"
	"html"
	"html/template"
	"net/url"
	"path"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ViewMode selects the card layout.
type ViewMode string

const (
	ModeGrid ViewMode = "grid"
	ModeList ViewMode = "list"
)

// ParseViewMode maps user input onto a ViewMode; unknown values fall back to grid.
func ParseViewMode(s string) ViewMode {
	if ViewMode(strings.ToLower(strings.TrimSpace(s))) == ModeList {
		return ModeList
	}
	return ModeGrid
}

// Other returns the mode a toggle switches to.
func (m ViewMode) Other() ViewMode {
	if m == ModeList {
		return ModeGrid
	}
	return ModeList
}

// FieldSpec describes how one item field is displayed.
type FieldSpec struct {
	Name     string
	Label    string
	Prefix   string
	Suffix   string
	Markdown bool
}

// Layout is the per-collection presentation configuration.
type Layout struct {
	TitleField   string
	ImageField   string
	ImageBase    string
	ThumbPrefix  string
	GridFields   []FieldSpec
	ListFields   []FieldSpec
	DetailFields []FieldSpec
	EmptyMessage string
	ErrorMessage string
}

func (l Layout) fieldsFor(mode ViewMode) []FieldSpec {
	if mode == ModeList && len(l.ListFields) > 0 {
		return l.ListFields
	}
	return l.GridFields
}

// Field is a sanitized label/value pair.
type Field struct {
	Name  string
	Label string
	Value template.HTML
}

// Badge is a short status marker attached to a card.
type Badge struct {
	Label string
	Class string
}

// Card is the display element for one item.
type Card struct {
	ID       string
	OpenerID string
	Title    template.HTML
	Image    string
	ImageAlt string
	Initial  string
	Badge    *Badge
	Fields   []Field
	Classes  []string
}

// View is the complete output of one render pass. Exactly one of Cards, Empty or Error is populated.
type View struct {
	Mode   ViewMode
	Cards  []Card
	Empty  string
	Error  string
	Totals []Field
}

// Elements counts the top-level elements the view produces in the items container.
func (v View) Elements() int {
	if v.Error != "" || v.Empty != "" {
		return 1
	}
	return len(v.Cards)
}

// Detail is the content of the shared overlay.
type Detail struct {
	ItemID   string
	Title    template.HTML
	Image    string
	ImageAlt string
	Fields   []Field
	Notes    []template.HTML
}

// CardDecorator adds collection-specific touches to a card.
type CardDecorator interface {
	DecorateCard(it Item, mode ViewMode, card *Card)
}

// DetailDecorator adds collection-specific notes to the overlay.
type DetailDecorator interface {
	DecorateDetail(it Item, detail *Detail)
}

// Summarizer computes totals over the visible items.
type Summarizer interface {
	Summarize(items []Item) []Field
}

// Renderer produces views from items. It holds no mutable state.
type Renderer struct {
	Layout    Layout
	Sanitizer *Sanitizer
	Cards     CardDecorator
	Details   DetailDecorator
	Summary   Summarizer
}

// NewRenderer returns a renderer with a fresh sanitizer.
func NewRenderer(layout Layout) *Renderer {
	return &Renderer{Layout: layout, Sanitizer: NewSanitizer()}
}

// Render builds one card per item in order, or the empty placeholder.
func (r *Renderer) Render(items []Item, mode ViewMode) View {
	mode = ParseViewMode(string(mode))
	v := View{Mode: mode}
	if r.Summary != nil {
		v.Totals = r.Summary.Summarize(items)
	}
	if len(items) == 0 {
		v.Empty = r.Layout.EmptyMessage
		if v.Empty == "" {
			v.Empty = "No results found."
		}
		return v
	}
	v.Cards = make([]Card, 0, len(items))
	for _, it := range items {
		v.Cards = append(v.Cards, r.card(it, mode))
	}
	return v
}

// RenderError builds the single inline failure message shown instead of items.
func (r *Renderer) RenderError(mode ViewMode) View {
	msg := r.Layout.ErrorMessage
	if msg == "" {
		msg = "Failed to load data. Please try again later."
	}
	return View{Mode: ParseViewMode(string(mode)), Error: msg}
}

// Detail builds the overlay content for it.
func (r *Renderer) Detail(it Item) Detail {
	d := Detail{
		ItemID: it.ID,
		Title:  r.title(it),
		Image:  r.image(it),
		Fields: r.fields(it, r.Layout.DetailFields),
	}
	if d.Image != "" {
		d.ImageAlt = it.String(r.Layout.TitleField)
	}
	if r.Details != nil {
		r.Details.DecorateDetail(it, &d)
	}
	return d
}

func (r *Renderer) card(it Item, mode ViewMode) Card {
	c := Card{
		ID:       it.ID,
		OpenerID: ElementID("open", it.ID),
		Title:    r.title(it),
		Image:    r.image(it),
		Fields:   r.fields(it, r.Layout.fieldsFor(mode)),
	}
	name := strings.TrimSpace(html.UnescapeString(string(c.Title)))
	if c.Image != "" {
		c.ImageAlt = name
	} else if name != "" {
		first, _ := utf8.DecodeRuneInString(name)
		c.Initial = string(unicode.ToUpper(first))
	}
	if r.Cards != nil {
		r.Cards.DecorateCard(it, mode, &c)
	}
	return c
}

func (r *Renderer) title(it Item) template.HTML {
	if r.Layout.TitleField == "" {
		return r.Sanitizer.Text(it.ID)
	}
	return r.Sanitizer.Text(it.String(r.Layout.TitleField))
}

func (r *Renderer) image(it Item) string {
	if r.Layout.ImageField == "" {
		return ""
	}
	raw := strings.TrimSpace(it.String(r.Layout.ImageField))
	if raw == "" {
		return ""
	}
	local := !strings.Contains(raw, "://") && !strings.HasPrefix(raw, "/")
	if local && r.Layout.ImageBase != "" {
		raw = path.Join(r.Layout.ImageBase, raw)
	}
	clean := r.Sanitizer.URL(raw)
	if clean != "" && local && r.Layout.ThumbPrefix != "" {
		return r.Layout.ThumbPrefix + url.QueryEscape(clean)
	}
	return clean
}

func (r *Renderer) fields(it Item, specs []FieldSpec) []Field {
	out := make([]Field, 0, len(specs))
	for _, spec := range specs {
		raw := it.String(spec.Name)
		f := Field{Name: spec.Name, Label: spec.Label}
		switch {
		case raw == "":
		case spec.Markdown:
			f.Value = r.Sanitizer.Markdown(raw)
		default:
			f.Value = r.Sanitizer.Text(spec.Prefix + raw + spec.Suffix)
		}
		out = append(out, f)
	}
	return out
}

// ElementID builds an HTML id from a prefix and an arbitrary item identifier.
// Identifiers that are not already lower-case alphanumerics and hyphens get a
// hash of the original appended, so "A&B Co" and "A B Co" stay distinct.
func ElementID(prefix, id string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('-')
	rewritten := false
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			rewritten = true
		default:
			b.WriteByte('-')
			rewritten = true
		}
	}
	if rewritten {
		h := fnv.New32a()
		_, _ = h.Write([]byte(id))
		b.WriteByte('-')
		b.WriteString(strconv.FormatUint(uint64(h.Sum32()), 36))
	}
	return b.String()
}
