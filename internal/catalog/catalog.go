package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"finitefield.org/showcase-web/internal/listing"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Field is the YAML form of listing.FieldSpec.
type Field struct {
	Name     string `yaml:"name"`
	Label    string `yaml:"label"`
	Prefix   string `yaml:"prefix"`
	Suffix   string `yaml:"suffix"`
	Markdown bool   `yaml:"markdown"`
}

// Definition describes one browsable collection.
type Definition struct {
	Name          string   `yaml:"name"`
	Title         string   `yaml:"title"`
	Intro         string   `yaml:"intro"`
	Source        string   `yaml:"source"`
	Wrapper       string   `yaml:"wrapper"`
	IDField       string   `yaml:"id_field"`
	TitleField    string   `yaml:"title_field"`
	ImageField    string   `yaml:"image_field"`
	ImageBase     string   `yaml:"image_base"`
	Thumbnails    bool     `yaml:"thumbnails"`
	Search        []string `yaml:"search"`
	CategoryField string   `yaml:"category_field"`
	Categories    []string `yaml:"categories"`
	FlagField     string   `yaml:"flag_field"`
	FlagLabel     string   `yaml:"flag_label"`
	GridFields    []Field  `yaml:"grid_fields"`
	ListFields    []Field  `yaml:"list_fields"`
	DetailFields  []Field  `yaml:"detail_fields"`
	EmptyMessage  string   `yaml:"empty_message"`
	ErrorMessage  string   `yaml:"error_message"`
	Decorator     string   `yaml:"decorator"`
	Remember      string   `yaml:"remember"`
	TrackVisits   bool     `yaml:"track_visits"`
	NoToggle      bool     `yaml:"no_toggle"`
}

// Catalog is the ordered set of collection definitions.
type Catalog struct {
	Collections []Definition `yaml:"collections"`
	index       map[string]int
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile parses a catalog from path. An empty path yields the embedded default.
func LoadFile(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if len(c.Collections) == 0 {
		return nil, errors.New("catalog: no collections defined")
	}
	c.index = make(map[string]int, len(c.Collections))
	for i, def := range c.Collections {
		if !nameRe.MatchString(def.Name) {
			return nil, fmt.Errorf("catalog: collection %d: invalid name %q", i, def.Name)
		}
		if _, dup := c.index[def.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate collection %q", def.Name)
		}
		if strings.TrimSpace(def.Source) == "" {
			return nil, fmt.Errorf("catalog: collection %q: source is required", def.Name)
		}
		if def.Decorator != "" {
			if _, ok := decorators[def.Decorator]; !ok {
				return nil, fmt.Errorf("catalog: collection %q: unknown decorator %q", def.Name, def.Decorator)
			}
		}
		c.index[def.Name] = i
	}
	return &c, nil
}

// Get returns the named definition. A nil catalog has no collections.
func (c *Catalog) Get(name string) (Definition, bool) {
	if c == nil {
		return Definition{}, false
	}
	i, ok := c.index[name]
	if !ok {
		return Definition{}, false
	}
	return c.Collections[i], true
}

// Names lists collection names in catalog order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.Collections))
	for _, def := range c.Collections {
		out = append(out, def.Name)
	}
	return out
}

// Remote reports whether the source is fetched over HTTP.
func (d Definition) Remote() bool {
	return strings.HasPrefix(d.Source, "http://") || strings.HasPrefix(d.Source, "https://")
}

// NewSource returns the listing source for d. Local paths are resolved against dataFS.
func (d Definition) NewSource(dataFS fs.FS, client *http.Client) listing.Source {
	if d.Remote() {
		return listing.HTTPSource{URL: d.Source, Client: client}
	}
	return listing.FileSource{FS: dataFS, Path: strings.TrimPrefix(d.Source, "/")}
}

// DecodeOptions maps the definition onto decoder options.
func (d Definition) DecodeOptions() listing.DecodeOptions {
	return listing.DecodeOptions{Wrapper: d.Wrapper, IDField: d.IDField}
}

// Layout maps the definition onto the renderer layout.
func (d Definition) Layout() listing.Layout {
	return listing.Layout{
		TitleField:   d.TitleField,
		ImageField:   d.ImageField,
		ImageBase:    d.ImageBase,
		ThumbPrefix:  thumbPrefix(d.Thumbnails),
		GridFields:   specs(d.GridFields),
		ListFields:   specs(d.ListFields),
		DetailFields: specs(d.DetailFields),
		EmptyMessage: d.EmptyMessage,
		ErrorMessage: d.ErrorMessage,
	}
}

// Renderer builds a renderer with the collection's decorator attached.
func (d Definition) Renderer() *listing.Renderer {
	r := listing.NewRenderer(d.Layout())
	if build, ok := decorators[d.Decorator]; ok {
		build(r)
	}
	return r
}

// Query is the user's filter input for one collection.
type Query struct {
	Term     string
	Category string
	Flag     bool
}

// Predicate composes the collection's filters for q.
func (d Definition) Predicate(q Query) listing.Predicate {
	return listing.All(
		listing.Contains(q.Term, d.Search...),
		listing.Category(d.CategoryField, q.Category),
		listing.Flag(d.FlagField, q.Flag),
	)
}

func thumbPrefix(on bool) string {
	if on {
		return "/media/thumb?w=240&src="
	}
	return ""
}

func specs(fields []Field) []listing.FieldSpec {
	out := make([]listing.FieldSpec, 0, len(fields))
	for _, f := range fields {
		out = append(out, listing.FieldSpec{
			Name:     f.Name,
			Label:    f.Label,
			Prefix:   f.Prefix,
			Suffix:   f.Suffix,
			Markdown: f.Markdown,
		})
	}
	return out
}
