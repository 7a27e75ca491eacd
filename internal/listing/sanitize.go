package listing

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Sanitizer turns untrusted collection values into HTML that templates can emit as-is.
type Sanitizer struct {
	text *bluemonday.Policy
	rich *bluemonday.Policy
	md   goldmark.Markdown
}

// NewSanitizer builds the strict text policy and the markdown pipeline.
func NewSanitizer() *Sanitizer {
	rich := bluemonday.UGCPolicy()
	rich.RequireNoFollowOnLinks(true)
	rich.AddTargetBlankToFullyQualifiedLinks(true)
	return &Sanitizer{
		text: bluemonday.StrictPolicy(),
		rich: rich,
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Text strips all markup and escapes the remainder.
func (s *Sanitizer) Text(v string) template.HTML {
	return template.HTML(s.text.Sanitize(strings.TrimSpace(v)))
}

// Markdown renders v as GFM and keeps only user-content safe markup.
func (s *Sanitizer) Markdown(v string) template.HTML {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(v), &buf); err != nil {
		return s.Text(v)
	}
	return template.HTML(s.rich.SanitizeBytes(buf.Bytes()))
}

// URL keeps relative references and http(s) URLs; anything else is dropped.
func (s *Sanitizer) URL(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	u, err := url.Parse(v)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
		return u.String()
	default:
		return ""
	}
}
