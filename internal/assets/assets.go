// Package assets embeds the stylesheet, script and sample images served under /assets/.
package assets

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed static
var embedded embed.FS

// FS returns the static files rooted at the static directory. A non-empty dir
// serves from disk instead, for local development.
func FS(dir string) (fs.FS, error) {
	if dir != "" {
		return os.DirFS(dir), nil
	}
	return fs.Sub(embedded, "static")
}
