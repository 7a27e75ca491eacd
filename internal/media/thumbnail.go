package media

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

const (
	defaultWidth = 240
	maxWidth     = 800
	jpegQuality  = 75
	cacheLimit   = 256
)

var (
	// ErrNotFound is returned for images outside the served tree or missing on disk.
	ErrNotFound = errors.New("media: image not found")
	// ErrUnsupported is returned when the file is not a decodable image.
	ErrUnsupported = errors.New("media: unsupported image")
)

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

type cacheKey struct {
	path  string
	width int
}

// Thumbnailer scales images from fsys into JPEG thumbnails and memoises the output.
type Thumbnailer struct {
	fsys   fs.FS
	prefix string

	mu    sync.Mutex
	cache map[cacheKey][]byte
	order []cacheKey
}

// NewThumbnailer serves images from fsys. URLs must begin with prefix, e.g. "/assets/images/".
func NewThumbnailer(fsys fs.FS, prefix string) *Thumbnailer {
	return &Thumbnailer{fsys: fsys, prefix: prefix, cache: make(map[cacheKey][]byte)}
}

// ClampWidth bounds a requested width.
func ClampWidth(w int) int {
	switch {
	case w <= 0:
		return defaultWidth
	case w > maxWidth:
		return maxWidth
	default:
		return w
	}
}

// Thumbnail returns a JPEG no wider than width for the image at src.
func (t *Thumbnailer) Thumbnail(src string, width int) ([]byte, error) {
	name, err := t.resolve(src)
	if err != nil {
		return nil, err
	}
	key := cacheKey{path: name, width: ClampWidth(width)}

	t.mu.Lock()
	if out, ok := t.cache[key]; ok {
		t.mu.Unlock()
		return out, nil
	}
	t.mu.Unlock()

	f, err := t.fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("media: open %s: %w", name, err)
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if img.Bounds().Dx() > key.width {
		img = imaging.Resize(img, key.width, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("media: encode: %w", err)
	}
	out := buf.Bytes()
	t.store(key, out)
	return out, nil
}

func (t *Thumbnailer) resolve(src string) (string, error) {
	if !strings.HasPrefix(src, t.prefix) {
		return "", ErrNotFound
	}
	rel := strings.TrimPrefix(src, t.prefix)
	clean := path.Clean("/" + rel)[1:]
	if clean == "" || clean != rel || !fs.ValidPath(clean) {
		return "", ErrNotFound
	}
	if !allowedExt[strings.ToLower(path.Ext(clean))] {
		return "", ErrUnsupported
	}
	return clean, nil
}

func (t *Thumbnailer) store(key cacheKey, out []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.cache[key]; ok {
		return
	}
	if len(t.order) >= cacheLimit {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.cache, oldest)
	}
	t.cache[key] = out
	t.order = append(t.order, key)
}
