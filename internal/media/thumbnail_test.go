package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestThumbnailScalesDown(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"images/acme.png": {Data: pngBytes(t, 600, 300)}}
	th := NewThumbnailer(fsys, "/assets/")

	out, err := th.Thumbnail("/assets/images/acme.png", 240)
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 240, img.Bounds().Dx())
	require.Equal(t, 120, img.Bounds().Dy())

	again, err := th.Thumbnail("/assets/images/acme.png", 240)
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func TestThumbnailKeepsSmallImages(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"images/tiny.png": {Data: pngBytes(t, 50, 40)}}
	out, err := NewThumbnailer(fsys, "/assets/").Thumbnail("/assets/images/tiny.png", 240)
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 50, img.Bounds().Dx())
}

func TestThumbnailRejectsBadPaths(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"images/acme.png":  {Data: pngBytes(t, 10, 10)},
		"images/notes.txt": {Data: []byte("hello")},
		"images/fake.png":  {Data: []byte("not an image")},
	}
	th := NewThumbnailer(fsys, "/assets/")

	for _, src := range []string{"/etc/passwd", "/assets/../secret.png", "/assets/images/../../x.png", "/assets/images/missing.png", "/assets/"} {
		_, err := th.Thumbnail(src, 100)
		require.ErrorIs(t, err, ErrNotFound, src)
	}
	_, err := th.Thumbnail("/assets/images/notes.txt", 100)
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = th.Thumbnail("/assets/images/fake.png", 100)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestClampWidth(t *testing.T) {
	t.Parallel()

	require.Equal(t, 240, ClampWidth(0))
	require.Equal(t, 800, ClampWidth(5000))
	require.Equal(t, 120, ClampWidth(120))
}
