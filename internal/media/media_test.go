package media

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stitchdesk/internal/apperr"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 128})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveStoresJPEG(t *testing.T) {
	s := NewStore(t.TempDir())
	p, err := s.Save(bytes.NewReader(pngBytes(t, 40, 20)), "gallery/items")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "/media/gallery/items/"))
	assert.True(t, strings.HasSuffix(p, ".jpg"))

	f, err := os.Open(filepath.Join(s.Root, strings.TrimPrefix(p, "/media/")))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 20, cfg.Height)

	require.NoError(t, s.Remove(p))
	_, err = os.Stat(filepath.Join(s.Root, strings.TrimPrefix(p, "/media/")))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveRejectsNonImage(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Save(strings.NewReader("%PDF-1.4 not an image"), "logos")
	require.Error(t, err)
	assert.Equal(t, 400, apperr.HTTPStatus(err))
}

func TestSaveRejectsOversizedDimensions(t *testing.T) {
	// A GIF header declaring 50000x50000 pixels with no image data.
	bomb := []byte("GIF89a\x50\xc3\x50\xc3\x00\x00\x00")
	s := NewStore(t.TempDir())

	_, err := s.Save(bytes.NewReader(bomb), "gallery/items")
	var v *apperr.Validation
	require.True(t, errors.As(err, &v), "got %T: %v", err, err)
	assert.Equal(t, []string{"image is 50000x50000 pixels, the limit is 40 megapixels"}, v.Fields["image"])

	entries, err := os.ReadDir(s.Root)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is written")
}

func TestCompressBoundsLongestSide(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4096, 1024))
	out, err := Compress(img)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, cfg.Width)
	assert.Equal(t, 512, cfg.Height)
	assert.LessOrEqual(t, len(out), MaxStoredSize)
}

func TestRemoveIgnoresForeignPaths(t *testing.T) {
	s := NewStore(t.TempDir())
	assert.NoError(t, s.Remove(""))
	assert.NoError(t, s.Remove("/etc/passwd"))
	assert.NoError(t, s.Remove("/media/../../etc/passwd"))
}
