// Package media stores uploaded images on the local disk.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"stitchdesk/internal/apperr"
)

const (
	MaxUploadSize = 5 << 20
	MaxStoredSize = 1 << 20
	MaxDimension  = 2048
	// MaxPixels caps the declared size so a small file cannot expand into
	// gigabytes on decode.
	MaxPixels = 40_000_000

	startQuality = 85
	minQuality   = 20
	qualityStep  = 10
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Store writes files under Root and hands out paths under URLPrefix.
type Store struct {
	Root      string
	URLPrefix string
}

func NewStore(root string) *Store { return &Store{Root: root, URLPrefix: "/media"} }

// SaveImage validates, compresses and stores an uploaded image.
func (s *Store) SaveImage(fh *multipart.FileHeader, dir string) (string, error) {
	if fh.Size > MaxUploadSize {
		return "", apperr.BadRequest("image must be 5MB or smaller")
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return s.Save(f, dir)
}

// Save is SaveImage for an already opened stream.
func (s *Store) Save(r io.Reader, dir string) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return "", err
	}
	if len(raw) > MaxUploadSize {
		return "", apperr.BadRequest("image must be 5MB or smaller")
	}
	mt := mimetype.Detect(raw)
	if !allowedTypes[mt.String()] {
		return "", apperr.BadRequest("unsupported image format, use JPEG, PNG, GIF or WEBP")
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", apperr.BadRequest("image could not be decoded")
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", apperr.Invalid("image", fmt.Sprintf("image is %dx%d pixels, the limit is %d megapixels", cfg.Width, cfg.Height, MaxPixels/1_000_000))
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", apperr.BadRequest("image could not be decoded")
	}
	out, err := Compress(img)
	if err != nil {
		return "", err
	}

	dir = strings.Trim(filepath.ToSlash(filepath.Clean(dir)), "/")
	if err := os.MkdirAll(filepath.Join(s.Root, dir), 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%d.jpg", time.Now().UnixNano())
	if err := os.WriteFile(filepath.Join(s.Root, dir, name), out, 0o644); err != nil {
		return "", err
	}
	return path.Join(s.URLPrefix, dir, name), nil
}

// Local maps a public path returned by Save to its file on disk.
func (s *Store) Local(p string) (string, bool) {
	if p == "" || !strings.HasPrefix(p, s.URLPrefix+"/") {
		return "", false
	}
	rel := filepath.FromSlash(strings.TrimPrefix(p, s.URLPrefix+"/"))
	if strings.Contains(rel, "..") {
		return "", false
	}
	return filepath.Join(s.Root, rel), true
}

// Remove deletes a file previously returned by Save. Unknown paths are ignored.
func (s *Store) Remove(p string) error {
	local, ok := s.Local(p)
	if !ok {
		return nil
	}
	err := os.Remove(local)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Compress flattens img onto white, bounds its longest side and re-encodes
// as JPEG, lowering quality until the result fits MaxStoredSize.
func Compress(img image.Image) ([]byte, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > MaxDimension || h > MaxDimension {
		if w >= h {
			h = h * MaxDimension / w
			w = MaxDimension
		} else {
			w = w * MaxDimension / h
			h = MaxDimension
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	for q := startQuality; ; q -= qualityStep {
		if q < minQuality {
			q = minQuality
		}
		buf.Reset()
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: q}); err != nil {
			return nil, err
		}
		if buf.Len() <= MaxStoredSize || q == minQuality {
			return buf.Bytes(), nil
		}
	}
}
