// Package thumbnail scales images down to JPEG thumbnails.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"io"
	"os"

	"github.com/maruel/myaccount/internal/jsondb"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Quality is the JPEG quality of generated thumbnails.
const Quality = 85

// maxPixels bounds the decoded size of a source image.
const maxPixels = 50_000_000

// ErrTooLarge is returned for images whose decoded size exceeds the limit.
var ErrTooLarge = errors.New("image dimensions too large")

// Fit scales the image read from r so that its longest side is maxSize and
// encodes it as JPEG to w. Images already smaller are re-encoded unscaled.
// It returns the thumbnail dimensions.
func Fit(r io.Reader, w io.Writer, maxSize int) (image.Point, error) {
	src, err := decode(r)
	if err != nil {
		return image.Point{}, err
	}
	b := src.Bounds()
	size := fitSize(b.Dx(), b.Dy(), maxSize)
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	fillWhite(dst)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	if err := jpeg.Encode(w, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return image.Point{}, fmt.Errorf("encode thumbnail: %w", err)
	}
	return size, nil
}

// Square crops the centre square of the image read from r, scales it to
// size×size and encodes it as JPEG to w.
func Square(r io.Reader, w io.Writer, size int) error {
	src, err := decode(r)
	if err != nil {
		return err
	}
	crop := centerSquare(src.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	fillWhite(dst)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)
	if err := jpeg.Encode(w, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	return nil
}

// FitFile writes a thumbnail of the image at src to dst.
func FitFile(src, dst string, maxSize int) error {
	in, err := os.Open(src) //nolint:gosec // G304: caller validates the path
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = in.Close() }()
	var buf bytes.Buffer
	if _, err := Fit(in, &buf, maxSize); err != nil {
		return err
	}
	return jsondb.WriteFileAtomic(dst, buf.Bytes(), 0o644)
}

func decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrTooLarge)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// fitSize keeps the aspect ratio and never upscales.
func fitSize(w, h, maxSize int) image.Point {
	if w <= maxSize && h <= maxSize {
		return image.Pt(w, h)
	}
	if w > h {
		return image.Pt(maxSize, max(h*maxSize/w, 1))
	}
	return image.Pt(max(w*maxSize/h, 1), maxSize)
}

func centerSquare(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	switch {
	case w > h:
		x := b.Min.X + (w-h)/2
		return image.Rect(x, b.Min.Y, x+h, b.Max.Y)
	case h > w:
		y := b.Min.Y + (h-w)/2
		return image.Rect(b.Min.X, y, b.Max.X, y+w)
	default:
		return b
	}
}

// fillWhite gives transparent sources an opaque background, JPEG has no alpha.
func fillWhite(dst *image.RGBA) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
}
