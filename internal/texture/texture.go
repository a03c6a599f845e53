// Package texture decodes image files into tightly packed RGBA8 pixels ready
// for upload.
package texture

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	"github.com/cockroachdb/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Pixels is an image with four bytes per pixel, rows top to bottom and no
// padding between rows.
type Pixels struct {
	Width  int
	Height int
	RGBA   []byte

	// Format is the name of the decoder that read the image, for example
	// "png".
	Format string
}

// Decode reads a PNG, JPEG, BMP, TIFF or WebP image.
func Decode(r io.Reader) (*Pixels, error) {
	decoded, format, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode texture")
	}

	bounds := decoded.Bounds()
	if bounds.Empty() {
		return nil, errors.Newf("%s texture has no pixels", format)
	}

	rgba, ok := decoded.(*image.RGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), decoded, bounds.Min, draw.Src)
	}

	return &Pixels{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		RGBA:   rgba.Pix,
		Format: format,
	}, nil
}

// MipLevels is the length of the full mip chain for a width x height image.
func MipLevels(width, height int) int {
	return int(math.Floor(math.Log2(float64(max(width, height))))) + 1
}
