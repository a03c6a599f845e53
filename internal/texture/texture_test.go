package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func checkerboard(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 0, G: 0, B: 255, A: 255})
			}
		}
	}
	return img
}

func TestDecodePNG(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, checkerboard(4, 3)))

	pixels, err := Decode(buf)
	require.NoError(t, err)

	require.Equal(t, "png", pixels.Format)
	require.Equal(t, 4, pixels.Width)
	require.Equal(t, 3, pixels.Height)
	require.Len(t, pixels.RGBA, 4*3*4)
	require.Equal(t, []byte{255, 0, 0, 255}, pixels.RGBA[0:4])
	require.Equal(t, []byte{0, 0, 255, 255}, pixels.RGBA[4:8])
	// Second row starts one pixel over.
	require.Equal(t, []byte{0, 0, 255, 255}, pixels.RGBA[16:20])
}

func TestDecodeBMP(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, bmp.Encode(buf, checkerboard(2, 2)))

	pixels, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, "bmp", pixels.Format)
	require.Equal(t, []byte{255, 0, 0, 255}, pixels.RGBA[0:4])
}

func TestDecodeJPEG(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, jpeg.Encode(buf, image.NewGray(image.Rect(0, 0, 16, 8)), nil))

	pixels, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, "jpeg", pixels.Format)
	require.Len(t, pixels.RGBA, 16*8*4)
	require.Equal(t, byte(255), pixels.RGBA[3])
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not an image")))
	require.Error(t, err)
}

func TestMipLevels(t *testing.T) {
	testCases := []struct {
		w, h int
		want int
	}{
		{1, 1, 1},
		{2, 1, 2},
		{1024, 1024, 11},
		{1024, 512, 11},
		{1023, 10, 10},
		{100, 1280, 11},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.want, MipLevels(tc.w, tc.h), "%dx%d", tc.w, tc.h)
	}
}
