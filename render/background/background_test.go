package background

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePopulatesOnce(t *testing.T) {
	c := NewCache()
	img := image.NewGray(image.Rect(0, 0, 1, 1))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Get("Lined", func() (image.Image, error) { return img, nil })
			assert.NoError(t, err)
			assert.Same(t, img, got)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, c.Loads())
	assert.Equal(t, 1, c.Len())
}

func TestCacheDoesNotKeepFailures(t *testing.T) {
	c := NewCache()
	_, err := c.Get("Grid", func() (image.Image, error) { return nil, errors.New("missing") })
	require.Error(t, err)

	img := image.NewGray(image.Rect(0, 0, 1, 1))
	got, err := c.Get("Grid", func() (image.Image, error) { return img, nil })
	require.NoError(t, err)
	assert.Same(t, img, got)
	assert.Equal(t, 2, c.Loads())
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeTemplateScales(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 20))
	for i := range src.Pix {
		src.Pix[i] = 0x80
	}

	img, err := DecodeTemplate(encodePNG(t, src), 30, 40)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 40), img.Bounds())
	r, _, _, _ := img.At(15, 20).RGBA()
	assert.InDelta(t, 0x8080, r, 0x200)

	same, err := DecodeTemplate(encodePNG(t, src), 10, 20)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), same.Bounds())

	_, err = DecodeTemplate([]byte("not an image"), 10, 10)
	assert.Error(t, err)
}

func TestFitRatio(t *testing.T) {
	// A4 portrait is height bound in a 1404x1872 box.
	assert.InDelta(t, 1872/841.89, FitRatio(595.28, 841.89, 1404, 1872), 1e-9)
	// landscape pages fit as if turned
	assert.Equal(t, FitRatio(595.28, 841.89, 1404, 1872), FitRatio(841.89, 595.28, 1404, 1872))
}

func TestRotateCounterClockwise(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	red := color.RGBA{255, 0, 0, 255}
	img.SetRGBA(2, 0, red)

	out := RotateCounterClockwise(img)
	assert.Equal(t, image.Rect(0, 0, 2, 3), out.Bounds())
	assert.Equal(t, red, out.RGBAAt(0, 0))
}
