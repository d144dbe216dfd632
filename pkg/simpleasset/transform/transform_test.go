package transform

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSupports(t *testing.T) {
	tr := New(Config{})

	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/jpeg", true},
		{"image/png", true},
		{"image/webp", true},
		{"IMAGE/PNG", true},
		{"image/svg+xml", false},
		{"image/x-icon", false},
		{"image/vnd.microsoft.icon", false},
		{"video/mp4", false},
		{"application/pdf", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.Supports(tt.contentType))
		})
	}
}

func TestThumbnailResizesWideImages(t *testing.T) {
	tr := New(Config{})

	original := testPNG(t, 1024, 512)
	result, err := tr.Transform(context.Background(), original, simpleasset.TargetThumb256())
	require.NoError(t, err)

	assert.Equal(t, "image/jpeg", result.ContentType)
	assert.Equal(t, 256, result.Width)
	assert.Equal(t, 128, result.Height, "aspect ratio preserved")

	decoded, format, err := image.Decode(bytes.NewReader(result.Bytes))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 256, decoded.Bounds().Dx())
	assert.Equal(t, 128, decoded.Bounds().Dy())
}

func TestThumbnailKeepsSmallImages(t *testing.T) {
	tr := New(Config{})

	original := testPNG(t, 100, 80)
	result, err := tr.Transform(context.Background(), original, simpleasset.TargetThumb256())
	require.NoError(t, err)

	assert.Equal(t, 100, result.Width)
	assert.Equal(t, 80, result.Height)
}

func TestThumbnailRejectsGarbage(t *testing.T) {
	tr := New(Config{})

	_, err := tr.Transform(context.Background(), []byte("not an image"), simpleasset.TargetThumb256())
	assert.Error(t, err)
}

func TestTransformUnknownKind(t *testing.T) {
	tr := New(Config{})

	_, err := tr.Transform(context.Background(), testPNG(t, 10, 10), simpleasset.DerivativeTarget{Kind: "hls_1080p"})
	assert.ErrorIs(t, err, simpleasset.ErrUnsupportedTarget)
}
