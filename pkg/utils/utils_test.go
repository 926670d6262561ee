package utils

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULIDFromTimestamp(t *testing.T) {
	u := New()
	now := time.Now()

	id, err := u.NewULIDFromTimestamp(now)
	require.NoError(t, err)

	parsed, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(now), parsed.Time())
}

func TestJPEGDataURLRoundTrip(t *testing.T) {
	u := New()
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))

	dataURL, raw, err := u.EncodeJPEGDataURL(img, 90)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dataURL, "data:image/jpeg;base64,"))
	assert.NotEmpty(t, raw)

	decoded, err := u.DecodeImage(dataURL)
	require.NoError(t, err)
	assert.Equal(t, 16, decoded.Bounds().Dx())
	assert.Equal(t, 8, decoded.Bounds().Dy())
}

func TestDecodeImage_Invalid(t *testing.T) {
	u := New()

	_, err := u.DecodeImage("")
	assert.True(t, errors.Is(err, ErrEmptyImage))

	_, err = u.DecodeImage("data:image/png;base64,@@@")
	assert.True(t, errors.Is(err, ErrInvalidImage))

	_, err = u.DecodeImage("aGVsbG8=")
	assert.True(t, errors.Is(err, ErrInvalidImage))
}

func TestFlipHorizontal(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	flipped := New().FlipHorizontal(img)
	r, _, _, _ := flipped.At(2, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	r, _, _, _ = flipped.At(0, 0).RGBA()
	assert.Zero(t, r)
}

func TestDownscale(t *testing.T) {
	u := New()
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))

	small := u.Downscale(img, 100)
	assert.Equal(t, image.Rect(0, 0, 100, 50), small.Bounds())

	same := u.Downscale(img, 1000)
	assert.Equal(t, img.Bounds(), same.Bounds())
}
