package utils

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyImage    = errors.New("no image data")
	ErrImageTooLarge = errors.New("image size exceeds limit")
	ErrInvalidImage  = errors.New("image data is not a supported image")
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	DecodeImage(data string) (image.Image, error)
	EncodeJPEGDataURL(img image.Image, quality int) (string, []byte, error)
	FlipHorizontal(img image.Image) *image.RGBA
	Downscale(img image.Image, maxSide int) image.Image
}

type utils struct {
	maxImageSize int
}

func New() IUtils {
	return &utils{
		maxImageSize: 10 * 1024 * 1024,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// DecodeImage accepts a data URL or bare base64 JPEG, PNG or WebP.
func (u *utils) DecodeImage(data string) (image.Image, error) {
	raw, err := DecodeBase64Image(data)
	if err != nil {
		return nil, err
	}
	if len(raw) > u.maxImageSize {
		return nil, ErrImageTooLarge
	}
	return DecodeImageBytes(raw)
}

func (u *utils) EncodeJPEGDataURL(img image.Image, quality int) (string, []byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", nil, err
	}
	raw := buf.Bytes()
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw), raw, nil
}

func (u *utils) FlipHorizontal(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(b.Dx()-1-x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// Downscale keeps the aspect ratio and never upscales.
func (u *utils) Downscale(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return img
	}

	newW, newH := maxSide, maxSide
	if w > h {
		newH = h * maxSide / w
	} else {
		newW = w * maxSide / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func DecodeBase64Image(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, ErrEmptyImage
	}
	if strings.HasPrefix(data, "data:") {
		_, payload, found := strings.Cut(data, ",")
		if !found {
			return nil, ErrInvalidImage
		}
		data = payload
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return raw, nil
}

func DecodeImageBytes(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyImage
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}
