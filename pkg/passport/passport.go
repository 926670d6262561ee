// Package passport derives a face-centred, fixed aspect crop from full-image
// landmarks.
package passport

import (
	"PerfectFit/internal/entity"
	"bytes"
	"image"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"
)

const (
	// Aspect is width/height of a 35mm x 45mm passport photo.
	Aspect          = 35.0 / 45.0
	MaxOutputSide   = 1200
	JPEGQuality     = 88
	faceWidthFactor = 2.4
	eyeDistFactor   = 4.0
	fallbackFace    = 1.8
	eyeLineFromTop  = 0.38
)

type Result struct {
	Image    image.Image
	CropRect entity.CropRect
}

// Rect computes the crop rectangle in pixels of a width x height image.
func Rect(width, height float64, l entity.FaceLandmarks) (entity.CropRect, bool) {
	if width <= 0 || height <= 0 {
		return entity.CropRect{}, false
	}

	centerX := (l.LeftEye.X + l.RightEye.X) / 2 * width
	centerY := (l.LeftEye.Y + l.RightEye.Y) / 2 * height
	eyeDistPx := math.Hypot((l.RightEye.X-l.LeftEye.X)*width, (l.RightEye.Y-l.LeftEye.Y)*height)

	faceWidthPx := math.Abs((l.FaceRight.X - l.FaceLeft.X) * width)
	if faceWidthPx == 0 {
		faceWidthPx = eyeDistPx * fallbackFace
	}

	cropW := math.Max(faceWidthPx*faceWidthFactor, eyeDistPx*eyeDistFactor)
	cropH := cropW / Aspect

	sx := centerX - cropW/2
	sy := centerY - cropH*eyeLineFromTop
	sx = math.Max(0, math.Min(sx, width-cropW))
	sy = math.Max(0, math.Min(sy, height-cropH))
	sw := math.Min(cropW, width-sx)
	sh := math.Min(cropH, height-sy)

	if !(sw > 0) || !(sh > 0) {
		return entity.CropRect{}, false
	}

	return entity.CropRect{
		FullWidth:  width,
		FullHeight: height,
		SX:         sx,
		SY:         sy,
		SW:         sw,
		SH:         sh,
	}, true
}

// Crop cuts the passport region out of img and downsamples it to at most
// MaxOutputSide on its longest edge.
func Crop(img image.Image, l entity.FaceLandmarks) (*Result, bool) {
	b := img.Bounds()
	rect, ok := Rect(float64(b.Dx()), float64(b.Dy()), l)
	if !ok {
		return nil, false
	}

	scale := math.Min(1, MaxOutputSide/math.Max(rect.SW, rect.SH))
	outW := int(math.Round(rect.SW * scale))
	outH := int(math.Round(rect.SH * scale))
	if outW <= 0 || outH <= 0 {
		return nil, false
	}

	src := image.Rect(
		b.Min.X+int(math.Floor(rect.SX)),
		b.Min.Y+int(math.Floor(rect.SY)),
		b.Min.X+int(math.Floor(rect.SX+rect.SW)),
		b.Min.Y+int(math.Floor(rect.SY+rect.SH)),
	)
	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)

	return &Result{Image: dst, CropRect: rect}, true
}

func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
