package validation

import (
	"PerfectFit/internal/entity"
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// sampleStep skips pixels when sampling luminance; full resolution adds
// nothing to a mean over a face-sized region.
const sampleStep = 4

// FaceRegion returns the pixel rectangle spanned by the face edges, forehead
// and chin. An empty rectangle means the whole image should be sampled.
func FaceRegion(l entity.FaceLandmarks, bounds image.Rectangle) image.Rectangle {
	if !l.HasFaceEdges() || l.Chin.Y <= l.Forehead.Y {
		return image.Rectangle{}
	}

	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	minX := math.Min(l.FaceLeft.X, l.FaceRight.X)
	maxX := math.Max(l.FaceLeft.X, l.FaceRight.X)

	r := image.Rect(
		bounds.Min.X+int(minX*w),
		bounds.Min.Y+int(l.Forehead.Y*h),
		bounds.Min.X+int(maxX*w),
		bounds.Min.Y+int(l.Chin.Y*h),
	)
	return r.Intersect(bounds)
}

// PixelStatsFromImage measures Rec. 601 luminance over region, comparing the
// left and right halves for shadow detection.
func PixelStatsFromImage(img image.Image, region image.Rectangle) PixelStats {
	if region.Empty() {
		region = img.Bounds()
	} else {
		region = region.Intersect(img.Bounds())
	}
	if region.Empty() {
		return PixelStats{}
	}

	midX := region.Min.X + region.Dx()/2
	capacity := (region.Dx()/sampleStep + 1) * (region.Dy()/sampleStep + 1)
	all := make([]float64, 0, capacity)
	left := make([]float64, 0, capacity/2)
	right := make([]float64, 0, capacity/2)

	for y := region.Min.Y; y < region.Max.Y; y += sampleStep {
		for x := region.Min.X; x < region.Max.X; x += sampleStep {
			lum := luminance(img, x, y)
			all = append(all, lum)
			if x < midX {
				left = append(left, lum)
			} else {
				right = append(right, lum)
			}
		}
	}

	mean, std := stat.MeanStdDev(all, nil)
	if len(all) < 2 {
		std = 0
	}

	var delta float64
	if len(left) > 0 && len(right) > 0 {
		delta = math.Abs(stat.Mean(left, nil) - stat.Mean(right, nil))
	}

	return PixelStats{MeanLuminance: mean, StdDev: std, LeftRightDelta: delta}
}

func luminance(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257
}
