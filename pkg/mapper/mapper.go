// Package mapper converts normalized landmark coordinates between the full
// source image, a cropped sub-region of it, and a letterboxed display rect.
package mapper

import (
	"PerfectFit/internal/entity"
	"math"
)

type Size struct {
	Width  float64 `json:"width" validate:"gte=0"`
	Height float64 `json:"height" validate:"gte=0"`
}

func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(other Point) float64 {
	return math.Hypot(other.X-p.X, other.Y-p.Y)
}

func (p Point) Midpoint(other Point) Point {
	return Point{X: (p.X + other.X) / 2, Y: (p.Y + other.Y) / 2}
}

// Letterbox describes where an image of naturalSize is drawn inside a
// container with object-fit "contain".
type Letterbox struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
	Natural Size
}

// Contain computes the letterbox placement. ok is false when either size has
// zero area; callers must skip rendering in that case.
func Contain(natural, container Size) (Letterbox, bool) {
	if natural.Empty() || container.Empty() {
		return Letterbox{}, false
	}

	scale := math.Min(container.Width/natural.Width, container.Height/natural.Height)
	drawnW := natural.Width * scale
	drawnH := natural.Height * scale

	return Letterbox{
		Scale:   scale,
		OffsetX: (container.Width - drawnW) / 2,
		OffsetY: (container.Height - drawnH) / 2,
		Natural: natural,
	}, true
}

func (l Letterbox) ToDisplay(x, y float64) Point {
	return Point{
		X: x*l.Natural.Width*l.Scale + l.OffsetX,
		Y: y*l.Natural.Height*l.Scale + l.OffsetY,
	}
}

func (l Letterbox) FromDisplay(p Point) (float64, float64) {
	return (p.X - l.OffsetX) / (l.Natural.Width * l.Scale),
		(p.Y - l.OffsetY) / (l.Natural.Height * l.Scale)
}

// ToDisplay maps a normalized point into container pixels.
func ToDisplay(p entity.Point3D, natural, container Size) (Point, bool) {
	lb, ok := Contain(natural, container)
	if !ok {
		return Point{}, false
	}
	return lb.ToDisplay(p.X, p.Y), true
}

// FromDisplay is the inverse of ToDisplay.
func FromDisplay(p Point, natural, container Size) (entity.Point3D, bool) {
	lb, ok := Contain(natural, container)
	if !ok {
		return entity.Point3D{}, false
	}
	x, y := lb.FromDisplay(p)
	return entity.Point3D{X: x, Y: y}, true
}

// ToCroppedSpace remaps a full-image normalized point into the normalized space
// of the crop. Points outside the crop saturate at the edge. A degenerate crop
// yields the point unchanged.
func ToCroppedSpace(p entity.Point3D, r entity.CropRect) entity.Point3D {
	if r.SW <= 0 || r.SH <= 0 {
		return p
	}
	return entity.Point3D{
		X: clamp01((p.X*r.FullWidth - r.SX) / r.SW),
		Y: clamp01((p.Y*r.FullHeight - r.SY) / r.SH),
		Z: p.Z,
	}
}

func LandmarksToCropped(l entity.FaceLandmarks, r entity.CropRect) entity.FaceLandmarks {
	return l.Map(func(p entity.Point3D) entity.Point3D {
		return ToCroppedSpace(p, r)
	})
}

// DisplayLandmarks returns the landmarks of a capture in the space of the image
// that is actually shown, which is the crop when one was applied.
func DisplayLandmarks(c *entity.CapturedData) entity.FaceLandmarks {
	if c.HasCrop() {
		return LandmarksToCropped(c.Landmarks, *c.CropRect)
	}
	return c.Landmarks
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
