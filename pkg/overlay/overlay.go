// Package overlay computes where and how to draw an eyewear asset over a face
// image so that the asset's optical centres line up with the wearer's pupils.
package overlay

import (
	"PerfectFit/internal/entity"
	"PerfectFit/pkg/fit"
	"PerfectFit/pkg/mapper"
	"fmt"
	"math"
)

const DefaultSnapDegrees = 3.0

type Anchor string

const (
	// AnchorEyeMidpoint centres the frame between the pupils.
	AnchorEyeMidpoint Anchor = "eye-midpoint"
	// AnchorBridge centres the frame on the nose-bridge landmark when present,
	// falling back to the eye midpoint.
	AnchorBridge Anchor = "bridge"
)

type Options struct {
	SnapDegrees float64
	Anchor      Anchor
}

func DefaultOptions() Options {
	return Options{SnapDegrees: DefaultSnapDegrees, Anchor: AnchorEyeMidpoint}
}

type Engine struct {
	opts Options
}

func New(opts Options) *Engine {
	if opts.Anchor == "" {
		opts.Anchor = AnchorEyeMidpoint
	}
	return &Engine{opts: opts}
}

var defaultEngine = New(DefaultOptions())

// Compute uses the default options.
func Compute(
	frame entity.GlassesFrame,
	landmarks entity.FaceLandmarks,
	faceWidthMm, pdMm float64,
	container, natural mapper.Size,
) (entity.FrameOverlayTransform, bool) {
	return defaultEngine.Compute(frame, landmarks, faceWidthMm, pdMm, container, natural)
}

// Compute returns ok=false for degenerate geometry. It panics when the frame
// has no optical centre calibration; catalogs validate frames on load.
func (e *Engine) Compute(
	frame entity.GlassesFrame,
	landmarks entity.FaceLandmarks,
	faceWidthMm, pdMm float64,
	container, natural mapper.Size,
) (entity.FrameOverlayTransform, bool) {
	if frame.OpticalCenterDistancePx <= 0 {
		panic(fmt.Sprintf("overlay: frame %q has no optical center calibration", frame.ID))
	}
	if faceWidthMm <= 0 || pdMm <= 0 {
		return entity.FrameOverlayTransform{}, false
	}

	lb, ok := mapper.Contain(natural, container)
	if !ok {
		return entity.FrameOverlayTransform{}, false
	}

	leftEye := lb.ToDisplay(landmarks.LeftEye.X, landmarks.LeftEye.Y)
	rightEye := lb.ToDisplay(landmarks.RightEye.X, landmarks.RightEye.Y)
	faceLeft := lb.ToDisplay(landmarks.FaceLeft.X, landmarks.FaceLeft.Y)
	faceRight := lb.ToDisplay(landmarks.FaceRight.X, landmarks.FaceRight.Y)

	faceWidthPx := math.Abs(faceRight.X - faceLeft.X)
	if faceWidthPx <= 0 {
		return entity.FrameOverlayTransform{}, false
	}
	mmToPx := faceWidthPx / faceWidthMm
	pdDisplayPx := pdMm * mmToPx

	dx := rightEye.X - leftEye.X
	dy := rightEye.Y - leftEye.Y
	angleRad := math.Atan2(dy, dx)
	if math.Abs(angleRad*180/math.Pi) < e.opts.SnapDegrees {
		angleRad = 0
	}

	anchor := leftEye.Midpoint(rightEye)
	if e.opts.Anchor == AnchorBridge && landmarks.Bridge != nil {
		anchor = lb.ToDisplay(landmarks.Bridge.X, landmarks.Bridge.Y)
	}

	return entity.FrameOverlayTransform{
		MidX:          anchor.X,
		MidY:          anchor.Y,
		ScaleFactor:   pdDisplayPx / frame.OpticalCenterDistancePx,
		AngleRad:      angleRad,
		Fit:           fit.Classify(frame.PhysicalWidth, faceWidthMm),
		EyeDistancePx: math.Hypot(dx, dy),
		PDDisplayPx:   pdDisplayPx,
	}, true
}

// RenderTransform is the final placement of the overlay image, applied about
// the overlay image's own centre: translate(X,Y) rotate(RotationRad) scale(Scale).
type RenderTransform struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	RotationRad float64 `json:"rotation_rad"`
	Scale       float64 `json:"scale"`
	// Relative is set for the placeholder, whose X and Y are fractions of the
	// container instead of pixels.
	Relative bool `json:"relative"`
}

// CSS renders the transform the way a browser surface consumes it.
func (r RenderTransform) CSS() string {
	return fmt.Sprintf("translate(-50%%, -50%%) rotate(%grad) scale(%g)", r.RotationRad, r.Scale)
}

func Render(t entity.FrameOverlayTransform, adj entity.AdjustmentValues) RenderTransform {
	scaleAdjust := adj.ScaleAdjust
	if scaleAdjust == 0 {
		scaleAdjust = 1
	}
	return RenderTransform{
		X:           t.MidX + adj.OffsetX,
		Y:           t.MidY + adj.OffsetY,
		RotationRad: t.AngleRad + adj.RotationAdjust*math.Pi/180,
		Scale:       t.ScaleFactor * scaleAdjust,
	}
}

// Placeholder is the centred fallback used when geometry is degenerate.
func Placeholder() RenderTransform {
	return RenderTransform{X: 0.5, Y: 0.45, Scale: 0.38, Relative: true}
}
