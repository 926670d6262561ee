// Package validation grades a single preview frame against the geometric and
// photometric constraints a capture must satisfy.
package validation

import (
	"PerfectFit/internal/entity"
	"math"
)

const (
	MsgNoFace        = "No face detected"
	MsgMultipleFaces = "Multiple faces detected"
	MsgWaitingFace   = "Waiting for face"
	MsgMoveLeft      = "Move left"
	MsgMoveRight     = "Move right"
	MsgMoveUp        = "Move up"
	MsgMoveDown      = "Move down"
	MsgMoveCloser    = "Move closer"
	MsgMoveBack      = "Move back"
	MsgTiltLeft      = "Tilt head left"
	MsgTiltRight     = "Tilt head right"
	MsgTurnLeft      = "Turn head left"
	MsgTurnRight     = "Turn head right"
	MsgCheckLighting = "Checking lighting"
	MsgTooDark       = "Too dark"
	MsgTooBright     = "Too bright"
	MsgShadows       = "Uneven lighting, shadows on face"
	MsgEyesClosed    = "Open your eyes"

	msgCentered   = "Face centered"
	msgDistanceOK = "Good distance"
	msgStraight   = "Head straight"
	msgFacing     = "Facing camera"
	msgLightingOK = "Good lighting"
	msgEyesOpen   = "Eyes open"
	msgFaceOK     = "Face detected"
)

// PixelStats summarizes the luminance of the face region on a 0-255 scale.
type PixelStats struct {
	MeanLuminance  float64 `json:"mean_luminance"`
	StdDev         float64 `json:"std_dev"`
	LeftRightDelta float64 `json:"left_right_delta"`
}

// Sample is the latest reading for one preview frame. Landmarks are
// normalized to the preview as displayed. FrameWidth and FrameHeight are used
// to measure angles in pixel space; zero means a square frame.
type Sample struct {
	FaceCount   int                   `json:"face_count"`
	Landmarks   *entity.FaceLandmarks `json:"landmarks,omitempty"`
	Pixels      *PixelStats           `json:"pixels,omitempty"`
	FrameWidth  float64               `json:"frame_width"`
	FrameHeight float64               `json:"frame_height"`
}

type Debug struct {
	FaceWidthRatio float64 `json:"face_width_ratio"`
	TiltDeg        float64 `json:"tilt_deg"`
	YawDeg         float64 `json:"yaw_deg"`
	LeftEAR        float64 `json:"left_ear"`
	RightEAR       float64 `json:"right_ear"`
}

type Result struct {
	Checks          []entity.ValidationCheck `json:"checks"`
	AllChecksPassed bool                     `json:"all_checks_passed"`
	Debug           Debug                    `json:"debug"`
}

// Failing returns the first failing check in priority order.
func (r Result) Failing() (entity.ValidationCheck, bool) {
	for _, c := range r.Checks {
		if !c.Passed {
			return c, true
		}
	}
	return entity.ValidationCheck{}, false
}

type Engine struct {
	th Thresholds
}

func New(th Thresholds) *Engine {
	return &Engine{th: th}
}

func (e *Engine) Thresholds() Thresholds {
	return e.th
}

// Evaluate never fails: missing landmarks or pixel data fail the checks that
// depend on them.
func (e *Engine) Evaluate(s Sample) Result {
	var res Result
	checks := make([]entity.ValidationCheck, 0, len(entity.CheckPriority))

	faceCount := s.FaceCount
	if faceCount == 0 && s.Landmarks != nil {
		faceCount = 1
	}

	faceOK := faceCount == 1 && s.Landmarks != nil
	switch {
	case faceCount > 1:
		checks = append(checks, fail(entity.CheckFaceDetected, MsgMultipleFaces))
	case !faceOK:
		checks = append(checks, fail(entity.CheckFaceDetected, MsgNoFace))
	default:
		checks = append(checks, pass(entity.CheckFaceDetected, msgFaceOK))
	}

	if faceOK {
		l := *s.Landmarks
		w, h := frameDims(s)

		checks = append(checks, e.checkOval(l))

		ratio := faceWidthRatio(l)
		res.Debug.FaceWidthRatio = ratio
		checks = append(checks, e.checkDistance(ratio))

		tilt := rollDegrees(l, w, h)
		res.Debug.TiltDeg = tilt
		checks = append(checks, e.checkTilt(tilt))

		yaw := yawDegrees(l)
		res.Debug.YawDeg = yaw
		checks = append(checks, e.checkYaw(yaw))

		checks = append(checks, e.checkLighting(s.Pixels))

		left, right := e.eyeAspectRatios(l, w, h)
		res.Debug.LeftEAR, res.Debug.RightEAR = left, right
		checks = append(checks, e.checkEyes(left, right))
	} else {
		checks = append(checks,
			fail(entity.CheckFaceInOval, MsgWaitingFace),
			fail(entity.CheckDistance, MsgWaitingFace),
			fail(entity.CheckTilt, MsgWaitingFace),
			fail(entity.CheckRotation, MsgWaitingFace),
			e.checkLighting(s.Pixels),
			fail(entity.CheckEyesOpen, MsgWaitingFace),
		)
	}

	res.Checks = checks
	res.AllChecksPassed = entity.AllChecksPassed(checks)
	return res
}

func (e *Engine) checkOval(l entity.FaceLandmarks) entity.ValidationCheck {
	o := e.th.Oval
	cx, cy := faceCenter(l)
	dx := (cx - o.CenterX) / o.RadiusX
	dy := (cy - o.CenterY) / o.RadiusY

	if dx*dx+dy*dy <= 1 {
		return pass(entity.CheckFaceInOval, msgCentered)
	}

	if math.Abs(dx) >= math.Abs(dy) {
		if dx < 0 {
			return fail(entity.CheckFaceInOval, MsgMoveRight)
		}
		return fail(entity.CheckFaceInOval, MsgMoveLeft)
	}
	if dy < 0 {
		return fail(entity.CheckFaceInOval, MsgMoveDown)
	}
	return fail(entity.CheckFaceInOval, MsgMoveUp)
}

func (e *Engine) checkDistance(ratio float64) entity.ValidationCheck {
	switch {
	case ratio < e.th.MinFaceWidthRatio:
		return fail(entity.CheckDistance, MsgMoveCloser)
	case ratio > e.th.MaxFaceWidthRatio:
		return fail(entity.CheckDistance, MsgMoveBack)
	default:
		return pass(entity.CheckDistance, msgDistanceOK)
	}
}

// A positive roll means the image-right eye sits lower.
func (e *Engine) checkTilt(deg float64) entity.ValidationCheck {
	switch {
	case deg > e.th.MaxTiltDeg:
		return fail(entity.CheckTilt, MsgTiltLeft)
	case deg < -e.th.MaxTiltDeg:
		return fail(entity.CheckTilt, MsgTiltRight)
	default:
		return pass(entity.CheckTilt, msgStraight)
	}
}

// A positive yaw means the nose has moved towards the image-left ear.
func (e *Engine) checkYaw(deg float64) entity.ValidationCheck {
	switch {
	case deg > e.th.MaxYawDeg:
		return fail(entity.CheckRotation, MsgTurnRight)
	case deg < -e.th.MaxYawDeg:
		return fail(entity.CheckRotation, MsgTurnLeft)
	default:
		return pass(entity.CheckRotation, msgFacing)
	}
}

func (e *Engine) checkLighting(p *PixelStats) entity.ValidationCheck {
	switch {
	case p == nil:
		return fail(entity.CheckLighting, MsgCheckLighting)
	case p.MeanLuminance < e.th.MinLuminance:
		return fail(entity.CheckLighting, MsgTooDark)
	case p.MeanLuminance > e.th.MaxLuminance:
		return fail(entity.CheckLighting, MsgTooBright)
	case p.LeftRightDelta > e.th.MaxShadowDelta:
		return fail(entity.CheckLighting, MsgShadows)
	default:
		return pass(entity.CheckLighting, msgLightingOK)
	}
}

func (e *Engine) checkEyes(left, right float64) entity.ValidationCheck {
	if left >= e.th.MinEyeAspectRatio && right >= e.th.MinEyeAspectRatio {
		return pass(entity.CheckEyesOpen, msgEyesOpen)
	}
	return fail(entity.CheckEyesOpen, MsgEyesClosed)
}

func (e *Engine) eyeAspectRatios(l entity.FaceLandmarks, w, h float64) (float64, float64) {
	ipd := math.Hypot((l.RightEye.X-l.LeftEye.X)*w, (l.RightEye.Y-l.LeftEye.Y)*h)
	eyeWidth := ipd * e.th.EyeWidthFromIPD
	if eyeWidth <= 0 {
		return 0, 0
	}

	lid := func(upper, lower entity.Point3D) float64 {
		return math.Hypot((upper.X-lower.X)*w, (upper.Y-lower.Y)*h)
	}
	return lid(l.LeftEyeUpper, l.LeftEyeLower) / eyeWidth,
		lid(l.RightEyeUpper, l.RightEyeLower) / eyeWidth
}

func faceCenter(l entity.FaceLandmarks) (float64, float64) {
	eye := l.EyeCenter()
	if l.HasFaceEdges() {
		return (l.FaceLeft.X + l.FaceRight.X) / 2, eye.Y
	}
	return eye.X, eye.Y
}

func faceWidthRatio(l entity.FaceLandmarks) float64 {
	if l.HasFaceEdges() {
		return math.Abs(l.FaceRight.X - l.FaceLeft.X)
	}
	return math.Abs(l.RightEye.X-l.LeftEye.X) * 1.8
}

func rollDegrees(l entity.FaceLandmarks, w, h float64) float64 {
	dx := (l.RightEye.X - l.LeftEye.X) * w
	dy := (l.RightEye.Y - l.LeftEye.Y) * h
	if dx == 0 && dy == 0 {
		return 0
	}
	return math.Atan2(dy, dx) * 180 / math.Pi
}

// yawDegrees approximates head yaw from how far the nose tip sits from each
// ear. Face edges stand in for ears when the ears were not reported.
func yawDegrees(l entity.FaceLandmarks) float64 {
	left, right := l.LeftEar, l.RightEar
	if left.X == right.X {
		left, right = l.FaceLeft, l.FaceRight
	}

	dl := math.Abs(l.NoseTip.X - left.X)
	dr := math.Abs(right.X - l.NoseTip.X)
	if dl+dr == 0 {
		return 0
	}

	ratio := (dr - dl) / (dl + dr)
	ratio = math.Max(-1, math.Min(1, ratio))
	return math.Asin(ratio) * 180 / math.Pi
}

func frameDims(s Sample) (float64, float64) {
	if s.FrameWidth <= 0 || s.FrameHeight <= 0 {
		return 1, 1
	}
	return s.FrameWidth, s.FrameHeight
}

func pass(id entity.CheckID, msg string) entity.ValidationCheck {
	return entity.ValidationCheck{ID: id, Passed: true, Message: msg}
}

func fail(id entity.CheckID, msg string) entity.ValidationCheck {
	return entity.ValidationCheck{ID: id, Passed: false, Message: msg}
}
