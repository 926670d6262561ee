package entity

type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FaceLandmarks holds normalized points of a single face. X and Y are in [0,1]
// relative to the image the landmarks were produced for.
type FaceLandmarks struct {
	LeftEye       Point3D  `json:"left_eye"`
	RightEye      Point3D  `json:"right_eye"`
	NoseTip       Point3D  `json:"nose_tip"`
	LeftEar       Point3D  `json:"left_ear"`
	RightEar      Point3D  `json:"right_ear"`
	Chin          Point3D  `json:"chin"`
	Forehead      Point3D  `json:"forehead"`
	LeftEyeUpper  Point3D  `json:"left_eye_upper"`
	LeftEyeLower  Point3D  `json:"left_eye_lower"`
	RightEyeUpper Point3D  `json:"right_eye_upper"`
	RightEyeLower Point3D  `json:"right_eye_lower"`
	FaceLeft      Point3D  `json:"face_left"`
	FaceRight     Point3D  `json:"face_right"`
	Bridge        *Point3D `json:"bridge,omitempty"`
}

// Map returns a copy of the landmarks with fn applied to every point.
func (l FaceLandmarks) Map(fn func(Point3D) Point3D) FaceLandmarks {
	out := FaceLandmarks{
		LeftEye:       fn(l.LeftEye),
		RightEye:      fn(l.RightEye),
		NoseTip:       fn(l.NoseTip),
		LeftEar:       fn(l.LeftEar),
		RightEar:      fn(l.RightEar),
		Chin:          fn(l.Chin),
		Forehead:      fn(l.Forehead),
		LeftEyeUpper:  fn(l.LeftEyeUpper),
		LeftEyeLower:  fn(l.LeftEyeLower),
		RightEyeUpper: fn(l.RightEyeUpper),
		RightEyeLower: fn(l.RightEyeLower),
		FaceLeft:      fn(l.FaceLeft),
		FaceRight:     fn(l.FaceRight),
	}
	if l.Bridge != nil {
		b := fn(*l.Bridge)
		out.Bridge = &b
	}
	return out
}

// Mirrored returns the landmarks of the horizontally flipped image. Left/right
// pairs are swapped so that "left" keeps meaning image-left.
func (l FaceLandmarks) Mirrored() FaceLandmarks {
	m := l.Map(func(p Point3D) Point3D {
		return Point3D{X: 1 - p.X, Y: p.Y, Z: p.Z}
	})

	m.LeftEye, m.RightEye = m.RightEye, m.LeftEye
	m.LeftEar, m.RightEar = m.RightEar, m.LeftEar
	m.LeftEyeUpper, m.RightEyeUpper = m.RightEyeUpper, m.LeftEyeUpper
	m.LeftEyeLower, m.RightEyeLower = m.RightEyeLower, m.LeftEyeLower
	m.FaceLeft, m.FaceRight = m.FaceRight, m.FaceLeft

	return m
}

func (l FaceLandmarks) EyeCenter() Point3D {
	return Point3D{
		X: (l.LeftEye.X + l.RightEye.X) / 2,
		Y: (l.LeftEye.Y + l.RightEye.Y) / 2,
		Z: (l.LeftEye.Z + l.RightEye.Z) / 2,
	}
}

func (l FaceLandmarks) HasFaceEdges() bool {
	return l.FaceRight.X != l.FaceLeft.X
}
