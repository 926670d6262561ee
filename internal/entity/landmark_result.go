package entity

type LandmarkStatus string

const (
	LandmarkStatusOK            LandmarkStatus = "ok"
	LandmarkStatusNoFace        LandmarkStatus = "no_face"
	LandmarkStatusMultipleFaces LandmarkStatus = "multiple_faces"
)

// LandmarkResult is one reading of the landmark provider. Landmarks is set only
// when exactly one face was found.
type LandmarkResult struct {
	Status    LandmarkStatus `json:"status"`
	FaceCount int            `json:"face_count"`
	Landmarks *FaceLandmarks `json:"landmarks,omitempty"`
	Width     float64        `json:"width,omitempty"`
	Height    float64        `json:"height,omitempty"`
}

// Normalize reconciles status, count and landmarks so consumers can rely on
// any one of them.
func (r *LandmarkResult) Normalize() {
	switch {
	case r.FaceCount > 1 || r.Status == LandmarkStatusMultipleFaces:
		r.Status = LandmarkStatusMultipleFaces
		if r.FaceCount < 2 {
			r.FaceCount = 2
		}
		r.Landmarks = nil
	case r.Landmarks != nil:
		r.Status = LandmarkStatusOK
		r.FaceCount = 1
	default:
		r.Status = LandmarkStatusNoFace
		r.FaceCount = 0
	}
}
