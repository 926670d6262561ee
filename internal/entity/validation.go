package entity

type CheckID string

const (
	CheckFaceDetected CheckID = "face-detected"
	CheckFaceInOval   CheckID = "face-in-oval"
	CheckDistance     CheckID = "distance"
	CheckTilt         CheckID = "head-straight"
	CheckRotation     CheckID = "no-rotation"
	CheckLighting     CheckID = "lighting"
	CheckEyesOpen     CheckID = "eyes-open"
)

// CheckPriority is the order in which failing checks are reported to the user.
var CheckPriority = []CheckID{
	CheckFaceDetected,
	CheckFaceInOval,
	CheckDistance,
	CheckTilt,
	CheckRotation,
	CheckLighting,
	CheckEyesOpen,
}

type ValidationCheck struct {
	ID      CheckID `json:"id"`
	Passed  bool    `json:"passed"`
	Message string  `json:"message"`
}

func AllChecksPassed(checks []ValidationCheck) bool {
	if len(checks) == 0 {
		return false
	}
	for _, c := range checks {
		if !c.Passed {
			return false
		}
	}
	return true
}
