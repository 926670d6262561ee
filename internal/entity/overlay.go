package entity

type FitCategory string

const (
	FitTight   FitCategory = "tight"
	FitPerfect FitCategory = "perfect"
	FitLoose   FitCategory = "loose"
)

var fitLabels = map[FitCategory]string{
	FitTight:   "Tight Fit",
	FitPerfect: "Perfect Fit",
	FitLoose:   "Loose Fit",
}

var fitMessages = map[FitCategory]string{
	FitTight:   "This frame may feel narrow on your face.",
	FitPerfect: "This frame fits your face perfectly!",
	FitLoose:   "This frame has a relaxed, looser fit.",
}

func (f FitCategory) Label() string {
	if l, ok := fitLabels[f]; ok {
		return l
	}
	return "Unknown"
}

func (f FitCategory) Message() string {
	return fitMessages[f]
}

type FrameOverlayTransform struct {
	MidX          float64     `json:"mid_x"`
	MidY          float64     `json:"mid_y"`
	ScaleFactor   float64     `json:"scale_factor"`
	AngleRad      float64     `json:"angle_rad"`
	Fit           FitCategory `json:"fit"`
	EyeDistancePx float64     `json:"eye_distance_px"`
	PDDisplayPx   float64     `json:"pd_display_px"`
}
