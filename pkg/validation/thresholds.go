package validation

// Oval is the on-screen target zone for the face centre, in normalized
// coordinates of the preview frame.
type Oval struct {
	CenterX float64
	CenterY float64
	RadiusX float64
	RadiusY float64
}

type Thresholds struct {
	Oval              Oval
	MinFaceWidthRatio float64
	MaxFaceWidthRatio float64
	MaxTiltDeg        float64
	MaxYawDeg         float64
	MinLuminance      float64
	MaxLuminance      float64
	MaxShadowDelta    float64
	MinEyeAspectRatio float64
	// EyeWidthFromIPD estimates one eye's horizontal width from the
	// inter-pupil distance when eye corners are not available.
	EyeWidthFromIPD float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Oval:              Oval{CenterX: 0.5, CenterY: 0.45, RadiusX: 0.18, RadiusY: 0.22},
		MinFaceWidthRatio: 0.15,
		MaxFaceWidthRatio: 0.70,
		MaxTiltDeg:        10,
		MaxYawDeg:         15,
		MinLuminance:      80,
		MaxLuminance:      220,
		MaxShadowDelta:    40,
		MinEyeAspectRatio: 0.12,
		EyeWidthFromIPD:   0.48,
	}
}
