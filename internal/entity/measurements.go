package entity

type Measurements struct {
	PD              float64 `json:"pd"`
	PDLeft          float64 `json:"pd_left"`
	PDRight         float64 `json:"pd_right"`
	FaceWidth       float64 `json:"face_width"`
	FaceHeight      float64 `json:"face_height"`
	FaceRatio       float64 `json:"face_ratio"`
	NoseBridgeLeft  float64 `json:"nose_bridge_left"`
	NoseBridgeRight float64 `json:"nose_bridge_right"`
}

type PDConfidence string

const (
	PDConfidenceLow    PDConfidence = "low"
	PDConfidenceMedium PDConfidence = "medium"
	PDConfidenceHigh   PDConfidence = "high"
)

// PDConfidence grades the measured PD against the typical adult range.
func (m Measurements) PDConfidence() PDConfidence {
	switch {
	case m.PD >= 54 && m.PD <= 74:
		return PDConfidenceHigh
	case m.PD >= 48 && m.PD <= 80:
		return PDConfidenceMedium
	default:
		return PDConfidenceLow
	}
}
