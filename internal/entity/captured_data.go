package entity

import "time"

type CropRect struct {
	FullWidth  float64 `json:"full_width"`
	FullHeight float64 `json:"full_height"`
	SX         float64 `json:"sx"`
	SY         float64 `json:"sy"`
	SW         float64 `json:"sw"`
	SH         float64 `json:"sh"`
}

func (r CropRect) Valid() bool {
	return r.SX >= 0 && r.SY >= 0 &&
		r.SW > 0 && r.SH > 0 &&
		r.SX+r.SW <= r.FullWidth && r.SY+r.SH <= r.FullHeight
}

type SelectedFrameInfo struct {
	FrameID       string      `json:"frame_id"`
	Name          string      `json:"name"`
	Fit           FitCategory `json:"fit"`
	FitLabel      string      `json:"fit_label"`
	Category      string      `json:"category"`
	Color         string      `json:"color"`
	Width         float64     `json:"width"`
	LensWidth     float64     `json:"lens_width"`
	NoseBridge    float64     `json:"nose_bridge"`
	TempleLength  float64     `json:"temple_length"`
	FittingHeight *float64    `json:"fitting_height,omitempty"`
	CompositeURL  string      `json:"composite_url,omitempty"`
}

type CapturedData struct {
	ID                string             `json:"id"`
	RawImage          string             `json:"raw_image"`
	ProcessedImage    string             `json:"processed_image"`
	GlassesDetected   bool               `json:"glasses_detected"`
	Landmarks         FaceLandmarks      `json:"landmarks"`
	CropRect          *CropRect          `json:"crop_rect,omitempty"`
	Measurements      Measurements       `json:"measurements"`
	FaceShape         string             `json:"face_shape"`
	FrameAdjustments  *AdjustmentValues  `json:"frame_adjustments,omitempty"`
	SelectedFrameInfo *SelectedFrameInfo `json:"selected_frame_info,omitempty"`
	Timestamp         time.Time          `json:"timestamp"`
}

func (c *CapturedData) HasCrop() bool {
	return c.CropRect != nil && c.CropRect.Valid()
}
