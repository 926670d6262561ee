package tryon

import (
	"PerfectFit/internal/entity"
	"PerfectFit/pkg/overlay"
)

// Display surfaces. Product surfaces letterbox the capture, so saved pixel
// offsets are dropped there.
const (
	SurfacePreview = "preview"
	SurfaceProduct = "product"
)

type Size struct {
	Width  float64 `json:"width" validate:"gte=0"`
	Height float64 `json:"height" validate:"gte=0"`
}

// OverlayRequest places a frame either on a stored capture (SessionID) or on
// landmarks and measurements supplied by the caller.
type OverlayRequest struct {
	FrameID     string                   `json:"frame_id" validate:"required"`
	SessionID   string                   `json:"session_id,omitempty"`
	Landmarks   *entity.FaceLandmarks    `json:"landmarks,omitempty"`
	CropRect    *entity.CropRect         `json:"crop_rect,omitempty"`
	FaceWidthMm float64                  `json:"face_width_mm" validate:"gte=0"`
	PDMm        float64                  `json:"pd_mm" validate:"gte=0"`
	Container   Size                     `json:"container"`
	Natural     Size                     `json:"natural"`
	Surface     string                   `json:"surface,omitempty" validate:"omitempty,oneof=preview product"`
	Dimensions  string                   `json:"dimensions,omitempty"`
	Adjustments *entity.AdjustmentValues `json:"adjustments,omitempty"`
}

type OverlayResponse struct {
	FrameID     string                        `json:"frame_id"`
	Transform   *entity.FrameOverlayTransform `json:"transform,omitempty"`
	Render      overlay.RenderTransform       `json:"render"`
	CSS         string                        `json:"css"`
	Placeholder bool                          `json:"placeholder"`
	Adjustments entity.AdjustmentValues       `json:"adjustments"`
	Fit         entity.FitCategory            `json:"fit,omitempty"`
	FitLabel    string                        `json:"fit_label,omitempty"`
	FitMessage  string                        `json:"fit_message,omitempty"`
}

type FitRequest struct {
	FrameWidthMm float64 `json:"frame_width_mm" validate:"gt=0"`
	FaceWidthMm  float64 `json:"face_width_mm" validate:"gt=0"`
}

type FitResponse struct {
	Fit     entity.FitCategory `json:"fit"`
	Label   string             `json:"label"`
	Message string             `json:"message"`
	DiffMm  float64            `json:"diff_mm"`
}

type FrameView struct {
	entity.GlassesFrame
	Dimensions string             `json:"dimensions"`
	Fit        entity.FitCategory `json:"fit,omitempty"`
	FitLabel   string             `json:"fit_label,omitempty"`
}

type AdjustmentsResponse struct {
	SessionID   string                  `json:"session_id"`
	Adjustments entity.AdjustmentValues `json:"adjustments"`
	Saved       bool                    `json:"saved"`
}

type SelectFrameRequest struct {
	FrameID string `json:"frame_id" validate:"required"`
}

type CompositeRequest struct {
	FrameID     string                   `json:"frame_id" validate:"required"`
	Adjustments *entity.AdjustmentValues `json:"adjustments,omitempty"`
}

type CompositeResponse struct {
	Image         string                    `json:"image"`
	SelectedFrame *entity.SelectedFrameInfo `json:"selected_frame"`
}
