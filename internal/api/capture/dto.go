package capture

import (
	"PerfectFit/internal/entity"
	"PerfectFit/pkg/validation"
)

// Inbound websocket message types.
const (
	MessageStart        = "start"
	MessageFrame        = "frame"
	MessageCapture      = "capture"
	MessageRetry        = "retry"
	MessageSwitchCamera = "switch_camera"
	MessageStop         = "stop"
)

// Outbound websocket event types.
const (
	EventSession       = "session"
	EventState         = "state"
	EventValidation    = "validation"
	EventGuidance      = "guidance"
	EventGuidanceClear = "guidance_clear"
	EventSpeech        = "speech"
	EventCaptured      = "captured"
	EventReleaseCamera = "release_camera"
	EventError         = "error"
)

// InboundMessage is one client message. A start message carrying Error
// reports that the camera could not be opened.
type InboundMessage struct {
	Type  string        `json:"type" validate:"required,oneof=start frame capture retry switch_camera stop"`
	Frame *FrameRequest `json:"frame,omitempty" validate:"required_if=Type frame"`
	Error string        `json:"error,omitempty"`
}

// FrameRequest is one preview frame. Image is a data URL or base64 JPEG/PNG;
// Landmarks may be sent instead of, or with, the image when the client runs
// its own landmark model. A capture triggered by a frame without an image
// fails at the snapshot step.
type FrameRequest struct {
	Image     string                `json:"image,omitempty"`
	Landmarks *entity.FaceLandmarks `json:"landmarks,omitempty"`
	FaceCount *int                  `json:"face_count,omitempty" validate:"omitempty,gte=0"`
	Width     float64               `json:"width" validate:"gte=0"`
	Height    float64               `json:"height" validate:"gte=0"`
	Mirrored  bool                  `json:"mirrored"`
	// Pixels lets landmark-only clients report face-region luminance.
	Pixels *validation.PixelStats `json:"pixels,omitempty"`
}

type StateView struct {
	SessionID       string `json:"session_id"`
	State           string `json:"state"`
	Step            string `json:"step,omitempty"`
	FailedStep      string `json:"failed_step,omitempty"`
	Error           string `json:"error,omitempty"`
	GlassesDetected bool   `json:"glasses_detected"`
	Closed          bool   `json:"closed"`
}

type GuidanceView struct {
	CheckID entity.CheckID `json:"check_id,omitempty"`
	Message string         `json:"message,omitempty"`
	Spoken  string         `json:"spoken,omitempty"`
}

type SpeechView struct {
	Text  string `json:"text"`
	Audio []byte `json:"audio,omitempty"`
}

type OutboundEvent struct {
	Type       string               `json:"type"`
	State      *StateView           `json:"state,omitempty"`
	Validation *validation.Result   `json:"validation,omitempty"`
	Guidance   *GuidanceView        `json:"guidance,omitempty"`
	Speech     *SpeechView          `json:"speech,omitempty"`
	Captured   *entity.CapturedData `json:"captured,omitempty"`
	Error      string               `json:"error,omitempty"`
}

type CapturedResponse struct {
	Captured     *entity.CapturedData `json:"captured"`
	PDConfidence entity.PDConfidence  `json:"pd_confidence"`
}
