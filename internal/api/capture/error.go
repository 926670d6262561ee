package capture

import (
	"PerfectFit/pkg/response"
	"fmt"
	"net/http"
)

var (
	ErrSessionNotFound   = response.NewError(http.StatusNotFound, "capture session not found")
	ErrCaptureNotFound   = response.NewError(http.StatusNotFound, "captured data not found")
	ErrSessionClosed     = response.NewError(http.StatusGone, "capture session is closed")
	ErrCaptureInProgress = response.NewError(http.StatusConflict, "a capture is already in progress")
	ErrInvalidTransition = response.NewError(http.StatusConflict, "action not allowed in the current capture state")
	ErrNoLandmarks       = response.NewError(http.StatusUnprocessableEntity, "no face landmarks available for capture")
	ErrNoFrame           = response.NewError(http.StatusUnprocessableEntity, "no preview frame available for capture")
	ErrInvalidFrame      = response.NewError(http.StatusBadRequest, "invalid preview frame")
	ErrStepFailed        = response.NewError(http.StatusBadGateway, "image processing step failed")
)

// StepError reports which processing step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{ErrStepFailed, e.Err}
}
