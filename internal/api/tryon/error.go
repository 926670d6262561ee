package tryon

import (
	"PerfectFit/pkg/response"
	"net/http"
)

var (
	ErrFrameNotFound       = response.NewError(http.StatusNotFound, "frame not found")
	ErrFaceShapeNotFound   = response.NewError(http.StatusNotFound, "no recommendation for face shape")
	ErrMissingMeasurements = response.NewError(http.StatusUnprocessableEntity, "face width and PD are required")
	ErrMissingLandmarks    = response.NewError(http.StatusBadRequest, "landmarks or a capture session are required")
	ErrAssetUnavailable    = response.NewError(http.StatusBadGateway, "image asset could not be loaded")
	ErrCompositeFailed     = response.NewError(http.StatusUnprocessableEntity, "frame cannot be placed on this capture")
	ErrInvalidFaceWidth    = response.NewError(http.StatusBadRequest, "face_width_mm must not be negative")
)
