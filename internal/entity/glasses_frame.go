package entity

import (
	"PerfectFit/pkg/response"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

var (
	ErrMissingCalibration = response.NewError(http.StatusInternalServerError, "frame is missing optical center calibration")
	ErrInvalidDimensions  = response.NewError(http.StatusBadRequest, "invalid frame dimensions")
)

type AdjustmentValues struct {
	OffsetX        float64 `json:"offset_x" validate:"gte=-200,lte=200"`
	OffsetY        float64 `json:"offset_y" validate:"gte=-200,lte=200"`
	ScaleAdjust    float64 `json:"scale_adjust" validate:"gt=0,lte=3"`
	RotationAdjust float64 `json:"rotation_adjust" validate:"gte=-45,lte=45"`
}

var DefaultAdjustments = AdjustmentValues{ScaleAdjust: 1.0}

// ProductSurfaceAdjustments is used on product pages when the session has no
// saved adjustments.
var ProductSurfaceAdjustments = AdjustmentValues{OffsetX: -14, OffsetY: -23, ScaleAdjust: 1.3}

// ForContainSurface drops pixel offsets. Offsets saved on a cover-fit preview do
// not carry over to a letterboxed surface.
func (a AdjustmentValues) ForContainSurface() AdjustmentValues {
	a.OffsetX = 0
	a.OffsetY = 0
	return a
}

type GlassesFrame struct {
	ID                      string           `json:"id" db:"id"`
	Name                    string           `json:"name" db:"name"`
	ImageAsset              string           `json:"image_asset" db:"image_asset"`
	Category                string           `json:"category" db:"category"`
	Color                   string           `json:"color" db:"color"`
	PhysicalWidth           float64          `json:"physical_width" db:"physical_width"`
	LensWidth               float64          `json:"lens_width" db:"lens_width"`
	NoseBridge              float64          `json:"nose_bridge" db:"nose_bridge"`
	TempleLength            float64          `json:"temple_length" db:"temple_length"`
	OpticalCenterDistancePx float64          `json:"optical_center_distance_px" db:"optical_center_distance_px"`
	DefaultAdjustments      AdjustmentValues `json:"default_adjustments"`
}

func (f *GlassesFrame) Validate() error {
	if f.OpticalCenterDistancePx <= 0 {
		return fmt.Errorf("frame %q: %w", f.ID, ErrMissingCalibration)
	}
	return nil
}

// Dimensions renders the catalog string "lens-bridge-temple-width".
func (f *GlassesFrame) Dimensions() string {
	return fmt.Sprintf("%s-%s-%s-%s",
		formatMm(f.LensWidth), formatMm(f.NoseBridge), formatMm(f.TempleLength), formatMm(f.PhysicalWidth))
}

type FrameDimensions struct {
	LensWidth    float64 `json:"lens_width"`
	NoseBridge   float64 `json:"nose_bridge"`
	TempleLength float64 `json:"temple_length"`
	Width        float64 `json:"width"`
}

func ParseDimensions(s string) (FrameDimensions, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 4 {
		return FrameDimensions{}, ErrInvalidDimensions
	}

	values := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v <= 0 {
			return FrameDimensions{}, ErrInvalidDimensions
		}
		values[i] = v
	}

	return FrameDimensions{
		LensWidth:    values[0],
		NoseBridge:   values[1],
		TempleLength: values[2],
		Width:        values[3],
	}, nil
}

func formatMm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
