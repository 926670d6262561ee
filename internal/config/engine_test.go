package config

import (
	"PerfectFit/pkg/overlay"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestLoadEngineConfig_Defaults(t *testing.T) {
	cfg := LoadEngineConfig(quietLogger())

	assert.Equal(t, DefaultEngineConfig(), cfg)
	assert.Equal(t, 3.0, cfg.Overlay.SnapDegrees)
}

func TestLoadEngineConfig_Overrides(t *testing.T) {
	t.Setenv("VALIDATION_MAX_TILT_DEG", "7.5")
	t.Setenv("GUIDANCE_DEBOUNCE", "2s")
	t.Setenv("CAPTURE_PASSPORT_CROP", "true")
	t.Setenv("CAPTURE_STEP_TIMEOUT", "30s")
	t.Setenv("OVERLAY_SNAP_DEGREES", "5")
	t.Setenv("OVERLAY_ANCHOR", "bridge")
	t.Setenv("GLASSES_DETECTOR", "Gemini")

	cfg := LoadEngineConfig(quietLogger())

	assert.Equal(t, 7.5, cfg.Capture.Validation.MaxTiltDeg)
	assert.Equal(t, 2*time.Second, cfg.Capture.Guidance.Debounce)
	assert.True(t, cfg.Capture.PassportCrop)
	assert.Equal(t, 30*time.Second, cfg.Capture.StepTimeout)
	assert.Equal(t, 5.0, cfg.Overlay.SnapDegrees)
	assert.Equal(t, overlay.AnchorBridge, cfg.Overlay.Anchor)
	assert.Equal(t, "gemini", cfg.GlassesDetector)
}

func TestLoadEngineConfig_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("VALIDATION_MAX_TILT_DEG", "steep")
	t.Setenv("GUIDANCE_DEBOUNCE", "-1s")
	t.Setenv("CAPTURE_PASSPORT_CROP", "maybe")
	t.Setenv("OVERLAY_ANCHOR", "nose")

	cfg := LoadEngineConfig(quietLogger())
	def := DefaultEngineConfig()

	assert.Equal(t, def.Capture.Validation.MaxTiltDeg, cfg.Capture.Validation.MaxTiltDeg)
	assert.Equal(t, def.Capture.Guidance.Debounce, cfg.Capture.Guidance.Debounce)
	assert.False(t, cfg.Capture.PassportCrop)
	assert.Equal(t, overlay.AnchorEyeMidpoint, cfg.Overlay.Anchor)
}

func TestNewValidator_UsesJSONNames(t *testing.T) {
	type body struct {
		FrameID string `json:"frame_id" validate:"required"`
	}

	err := NewValidator().Struct(body{})
	assert.ErrorContains(t, err, "frame_id")
}
