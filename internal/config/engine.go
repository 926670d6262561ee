package config

import (
	captureService "PerfectFit/internal/api/capture/service"
	"PerfectFit/pkg/overlay"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// EngineConfig gathers the tunables of capture and try-on.
type EngineConfig struct {
	Capture         captureService.Config
	Overlay         overlay.Options
	CaptureTTL      time.Duration
	FrameAssetDir   string
	GlassesDetector string
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Capture:         captureService.DefaultConfig(),
		Overlay:         overlay.DefaultOptions(),
		CaptureTTL:      24 * time.Hour,
		FrameAssetDir:   "./assets",
		GlassesDetector: "remote",
	}
}

// LoadEngineConfig reads overrides from the environment. Malformed values
// are logged and ignored.
func LoadEngineConfig(log *logrus.Logger) EngineConfig {
	cfg := DefaultEngineConfig()
	env := envReader{log: log}

	t := &cfg.Capture.Validation
	env.float("VALIDATION_OVAL_CENTER_X", &t.Oval.CenterX)
	env.float("VALIDATION_OVAL_CENTER_Y", &t.Oval.CenterY)
	env.float("VALIDATION_OVAL_RADIUS_X", &t.Oval.RadiusX)
	env.float("VALIDATION_OVAL_RADIUS_Y", &t.Oval.RadiusY)
	env.float("VALIDATION_MIN_FACE_WIDTH_RATIO", &t.MinFaceWidthRatio)
	env.float("VALIDATION_MAX_FACE_WIDTH_RATIO", &t.MaxFaceWidthRatio)
	env.float("VALIDATION_MAX_TILT_DEG", &t.MaxTiltDeg)
	env.float("VALIDATION_MAX_YAW_DEG", &t.MaxYawDeg)
	env.float("VALIDATION_MIN_LUMINANCE", &t.MinLuminance)
	env.float("VALIDATION_MAX_LUMINANCE", &t.MaxLuminance)
	env.float("VALIDATION_MAX_SHADOW_DELTA", &t.MaxShadowDelta)
	env.float("VALIDATION_MIN_EYE_ASPECT_RATIO", &t.MinEyeAspectRatio)

	env.duration("GUIDANCE_DEBOUNCE", &cfg.Capture.Guidance.Debounce)
	env.duration("GUIDANCE_HOLD_AFTER", &cfg.Capture.Guidance.HoldAfter)
	env.boolean("CAPTURE_PASSPORT_CROP", &cfg.Capture.PassportCrop)
	env.duration("CAPTURE_PIXEL_STATS_INTERVAL", &cfg.Capture.PixelStatsInterval)
	env.duration("CAPTURE_STEP_TIMEOUT", &cfg.Capture.StepTimeout)
	env.duration("CAPTURE_TTL", &cfg.CaptureTTL)

	env.float("OVERLAY_SNAP_DEGREES", &cfg.Overlay.SnapDegrees)
	if v := os.Getenv("OVERLAY_ANCHOR"); v != "" {
		switch overlay.Anchor(v) {
		case overlay.AnchorEyeMidpoint, overlay.AnchorBridge:
			cfg.Overlay.Anchor = overlay.Anchor(v)
		default:
			env.invalid("OVERLAY_ANCHOR", v)
		}
	}

	if v := os.Getenv("FRAME_ASSET_DIR"); v != "" {
		cfg.FrameAssetDir = v
	}
	if v := os.Getenv("GLASSES_DETECTOR"); v != "" {
		cfg.GlassesDetector = strings.ToLower(v)
	}

	return cfg
}

type envReader struct {
	log *logrus.Logger
}

func (e envReader) invalid(key, value string) {
	if e.log != nil {
		e.log.WithFields(logrus.Fields{
			"key":   key,
			"value": value,
		}).Warn("Ignoring invalid configuration value")
	}
}

func (e envReader) float(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.invalid(key, v)
		return
	}
	*dst = f
}

func (e envReader) duration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		e.invalid(key, v)
		return
	}
	*dst = d
}

func (e envReader) boolean(key string, dst *bool) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.invalid(key, v)
		return
	}
	*dst = b
}
