// Package glassesapi is the client of the remote image-processing service that
// detects and removes eyewear and measures the face.
package glassesapi

import (
	"PerfectFit/internal/entity"
	"PerfectFit/pkg/log"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

var (
	ErrUnsuccessful = errors.New("glasses api reported failure")
	ErrMalformed    = errors.New("glasses api returned a malformed response")
)

type IGlassesAPI interface {
	DetectGlasses(ctx context.Context, image string) (bool, error)
	RemoveGlasses(ctx context.Context, image string) (string, error)
	Measure(ctx context.Context, image string) (*MeasureResult, error)
	SelectFrame(ctx context.Context, req SelectFrameRequest) (*SelectFrameResult, error)
}

type MeasureResult struct {
	Measurements entity.Measurements `json:"measurements"`
	FaceShape    string              `json:"face_shape"`
}

type SelectFrameRequest struct {
	Image      string `json:"image"`
	FrameID    string `json:"frame_id"`
	FrameName  string `json:"frame_name"`
	Dimensions string `json:"dimensions"`
}

type SelectFrameResult struct {
	FittingHeight *float64 `json:"fitting_height,omitempty"`
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type client struct {
	cfg Config
}

func New(cfg Config) IGlassesAPI {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &client{cfg: cfg}
}

func NewFromEnv() (IGlassesAPI, error) {
	baseURL := os.Getenv("GLASSES_API_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("GLASSES_API_URL is not set")
	}

	timeout := 60 * time.Second
	if v := os.Getenv("GLASSES_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid GLASSES_API_TIMEOUT: %w", err)
		}
		timeout = d
	}

	return New(Config{
		BaseURL: baseURL,
		APIKey:  os.Getenv("GLASSES_API_KEY"),
		Timeout: timeout,
	}), nil
}

type imageRequest struct {
	Image string `json:"image"`
}

type baseResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func (r baseResponse) failure() error {
	reason := r.Error
	if reason == "" {
		reason = r.Message
	}
	if reason == "" {
		return ErrUnsuccessful
	}
	return fmt.Errorf("%w: %s", ErrUnsuccessful, reason)
}

func (c *client) DetectGlasses(ctx context.Context, image string) (bool, error) {
	var resp struct {
		baseResponse
		GlassesDetected *bool `json:"glasses_detected"`
	}
	if err := c.post(ctx, "/detect-glasses", imageRequest{Image: image}, &resp); err != nil {
		return false, err
	}
	if !resp.Success {
		return false, resp.failure()
	}
	if resp.GlassesDetected == nil {
		return false, fmt.Errorf("%w: missing glasses_detected", ErrMalformed)
	}
	return *resp.GlassesDetected, nil
}

func (c *client) RemoveGlasses(ctx context.Context, image string) (string, error) {
	var resp struct {
		baseResponse
		EditedImage string `json:"edited_image"`
	}
	if err := c.post(ctx, "/remove-glasses", imageRequest{Image: image}, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", resp.failure()
	}
	if resp.EditedImage == "" {
		return "", fmt.Errorf("%w: missing edited_image", ErrMalformed)
	}
	return resp.EditedImage, nil
}

// Measure accepts both the flat {measurements, face_shape} body and the older
// {landmarks: {mm, face_shape}} body.
func (c *client) Measure(ctx context.Context, image string) (*MeasureResult, error) {
	var resp struct {
		baseResponse
		Measurements *entity.Measurements `json:"measurements"`
		FaceShape    string               `json:"face_shape"`
		Landmarks    *struct {
			MM        *entity.Measurements `json:"mm"`
			FaceShape string               `json:"face_shape"`
		} `json:"landmarks"`
	}
	if err := c.post(ctx, "/detect-landmarks", imageRequest{Image: image}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, resp.failure()
	}

	m, shape := resp.Measurements, resp.FaceShape
	if m == nil && resp.Landmarks != nil {
		m = resp.Landmarks.MM
		if shape == "" {
			shape = resp.Landmarks.FaceShape
		}
	}
	if m == nil {
		return nil, fmt.Errorf("%w: missing measurements", ErrMalformed)
	}

	return &MeasureResult{Measurements: *m, FaceShape: shape}, nil
}

func (c *client) SelectFrame(ctx context.Context, req SelectFrameRequest) (*SelectFrameResult, error) {
	var resp struct {
		baseResponse
		FittingHeight *float64 `json:"fitting_height"`
	}
	if err := c.post(ctx, "/select-frame", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, resp.failure()
	}
	return &SelectFrameResult{FittingHeight: resp.FittingHeight}, nil
}

func (c *client) post(ctx context.Context, path string, body, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := c.cfg.Timeout
	if d, ok := ctx.Deadline(); ok {
		if remaining := time.Until(d); remaining < timeout {
			timeout = remaining
		}
	}

	a := fiber.Post(c.cfg.BaseURL + path)
	a.JSONEncoder(jsoniter.Marshal)
	a.JSON(body)
	a.Timeout(timeout)
	if c.cfg.APIKey != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+c.cfg.APIKey)
	}
	if err := a.Parse(); err != nil {
		return fmt.Errorf("glassesapi %s: %w", path, err)
	}

	code, respBody, errs := a.Bytes()
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(errs) > 0 {
		log.WithRequestID(ctx).WithFields(log.Fields{
			"path":  path,
			"error": errors.Join(errs...).Error(),
		}).Warn("[glassesapi.post] request failed")
		return fmt.Errorf("glassesapi %s: %w", path, errors.Join(errs...))
	}

	if err := jsoniter.Unmarshal(respBody, out); err != nil {
		if code >= fiber.StatusBadRequest {
			return fmt.Errorf("glassesapi %s: status %d: %w", path, code, ErrUnsuccessful)
		}
		return fmt.Errorf("glassesapi %s: %w: %v", path, ErrMalformed, err)
	}
	if code >= fiber.StatusBadRequest {
		if b, ok := out.(interface{ failure() error }); ok {
			return fmt.Errorf("glassesapi %s: status %d: %w", path, code, b.failure())
		}
		return fmt.Errorf("glassesapi %s: status %d: %w", path, code, ErrUnsuccessful)
	}

	return nil
}
