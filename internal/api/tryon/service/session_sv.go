package tryonService

import (
	"PerfectFit/internal/api/tryon"
	"PerfectFit/internal/entity"
	"PerfectFit/pkg/fit"
	"PerfectFit/pkg/glassesapi"
	"PerfectFit/pkg/mapper"
	"PerfectFit/pkg/overlay"
	"fmt"
	"image"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const compositeQuality = 90

func (s *tryOnService) GetAdjustments(ctx context.Context, sessionID string) (*tryon.AdjustmentsResponse, error) {
	data, err := s.captures.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if data.FrameAdjustments == nil {
		return &tryon.AdjustmentsResponse{SessionID: sessionID, Adjustments: entity.DefaultAdjustments}, nil
	}
	return &tryon.AdjustmentsResponse{SessionID: sessionID, Adjustments: *data.FrameAdjustments, Saved: true}, nil
}

func (s *tryOnService) SaveAdjustments(ctx context.Context, sessionID string, adj entity.AdjustmentValues) (*tryon.AdjustmentsResponse, error) {
	if adj.ScaleAdjust <= 0 {
		adj.ScaleAdjust = entity.DefaultAdjustments.ScaleAdjust
	}

	_, err := s.captures.Update(ctx, sessionID, func(data *entity.CapturedData) error {
		data.FrameAdjustments = &adj
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &tryon.AdjustmentsResponse{SessionID: sessionID, Adjustments: adj, Saved: true}, nil
}

func (s *tryOnService) SelectFrame(ctx context.Context, sessionID string, req tryon.SelectFrameRequest) (*entity.SelectedFrameInfo, error) {
	frame, err := s.frame(ctx, req.FrameID)
	if err != nil {
		return nil, err
	}

	data, err := s.captures.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	info := selectedFrameInfo(frame, data.Measurements.FaceWidth)
	info.FittingHeight = s.fittingHeight(ctx, sessionID, data.ProcessedImage, frame)

	if err := s.storeSelection(ctx, sessionID, info, nil); err != nil {
		return nil, err
	}
	return info, nil
}

// Composite renders the chosen frame onto the processed capture in the
// capture's natural pixels and records the selection.
func (s *tryOnService) Composite(ctx context.Context, sessionID string, req tryon.CompositeRequest) (*tryon.CompositeResponse, error) {
	frame, err := s.frame(ctx, req.FrameID)
	if err != nil {
		return nil, err
	}

	data, err := s.captures.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if data.Measurements.FaceWidth <= 0 || data.Measurements.PD <= 0 {
		return nil, tryon.ErrMissingMeasurements
	}

	base, err := s.loadCapture(ctx, data.ProcessedImage)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("Failed to load processed capture")
		return nil, tryon.ErrAssetUnavailable
	}

	asset, err := s.assets.Load(ctx, frame.ImageAsset)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"frame_id": frame.ID,
			"asset":    frame.ImageAsset,
			"error":    err.Error(),
		}).Error("Failed to load frame asset")
		return nil, tryon.ErrAssetUnavailable
	}

	adj := frame.DefaultAdjustments
	switch {
	case req.Adjustments != nil:
		adj = *req.Adjustments
	case data.FrameAdjustments != nil:
		adj = *data.FrameAdjustments
	}

	bounds := base.Bounds()
	natural := mapper.Size{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}
	transform, ok := s.engine.Compute(frame, mapper.DisplayLandmarks(data), data.Measurements.FaceWidth, data.Measurements.PD, natural, natural)
	s.metrics.OverlayComputed(ok)
	if !ok {
		return nil, tryon.ErrCompositeFailed
	}

	out := overlay.Composite(base, asset, overlay.Render(transform, adj))
	dataURL, raw, err := s.utils.EncodeJPEGDataURL(out, compositeQuality)
	if err != nil {
		return nil, err
	}

	info := selectedFrameInfo(frame, data.Measurements.FaceWidth)
	info.CompositeURL = dataURL
	if s.images != nil {
		key := fmt.Sprintf("captures/%s/composite-%s.jpg", sessionID, frame.ID)
		location, err := s.images.UploadBytes(ctx, key, raw, "image/jpeg")
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"session_id": sessionID,
				"error":      err.Error(),
			}).Error("Failed to upload composite")
			return nil, err
		}
		info.CompositeURL = location
	}
	info.FittingHeight = s.fittingHeight(ctx, sessionID, dataURL, frame)

	if err := s.storeSelection(ctx, sessionID, info, &adj); err != nil {
		return nil, err
	}

	return &tryon.CompositeResponse{Image: dataURL, SelectedFrame: info}, nil
}

// loadCapture presigns stored captures so that private buckets can be read.
func (s *tryOnService) loadCapture(ctx context.Context, ref string) (image.Image, error) {
	if s.images != nil && strings.HasPrefix(ref, "http") {
		signed, err := s.images.PresignUrl(ref)
		if err != nil {
			return nil, err
		}
		ref = signed
	}
	return s.assets.Load(ctx, ref)
}

// fittingHeight is best effort; a failed call leaves the height unset.
func (s *tryOnService) fittingHeight(ctx context.Context, sessionID, img string, frame entity.GlassesFrame) *float64 {
	if s.selector == nil || img == "" {
		return nil
	}

	res, err := s.selector.SelectFrame(ctx, glassesapi.SelectFrameRequest{
		Image:      img,
		FrameID:    frame.ID,
		FrameName:  frame.Name,
		Dimensions: frame.Dimensions(),
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"frame_id":   frame.ID,
			"error":      err.Error(),
		}).Warn("Frame selection was not acknowledged")
		return nil
	}
	return res.FittingHeight
}

func (s *tryOnService) storeSelection(ctx context.Context, sessionID string, info *entity.SelectedFrameInfo, adj *entity.AdjustmentValues) error {
	_, err := s.captures.Update(ctx, sessionID, func(data *entity.CapturedData) error {
		data.SelectedFrameInfo = info
		if adj != nil {
			data.FrameAdjustments = adj
		}
		return nil
	})
	return err
}

func selectedFrameInfo(frame entity.GlassesFrame, faceWidthMm float64) *entity.SelectedFrameInfo {
	info := &entity.SelectedFrameInfo{
		FrameID:      frame.ID,
		Name:         frame.Name,
		Category:     frame.Category,
		Color:        frame.Color,
		Width:        frame.PhysicalWidth,
		LensWidth:    frame.LensWidth,
		NoseBridge:   frame.NoseBridge,
		TempleLength: frame.TempleLength,
	}
	if faceWidthMm > 0 {
		info.Fit = fit.Classify(frame.PhysicalWidth, faceWidthMm)
		info.FitLabel = info.Fit.Label()
	}
	return info
}
