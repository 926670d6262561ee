package tryonService

import (
	"PerfectFit/internal/api/tryon"
	"PerfectFit/internal/entity"
	"PerfectFit/pkg/fit"
	"PerfectFit/pkg/mapper"
	"PerfectFit/pkg/overlay"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// Product pages do not always know the natural size of the capture.
var defaultNatural = mapper.Size{Width: 640, Height: 480}

func (s *tryOnService) ComputeOverlay(ctx context.Context, req tryon.OverlayRequest) (*tryon.OverlayResponse, error) {
	frame, err := s.frame(ctx, req.FrameID)
	if err != nil {
		return nil, err
	}

	if req.Dimensions != "" {
		dims, err := entity.ParseDimensions(req.Dimensions)
		if err != nil {
			return nil, err
		}
		frame.PhysicalWidth = dims.Width
		frame.LensWidth = dims.LensWidth
		frame.NoseBridge = dims.NoseBridge
		frame.TempleLength = dims.TempleLength
	}

	landmarks, faceWidthMm, pdMm, saved, err := s.overlayInputs(ctx, req)
	if err != nil {
		return nil, err
	}

	adj := resolveAdjustments(req, saved, frame)

	natural := mapper.Size{Width: req.Natural.Width, Height: req.Natural.Height}
	if natural.Empty() && req.Surface == tryon.SurfaceProduct {
		natural = defaultNatural
	}
	container := mapper.Size{Width: req.Container.Width, Height: req.Container.Height}

	res := &tryon.OverlayResponse{FrameID: frame.ID, Adjustments: adj}
	if faceWidthMm > 0 {
		res.Fit = fit.Classify(frame.PhysicalWidth, faceWidthMm)
		res.FitLabel = res.Fit.Label()
		res.FitMessage = res.Fit.Message()
	}

	transform, ok := s.engine.Compute(frame, landmarks, faceWidthMm, pdMm, container, natural)
	s.metrics.OverlayComputed(ok)
	if !ok {
		res.Render = overlay.Placeholder()
		res.Placeholder = true
		res.CSS = res.Render.CSS()
		return res, nil
	}

	res.Transform = &transform
	res.Render = overlay.Render(transform, adj)
	res.CSS = res.Render.CSS()
	return res, nil
}

// overlayInputs resolves the landmarks in the space of the displayed image,
// and the measurements, from the stored capture or from the request.
func (s *tryOnService) overlayInputs(ctx context.Context, req tryon.OverlayRequest) (entity.FaceLandmarks, float64, float64, *entity.AdjustmentValues, error) {
	if req.SessionID != "" {
		data, err := s.captures.Get(ctx, req.SessionID)
		if err != nil {
			return entity.FaceLandmarks{}, 0, 0, nil, err
		}
		return mapper.DisplayLandmarks(data), data.Measurements.FaceWidth, data.Measurements.PD, data.FrameAdjustments, nil
	}

	if req.Landmarks == nil {
		return entity.FaceLandmarks{}, 0, 0, nil, tryon.ErrMissingLandmarks
	}

	landmarks := *req.Landmarks
	if req.CropRect != nil && req.CropRect.Valid() {
		landmarks = mapper.LandmarksToCropped(landmarks, *req.CropRect)
	}
	return landmarks, req.FaceWidthMm, req.PDMm, nil, nil
}

// resolveAdjustments picks explicit, then saved, then surface defaults.
func resolveAdjustments(req tryon.OverlayRequest, saved *entity.AdjustmentValues, frame entity.GlassesFrame) entity.AdjustmentValues {
	var adj entity.AdjustmentValues
	switch {
	case req.Adjustments != nil:
		adj = *req.Adjustments
	case saved != nil:
		adj = *saved
	case req.Surface == tryon.SurfaceProduct:
		adj = entity.ProductSurfaceAdjustments
	default:
		adj = frame.DefaultAdjustments
	}

	if adj.ScaleAdjust <= 0 {
		adj.ScaleAdjust = entity.DefaultAdjustments.ScaleAdjust
	}
	if req.Surface == tryon.SurfaceProduct {
		adj = adj.ForContainSurface()
	}
	return adj
}

func (s *tryOnService) ClassifyFit(req tryon.FitRequest) tryon.FitResponse {
	category := fit.Classify(req.FrameWidthMm, req.FaceWidthMm)
	return tryon.FitResponse{
		Fit:     category,
		Label:   category.Label(),
		Message: category.Message(),
		DiffMm:  req.FrameWidthMm - req.FaceWidthMm,
	}
}

func (s *tryOnService) ListFrames(ctx context.Context, faceWidthMm float64) ([]tryon.FrameView, error) {
	client, err := s.frames.NewClient(false)
	if err != nil {
		return nil, err
	}

	frames, err := client.Frame.ListFrames(ctx)
	if err != nil {
		if errors.Is(err, entity.ErrMissingCalibration) {
			s.log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Error("Frame catalog failed validation")
		}
		return nil, err
	}

	views := make([]tryon.FrameView, 0, len(frames))
	for _, f := range frames {
		view := tryon.FrameView{GlassesFrame: f, Dimensions: f.Dimensions()}
		if faceWidthMm > 0 {
			view.Fit = fit.Classify(f.PhysicalWidth, faceWidthMm)
			view.FitLabel = view.Fit.Label()
		}
		views = append(views, view)
	}
	return views, nil
}
