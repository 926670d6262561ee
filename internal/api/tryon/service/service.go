package tryonService

import (
	"PerfectFit/internal/api/tryon"
	captureRepository "PerfectFit/internal/api/capture/repository"
	tryonRepository "PerfectFit/internal/api/tryon/repository"
	"PerfectFit/internal/entity"
	"PerfectFit/pkg/glassesapi"
	"PerfectFit/pkg/metrics"
	"PerfectFit/pkg/overlay"
	"PerfectFit/pkg/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type ITryOnService interface {
	ComputeOverlay(ctx context.Context, req tryon.OverlayRequest) (*tryon.OverlayResponse, error)
	ClassifyFit(req tryon.FitRequest) tryon.FitResponse
	ListFrames(ctx context.Context, faceWidthMm float64) ([]tryon.FrameView, error)
	GetAdjustments(ctx context.Context, sessionID string) (*tryon.AdjustmentsResponse, error)
	SaveAdjustments(ctx context.Context, sessionID string, adj entity.AdjustmentValues) (*tryon.AdjustmentsResponse, error)
	SelectFrame(ctx context.Context, sessionID string, req tryon.SelectFrameRequest) (*entity.SelectedFrameInfo, error)
	Composite(ctx context.Context, sessionID string, req tryon.CompositeRequest) (*tryon.CompositeResponse, error)
	FaceShape(shape string) (*entity.FaceShapeRecommendation, error)
}

// FrameSelector reports the chosen frame to the measurement service.
type FrameSelector interface {
	SelectFrame(ctx context.Context, req glassesapi.SelectFrameRequest) (*glassesapi.SelectFrameResult, error)
}

type ImageStore interface {
	UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error)
	PresignUrl(fileUrl string) (string, error)
}

type tryOnService struct {
	log      *logrus.Logger
	frames   tryonRepository.Repository
	captures captureRepository.Repository
	engine   *overlay.Engine
	assets   ImageLoader
	selector FrameSelector
	images   ImageStore
	metrics  *metrics.Metrics
	utils    utils.IUtils
}

type Option func(*tryOnService)

func WithOverlayOptions(opts overlay.Options) Option {
	return func(s *tryOnService) {
		s.engine = overlay.New(opts)
	}
}

func WithFrameSelector(sel FrameSelector) Option {
	return func(s *tryOnService) {
		s.selector = sel
	}
}

func WithImageStore(store ImageStore) Option {
	return func(s *tryOnService) {
		s.images = store
	}
}

func WithImageLoader(loader ImageLoader) Option {
	return func(s *tryOnService) {
		s.assets = loader
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *tryOnService) {
		s.metrics = m
	}
}

func NewTryOnService(
	log *logrus.Logger,
	frames tryonRepository.Repository,
	captures captureRepository.Repository,
	opts ...Option,
) ITryOnService {
	s := &tryOnService{
		log:      log,
		frames:   frames,
		captures: captures,
		engine:   overlay.New(overlay.DefaultOptions()),
		utils:    utils.New(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.assets == nil {
		s.assets = NewImageLoader("", s.utils)
	}

	return s
}

func (s *tryOnService) frame(ctx context.Context, id string) (entity.GlassesFrame, error) {
	client, err := s.frames.NewClient(false)
	if err != nil {
		return entity.GlassesFrame{}, err
	}
	return client.Frame.GetFrameByID(ctx, id)
}

func (s *tryOnService) FaceShape(shape string) (*entity.FaceShapeRecommendation, error) {
	rec, ok := entity.FaceShapeRecommendationFor(shape)
	if !ok {
		return nil, tryon.ErrFaceShapeNotFound
	}
	return &rec, nil
}
