package captureService

import (
	"PerfectFit/internal/api/capture"
	captureRepository "PerfectFit/internal/api/capture/repository"
	"PerfectFit/internal/entity"
	"PerfectFit/pkg/audio"
	contextPkg "PerfectFit/pkg/context"
	"PerfectFit/pkg/guidance"
	"PerfectFit/pkg/metrics"
	"PerfectFit/pkg/utils"
	"PerfectFit/pkg/validation"
	websocketPkg "PerfectFit/pkg/websocket"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type Config struct {
	Validation         validation.Thresholds
	Guidance           guidance.Options
	PassportCrop       bool
	PixelStatsInterval time.Duration
	StepTimeout        time.Duration
}

func DefaultConfig() Config {
	return Config{
		Validation:         validation.DefaultThresholds(),
		Guidance:           guidance.DefaultOptions(),
		PixelStatsInterval: 200 * time.Millisecond,
		StepTimeout:        60 * time.Second,
	}
}

type ICaptureService interface {
	OpenSession(ctx context.Context, out Outbound) (*Session, error)
	Session(id string) (*Session, error)
	CloseSession(id string) error
	State(id string) (capture.StateView, error)
	ManualCapture(ctx context.Context, id string) (capture.StateView, error)
	Retry(ctx context.Context, id string) (capture.StateView, error)
	GetCaptured(ctx context.Context, id string) (*entity.CapturedData, error)
	DeleteCaptured(ctx context.Context, id string) error
	Shutdown()
}

// deps is shared by every session of one service.
type deps struct {
	log       *logrus.Logger
	cfg       Config
	engine    *validation.Engine
	pipeline  *pipeline
	landmarks websocketPkg.ILandmarkProvider
	speech    audio.ISpeech
	metrics   *metrics.Metrics
	utils     utils.IUtils
	clock     guidance.Clock
}

type Option func(*captureService)

func WithConfig(cfg Config) Option {
	return func(s *captureService) {
		s.deps.cfg = cfg
	}
}

func WithLandmarkProvider(p websocketPkg.ILandmarkProvider) Option {
	return func(s *captureService) {
		s.deps.landmarks = p
	}
}

func WithSpeech(sp audio.ISpeech) Option {
	return func(s *captureService) {
		s.deps.speech = sp
	}
}

func WithImageStore(store ImageStore) Option {
	return func(s *captureService) {
		s.deps.pipeline.images = store
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *captureService) {
		s.deps.metrics = m
		s.deps.pipeline.metrics = m
	}
}

func WithClock(c guidance.Clock) Option {
	return func(s *captureService) {
		s.deps.clock = c
	}
}

func WithUtils(u utils.IUtils) Option {
	return func(s *captureService) {
		s.deps.utils = u
	}
}

type captureService struct {
	log  *logrus.Logger
	repo captureRepository.Repository
	deps *deps

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewCaptureService(
	log *logrus.Logger,
	repo captureRepository.Repository,
	detector GlassesDetector,
	processor GlassesProcessor,
	opts ...Option,
) ICaptureService {
	s := &captureService{
		log:  log,
		repo: repo,
		deps: &deps{
			log: log,
			cfg: DefaultConfig(),
			pipeline: &pipeline{
				log:       log,
				detector:  detector,
				processor: processor,
				repo:      repo,
			},
			utils: utils.New(),
			clock: guidance.SystemClock(),
		},
		sessions: make(map[string]*Session),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.deps.engine = validation.New(s.deps.cfg.Validation)
	s.deps.pipeline.stepTimeout = s.deps.cfg.StepTimeout
	if s.deps.pipeline.stepTimeout <= 0 {
		s.deps.pipeline.stepTimeout = DefaultConfig().StepTimeout
	}

	return s
}

func (s *captureService) OpenSession(ctx context.Context, out Outbound) (*Session, error) {
	id, err := s.deps.utils.NewULIDFromTimestamp(s.deps.clock.Now())
	if err != nil {
		return nil, err
	}

	session := newSession(id, s.deps, out)

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	s.deps.metrics.SessionOpened()
	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": id,
	}).Info("Capture session opened")

	return session, nil
}

func (s *captureService) Session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, capture.ErrSessionNotFound
	}
	return session, nil
}

func (s *captureService) CloseSession(id string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return capture.ErrSessionNotFound
	}

	session.Close()
	s.log.WithField("session_id", id).Info("Capture session closed")
	return nil
}

func (s *captureService) State(id string) (capture.StateView, error) {
	session, err := s.Session(id)
	if err != nil {
		return capture.StateView{}, err
	}
	return session.State(), nil
}

func (s *captureService) ManualCapture(ctx context.Context, id string) (capture.StateView, error) {
	session, err := s.Session(id)
	if err != nil {
		return capture.StateView{}, err
	}

	view, err := session.Capture()
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"session_id": id,
			"error":      err.Error(),
		}).Warn("Manual capture rejected")
	}
	return view, err
}

func (s *captureService) Retry(ctx context.Context, id string) (capture.StateView, error) {
	session, err := s.Session(id)
	if err != nil {
		return capture.StateView{}, err
	}
	return session.Retry()
}

// GetCaptured serves from the store so records outlive their session.
func (s *captureService) GetCaptured(ctx context.Context, id string) (*entity.CapturedData, error) {
	return s.repo.Get(ctx, id)
}

// DeleteCaptured removes the record and, when the image store supports it,
// the images uploaded for it. Image cleanup failures are only logged.
func (s *captureService) DeleteCaptured(ctx context.Context, id string) error {
	data, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	remover, ok := s.deps.pipeline.images.(ImageRemover)
	if !ok {
		return nil
	}

	keys := []string{imageKey(id, "raw"), imageKey(id, "processed")}
	if data.SelectedFrameInfo != nil && data.SelectedFrameInfo.CompositeURL != "" {
		keys = append(keys, imageKey(id, "composite-"+data.SelectedFrameInfo.FrameID))
	}
	for _, key := range keys {
		if err := remover.DeleteFile(ctx, key); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": contextPkg.GetRequestID(ctx),
				"capture_id": id,
				"key":        key,
				"error":      err.Error(),
			}).Warn("Failed to delete captured image")
		}
	}
	return nil
}

// Shutdown closes every open session and waits for their pipelines.
func (s *captureService) Shutdown() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for id, session := range s.sessions {
		sessions = append(sessions, session)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
	for _, session := range sessions {
		session.Wait()
	}
}
