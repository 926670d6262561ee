package config

import (
	"PerfectFit/database/postgres"
	captureHandler "PerfectFit/internal/api/capture/handler"
	captureRepository "PerfectFit/internal/api/capture/repository"
	captureService "PerfectFit/internal/api/capture/service"
	tryonHandler "PerfectFit/internal/api/tryon/handler"
	tryonRepository "PerfectFit/internal/api/tryon/repository"
	tryonService "PerfectFit/internal/api/tryon/service"
	"PerfectFit/internal/middleware"
	"PerfectFit/pkg/audio"
	"PerfectFit/pkg/gemini"
	"PerfectFit/pkg/glassesapi"
	"PerfectFit/pkg/metrics"
	"PerfectFit/pkg/redis"
	"PerfectFit/pkg/s3"
	"PerfectFit/pkg/utils"
	websocketPkg "PerfectFit/pkg/websocket"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type ServerOption func(*Server) error

type Server struct {
	engine           *fiber.App
	db               *sqlx.DB
	log              *logrus.Logger
	middleware       middleware.Middleware
	validator        *validator.Validate
	utils            utils.IUtils
	handlers         []handler
	redisServer      redis.IRedis
	landmarkProvider websocketPkg.ILandmarkProvider
	glassesAPI       glassesapi.IGlassesAPI
	geminiClient     gemini.IGemini
	speech           audio.ISpeech
	s3Client         s3.ItfS3
	metrics          *metrics.Metrics
	engineConfig     EngineConfig
	captureService   captureService.ICaptureService
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{engineConfig: DefaultEngineConfig()}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.glassesAPI == nil {
		return nil, fmt.Errorf("glasses API client is required")
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log)
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

// WithDatabase connects to PostgreSQL when DB_HOST is set. Without it the
// built-in frame catalog is served.
func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if errors.Is(err, postgres.ErrNotConfigured) {
			if s.log != nil {
				s.log.Info("DB_HOST not set, serving the built-in frame catalog")
			}
			return nil
		}
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithLandmarkProvider(provider websocketPkg.ILandmarkProvider) ServerOption {
	return func(s *Server) error {
		s.landmarkProvider = provider
		return nil
	}
}

func WithGlassesAPI() ServerOption {
	return func(s *Server) error {
		client, err := glassesapi.NewFromEnv()
		if err != nil {
			return fmt.Errorf("failed to create glasses API client: %w", err)
		}
		s.glassesAPI = client
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		if os.Getenv("AWS_BUCKET_NAME") == "" {
			if s.log != nil {
				s.log.Info("AWS_BUCKET_NAME not set, images are kept inline")
			}
			return nil
		}

		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithGeminiClient() ServerOption {
	return func(s *Server) error {
		if s.engineConfig.GlassesDetector != "gemini" {
			return nil
		}

		client, err := gemini.NewGeminiClient()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to create Gemini client: %v", err)
			}
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.geminiClient = client
		return nil
	}
}

// WithSpeech enables spoken guidance when ElevenLabs is configured.
func WithSpeech() ServerOption {
	return func(s *Server) error {
		speech, err := audio.NewFromEnv()
		if err != nil {
			if s.log != nil {
				s.log.Infof("Spoken guidance disabled: %v", err)
			}
			return nil
		}
		s.speech = speech
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) error {
		s.metrics = m
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

// WithEngineConfig must come before WithGeminiClient, which reads the
// detector choice from it.
func WithEngineConfig(cfg EngineConfig) ServerOption {
	return func(s *Server) error {
		s.engineConfig = cfg
		return nil
	}
}

func (s *Server) RegisterHandler() error {
	cfg := s.engineConfig

	// Capture Domain
	var captureRepo captureRepository.Repository
	if s.redisServer != nil {
		captureRepo = captureRepository.New(s.redisServer, s.log, cfg.CaptureTTL)
	} else {
		s.log.Warn("Redis not configured, captured data is kept in memory")
		captureRepo = captureRepository.NewMemory()
	}

	var detector captureService.GlassesDetector = s.glassesAPI
	if s.geminiClient != nil {
		detector = s.geminiClient
	}

	captureOpts := []captureService.Option{
		captureService.WithConfig(cfg.Capture),
		captureService.WithMetrics(s.metrics),
		captureService.WithUtils(s.utils),
	}
	if s.landmarkProvider != nil {
		captureOpts = append(captureOpts, captureService.WithLandmarkProvider(s.landmarkProvider))
	}
	if s.speech != nil {
		captureOpts = append(captureOpts, captureService.WithSpeech(s.speech))
	}
	if s.s3Client != nil {
		captureOpts = append(captureOpts, captureService.WithImageStore(s.s3Client))
	}

	s.captureService = captureService.NewCaptureService(s.log, captureRepo, detector, s.glassesAPI, captureOpts...)
	captureHandlers := captureHandler.New(s.log, s.validator, s.middleware, s.captureService, s.metrics)

	// Try-On Domain
	var frameRepo tryonRepository.Repository
	if s.db != nil {
		frameRepo = tryonRepository.New(s.db, s.log)
	} else {
		static, err := tryonRepository.NewStatic(nil)
		if err != nil {
			return err
		}
		frameRepo = static
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	count, err := tryonRepository.Validate(ctx, frameRepo)
	if err != nil {
		s.log.WithField("error", err.Error()).Error("Frame catalog failed validation")
		return fmt.Errorf("frame catalog: %w", err)
	}
	s.log.WithField("frames", count).Info("Frame catalog loaded")

	tryonOpts := []tryonService.Option{
		tryonService.WithOverlayOptions(cfg.Overlay),
		tryonService.WithFrameSelector(s.glassesAPI),
		tryonService.WithImageLoader(tryonService.NewImageLoader(cfg.FrameAssetDir, s.utils)),
		tryonService.WithMetrics(s.metrics),
	}
	if s.s3Client != nil {
		tryonOpts = append(tryonOpts, tryonService.WithImageStore(s.s3Client))
	}

	tryonServices := tryonService.NewTryOnService(s.log, frameRepo, captureRepo, tryonOpts...)
	tryonHandlers := tryonHandler.New(s.log, s.validator, s.middleware, tryonServices)

	s.setupHealthCheck()
	s.setupMetrics()
	s.handlers = append(s.handlers, captureHandlers, tryonHandlers)
	return nil
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	router := s.engine.Group("/api/v1", s.middleware.NewRateLimiter)

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown closes capture sessions before the listener so that in-flight
// pipelines stop writing.
func (s *Server) Shutdown(timeout time.Duration) error {
	if s.captureService != nil {
		s.captureService.Shutdown()
	}

	err := s.engine.ShutdownWithTimeout(timeout)

	if s.landmarkProvider != nil {
		s.landmarkProvider.Close()
	}
	if s.geminiClient != nil {
		s.geminiClient.Close()
	}
	if s.redisServer != nil {
		if redisErr := s.redisServer.Close(); redisErr != nil && err == nil {
			err = redisErr
		}
	}
	if s.db != nil {
		if dbErr := s.db.Close(); dbErr != nil && err == nil {
			err = dbErr
		}
	}
	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}

func (s *Server) setupMetrics() {
	if s.metrics == nil {
		return
	}
	s.engine.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
}
