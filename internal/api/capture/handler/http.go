package captureHandler

import (
	captureService "PerfectFit/internal/api/capture/service"
	"PerfectFit/internal/middleware"
	"PerfectFit/pkg/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type CaptureHandler struct {
	log            *logrus.Logger
	validator      *validator.Validate
	middleware     middleware.Middleware
	captureService captureService.ICaptureService
	metrics        *metrics.Metrics
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	cs captureService.ICaptureService,
	metrics *metrics.Metrics,
) *CaptureHandler {
	return &CaptureHandler{
		captureService: cs,
		log:            log,
		validator:      validator,
		middleware:     middleware,
		metrics:        metrics,
	}
}

func (h *CaptureHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	capture := srv.Group("/capture")
	capture.Use("/ws", wsMiddleware)
	capture.Get("/ws", websocket.New(h.handleWebSocket))

	sessions := capture.Group("/sessions")
	sessions.Get("/:id", h.GetSession)
	sessions.Get("/:id/captured", h.GetCaptured)
	sessions.Post("/:id/capture", h.ManualCapture)
	sessions.Post("/:id/retry", h.Retry)
	sessions.Delete("/:id", h.DeleteSession)
}
