package tryonHandler

import (
	tryonService "PerfectFit/internal/api/tryon/service"
	"PerfectFit/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type TryOnHandler struct {
	log          *logrus.Logger
	validator    *validator.Validate
	middleware   middleware.Middleware
	tryOnService tryonService.ITryOnService
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ts tryonService.ITryOnService,
) *TryOnHandler {
	return &TryOnHandler{
		tryOnService: ts,
		log:          log,
		validator:    validator,
		middleware:   middleware,
	}
}

func (h *TryOnHandler) Start(srv fiber.Router) {
	tryon := srv.Group("/tryon")

	tryon.Post("/overlay", h.ComputeOverlay)
	tryon.Post("/fit", h.ClassifyFit)
	tryon.Get("/frames", h.ListFrames)
	tryon.Get("/face-shapes/:shape", h.FaceShape)

	sessions := tryon.Group("/sessions")
	sessions.Get("/:id/adjustments", h.GetAdjustments)
	sessions.Put("/:id/adjustments", h.SaveAdjustments)
	sessions.Put("/:id/frame", h.SelectFrame)
	sessions.Post("/:id/composite", h.Composite)
}
