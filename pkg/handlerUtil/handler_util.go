package handlerUtil

import (
	"PerfectFit/internal/api/capture"
	"PerfectFit/pkg/glassesapi"
	"PerfectFit/pkg/log"
	"PerfectFit/pkg/response"
	imageUtils "PerfectFit/pkg/utils"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	// Capture domain errors
	var stepErr *capture.StepError
	if errors.As(err, &stepErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"step":       stepErr.Step,
			"path":       path,
			"operation":  operation,
		}).Error("Processing step failed")
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Error:   "Image processing failed",
			Code:    "STEP_FAILED",
			Details: stepErr.Step,
		})
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"code":       respErr.Code,
			"path":       path,
			"operation":  operation,
		}).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(fiber.Map{"error": err.Error()})
	}

	// Remote glasses service errors
	if errors.Is(err, glassesapi.ErrUnsuccessful) || errors.Is(err, glassesapi.ErrMalformed) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Error("Glasses service failed")
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Error: "Glasses service is unavailable",
			Code:  "UPSTREAM_FAILED",
		})
	}

	// Image payload errors
	if errors.Is(err, imageUtils.ErrEmptyImage) || errors.Is(err, imageUtils.ErrInvalidImage) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Invalid image payload")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Invalid image. Only JPEG, PNG and WebP are supported.",
			Code:  "INVALID_IMAGE",
		})
	}

	if errors.Is(err, imageUtils.ErrImageTooLarge) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Image too large")
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(ErrorResponse{
			Error: "Image exceeds the size limit",
			Code:  "IMAGE_TOO_LARGE",
		})
	}

	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}
	traceID := log.TraceID(fields)
	h.logger.WithFields(fields).Error("Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":    "An unexpected error occurred",
		"trace_id": traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(utils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
