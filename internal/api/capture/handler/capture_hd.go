package captureHandler

import (
	"PerfectFit/internal/api/capture"
	contextPkg "PerfectFit/pkg/context"
	"PerfectFit/pkg/handlerUtil"
	"PerfectFit/pkg/log"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *CaptureHandler) GetSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	view, err := h.captureService.State(ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_session")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, view)
}

func (h *CaptureHandler) GetCaptured(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	data, err := h.captureService.GetCaptured(c, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_captured")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, capture.CapturedResponse{
			Captured:     data,
			PDConfidence: data.Measurements.PDConfidence(),
		})
	}
}

func (h *CaptureHandler) ManualCapture(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"session_id": ctx.Params("id"),
	}).Debug("Manual capture requested")

	view, err := h.captureService.ManualCapture(c, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "manual_capture")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusAccepted, view)
	}
}

func (h *CaptureHandler) Retry(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	view, err := h.captureService.Retry(c, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "retry_capture")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, view)
	}
}

// DeleteSession ends the live session, if any, and clears its captured data.
func (h *CaptureHandler) DeleteSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)
	id := ctx.Params("id")

	closeErr := h.captureService.CloseSession(id)
	if closeErr != nil && !errors.Is(closeErr, capture.ErrSessionNotFound) {
		return errHandler.Handle(ctx, requestID, closeErr, ctx.Path(), "close_session")
	}

	deleteErr := h.captureService.DeleteCaptured(c, id)
	if deleteErr != nil && !errors.Is(deleteErr, capture.ErrCaptureNotFound) {
		return errHandler.Handle(ctx, requestID, deleteErr, ctx.Path(), "delete_captured")
	}

	if closeErr != nil && deleteErr != nil {
		return errHandler.Handle(ctx, requestID, capture.ErrSessionNotFound, ctx.Path(), "delete_session")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"session_id": id,
	}).Info("Capture session cleared")

	return errHandler.HandleSuccess(ctx, fiber.StatusNoContent, nil)
}
