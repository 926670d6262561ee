package captureHandler

import (
	"PerfectFit/internal/api/capture"
	captureService "PerfectFit/internal/api/capture/service"
	"PerfectFit/internal/middleware"
	contextPkg "PerfectFit/pkg/context"
	"PerfectFit/pkg/log"
	"encoding/base64"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

const (
	outboundBuffer = 64
	maxReadTimeout = 60 * time.Second
	writeTimeout   = 10 * time.Second
)

// wsOutbound queues session events for the single writer goroutine. Events
// are dropped, never blocked on, when the client falls behind.
type wsOutbound struct {
	events chan capture.OutboundEvent
	done   chan struct{}
	once   sync.Once
	drop   func(capture.OutboundEvent)
}

func newWSOutbound(drop func(capture.OutboundEvent)) *wsOutbound {
	return &wsOutbound{
		events: make(chan capture.OutboundEvent, outboundBuffer),
		done:   make(chan struct{}),
		drop:   drop,
	}
}

func (o *wsOutbound) Send(ev capture.OutboundEvent) {
	select {
	case <-o.done:
		return
	default:
	}

	select {
	case o.events <- ev:
	default:
		if o.drop != nil {
			o.drop(ev)
		}
	}
}

func (o *wsOutbound) close() {
	o.once.Do(func() { close(o.done) })
}

func (h *CaptureHandler) dropEvent(requestID string) func(capture.OutboundEvent) {
	return func(ev capture.OutboundEvent) {
		h.metrics.EventDropped()
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"event":      ev.Type,
		}).Warn("Client too slow, dropping event")
	}
}

func (h *CaptureHandler) handleWebSocket(c *websocket.Conn) {
	requestID, _ := c.Locals(middleware.RequestIDKey).(string)
	ctx := contextPkg.WithRequestID(context.Background(), requestID)

	out := newWSOutbound(h.dropEvent(requestID))

	session, err := h.captureService.OpenSession(ctx, out)
	if err != nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to open capture session")
		_ = c.WriteJSON(capture.OutboundEvent{Type: capture.EventError, Error: err.Error()})
		return
	}

	logger := h.log.WithFields(log.Fields{
		"request_id": requestID,
		"session_id": session.ID(),
	})
	logger.Info("Capture WebSocket client connected")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(c, out)
	}()

	defer func() {
		if err := h.captureService.CloseSession(session.ID()); err != nil {
			logger.WithField("error", err.Error()).Debug("Session already closed")
		}
		out.close()
		wg.Wait()
		logger.Info("Capture WebSocket client disconnected")
	}()

	view := session.State()
	out.Send(capture.OutboundEvent{Type: capture.EventSession, State: &view})

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			logger.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			logger.Errorf("Error setting read deadline: %v", err)
			return
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Errorf("Capture WebSocket error: %v", err)
			}
			return
		}

		var msg capture.InboundMessage
		switch messageType {
		case websocket.BinaryMessage:
			// raw JPEG frames go straight to the landmark provider
			msg = capture.InboundMessage{
				Type:  capture.MessageFrame,
				Frame: &capture.FrameRequest{Image: base64.StdEncoding.EncodeToString(message)},
			}
		case websocket.TextMessage:
			if err := jsoniter.Unmarshal(message, &msg); err != nil {
				out.Send(capture.OutboundEvent{Type: capture.EventError, Error: "malformed message"})
				continue
			}
		default:
			continue
		}

		if err := h.validator.Struct(msg); err != nil {
			out.Send(capture.OutboundEvent{Type: capture.EventError, Error: "Validation failed: " + err.Error()})
			continue
		}

		if msg.Type == capture.MessageStop {
			return
		}

		if err := h.dispatch(ctx, session, msg); err != nil {
			logger.WithFields(log.Fields{
				"message": msg.Type,
				"error":   err.Error(),
			}).Debug("Capture message rejected")
			out.Send(capture.OutboundEvent{Type: capture.EventError, Error: err.Error()})
		}
	}
}

func (h *CaptureHandler) dispatch(ctx context.Context, session *captureService.Session, msg capture.InboundMessage) error {
	var err error
	switch msg.Type {
	case capture.MessageStart:
		if msg.Error != "" {
			_, err = session.StreamFailed(msg.Error)
		} else {
			_, err = session.Start()
		}
	case capture.MessageFrame:
		c, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err = session.HandleFrame(c, *msg.Frame)
		cancel()
	case capture.MessageCapture:
		_, err = session.Capture()
	case capture.MessageRetry:
		_, err = session.Retry()
	case capture.MessageSwitchCamera:
		_, err = session.SwitchCamera()
	}
	return err
}

func (h *CaptureHandler) writeLoop(c *websocket.Conn, out *wsOutbound) {
	for {
		select {
		case <-out.done:
			return
		case ev := <-out.events:
			if err := c.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.WriteJSON(ev); err != nil {
				h.log.Errorf("Error writing capture event: %v", err)
				out.close()
				return
			}
		}
	}
}
