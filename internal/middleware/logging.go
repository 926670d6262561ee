package middleware

import (
	"PerfectFit/pkg/log"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
)

// quietPaths are polled by infrastructure and not worth a line per hit.
var quietPaths = map[string]struct{}{
	"/":        {},
	"/metrics": {},
}

func LoggerConfig() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, skip := quietPaths[c.Path()]; skip {
			return c.Next()
		}

		start := time.Now()

		requestID, ok := c.Locals(RequestIDKey).(string)
		if !ok || requestID == "" {
			requestID = "unknown"
		}

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()

		if err != nil && status == fiber.StatusInternalServerError {
			return err
		}

		logFields := log.Fields{
			"request_id":    requestID,
			"method":        c.Method(),
			"path":          c.Path(),
			"status":        status,
			"latency_ms":    latency.Milliseconds(),
			"ip":            c.IP(),
			"host":          c.Hostname(),
			"user_agent":    c.Get("User-Agent"),
			"referer":       c.Get("Referer"),
			"response_size": len(c.Response().Body()),
		}

		if body := c.Request().Body(); len(body) > 0 {
			logFields["request_body"] = sanitizeRequestBody(c.Path(), string(body))
		}

		switch {
		case status >= 500:
			log.Error(logFields, "Server error")
		case status >= 400:
			log.Warn(logFields, "Client error")
		default:
			log.Info(logFields, "Success")
		}

		return err
	}
}

// sanitizeRequestBody drops image payloads and masks secrets before the body
// reaches the log.
func sanitizeRequestBody(path string, body string) string {
	var jsonBody map[string]interface{}
	if err := jsoniter.Unmarshal([]byte(body), &jsonBody); err != nil {
		return "[non-JSON body]"
	}

	sensitiveFields := []string{
		"password", "token", "secret", "key", "auth",
		"credential", "authorization", "api_key",
	}

	imageFields := []string{"image", "raw_image", "processed_image", "face_image", "frame_image"}
	if strings.Contains(path, "/tryon") || strings.Contains(path, "/capture") {
		imageFields = append(imageFields, "snapshot")
	}

	for _, field := range sensitiveFields {
		if _, exists := jsonBody[field]; exists {
			jsonBody[field] = "[SECRET]"
		}
	}

	for _, field := range imageFields {
		if v, exists := jsonBody[field].(string); exists {
			jsonBody[field] = fmt.Sprintf("[image %d bytes]", len(v))
		}
	}

	sanitized, err := jsoniter.Marshal(jsonBody)
	if err != nil {
		return "[sanitization-failed]"
	}

	return string(sanitized)
}

func (m *middleware) NewLoggingMiddleware() fiber.Handler {
	return LoggerConfig()
}
