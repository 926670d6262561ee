package log

import (
	contextPkg "PerfectFit/pkg/context"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"
	"time"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

type Fields = logrus.Fields

// NewLogger returns the process-wide logger. LOG_LEVEL sets the level,
// LOG_FORMAT=json switches to JSON lines, LOG_FILE=off or APP_ENV=test
// disables the rotating file.
func NewLogger() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)
		logger.SetFormatter(newFormatter(os.Getenv("LOG_FORMAT")))

		writers := []io.Writer{os.Stderr}
		if os.Getenv("APP_ENV") != "test" && os.Getenv("LOG_FILE") != "off" {
			writers = append(writers, &lumberjack.Logger{
				Filename:   fmt.Sprintf("./storage/logs/perfectfit-%s.log", time.Now().Format("2006-01-02")),
				LocalTime:  true,
				Compress:   true,
				MaxSize:    100,
				MaxAge:     7,
				MaxBackups: 3,
			})
		}

		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(true)
	})

	return logger
}

func newFormatter(format string) logrus.Formatter {
	if format == "json" {
		return &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				return shortFunc(f), fmt.Sprintf("%s:%d", path.Base(f.File), f.Line)
			},
		}
	}

	return &formatter.Formatter{
		NoColors:        os.Getenv("APP_ENV") == "production",
		TimestampFormat: "02 Jan 06 - 15:04:05",
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, shortFunc(f))
		},
	}
}

func shortFunc(f *runtime.Frame) string {
	s := strings.Split(f.Function, ".")
	return s[len(s)-1]
}

func with(fields Fields) *logrus.Entry {
	if fields == nil {
		fields = Fields{}
	}
	return NewLogger().WithFields(fields)
}

func Debug(fields Fields, msg string) {
	with(fields).Debug(msg)
}

func Info(fields Fields, msg string) {
	with(fields).Info(msg)
}

func Warn(fields Fields, msg string) {
	with(fields).Warn(msg)
}

func Error(fields Fields, msg string) {
	with(fields).Error(msg)
}

// TraceID reuses the request id when fields carry one and otherwise mints a
// random id. The id is stored under "trace_id".
func TraceID(fields Fields) string {
	traceID := "unknown"
	if reqID, ok := fields["request_id"].(string); ok && reqID != "" && reqID != "unknown" {
		traceID = reqID
	} else if id, err := uuid.NewRandom(); err == nil {
		traceID = id.String()
	}

	if fields != nil {
		fields["trace_id"] = traceID
	}
	return traceID
}

// WithRequestID tags an entry with the request and capture session ids
// carried by ctx.
func WithRequestID(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return NewLogger().WithField(contextPkg.RequestIDKey, "unknown")
	}

	entry := NewLogger().WithField(contextPkg.RequestIDKey, contextPkg.GetRequestID(ctx))
	if sessionID := contextPkg.GetSessionID(ctx); sessionID != "" {
		entry = entry.WithField(contextPkg.SessionIDKey, sessionID)
	}
	return entry
}
