package log

import (
	contextPkg "PerfectFit/pkg/context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"golang.org/x/net/context"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

func TestTraceID_ReusesRequestID(t *testing.T) {
	fields := Fields{"request_id": "01HZX"}

	assert.Equal(t, "01HZX", TraceID(fields))
	assert.Equal(t, "01HZX", fields["trace_id"])
}

func TestTraceID_MintsUUID(t *testing.T) {
	fields := Fields{"request_id": "unknown"}

	id := TraceID(fields)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, fields["trace_id"])

	assert.NotEmpty(t, TraceID(nil))
}

func TestWithRequestID(t *testing.T) {
	ctx := contextPkg.WithRequestID(context.Background(), "req-1")
	ctx = contextPkg.WithSessionID(ctx, "sess-1")

	entry := WithRequestID(ctx)
	assert.Equal(t, "req-1", entry.Data["request_id"])
	assert.Equal(t, "sess-1", entry.Data["session_id"])

	entry = WithRequestID(context.Background())
	assert.Equal(t, "unknown", entry.Data["request_id"])
	assert.NotContains(t, entry.Data, "session_id")
}

func TestNewFormatter(t *testing.T) {
	_, ok := newFormatter("json").(*logrus.JSONFormatter)
	assert.True(t, ok)

	_, ok = newFormatter("").(*logrus.JSONFormatter)
	assert.False(t, ok)
}
