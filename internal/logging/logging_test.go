package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", GetTraceID(ctx))
	assert.Equal(t, int64(0), GetUserID(ctx))
	_, ok := GetCompanyID(ctx)
	assert.False(t, ok)

	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithUserID(ctx, 7)
	ctx = WithCompanyID(ctx, 3)

	assert.Equal(t, "trace-1", GetTraceID(ctx))
	assert.Equal(t, int64(7), GetUserID(ctx))
	companyID, ok := GetCompanyID(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(3), companyID)
}

func TestWithTraceIDIgnoresEmpty(t *testing.T) {
	ctx := WithTraceID(context.Background(), "")
	assert.Equal(t, "", GetTraceID(ctx))
}

func TestLogRequestJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New("invoicer", "debug", "json")
	logger.SetOutput(&buf)

	ctx := WithUserID(WithTraceID(context.Background(), "abc"), 42)
	logger.LogRequest(ctx, "GET", "/api/clients", 404, 15*time.Millisecond)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "invoicer", entry["service"])
	assert.Equal(t, "abc", entry["trace_id"])
	assert.Equal(t, float64(42), entry["user_id"])
	assert.Equal(t, float64(404), entry["status"])
	assert.Equal(t, "warning", entry["level"])
}

func TestNewTraceIDUnique(t *testing.T) {
	assert.NotEqual(t, NewTraceID(), NewTraceID())
}
