package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestCtxAddsRequestAndSubject(t *testing.T) {
	var buf bytes.Buffer
	base := NewSlogLoggerTo(&buf, Config{Level: LevelInfo, Format: "json"})

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithSubjectID(ctx, "alice")
	ctx = WithLogger(ctx, base)

	Ctx(ctx).Info("analysis completed", Int("patterns", 2))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "analysis completed", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "alice", entry["subject_id"])
	assert.Equal(t, float64(2), entry["patterns"])
}

func TestWithRequestIDGeneratesWhenEmpty(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	assert.NotEmpty(t, RequestIDFromContext(ctx))
	assert.Empty(t, SubjectIDFromContext(context.Background()))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLoggerTo(&buf, Config{Level: LevelWarn, Format: "json"})

	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept", SubjectID("bob"))
	entry := decodeLine(t, &buf)
	assert.Equal(t, "bob", entry["subject_id"])
	assert.Equal(t, LevelWarn, l.Level())
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Equal(t, Default(), FromContext(context.Background()))
}
