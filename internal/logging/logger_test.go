package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg, nil)
	assert.Error(t, err)
}

func TestNewLogger_Basic(t *testing.T) {
	cfg := NewDefaultConfig()
	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.NotNil(t, logger.Underlying())
}

func TestLogger_ContextMethodsDoNotPanic(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithRequestID(context.Background(), "req_1")

	tl.Debug(ctx, "debug")
	tl.Info(ctx, "info", zap.String("k", "v"))
	tl.Warn(ctx, "warn")
	tl.Error(ctx, "error")

	tl.AssertLogged(t, zapcore.InfoLevel, "info")
	tl.AssertField(t, "info", "k", "v")
	tl.AssertField(t, "info", "request.id", "req_1")
}

func TestLogger_Trace_RespectsEnabled(t *testing.T) {
	tl := NewTestLogger()
	tl.Trace(context.Background(), "trace message")
	tl.AssertLogged(t, TraceLevel, "trace message")
}

func TestLogger_With(t *testing.T) {
	tl := NewTestLogger()
	child := tl.With(zap.String("component", "worker"))
	child.Info(context.Background(), "started")

	found := false
	for _, e := range tl.All() {
		for _, f := range e.Context {
			if f.Key == "component" && f.String == "worker" {
				found = true
			}
		}
	}
	assert.True(t, found)
}

func TestLogger_Named(t *testing.T) {
	tl := NewTestLogger()
	named := tl.Named("subsystem")
	assert.NotNil(t, named)
}

func TestLogger_Sync_IgnoresHarmlessStdoutError(t *testing.T) {
	cfg := NewDefaultConfig()
	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	_ = logger.Sync() // stdout sync errors on Linux are swallowed, not asserted here
}

func TestLogger_Enabled(t *testing.T) {
	tl := NewTestLogger()
	assert.True(t, tl.Enabled(zapcore.InfoLevel))
}
