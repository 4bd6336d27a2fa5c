package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger_AssertLogged(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "hello world")
	tl.AssertLogged(t, zapcore.InfoLevel, "hello")
}

func TestTestLogger_AssertNotLogged(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "hello world")
	tl.AssertNotLogged(t, zapcore.InfoLevel, "goodbye")
}

func TestTestLogger_Reset(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "first")
	tl.Reset()
	if len(tl.All()) != 0 {
		t.Fatalf("expected no entries after Reset, got %d", len(tl.All()))
	}
}

func TestTestLogger_FilterMessage(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "match me")
	tl.Info(context.Background(), "skip me")
	if got := tl.FilterMessage("match").Len(); got != 1 {
		t.Fatalf("expected 1 matching entry, got %d", got)
	}
}

func TestTestLogger_AssertField(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "request handled", zap.Int("status", 200))
	tl.AssertField(t, "request handled", "status", int64(200))
}
