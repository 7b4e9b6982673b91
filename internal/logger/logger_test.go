package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	logger, err := New(false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug level must be disabled by default")
	}

	debug, err := New(true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !debug.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug flag must enable debug level")
	}
}

func TestOracleFields(t *testing.T) {
	fields := OracleFields("gemini", "model-x")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core).With(fields...)
	logger.Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx["provider"] != "gemini" {
		t.Fatalf("expected provider gemini, got %q", ctx["provider"])
	}
	if ctx["model"] != "model-x" {
		t.Fatalf("expected model model-x, got %q", ctx["model"])
	}
}

func TestOracleFieldsSkipsEmptyValues(t *testing.T) {
	if fields := OracleFields("", ""); len(fields) != 0 {
		t.Fatalf("expected no fields, got %d", len(fields))
	}
	if fields := OracleFields("gemini", ""); len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
}
