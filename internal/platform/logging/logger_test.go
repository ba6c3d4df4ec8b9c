package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatalf("expected a log line")
	}
	var out map[string]any
	if err := sonic.UnmarshalString(line, &out); err != nil {
		t.Fatalf("decode log line %q: %v", line, err)
	}
	return out
}

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, FormatJSON, LevelInfo).Named("crex").With("component", "fetch")

	logger.Info("page fetched", "url", "https://crex.com/fixtures/match-list", "attempts", 2, "error", errors.New("retry"))

	got := decodeLine(t, &buf)
	if got["msg"] != "page fetched" || got["level"] != "INFO" || got["logger"] != "crex" {
		t.Fatalf("unexpected envelope: %+v", got)
	}
	if got["component"] != "fetch" || got["url"] != "https://crex.com/fixtures/match-list" {
		t.Fatalf("unexpected fields: %+v", got)
	}
	if got["attempts"] != float64(2) || got["error"] != "retry" {
		t.Fatalf("unexpected typed fields: %+v", got)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, FormatJSON, LevelWarn)

	logger.Info("dropped")
	logger.Debug("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info and debug to be filtered, got %q", buf.String())
	}

	logger.Warn("kept")
	if !strings.Contains(buf.String(), `"kept"`) {
		t.Fatalf("expected warn line, got %q", buf.String())
	}
}

func TestLoggerAddsTraceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, FormatJSON, LevelInfo)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.ErrorContext(ctx, "reconcile failed")
	got := decodeLine(t, &buf)
	if got["trace_id"] != traceID.String() || got["span_id"] != spanID.String() {
		t.Fatalf("expected trace fields, got %+v", got)
	}
}

func TestLoggerOddArgsAndNil(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, FormatJSON, LevelInfo)
	logger.Info("odd", "dangling")

	got := decodeLine(t, &buf)
	if _, ok := got["dangling"]; !ok {
		t.Fatalf("expected dangling key to be kept, got %+v", got)
	}

	var nilLogger *Logger
	nilLogger.Info("no panic")
	if err := nilLogger.Sync(); err != nil {
		t.Fatalf("sync nil logger: %v", err)
	}
}

func TestDefaultLogger(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	var buf bytes.Buffer
	SetDefault(NewWriter(&buf, FormatConsole, LevelInfo))
	Default().Info("console line", "match_id", 7)
	if !strings.Contains(buf.String(), "console line") {
		t.Fatalf("expected console output, got %q", buf.String())
	}

	SetDefault(nil)
	if Default() == nil {
		t.Fatalf("expected nop default after SetDefault(nil)")
	}
}
