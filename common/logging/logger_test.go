package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/relayroom/relayroom/common/middleware"
)

func bufferedLogger(level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler)}, &buf
}

func TestNewFormats(t *testing.T) {
	for _, format := range []string{"json", "text", ""} {
		if logger := New(slog.LevelInfo, format); logger == nil || logger.Logger == nil {
			t.Errorf("New(%q) returned incomplete logger", format)
		}
	}
}

func TestWithContextAddsRequestID(t *testing.T) {
	logger, buf := bufferedLogger(slog.LevelInfo)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")
	logger.WithContext(ctx).Info("hello")

	out := buf.String()
	if !strings.Contains(out, "request_id") || !strings.Contains(out, "req-123") {
		t.Errorf("expected request_id field, got: %s", out)
	}
}

func TestWithContextBareContext(t *testing.T) {
	logger, buf := bufferedLogger(slog.LevelInfo)

	logger.WithContext(context.Background()).Info("hello")

	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("unexpected request_id field: %s", buf.String())
	}
}

func TestContextLevels(t *testing.T) {
	logger, buf := bufferedLogger(slog.LevelDebug)
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-456")

	logger.DebugContext(ctx, "dbg")
	logger.InfoContext(ctx, "inf")
	logger.WarnContext(ctx, "wrn")
	logger.ErrorContext(ctx, "err")

	out := buf.String()
	for _, want := range []string{"DEBUG", "INFO", "WARN", "ERROR"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s record in output: %s", want, out)
		}
	}
	if strings.Count(out, "req-456") != 4 {
		t.Errorf("expected request ID on all 4 records: %s", out)
	}
}

func TestWith(t *testing.T) {
	logger, buf := bufferedLogger(slog.LevelInfo)

	logger.With("service", "chat").Info("started")

	if !strings.Contains(buf.String(), "chat") {
		t.Errorf("expected service attribute: %s", buf.String())
	}
}

func TestWithGroup(t *testing.T) {
	logger, buf := bufferedLogger(slog.LevelInfo)

	logger.WithGroup("queue").Info("stats", "depth", 7)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid JSON record: %v", err)
	}
	if _, ok := record["queue"]; !ok {
		t.Errorf("expected queue group in record: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	logger := New(slog.LevelInfo, "json")
	SetDefault(logger)

	if slog.Default() != logger.Logger {
		t.Error("SetDefault did not install the logger")
	}
}
