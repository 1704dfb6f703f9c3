package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestFromContextFallsBackToDiscard(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatal("expected a logger")
	}
	logger.Error("dropped")
}

func TestWithLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "json", "debug")
	ctx := WithLogger(context.Background(), logger)
	FromContext(ctx).Debug("parsed", "mode", "exec")
	if !strings.Contains(buf.String(), `"mode":"exec"`) {
		t.Fatalf("log output missing attribute: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("WARN") != slog.LevelWarn {
		t.Fatalf("WARN not parsed")
	}
	if ParseLevel("nonsense") != slog.LevelInfo {
		t.Fatalf("unknown level should default to info")
	}
}
