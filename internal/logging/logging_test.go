package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func resetLoggingState() {
	mu.Lock()
	defer mu.Unlock()

	baseWriter = os.Stderr
	baseComponent = ""
	baseLogger = zerolog.New(baseWriter).With().Timestamp().Logger()
	log.Logger = baseLogger
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var events []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var event map[string]interface{}
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			t.Fatalf("failed to unmarshal log line %q: %v", line, err)
		}
		events = append(events, event)
	}
	if len(events) == 0 {
		t.Fatalf("expected log output, got none")
	}
	return events
}

func TestInitWritesJSONToOutput(t *testing.T) {
	t.Cleanup(resetLoggingState)

	var buf bytes.Buffer
	Init(Config{Format: "json", Level: "debug", Component: "mission-control", Output: &buf})

	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("expected global level debug, got %s", zerolog.GlobalLevel())
	}

	log.Debug().Str("key", "/api/v1/inventory/hosts").Msg("Revalidated")

	event := decodeLines(t, &buf)[0]
	if event["component"] != "mission-control" {
		t.Fatalf("expected component mission-control, got %v", event["component"])
	}
	if event["key"] != "/api/v1/inventory/hosts" {
		t.Fatalf("expected key field, got %v", event["key"])
	}
}

func TestInitDefaultsToStderr(t *testing.T) {
	t.Cleanup(resetLoggingState)

	Init(Config{Format: "json"})

	mu.RLock()
	defer mu.RUnlock()
	if baseWriter != os.Stderr {
		t.Fatalf("expected stderr, got %#v", baseWriter)
	}
}

func TestInitConsoleFormatUsesConsoleWriter(t *testing.T) {
	t.Cleanup(resetLoggingState)

	var buf bytes.Buffer
	Init(Config{Format: "console", Output: &buf})

	mu.RLock()
	defer mu.RUnlock()
	if _, ok := baseWriter.(zerolog.ConsoleWriter); !ok {
		t.Fatalf("expected console writer, got %#v", baseWriter)
	}
}

func TestAutoFormat(t *testing.T) {
	t.Cleanup(resetLoggingState)
	orig := isTerminalFn
	t.Cleanup(func() { isTerminalFn = orig })

	var buf bytes.Buffer
	if w := selectWriter("auto", &buf); w != &buf {
		t.Fatalf("expected JSON for a non-file writer, got %#v", w)
	}

	isTerminalFn = func(int) bool { return false }
	if w := selectWriter("auto", os.Stderr); w != os.Stderr {
		t.Fatalf("expected JSON on stderr without a terminal, got %#v", w)
	}

	isTerminalFn = func(int) bool { return true }
	if _, ok := selectWriter("", os.Stderr).(zerolog.ConsoleWriter); !ok {
		t.Fatal("expected console writer on a terminal")
	}
}

func TestNewDerivesComponentLoggers(t *testing.T) {
	t.Cleanup(resetLoggingState)

	var buf bytes.Buffer
	Init(Config{Format: "json", Level: "info", Component: "mission-control", Output: &buf})

	swrLogger := New("swr")
	swrLogger.Warn().Msg("Revalidation failed")
	inherited := New("")
	inherited.Info().Msg("inherited")

	events := decodeLines(t, &buf)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0]["component"] != "swr" {
		t.Fatalf("expected component swr, got %v", events[0]["component"])
	}
	if events[1]["component"] != "mission-control" {
		t.Fatalf("expected inherited component, got %v", events[1]["component"])
	}
}

func TestNewRespectsGlobalLevel(t *testing.T) {
	t.Cleanup(resetLoggingState)

	var buf bytes.Buffer
	Init(Config{Format: "json", Level: "error", Output: &buf})

	logger := New("sync")
	logger.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at error level, got %q", buf.String())
	}
}

func TestContextHelpersWithRequestID(t *testing.T) {
	t.Cleanup(resetLoggingState)

	var buf bytes.Buffer
	Init(Config{Format: "json", Output: &buf})

	ctx, generated := WithRequestID(context.Background(), "")
	if generated == "" {
		t.Fatal("expected generated request id")
	}
	if got := GetRequestID(ctx); got != generated {
		t.Fatalf("expected stored request id %s, got %s", generated, got)
	}

	logger := FromContext(ctx)
	logger.Info().Msg("baseline")

	event := decodeLines(t, &buf)[0]
	if event["request_id"] != generated {
		t.Fatalf("expected request_id %s, got %v", generated, event["request_id"])
	}
}

func TestFromContextReturnsStoredLoggerUnchanged(t *testing.T) {
	t.Cleanup(resetLoggingState)

	var buf bytes.Buffer
	Init(Config{Format: "json", Output: &buf})

	ctx, id := WithRequestID(context.Background(), "req-7")
	dashboard := New("dashboard")
	tagged := dashboard.With().Str("request_id", id).Logger()
	ctx = WithLogger(ctx, tagged)

	logger := FromContext(ctx)
	logger.Info().Msg("ctx-log")

	if n := strings.Count(buf.String(), `"request_id"`); n != 1 {
		t.Fatalf("expected request_id exactly once, got %d in %q", n, buf.String())
	}
	event := decodeLines(t, &buf)[0]
	if event["request_id"] != "req-7" {
		t.Fatalf("expected request_id req-7, got %v", event["request_id"])
	}
	if event["component"] != "dashboard" {
		t.Fatalf("expected component dashboard, got %v", event["component"])
	}
}

func TestWithRequestIDTrimsWhitespace(t *testing.T) {
	ctx, id := WithRequestID(context.Background(), "   ")
	if id == "" {
		t.Fatal("expected generated id for whitespace input")
	}
	if GetRequestID(ctx) != id {
		t.Fatalf("expected context request id %s, got %s", id, GetRequestID(ctx))
	}

	_, kept := WithRequestID(context.Background(), " req-1 ")
	if kept != "req-1" {
		t.Fatalf("expected trimmed id, got %q", kept)
	}
}

func TestFromContextFallsBackToBaseline(t *testing.T) {
	t.Cleanup(resetLoggingState)

	var buf bytes.Buffer
	Init(Config{Format: "json", Output: &buf})

	logger := FromContext(context.Background())
	logger.Info().Msg("no-request")

	event := decodeLines(t, &buf)[0]
	if _, ok := event["request_id"]; ok {
		t.Fatalf("did not expect request_id, got %v", event["request_id"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"DEBUG":    zerolog.DebugLevel,
		" warning": zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"off":      zerolog.Disabled,
		"nonsense": zerolog.InfoLevel,
	}
	for input, want := range tests {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", input, got, want)
		}
	}
}
