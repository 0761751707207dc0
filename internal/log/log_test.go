package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: level, Component: ComponentLedger, Output: &buf}), &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)
	logger.Info("hello", "k", "v")
	logger.WithComponent(ComponentReport).Warn("careful")
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "k=v") {
		t.Fatalf("missing fields: %s", out)
	}
	if !strings.Contains(out, "component=report") {
		t.Fatalf("component override not applied: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record logged at info level")
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithTransaction("id1", "income", 500, "").
		WithRange("2024-01-01", "").
		WithError(nil)

	if f[FieldTransactionID] != "id1" || f[FieldAmountCents] != int64(500) {
		t.Fatalf("transaction fields = %v", f)
	}
	if _, ok := f[FieldCategory]; ok {
		t.Fatalf("empty category should be omitted")
	}
	if f[FieldRangeEnd] != "open" {
		t.Fatalf("open bound = %v", f[FieldRangeEnd])
	}
	if _, ok := f[FieldError]; ok {
		t.Fatalf("nil error should add nothing")
	}
	if got := len(f.ToSlice()); got != 2*len(f) {
		t.Fatalf("slice length %d", got)
	}
}

func TestMiddlewareAndFromContext(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)
	var seen *Logger
	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = FromContext(r.Context())
			seen.Info("inside")
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == nil || !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("request id not propagated: %s", buf.String())
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("fallback logger should report unknown component")
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)
	sl := NewStructuredLogger(logger)
	req := httptest.NewRequest(http.MethodGet, "/api/transactions?type=income", nil)

	sl.LogHTTPEnd(context.Background(), req, 503, 12, "10.0.0.1")
	sl.LogTransactionCreated(context.Background(), "id9", "expense", 250, "rent")
	sl.LogError(context.Background(), "boom", errors.New("disk"), ComponentStorage, OpList, nil)

	out := buf.String()
	for _, want := range []string{"level=ERROR", "status_code=503", "transaction_id=id9", "error=disk", "component=storage"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
