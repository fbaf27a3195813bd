package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"
)

func jsonLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return New(Config{
		Component: ComponentHTTP,
		Handler:   slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level}),
	})
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var rec map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &rec); err != nil {
		t.Fatalf("decode log line %q: %v", lines[len(lines)-1], err)
	}
	return rec
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, slog.LevelInfo)

	logger.Info("hello", FieldFamilyID, "fam1")
	rec := lastRecord(t, &buf)
	if rec[FieldComponent] != ComponentHTTP || rec[FieldFamilyID] != "fam1" {
		t.Errorf("record = %v", rec)
	}

	storage := logger.With(FieldRequestID, "abc").WithComponent(ComponentStorage)
	if storage.Component() != ComponentStorage {
		t.Errorf("Component() = %q", storage.Component())
	}
	storage.Warn("slow query")
	rec = lastRecord(t, &buf)
	if rec[FieldComponent] != ComponentStorage || rec[FieldRequestID] != "abc" {
		t.Errorf("record = %v, want storage component and inherited request id", rec)
	}

	buf.Reset()
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug record written at info level: %s", buf.String())
	}
}

func TestNewDefaults(t *testing.T) {
	logger := New(Config{})
	if logger.Component() != ComponentApp {
		t.Errorf("Component() = %q, want %q", logger.Component(), ComponentApp)
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, slog.LevelInfo)

	ctx := NewContext(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("FromContext did not return the stored logger")
	}
	if got := FromContext(context.Background()); got == nil || got.Component() != "unknown" {
		t.Errorf("fallback logger = %+v", got)
	}
}

func TestStructuredLogger(t *testing.T) {
	t.Run("http end level follows status", func(t *testing.T) {
		tests := []struct {
			status int
			want   string
		}{
			{200, "INFO"},
			{404, "WARN"},
			{503, "ERROR"},
		}
		for _, tt := range tests {
			var buf bytes.Buffer
			sl := NewStructuredLogger(jsonLogger(&buf, slog.LevelInfo))
			r := httptest.NewRequest("GET", "/api/families/fam1/forecast?months=3", nil)
			sl.LogHTTPEnd(context.Background(), r, tt.status, 12, "10.0.0.1")

			rec := lastRecord(t, &buf)
			if rec["level"] != tt.want {
				t.Errorf("status %d level = %v, want %s", tt.status, rec["level"], tt.want)
			}
			if rec[FieldPath] != "/api/families/fam1/forecast" || rec[FieldQuery] != "months=3" || rec[FieldClientIP] != "10.0.0.1" {
				t.Errorf("record = %v", rec)
			}
		}
	})

	t.Run("analytics", func(t *testing.T) {
		var buf bytes.Buffer
		NewStructuredLogger(jsonLogger(&buf, slog.LevelInfo)).LogAnalytics(context.Background(), OpForecast, "fam1", 6, 1)
		rec := lastRecord(t, &buf)
		if rec[FieldComponent] != ComponentAnalytics || rec[FieldOperation] != OpForecast ||
			rec[FieldMonths] != float64(6) || rec[FieldCount] != float64(1) {
			t.Errorf("record = %v", rec)
		}
	})

	t.Run("error", func(t *testing.T) {
		var buf bytes.Buffer
		NewStructuredLogger(jsonLogger(&buf, slog.LevelInfo)).LogError(context.Background(), "failed",
			errors.New("boom"), ComponentWorker, OpScan, NewFields().WithErrorType(ErrorTypeInternal))
		rec := lastRecord(t, &buf)
		if rec[FieldError] != "boom" || rec[FieldErrorType] != ErrorTypeInternal || rec[FieldOperation] != OpScan {
			t.Errorf("record = %v", rec)
		}
	})
}
