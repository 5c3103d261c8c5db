package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/winbeat/assist/internal/config"
	"github.com/winbeat/assist/model"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
	}{
		{"info level", "info"},
		{"debug level", "debug"},
		{"invalid level falls back to info", "nonsense"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(config.ObservabilityConfig{LogLevel: tt.logLevel})
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			if logger == nil {
				t.Fatal("NewLogger() returned nil logger")
			}
		})
	}
}

func TestLoggerContextRoundTrip(t *testing.T) {
	fallback := zap.NewNop()
	logger := zap.NewNop()

	ctx := WithLogger(context.Background(), logger)
	if got := LoggerFrom(ctx, fallback); got != logger {
		t.Error("LoggerFrom did not return the stored logger")
	}

	if got := LoggerFrom(context.Background(), fallback); got != fallback {
		t.Error("LoggerFrom without a stored logger should return fallback")
	}
}

func TestRequestLoggerWithoutUser(t *testing.T) {
	fallback := zap.NewNop()
	if got := RequestLogger(context.Background(), fallback); got != fallback {
		t.Error("RequestLogger without a user should return the bare logger")
	}
}

func TestRequestLoggerWithUser(t *testing.T) {
	ctx := model.WithUser(context.Background(), &model.User{
		UserCode: "JSMITH",
		Security: model.SecurityAdmin,
		BranchID: 1,
	})
	if got := RequestLogger(ctx, zap.NewNop()); got == nil {
		t.Fatal("RequestLogger returned nil")
	}
}

func TestRedactBody(t *testing.T) {
	body := map[string]any{
		"query":   "search for ABC",
		"api_key": "secret-key",
		"nested": map[string]any{
			"token": "tok",
			"name":  "ok",
		},
		"session": "keep",
	}

	got := RedactBody(body, []string{"session"})

	if got["query"] != "search for ABC" {
		t.Errorf("query = %v, want unchanged", got["query"])
	}
	if got["api_key"] != "[REDACTED]" {
		t.Errorf("api_key = %v, want redacted", got["api_key"])
	}
	if got["session"] != "[REDACTED]" {
		t.Errorf("session = %v, want redacted via custom list", got["session"])
	}
	nested := got["nested"].(map[string]any)
	if nested["token"] != "[REDACTED]" || nested["name"] != "ok" {
		t.Errorf("nested = %v", nested)
	}

	// Original must not be mutated.
	if body["api_key"] != "secret-key" {
		t.Error("RedactBody mutated its input")
	}
}

func TestRedactBodyNil(t *testing.T) {
	if got := RedactBody(nil, nil); got != nil {
		t.Errorf("RedactBody(nil) = %v, want nil", got)
	}
}
