package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerFromFallsBackToGlobal(t *testing.T) {
	if LoggerFrom(context.Background()) != Logger {
		t.Error("empty context did not return the global logger")
	}
	core, _ := observer.New(zapcore.InfoLevel)
	l := zap.New(core)
	if LoggerFrom(WithLogger(context.Background(), l)) != l {
		t.Error("stored logger not returned")
	}
}

func TestAnnotateRequestCarriesFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	prev := Logger
	Logger = zap.New(core)
	defer func() { Logger = prev }()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/checkins", nil)
	AnnotateRequest(c, zap.String("request_id", "rid-1"))
	AnnotateRequest(c, zap.String("user_id", "u1"))

	LoggerFrom(c.Request.Context()).Info("check-in recorded")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "rid-1" || fields["user_id"] != "u1" {
		t.Errorf("fields = %v", fields)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":       zapcore.InfoLevel,
		"debug":  zapcore.DebugLevel,
		"warn":   zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"silent": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
