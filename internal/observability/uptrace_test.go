package observability

import (
	"context"
	"testing"

	"github.com/riskibarqy/understat-loader/internal/config"
	"github.com/riskibarqy/understat-loader/internal/platform/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitUptrace_Disabled(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cfg := config.Config{
		UptraceEnabled: false,
		ServiceName:    "understat-loader",
		ServiceVersion: "dev",
		AppEnv:         config.EnvDev,
	}

	shutdown, err := InitUptrace(cfg, logging.FromZap(zap.New(core)))
	if err != nil {
		t.Fatalf("init uptrace: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown uptrace: %v", err)
	}
	if logs.FilterMessage("uptrace disabled").Len() != 1 {
		t.Fatalf("expected a single uptrace disabled log entry, got %v", logs.All())
	}
}

func TestInitUptrace_EmptyDSN(t *testing.T) {
	cfg := config.Config{UptraceEnabled: true, UptraceDSN: "  "}

	shutdown, err := InitUptrace(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("init uptrace: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown uptrace: %v", err)
	}
}

func TestInitPyroscope_Disabled(t *testing.T) {
	shutdown, err := InitPyroscope(config.Config{}, nil)
	if err != nil {
		t.Fatalf("init pyroscope: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("stop pyroscope: %v", err)
	}
}
