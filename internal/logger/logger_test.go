package logger

import (
	"testing"

	"github.com/samvad-hq/admin-console/internal/config"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHelpersAreSafeBeforeInit(t *testing.T) {
	S = nil
	InfoObj("msg", "k", 1)
	Global{}.ErrorObj("msg", "k", 1)
	if err := Close(); err != nil {
		t.Fatalf("Close before Init: %v", err)
	}
}

func TestInitSetsGlobal(t *testing.T) {
	defer func() { S = nil }()
	log, err := Init(&config.Config{AppName: "test", LogLevel: "debug"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if log == nil || S == nil {
		t.Fatalf("expected global logger to be set")
	}
	if !S.Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level enabled")
	}
}
