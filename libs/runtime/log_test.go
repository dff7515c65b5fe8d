package runtime

import (
	"log/slog"
	"testing"
)

func TestLevelFromEnv(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"junk":  slog.LevelInfo,
	}
	for raw, want := range cases {
		t.Setenv("LOG_LEVEL", raw)
		if got := levelFromEnv(); got != want {
			t.Fatalf("LOG_LEVEL=%q: expected %v, got %v", raw, want, got)
		}
	}
}
