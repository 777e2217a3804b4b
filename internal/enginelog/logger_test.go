package enginelog

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelGatingSuppressesBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)
	l.Debug("should not appear")
	l.Info("should not appear either")
	l.Warn("this one should appear")
	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("expected sub-threshold lines suppressed, got %q", out)
	}
	if !strings.Contains(out, "this one should appear") {
		t.Errorf("expected the warn line present, got %q", out)
	}
}

func TestNoopDiscardsEverything(t *testing.T) {
	// Just verifying Noop satisfies Logger and never panics.
	Noop.Debug("x")
	Noop.Info("x")
	Noop.Warn("x")
	Noop.Error("x")
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
	}
	for in, want := range cases {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}
