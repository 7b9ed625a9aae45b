package logger

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

// newTestLogger returns a Logger that writes to a buffer instead of stderr.
func newTestLogger(module, level string, buf *bytes.Buffer) *Logger {
	l := New(module, level)
	l.out = log.New(buf, "", 0)
	return l
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"unknown", LevelInfo}, // default
		{"", LevelInfo},        // default
	}
	for _, c := range cases {
		if got := parseLevel(c.input); got != c.want {
			t.Errorf("parseLevel(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestNewModuleUppercased(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger("engine", "info", &buf)
	l.Info("test", "msg")
	if !strings.Contains(buf.String(), "ENGINE") {
		t.Errorf("expected module 'ENGINE' in output, got: %s", buf.String())
	}
}

func TestLevelFilteringDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger("TEST", "info", &buf)
	l.Debug("action", "this should not appear")
	if buf.Len() > 0 {
		t.Errorf("debug message should be suppressed at info level, got: %s", buf.String())
	}
}

func TestLevelFilteringErrorPassesAtWarn(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger("TEST", "warn", &buf)
	l.Error("action", "boom")
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("error message should pass at warn level, got: %s", buf.String())
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger("TEST", "error", &buf)
	l.Info("action", "hidden")
	if buf.Len() > 0 {
		t.Fatalf("info should be suppressed at error level")
	}
	l.SetLevel("debug")
	l.Info("action", "visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("info should pass after SetLevel(debug), got: %s", buf.String())
	}
}

func TestWithRunTagsMessages(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger("TEST", "info", &buf).WithRun("0123456789abcdef")
	l.Info("action", "msg")
	if !strings.Contains(buf.String(), "[01234567]") {
		t.Errorf("expected truncated run tag in output, got: %s", buf.String())
	}
}

func TestWithRunDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := newTestLogger("TEST", "info", &buf)
	_ = parent.WithRun("deadbeef")
	parent.Info("action", "msg")
	if strings.Contains(buf.String(), "deadbeef") {
		t.Errorf("parent logger must stay untagged, got: %s", buf.String())
	}
}

func TestFormattedVariants(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger("TEST", "debug", &buf)
	l.Infof("action", "n=%d", 7)
	l.Warnf("action", "w=%s", "x")
	l.Debugf("action", "d=%v", true)
	l.Errorf("action", "e=%v", false)
	out := buf.String()
	for _, want := range []string{"n=7", "w=x", "d=true", "e=false"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output: %s", want, out)
		}
	}
}
