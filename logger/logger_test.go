package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger_Levels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := New(&out, &errOut, false)

	l.Info("started on %s", ":8000")
	l.Warning("Threat detected: %s with confidence %v", "weapon", 0.91)
	l.Error("Error processing image: %v", "boom")
	l.Debug("hidden %d", 1)

	stdout := out.String()
	if !strings.Contains(stdout, "INFO") || !strings.Contains(stdout, "started on :8000") {
		t.Errorf("missing info line in %q", stdout)
	}
	if !strings.Contains(stdout, "WARNING") || !strings.Contains(stdout, "weapon with confidence 0.91") {
		t.Errorf("missing warning line in %q", stdout)
	}
	if strings.Contains(stdout, "hidden") {
		t.Error("debug output should be suppressed when debug is off")
	}
	if !strings.Contains(errOut.String(), "ERROR") || !strings.Contains(errOut.String(), "boom") {
		t.Errorf("missing error line in %q", errOut.String())
	}
	if !strings.Contains(stdout, "logger_test.go") {
		t.Errorf("expected caller file in %q", stdout)
	}
}

func TestLogger_Debug(t *testing.T) {
	var out bytes.Buffer
	l := New(&out, &out, true)
	l.Debug("timings %d", 42)
	if !strings.Contains(out.String(), "DEBUG") || !strings.Contains(out.String(), "timings 42") {
		t.Errorf("missing debug line in %q", out.String())
	}
}

func TestNewWithDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := NewWithDir(dir, false)
	if err != nil {
		t.Fatalf("NewWithDir failed: %v", err)
	}
	l.Warning("Threat detected: %s", "fire")
	l.Error("failure")
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	warning, err := os.ReadFile(filepath.Join(dir, "warning.log"))
	if err != nil {
		t.Fatalf("read warning.log: %v", err)
	}
	if !strings.Contains(string(warning), "fire") {
		t.Errorf("warning.log = %q", warning)
	}
	errors, _ := os.ReadFile(filepath.Join(dir, "error.log"))
	if !strings.Contains(string(errors), "failure") {
		t.Errorf("error.log = %q", errors)
	}
}
