package logx

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"sciview/internal/paths"
)

func TestNewWritesToLogsDir(t *testing.T) {
	pp, err := paths.Resolve(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger, closer, err := New(pp, "debug")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.WithField("path", "/usr/bin/python3").Info("resolved python interpreter")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(pp.LogsDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one log file, got %v, %v", entries, err)
	}
	data, err := os.ReadFile(filepath.Join(pp.LogsDir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "resolved python interpreter") || !strings.Contains(string(data), "path=/usr/bin/python3") {
		t.Fatalf("unexpected log contents %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":  logrus.DebugLevel,
		" WARN ": logrus.WarnLevel,
		"error":  logrus.ErrorLevel,
		"chatty": logrus.InfoLevel,
		"":       logrus.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
