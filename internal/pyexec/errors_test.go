package pyexec

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		kind   Kind
		hint   string
	}{
		{"missing module", "ModuleNotFoundError: No module named 'netCDF4'", KindMissingPackage, "netCDF4"},
		{"missing submodule", "No module named 'matplotlib.pyplot'", KindMissingPackage, "matplotlib"},
		{"permission", "PermissionError: [Errno 13] Permission denied: '/data/x.nc'", KindPermissionDenied, "Permission denied"},
		{"file missing", "FileNotFoundError: [Errno 2] No such file or directory: 'x.nc'", KindFileNotFound, "x.nc"},
		{"script missing", "python3: can't open file '/s/get_data_info.py': [Errno 2] No such file or directory", KindFileNotFound, "get_data_info.py"},
		{"shell missing interpreter", "sh: 1: python9: command not found", KindInterpreterNotFound, "python.path"},
		{"unknown", "Segmentation fault", KindUnknown, "sciview log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, hint := Classify(tt.stderr)
			if kind != tt.kind {
				t.Fatalf("kind = %s, want %s", kind, tt.kind)
			}
			if !strings.Contains(hint, tt.hint) {
				t.Fatalf("hint %q does not mention %q", hint, tt.hint)
			}
		})
	}
}

func TestClassifyUsesFirstMatchingRule(t *testing.T) {
	rules := []Rule{
		{Substring: "boom", Kind: KindPermissionDenied, Hint: "first"},
		{Substring: "boom", Kind: KindFileNotFound, Hint: "second"},
	}
	kind, hint := ClassifyWith(rules, "big boom")
	if kind != KindPermissionDenied || hint != "first" {
		t.Fatalf("got %s/%q", kind, hint)
	}
}

func TestParseLogLine(t *testing.T) {
	tests := []struct {
		line  string
		level logrus.Level
		msg   string
	}{
		{"2025-01-02 03:04:05,678 - INFO - Using engine netcdf4", logrus.InfoLevel, "Using engine netcdf4"},
		{"DEBUG - details", logrus.DebugLevel, "details"},
		{"x - WARNING - careful", logrus.WarnLevel, "careful"},
		{"CRITICAL - dead", logrus.ErrorLevel, "dead"},
		{"just text", logrus.InfoLevel, "just text"},
	}
	for _, tt := range tests {
		level, msg := ParseLogLine(tt.line)
		if level != tt.level || msg != tt.msg {
			t.Errorf("ParseLogLine(%q) = %v/%q, want %v/%q", tt.line, level, msg, tt.level, tt.msg)
		}
	}
}

func TestExecErrorMessage(t *testing.T) {
	err := &ExecError{Kind: KindUnknown, Executable: "python3", ExitCode: 2, Stderr: "line one\nValueError: bad"}
	if got := err.Error(); got != "python3: unknown-failure (exit 2): ValueError: bad" {
		t.Fatalf("unexpected message %q", got)
	}
}
