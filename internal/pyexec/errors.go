package pyexec

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"regexp"
	"strings"
)

// ErrEmptyExecutable is returned when Run is called without an executable.
var ErrEmptyExecutable = errors.New("pyexec: executable path is empty")

// Kind classifies why a process invocation failed.
type Kind string

const (
	KindInterpreterNotFound Kind = "interpreter-not-found"
	KindMissingPackage      Kind = "missing-package"
	KindPermissionDenied    Kind = "permission-denied"
	KindFileNotFound        Kind = "file-not-found"
	KindUnknown             Kind = "unknown-failure"
	KindTimeout             Kind = "timeout"
	KindCanceled            Kind = "canceled"
)

// ExecError describes a failed or timed out process.
type ExecError struct {
	Kind       Kind
	Executable string
	Args       []string
	ExitCode   int
	Stderr     string
	// Hint is a user-facing remediation message.
	Hint string
	Err  error
}

func (e *ExecError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Executable, e.Kind)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}
	if line := lastLine(e.Stderr); line != "" {
		b.WriteString(": ")
		b.WriteString(line)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err, or "" when err is not an ExecError.
func KindOf(err error) Kind {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr.Kind
	}
	return ""
}

// Rule maps a stderr substring to a failure kind and remediation template.
// The template may reference {module} and {detail}.
type Rule struct {
	Substring string
	Kind      Kind
	Hint      string
}

// StderrRules is evaluated top to bottom; the first match wins.
var StderrRules = []Rule{
	{Substring: "ModuleNotFoundError", Kind: KindMissingPackage, Hint: "Python package '{module}' is not installed in the selected interpreter. Run: sciview env install {module}"},
	{Substring: "No module named", Kind: KindMissingPackage, Hint: "Python package '{module}' is not installed in the selected interpreter. Run: sciview env install {module}"},
	{Substring: "ImportError", Kind: KindMissingPackage, Hint: "A Python import failed: {detail}. Reinstall the affected package with sciview env install."},
	{Substring: "PermissionError", Kind: KindPermissionDenied, Hint: "Permission denied while reading the data file. Check the file permissions."},
	{Substring: "Permission denied", Kind: KindPermissionDenied, Hint: "Permission denied: {detail}. Check file and interpreter permissions."},
	{Substring: "EACCES", Kind: KindPermissionDenied, Hint: "Permission denied: {detail}. Check file and interpreter permissions."},
	{Substring: "FileNotFoundError", Kind: KindFileNotFound, Hint: "File not found: {detail}. Check that the file still exists."},
	{Substring: "No such file or directory", Kind: KindFileNotFound, Hint: "File not found: {detail}. Check the data file and scripts directory."},
	{Substring: "command not found", Kind: KindInterpreterNotFound, Hint: "Python interpreter not found. Install Python 3 or set python.path in sciview.yaml."},
	{Substring: "is not recognized as an internal or external command", Kind: KindInterpreterNotFound, Hint: "Python interpreter not found. Install Python 3 or set python.path in sciview.yaml."},
	{Substring: "ENOENT", Kind: KindInterpreterNotFound, Hint: "Python interpreter not found. Install Python 3 or set python.path in sciview.yaml."},
}

var moduleNameRegex = regexp.MustCompile(`No module named '([^']+)'`)

// Classify matches stderr against StderrRules and renders the hint.
func Classify(stderr string) (Kind, string) {
	return ClassifyWith(StderrRules, stderr)
}

// ClassifyWith matches text against rules and renders the hint of the first
// match. Unmatched text yields KindUnknown.
func ClassifyWith(rules []Rule, text string) (Kind, string) {
	for _, rule := range rules {
		if !strings.Contains(text, rule.Substring) {
			continue
		}
		return rule.Kind, renderHint(rule.Hint, text)
	}
	return KindUnknown, hintFor(KindUnknown)
}

func renderHint(template, text string) string {
	module := "<package>"
	if m := moduleNameRegex.FindStringSubmatch(text); len(m) == 2 {
		module = strings.SplitN(m[1], ".", 2)[0]
	}
	detail := lastLine(text)
	if detail == "" {
		detail = "(no details)"
	}
	r := strings.NewReplacer("{module}", module, "{detail}", detail)
	return r.Replace(template)
}

func hintFor(kind Kind) string {
	switch kind {
	case KindInterpreterNotFound:
		return "Python interpreter not found. Install Python 3 or set python.path in sciview.yaml."
	case KindPermissionDenied:
		return "The interpreter is not executable. Check its permissions or choose another interpreter."
	case KindTimeout:
		return "The Python process did not finish in time and was stopped. Try a smaller selection or raise the timeout."
	case KindUnknown:
		return "The Python process failed. Check the sciview log for details."
	default:
		return ""
	}
}

func classifySpawnError(err error) (Kind, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "", false
	}
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return KindInterpreterNotFound, true
	case errors.Is(err, fs.ErrPermission):
		return KindPermissionDenied, true
	}
	return "", false
}

func lastLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.LastIndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[idx+1:])
	}
	return text
}
