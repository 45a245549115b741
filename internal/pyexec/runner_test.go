package pyexec

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/goleak"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

type recordedLine struct {
	level logrus.Level
	msg   string
}

type recordingSink struct {
	mu    sync.Mutex
	lines []recordedLine
}

func (s *recordingSink) Log(level logrus.Level, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := ""
	if len(args) > 0 {
		msg, _ = args[0].(string)
	}
	s.lines = append(s.lines, recordedLine{level: level, msg: msg})
}

type panickingSink struct{}

func (panickingSink) Log(logrus.Level, ...interface{}) { panic("sink unavailable") }

func TestRunRejectsEmptyExecutable(t *testing.T) {
	_, err := CmdRunner{}.Run(context.Background(), "  ", nil, Options{})
	if !errors.Is(err, ErrEmptyExecutable) {
		t.Fatalf("expected ErrEmptyExecutable, got %v", err)
	}
}

func TestRunCapturesJSON(t *testing.T) {
	requireShell(t)
	out, err := CmdRunner{}.Run(context.Background(), "/bin/sh", []string{"-c", `echo '{"result": {"n": 1}}'`}, Options{CaptureJSON: true, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	obj, ok := out.JSON.(map[string]any)
	if !ok {
		t.Fatalf("expected decoded object, got %T", out.JSON)
	}
	if _, ok := obj["result"]; !ok {
		t.Fatalf("expected result key, got %v", obj)
	}
}

func TestRunFallsBackToRawText(t *testing.T) {
	requireShell(t)
	out, err := CmdRunner{}.Run(context.Background(), "/bin/sh", []string{"-c", "echo aGVsbG8="}, Options{CaptureJSON: true})
	if err != nil {
		t.Fatalf("non-JSON output must not fail: %v", err)
	}
	if out.JSON != nil {
		t.Fatalf("expected nil JSON, got %v", out.JSON)
	}
	if out.Text != "aGVsbG8=" {
		t.Fatalf("unexpected text %q", out.Text)
	}
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	requireShell(t)
	defer goleak.VerifyNone(t)

	start := time.Now()
	out, err := CmdRunner{}.Run(context.Background(), "/bin/sh", []string{"-c", "echo partial; exec sleep 5"}, Options{Timeout: 100 * time.Millisecond})
	elapsed := time.Since(start)

	if KindOf(err) != KindTimeout {
		t.Fatalf("expected timeout kind, got %v", err)
	}
	if elapsed > 3*time.Second {
		t.Fatalf("timeout took too long: %v", elapsed)
	}
	if len(out.Stdout) != 0 || out.Text != "" || out.JSON != nil {
		t.Fatalf("expected no partial stdout on timeout, got %+v", out)
	}
}

func TestRunCanceledByContext(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := CmdRunner{}.Run(ctx, "/bin/sh", []string{"-c", "exec sleep 5"}, Options{})
	if KindOf(err) != KindCanceled {
		t.Fatalf("expected canceled kind, got %v", err)
	}
}

func TestRunClassifiesMissingModule(t *testing.T) {
	requireShell(t)
	script := `echo "Traceback (most recent call last):" >&2; echo "ModuleNotFoundError: No module named 'xarray'" >&2; exit 1`
	_, err := CmdRunner{}.Run(context.Background(), "/bin/sh", []string{"-c", script}, Options{})

	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if execErr.Kind != KindMissingPackage {
		t.Fatalf("expected missing-package, got %s", execErr.Kind)
	}
	if execErr.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", execErr.ExitCode)
	}
	if !strings.Contains(execErr.Hint, "sciview env install xarray") {
		t.Fatalf("unexpected hint %q", execErr.Hint)
	}
}

func TestRunInterpreterNotFound(t *testing.T) {
	_, err := CmdRunner{}.Run(context.Background(), "/definitely/not/here/python3", []string{"--version"}, Options{})
	if KindOf(err) != KindInterpreterNotFound {
		t.Fatalf("expected interpreter-not-found, got %v", err)
	}
}

func TestRunStreamsLogLines(t *testing.T) {
	requireShell(t)
	sink := &recordingSink{}
	script := `printf '2024-05-01 10:00:00,123 - WARNING - slow engine\nplain progress\nERROR - plot failed' >&2`
	_, err := CmdRunner{Sink: sink}.Run(context.Background(), "/bin/sh", []string{"-c", script}, Options{StreamLogLines: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []recordedLine{
		{level: logrus.WarnLevel, msg: "slow engine"},
		{level: logrus.InfoLevel, msg: "plain progress"},
		{level: logrus.ErrorLevel, msg: "plot failed"},
	}
	if len(sink.lines) != len(want) {
		t.Fatalf("expected %d lines, got %+v", len(want), sink.lines)
	}
	for i := range want {
		if sink.lines[i] != want[i] {
			t.Errorf("line %d: got %+v, want %+v", i, sink.lines[i], want[i])
		}
	}
}

func TestRunSurvivesPanickingSink(t *testing.T) {
	requireShell(t)
	out, err := CmdRunner{Sink: panickingSink{}}.Run(context.Background(), "/bin/sh", []string{"-c", "echo INFO - hi >&2; echo done"}, Options{StreamLogLines: true})
	if err != nil {
		t.Fatalf("sink failure must not fail the run: %v", err)
	}
	if out.Text != "done" {
		t.Fatalf("unexpected stdout %q", out.Text)
	}
}
