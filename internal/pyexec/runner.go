package pyexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Options controls a single interpreter invocation.
type Options struct {
	// CaptureJSON attempts to decode stdout as JSON on success.
	CaptureJSON bool
	// Timeout bounds the process runtime. Zero means no hard timeout; the
	// call is still cancelled with its context.
	Timeout time.Duration
	// StreamLogLines forwards stderr lines to the runner's LogSink.
	StreamLogLines bool
	Dir            string
	Env            []string
}

// Output carries everything a finished process produced.
type Output struct {
	Stdout []byte
	Stderr []byte
	// JSON holds the decoded stdout when CaptureJSON was set and stdout was
	// valid JSON. It is nil otherwise.
	JSON any
	// Text is stdout with surrounding whitespace trimmed.
	Text string
}

// Runner executes interpreter processes.
type Runner interface {
	Run(ctx context.Context, executable string, args []string, opts Options) (Output, error)
}

// DefaultWaitDelay bounds how long Run waits for stdio pipes to drain after the
// process was killed. Grandchildren holding the pipes open cannot stall it.
const DefaultWaitDelay = 500 * time.Millisecond

// CmdRunner runs processes with os/exec.
type CmdRunner struct {
	Sink      LogSink
	WaitDelay time.Duration
}

// Run starts executable with args and waits for it to exit, the timeout to
// fire, or ctx to be cancelled. Failures are returned as *ExecError.
func (r CmdRunner) Run(ctx context.Context, executable string, args []string, opts Options) (Output, error) {
	if strings.TrimSpace(executable) == "" {
		return Output{}, ErrEmptyExecutable
	}
	if ctx == nil {
		ctx = context.Background()
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, executable, args...)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf

	var forwarder *lineForwarder
	stderrWriter := io.Writer(&stderrBuf)
	if opts.StreamLogLines && r.Sink != nil {
		forwarder = newLineForwarder(r.Sink)
		stderrWriter = io.MultiWriter(&stderrBuf, forwarder)
	}
	cmd.Stderr = stderrWriter

	err := cmd.Run()
	if forwarder != nil {
		forwarder.Flush()
	}

	out := Output{Stdout: stdoutBuf.Bytes(), Stderr: stderrBuf.Bytes()}
	if err != nil {
		return Output{Stderr: out.Stderr}, newExecError(ctx, runCtx, executable, args, out.Stderr, err)
	}

	out.Text = strings.TrimSpace(string(out.Stdout))
	if opts.CaptureJSON && out.Text != "" {
		var decoded any
		if jsonErr := json.Unmarshal([]byte(out.Text), &decoded); jsonErr == nil {
			out.JSON = decoded
		}
	}
	return out, nil
}

func newExecError(parent, runCtx context.Context, executable string, args []string, stderr []byte, err error) *ExecError {
	execErr := &ExecError{
		Executable: executable,
		Args:       append([]string(nil), args...),
		ExitCode:   -1,
		Stderr:     strings.TrimSpace(string(stderr)),
		Err:        err,
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		execErr.ExitCode = exitErr.ExitCode()
	}

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		execErr.Kind = KindTimeout
		execErr.Hint = hintFor(KindTimeout)
		return execErr
	case parent.Err() != nil:
		execErr.Kind = KindCanceled
		return execErr
	}

	if spawnKind, ok := classifySpawnError(err); ok {
		execErr.Kind = spawnKind
		execErr.Hint = hintFor(spawnKind)
		return execErr
	}

	execErr.Kind, execErr.Hint = Classify(execErr.Stderr)
	return execErr
}

var _ Runner = CmdRunner{}
