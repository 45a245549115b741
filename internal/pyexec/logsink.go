package pyexec

import (
	"bytes"
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogSink receives forwarded stderr lines. *logrus.Logger and *logrus.Entry
// satisfy it.
type LogSink interface {
	Log(level logrus.Level, args ...interface{})
}

// Python's logging default format is "%(asctime)s - %(levelname)s - %(message)s";
// the timestamp prefix is optional.
var logLineRegex = regexp.MustCompile(`^(?:.*? - )?(DEBUG|INFO|WARNING|WARN|ERROR|CRITICAL|FATAL) - (.*)$`)

// ParseLogLine extracts the severity and message of a stderr line. Lines that
// do not follow the LEVEL - message convention are reported at info level.
func ParseLogLine(line string) (logrus.Level, string) {
	m := logLineRegex.FindStringSubmatch(line)
	if m == nil {
		return logrus.InfoLevel, line
	}
	switch m[1] {
	case "DEBUG":
		return logrus.DebugLevel, m[2]
	case "WARNING", "WARN":
		return logrus.WarnLevel, m[2]
	case "ERROR", "CRITICAL", "FATAL":
		return logrus.ErrorLevel, m[2]
	default:
		return logrus.InfoLevel, m[2]
	}
}

// lineForwarder splits a byte stream into lines and hands each one to a sink.
// Write never fails so the process output capture is never interrupted.
type lineForwarder struct {
	mu      sync.Mutex
	sink    LogSink
	pending []byte
}

func newLineForwarder(sink LogSink) *lineForwarder {
	return &lineForwarder{sink: sink}
}

func (f *lineForwarder) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pending = append(f.pending, p...)
	for {
		idx := bytes.IndexByte(f.pending, '\n')
		if idx < 0 {
			break
		}
		line := string(f.pending[:idx])
		f.pending = f.pending[idx+1:]
		f.emit(line)
	}
	return len(p), nil
}

// Flush forwards any trailing partial line.
func (f *lineForwarder) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) > 0 {
		f.emit(string(f.pending))
		f.pending = nil
	}
}

func (f *lineForwarder) emit(line string) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" || f.sink == nil {
		return
	}
	defer func() {
		// A misbehaving sink must not break process handling.
		_ = recover()
	}()
	level, msg := ParseLogLine(line)
	f.sink.Log(level, msg)
}
