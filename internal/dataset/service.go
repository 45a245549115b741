package dataset

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"sciview/internal/pyenv"
	"sciview/internal/pyexec"
)

const (
	InfoScript     = "get_data_info.py"
	VersionsScript = "get_show_versions.py"

	DefaultPlotTimeout = 60 * time.Second
)

// Environment gates data operations on interpreter readiness.
type Environment interface {
	RequireReady(ctx context.Context) (string, error)
	Info() pyenv.EnvironmentInfo
}

// Service runs the helper scripts against data files.
type Service struct {
	Env        Environment
	Runner     pyexec.Runner
	ScriptsDir string
	// PlotTimeout bounds a plot request. Zero disables the hard timeout;
	// the request is still cancelled with its context.
	PlotTimeout time.Duration
	// InfoTimeout bounds an info request. Zero disables it.
	InfoTimeout time.Duration
	PlotStyle   string
	Logger      logrus.FieldLogger
}

// PlotOptions selects how a variable is rendered.
type PlotOptions struct {
	// Type is "auto", "line", "histogram" or any type the script accepts.
	Type  string
	Style string
	// Timeout overrides Service.PlotTimeout when positive.
	Timeout time.Duration
}

// Info returns the structure of file.
func (s *Service) Info(ctx context.Context, file string) (FileInfo, error) {
	format, err := s.checkFormat(file)
	if err != nil {
		return FileInfo{}, err
	}
	python, err := s.Env.RequireReady(ctx)
	if err != nil {
		return FileInfo{}, err
	}
	if err := s.checkEngines(format); err != nil {
		return FileInfo{}, err
	}

	out, err := s.run(ctx, python, []string{s.script(InfoScript), "info", file}, s.InfoTimeout)
	if err != nil {
		return FileInfo{}, fmt.Errorf("info %s: %w", file, err)
	}
	var info FileInfo
	if err := decodeEnvelope(out.Text, &info); err != nil {
		return FileInfo{}, fmt.Errorf("info %s: %w", file, err)
	}
	return info, nil
}

// Plot renders variable from file. The result is never partial: on timeout
// or cancellation only the error is returned.
func (s *Service) Plot(ctx context.Context, file, variable string, opts PlotOptions) (Plot, error) {
	if strings.TrimSpace(variable) == "" {
		return Plot{}, fmt.Errorf("plot %s: variable name is required", file)
	}
	format, err := s.checkFormat(file)
	if err != nil {
		return Plot{}, err
	}
	python, err := s.Env.RequireReady(ctx)
	if err != nil {
		return Plot{}, err
	}
	if err := s.checkEngines(format); err != nil {
		return Plot{}, err
	}
	if pkgs := s.Env.Info().Packages; pkgs != nil && !pkgs[PlottingPackage] {
		return Plot{}, &ScriptError{
			Message:    "plotting requires matplotlib",
			Type:       "ImportError",
			Suggestion: "sciview env install " + PlottingPackage,
		}
	}

	args := []string{s.script(InfoScript), "plot", file, variable}
	plotType := opts.Type
	if plotType == "" {
		plotType = "auto"
	}
	args = append(args, plotType)
	style := opts.Style
	if style == "" {
		style = s.PlotStyle
	}
	if style != "" {
		args = append(args, "--style", style)
	}

	timeout := s.PlotTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	out, err := s.run(ctx, python, args, timeout)
	if err != nil {
		return Plot{}, fmt.Errorf("plot %s %s: %w", file, variable, err)
	}
	plot, err := decodePlot(out.Text)
	if err != nil {
		return Plot{}, fmt.Errorf("plot %s %s: %w", file, variable, err)
	}
	return plot, nil
}

// ShowVersions returns xarray.show_versions() output for the interpreter.
func (s *Service) ShowVersions(ctx context.Context) (string, error) {
	python, err := s.Env.RequireReady(ctx)
	if err != nil {
		return "", err
	}
	out, err := s.runner().Run(ctx, python, []string{s.script(VersionsScript)}, pyexec.Options{
		CaptureJSON:    true,
		StreamLogLines: true,
		Timeout:        pyenv.DefaultPackageTimeout,
	})
	if err != nil {
		return "", fmt.Errorf("show versions: %w", err)
	}
	obj, ok := out.JSON.(map[string]any)
	if !ok {
		// Older scripts print the report as plain text.
		return out.Text, nil
	}
	if msg, ok := obj["error"].(string); ok {
		return "", &ScriptError{Message: msg}
	}
	versions, _ := obj["versions"].(string)
	return versions, nil
}

// ScriptsPresent reports which helper scripts are missing from ScriptsDir.
func (s *Service) ScriptsPresent() (missing []string) {
	for _, name := range []string{InfoScript, VersionsScript, SliceScript} {
		if _, err := os.Stat(s.script(name)); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}

func (s *Service) checkFormat(file string) (Format, error) {
	format, ok := DetectFormat(file)
	if !ok {
		return Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(file))
	}
	return format, nil
}

// checkEngines fails early when the ready interpreter has no engine for
// format, instead of letting the script discover it.
func (s *Service) checkEngines(format Format) error {
	pkgs := s.Env.Info().Packages
	if pkgs == nil || format.Readable(pkgs) {
		return nil
	}
	missing := format.MissingPackages(pkgs)
	return &ScriptError{
		Message:    fmt.Sprintf("Missing dependencies for %s files: %s", format.DisplayName, strings.Join(missing, ", ")),
		Type:       "ImportError",
		Suggestion: "sciview env install " + strings.Join(missing, " "),
		FormatInfo: FormatInfo{
			Extension:       format.Extension,
			DisplayName:     format.DisplayName,
			MissingPackages: missing,
		},
	}
}

func (s *Service) run(ctx context.Context, python string, args []string, timeout time.Duration) (pyexec.Output, error) {
	s.logger().WithFields(logrus.Fields{"python": python, "args": args}).Debug("running helper script")
	return s.runner().Run(ctx, python, args, pyexec.Options{
		Timeout:        timeout,
		StreamLogLines: true,
	})
}

func (s *Service) script(name string) string {
	return filepath.Join(s.ScriptsDir, name)
}

func (s *Service) runner() pyexec.Runner {
	if s.Runner == nil {
		return pyexec.CmdRunner{}
	}
	return s.Runner
}

func (s *Service) logger() logrus.FieldLogger {
	if s.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return s.Logger
}

// decodeEnvelope decodes {"result": ...} into result, or returns the
// ScriptError in {"error": ...}.
func decodeEnvelope(text string, result any) error {
	if !gjson.Valid(text) {
		return fmt.Errorf("%w: %s", ErrMalformedOutput, truncate(text))
	}
	if r := gjson.Get(text, "result"); r.Exists() && r.IsObject() {
		if err := json.Unmarshal([]byte(r.Raw), result); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
		return nil
	}
	e := gjson.Get(text, "error")
	switch {
	case e.IsObject():
		scriptErr := &ScriptError{}
		if err := json.Unmarshal([]byte(e.Raw), scriptErr); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
		return scriptErr
	case e.Type == gjson.String:
		return &ScriptError{Message: e.String()}
	}
	return fmt.Errorf("%w: missing result or error", ErrMalformedOutput)
}

// decodePlot accepts the plot envelope and the older raw base64 output.
func decodePlot(text string) (Plot, error) {
	if strings.HasPrefix(text, "{") {
		var plot Plot
		if err := decodeEnvelope(text, &plot); err != nil {
			return Plot{}, err
		}
		if plot.Data == "" {
			return Plot{}, fmt.Errorf("%w: empty plot data", ErrMalformedOutput)
		}
		return plot, nil
	}
	if text == "" {
		return Plot{}, fmt.Errorf("%w: empty plot data", ErrMalformedOutput)
	}
	if _, err := base64.StdEncoding.DecodeString(text); err != nil {
		return Plot{}, fmt.Errorf("%w: plot data is not base64", ErrMalformedOutput)
	}
	return Plot{Data: text}, nil
}

func truncate(text string) string {
	const max = 200
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
