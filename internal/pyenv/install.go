package pyenv

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"sciview/internal/pyexec"
)

// Installer installs packages into an interpreter.
type Installer struct {
	Runner   pyexec.Runner
	Logger   logrus.FieldLogger
	LookPath func(string) (string, error)
}

// InstallError wraps a failed pip run with a remediation hint derived from
// its output.
type InstallError struct {
	Packages []string
	Hint     string
	Err      error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install %s: %v", strings.Join(e.Packages, " "), e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

var requirementRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-\[\],<>=!~]*$`)

// Install runs pip for python. It prefers "uv pip install" when uv is on PATH.
func (i *Installer) Install(ctx context.Context, python string, packages []string) error {
	if len(packages) == 0 {
		return nil
	}
	for _, name := range packages {
		if !requirementRegex.MatchString(name) {
			return fmt.Errorf("invalid package requirement %q", name)
		}
	}

	runner := i.Runner
	if runner == nil {
		runner = pyexec.CmdRunner{}
	}
	lookPath := i.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	executable := python
	args := append([]string{"-m", "pip", "install"}, packages...)
	if uv, err := lookPath("uv"); err == nil {
		executable = uv
		args = append([]string{"pip", "install", "--python", python}, packages...)
	}

	if i.Logger != nil {
		i.Logger.WithFields(logrus.Fields{"python": python, "packages": packages}).Info("installing python packages")
	}
	// pip can legitimately run for minutes; only ctx bounds it.
	_, err := runner.Run(ctx, executable, args, pyexec.Options{})
	if err == nil {
		return nil
	}

	output := err.Error()
	var execErr *pyexec.ExecError
	if errors.As(err, &execErr) {
		output = execErr.Stderr
	}
	return &InstallError{Packages: packages, Hint: ClassifyInstallError(output), Err: err}
}

type installRule struct {
	substring string
	hint      string
}

var installRules = []installRule{
	{"externally-managed-environment", "This interpreter is managed by the system. Create a dedicated environment with: sciview env create"},
	{"Permission denied", "Permission denied while installing. Use a virtual environment or install with --user."},
	{"EnvironmentError: [Errno 13]", "Permission denied while installing. Use a virtual environment or install with --user."},
	{"SSL", "SSL verification failed. Check proxy settings or configure pip's trusted hosts and certificates."},
	{"CERTIFICATE_VERIFY_FAILED", "SSL verification failed. Check proxy settings or configure pip's trusted hosts and certificates."},
	{"Microsoft Visual C++", "A C compiler is required to build a dependency. Install build tools or use a prebuilt wheel (e.g. via conda)."},
	{"gcc", "A C compiler is required to build a dependency. Install build tools or use a prebuilt wheel (e.g. via conda)."},
	{"Failed building wheel", "A dependency failed to build. Install system build tools or use a prebuilt wheel (e.g. via conda)."},
	{"No matching distribution found", "No compatible release exists for this Python version. Upgrade Python or pick another interpreter."},
	{"Could not find a version", "No compatible release exists for this Python version. Upgrade Python or pick another interpreter."},
	{"No module named pip", "pip is not available in this interpreter. Run: python -m ensurepip --upgrade"},
	{"Temporary failure in name resolution", "Network unavailable. Check your internet connection or proxy settings."},
	{"Connection", "Network error while downloading packages. Check your internet connection or proxy settings."},
}

// ClassifyInstallError maps pip output to a user-facing remediation hint.
func ClassifyInstallError(output string) string {
	for _, rule := range installRules {
		if strings.Contains(output, rule.substring) {
			return rule.hint
		}
	}
	return "Package installation failed. See the sciview log for pip's output."
}
