package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"sciview/internal/config"
	"sciview/internal/dataset"
	"sciview/internal/paths"
	"sciview/internal/pyenv"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check workspace and Python environment health",
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	pp = pp.WithConfigFile(configFile)
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return fmt.Errorf("stat project dir: %w", err)
	}
	if !exists {
		return fmt.Errorf("project directory does not exist: %s", pp.Root)
	}

	var checks []healthCheck

	cfg, cfgErr := config.Load(pp.ConfigFile)
	checks = append(checks, checkConfig(pp, cfg, cfgErr))
	if cfgErr != nil {
		// Can't build the environment without config
		return writeDoctorResult(cmd, pp.Root, checks)
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	info, _ := a.Initialize(cmd.Context())
	sets := a.Manager().Packages()

	checks = append(checks, checkInterpreter(info))
	if info.Initialized {
		checks = append(checks, checkCorePackages(info, sets))
		checks = append(checks, checkOptionalPackages(info, sets))
		checks = append(checks, checkFormats(info))
	}
	checks = append(checks, checkScripts(a.Dataset()))

	return writeDoctorResult(cmd, pp.Root, checks)
}

func checkConfig(pp paths.ProjectPaths, cfg config.Config, cfgErr error) healthCheck {
	if cfgErr != nil {
		return healthCheck{Name: "Config", Status: "error", Summary: cfgErr.Error()}
	}

	validations := cfg.Validate(pp.Root)
	var warnings, errors int
	for _, v := range validations {
		switch v.Level {
		case "warning":
			warnings++
		case "error":
			errors++
		}
	}

	summary := "defaults"
	if ok, _ := paths.FileExists(pp.ConfigFile); ok {
		summary = pp.ConfigFile
	}

	if errors > 0 {
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%s; %d errors", summary, errors)}
	}
	if warnings > 0 {
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%s; %d warnings", summary, warnings)}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: summary}
}

func checkInterpreter(info pyenv.EnvironmentInfo) healthCheck {
	if !info.Initialized {
		summary := info.Error
		if info.Hint != "" {
			summary += " (" + info.Hint + ")"
		}
		return healthCheck{Name: "Python", Status: "error", Summary: summary}
	}
	label := info.PathValue()
	if info.Version != "" {
		label = info.Version + " at " + label
	}
	return healthCheck{Name: "Python", Status: "ok", Summary: fmt.Sprintf("%s (%s)", label, info.SourceValue())}
}

func checkCorePackages(info pyenv.EnvironmentInfo, sets pyenv.PackageSets) healthCheck {
	if len(info.MissingCore) > 0 {
		return healthCheck{
			Name:    "Core",
			Status:  "error",
			Summary: "missing " + joinComma(info.MissingCore),
		}
	}
	return healthCheck{Name: "Core", Status: "ok", Summary: joinComma(sets.Core)}
}

func checkOptionalPackages(info pyenv.EnvironmentInfo, sets pyenv.PackageSets) healthCheck {
	available := len(sets.Optional) - len(info.MissingOptional)
	summary := fmt.Sprintf("%d of %d available", available, len(sets.Optional))
	if len(info.MissingOptional) > 0 {
		return healthCheck{
			Name:    "Optional",
			Status:  "warning",
			Summary: fmt.Sprintf("%s; missing %s", summary, joinComma(info.MissingOptional)),
		}
	}
	return healthCheck{Name: "Optional", Status: "ok", Summary: summary}
}

func checkFormats(info pyenv.EnvironmentInfo) healthCheck {
	var readable, unreadable []string
	for _, ext := range dataset.Extensions() {
		format, _ := dataset.DetectFormat("file" + ext)
		if format.Readable(info.Packages) {
			readable = append(readable, ext)
		} else {
			unreadable = append(unreadable, ext)
		}
	}
	if len(readable) == 0 {
		return healthCheck{Name: "Formats", Status: "error", Summary: "no format can be opened"}
	}
	if len(unreadable) > 0 {
		return healthCheck{
			Name:    "Formats",
			Status:  "warning",
			Summary: fmt.Sprintf("%d readable; unavailable: %s", len(readable), strings.Join(unreadable, " ")),
		}
	}
	return healthCheck{Name: "Formats", Status: "ok", Summary: fmt.Sprintf("all %d readable", len(readable))}
}

func checkScripts(svc *dataset.Service) healthCheck {
	if missing := svc.ScriptsPresent(); len(missing) > 0 {
		return healthCheck{
			Name:    "Scripts",
			Status:  "error",
			Summary: fmt.Sprintf("%s missing in %s", joinComma(missing), svc.ScriptsDir),
		}
	}
	return healthCheck{Name: "Scripts", Status: "ok", Summary: svc.ScriptsDir}
}

func writeDoctorResult(cmd *cobra.Command, projectRoot string, checks []healthCheck) error {
	if outputJSON {
		data, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("WORKSPACE HEALTH:")+" "+projectRoot)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-12s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}

	return nil
}

func joinComma(items []string) string {
	if len(items) == 0 {
		return ""
	}
	result := items[0]
	for _, item := range items[1:] {
		result += ", " + item
	}
	return result
}
