package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"sciview/internal/pyenv"
)

// Package table columns.
const (
	ColPackage = "PACKAGE"
	ColTier    = "TIER"
	ColStatus  = "STATUS"
)

// ProbeReporter forwards package probe events to a running program as row
// updates. It implements pyenv.ProbeObserver.
type ProbeReporter struct {
	send func(tea.Msg)
}

// NewProbeReporter returns a reporter that delivers messages through send.
func NewProbeReporter(send func(tea.Msg)) *ProbeReporter {
	return &ProbeReporter{send: send}
}

// ProbeStarted implements pyenv.ProbeObserver.
func (r *ProbeReporter) ProbeStarted(pkg string) {
	r.send(RowUpdateMsg{Key: pkg, Fields: map[string]string{ColStatus: "checking"}})
}

// ProbeFinished implements pyenv.ProbeObserver.
func (r *ProbeReporter) ProbeFinished(pkg string, available bool) {
	r.send(RowUpdateMsg{Key: pkg, Fields: map[string]string{ColStatus: availabilityStatus(available)}})
}

var _ pyenv.ProbeObserver = (*ProbeReporter)(nil)

// NewPackageTable returns a model with one pending row per package.
func NewPackageTable(title string, sets pyenv.PackageSets) ProgressModel {
	m := NewProgressModel(title, []Column{
		{Header: ColPackage, Width: 14},
		{Header: ColTier, Width: 8},
		{Header: ColStatus, Width: 10},
	})
	core := make(map[string]bool, len(sets.Core))
	for _, name := range sets.Core {
		core[name] = true
	}
	for _, name := range sets.All() {
		tier := "optional"
		if core[name] {
			tier = "core"
		}
		m.AddRow(name, []string{name, tier, "pending"})
	}
	return m
}

// PackageTableFromInfo fills a package table from a finished snapshot.
func PackageTableFromInfo(sets pyenv.PackageSets, info pyenv.EnvironmentInfo) ProgressModel {
	m := NewPackageTable("", sets)
	for _, name := range sets.All() {
		status := "pending"
		if available, ok := info.Packages[name]; ok {
			status = availabilityStatus(available)
		}
		m.applyRowUpdate(RowUpdateMsg{Key: name, Fields: map[string]string{ColStatus: status}})
	}
	m.done = true
	return m
}

func availabilityStatus(available bool) string {
	if available {
		return "available"
	}
	return "missing"
}
