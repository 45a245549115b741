package tui

// RowUpdateMsg updates a single row's fields by column name.
type RowUpdateMsg struct {
	Key    string
	Fields map[string]string
}

// PhaseMsg replaces the footer text, e.g. "Resolving interpreter".
type PhaseMsg string

// WorkDoneMsg signals that all background work has completed. Summary, when
// set, is shown under the table after the program exits.
type WorkDoneMsg struct {
	Summary string
}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}
