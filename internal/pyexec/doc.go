// Package pyexec runs Python interpreter processes and turns their exit status,
// stdout and stderr into structured results.
//
// Successful runs can decode stdout as JSON, falling back to raw text. Failed
// runs are classified into an ExecError Kind with a remediation hint. Stderr
// lines following Python's "LEVEL - message" logging convention can be
// forwarded to a logrus sink at the matching severity.
package pyexec
