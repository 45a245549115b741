// Package pyenv finds, validates and tracks the Python interpreter used for
// data operations.
//
// A Resolver walks the interpreter sources in priority order, a Prober checks
// interpreters and packages with short-lived subprocesses, and a Manager turns
// the outcome into a readiness state that data operations wait on.
package pyenv
