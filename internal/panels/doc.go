// Package panels tracks the consumers that display data files and reloads the
// ones whose last load failed once the Python environment becomes usable.
package panels
