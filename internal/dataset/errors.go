package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat means the file extension is not in the format
	// matrix.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrMalformedOutput means the helper script printed something that is
	// not a result/error envelope.
	ErrMalformedOutput = errors.New("malformed helper script output")
)

// ScriptError is an error reported by the helper script inside its error
// envelope. The process itself exited successfully.
type ScriptError struct {
	Message    string     `json:"error"`
	Type       string     `json:"error_type,omitempty"`
	Suggestion string     `json:"suggestion,omitempty"`
	FormatInfo FormatInfo `json:"format_info"`
	Versions   string     `json:"xarray_show_versions,omitempty"`
}

func (e *ScriptError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return e.Message
}
