package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// SliceScript prints the values of one variable, optionally restricted to
// an index range along one dimension.
const SliceScript = "get_data_slice.py"

// ErrVariableNotFound means the slice script could not find the variable,
// or could not open the file at all.
var ErrVariableNotFound = errors.New("variable not found")

// sliceable lists the extensions the slice script opens.
var sliceable = map[string]bool{
	".nc":     true,
	".netcdf": true,
	".zarr":   true,
	".h5":     true,
	".hdf5":   true,
}

// SliceSpec selects the index range [Start, Stop) along Dim. The zero value
// selects the whole variable.
type SliceSpec struct {
	Dim   string `json:"dim,omitempty"`
	Start int    `json:"start"`
	Stop  int    `json:"stop"`
}

// IsZero reports whether spec selects the whole variable.
func (s SliceSpec) IsZero() bool {
	return s.Dim == ""
}

func (s SliceSpec) validate() error {
	if s.IsZero() {
		return nil
	}
	if s.Start < 0 || s.Stop < s.Start {
		return fmt.Errorf("invalid slice %s[%d:%d]", s.Dim, s.Start, s.Stop)
	}
	return nil
}

// Slice is the data of one variable. Data holds the nested JSON arrays as
// printed by the script.
type Slice struct {
	Variable string          `json:"variable"`
	Data     json.RawMessage `json:"data"`
	Shape    []int           `json:"shape"`
	Dtype    string          `json:"dtype"`
}

// Slice returns the values of variable in file, restricted by spec.
func (s *Service) Slice(ctx context.Context, file, variable string, spec SliceSpec) (Slice, error) {
	if strings.TrimSpace(variable) == "" {
		return Slice{}, fmt.Errorf("slice %s: variable name is required", file)
	}
	if err := spec.validate(); err != nil {
		return Slice{}, fmt.Errorf("slice %s: %w", file, err)
	}
	format, err := s.checkFormat(file)
	if err != nil {
		return Slice{}, err
	}
	if !sliceable[format.Extension] {
		return Slice{}, fmt.Errorf("%w: slicing %s files is not supported", ErrUnsupportedFormat, format.DisplayName)
	}
	python, err := s.Env.RequireReady(ctx)
	if err != nil {
		return Slice{}, err
	}
	if err := s.checkEngines(format); err != nil {
		return Slice{}, err
	}

	args := []string{s.script(SliceScript), file, variable}
	if !spec.IsZero() {
		encoded, err := json.Marshal(spec)
		if err != nil {
			return Slice{}, fmt.Errorf("slice %s: %w", file, err)
		}
		args = append(args, string(encoded))
	}
	out, err := s.run(ctx, python, args, s.InfoTimeout)
	if err != nil {
		return Slice{}, fmt.Errorf("slice %s %s: %w", file, variable, err)
	}
	slice, err := decodeSlice(out.Text)
	if err != nil {
		return Slice{}, fmt.Errorf("slice %s %s: %w", file, variable, err)
	}
	return slice, nil
}

// decodeSlice reads the script's bare result object. It prints null when
// the variable is missing and {"error": "..."} when xarray fails.
func decodeSlice(text string) (Slice, error) {
	if !gjson.Valid(text) {
		return Slice{}, fmt.Errorf("%w: %s", ErrMalformedOutput, truncate(text))
	}
	root := gjson.Parse(text)
	if root.Type == gjson.Null {
		return Slice{}, ErrVariableNotFound
	}
	if !root.IsObject() {
		return Slice{}, fmt.Errorf("%w: %s", ErrMalformedOutput, truncate(text))
	}
	if e := root.Get("error"); e.Exists() {
		return Slice{}, &ScriptError{Message: e.String()}
	}
	var slice Slice
	if err := json.Unmarshal([]byte(text), &slice); err != nil {
		return Slice{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if !root.Get("data").Exists() {
		return Slice{}, fmt.Errorf("%w: missing data", ErrMalformedOutput)
	}
	return slice, nil
}
