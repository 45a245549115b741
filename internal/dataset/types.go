package dataset

import "sort"

// FormatInfo is the format block reported by the helper script.
type FormatInfo struct {
	Extension        string   `json:"extension"`
	DisplayName      string   `json:"display_name"`
	AvailableEngines []string `json:"available_engines"`
	MissingPackages  []string `json:"missing_packages"`
}

// VariableInfo describes a data or coordinate variable.
type VariableInfo struct {
	Name       string         `json:"name"`
	Dtype      string         `json:"dtype"`
	Shape      []int          `json:"shape"`
	Dimensions []string       `json:"dimensions"`
	SizeBytes  int64          `json:"size_bytes"`
	Attributes map[string]any `json:"attributes"`
}

// FileInfo is the successful result of an info request. The *Flattened maps
// are keyed by group path, with "/" for the root group.
type FileInfo struct {
	FormatInfo        FormatInfo                `json:"format_info"`
	UsedEngine        string                    `json:"used_engine"`
	FileSize          int64                     `json:"fileSize"`
	HTMLRepr          string                    `json:"xarray_html_repr"`
	TextRepr          string                    `json:"xarray_text_repr"`
	ShowVersions      string                    `json:"xarray_show_versions"`
	Dimensions        map[string]map[string]int `json:"dimensions_flattened"`
	Variables         map[string][]VariableInfo `json:"variables_flattened"`
	Coordinates       map[string][]VariableInfo `json:"coordinates_flattened"`
	Attributes        map[string]map[string]any `json:"attributes_flattened"`
	HTMLReprFlattened map[string]string         `json:"xarray_html_repr_flattened"`
	TextReprFlattened map[string]string         `json:"xarray_text_repr_flattened"`
}

// Groups returns the group paths present in the result.
func (f FileInfo) Groups() []string {
	var groups []string
	for g := range f.Dimensions {
		groups = append(groups, g)
	}
	sortGroups(groups)
	return groups
}

// Plot is a rendered variable.
type Plot struct {
	// Data is the base64-encoded PNG.
	Data       string     `json:"plot_data"`
	FormatInfo FormatInfo `json:"format_info"`
}

// sortGroups orders group paths with the root first.
func sortGroups(groups []string) {
	sort.Slice(groups, func(i, j int) bool {
		if groups[i] == "/" || groups[j] == "/" {
			return groups[i] == "/" && groups[j] != "/"
		}
		return groups[i] < groups[j]
	})
}
