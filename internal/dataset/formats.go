package dataset

import (
	"path/filepath"
	"sort"
	"strings"

	"sciview/internal/pyenv"
)

// Format describes how a file extension is opened by xarray.
type Format struct {
	Extension   string   `json:"extension"`
	DisplayName string   `json:"display_name"`
	Engines     []string `json:"engines"`
}

// enginePackages maps an xarray engine to the importable package providing it.
var enginePackages = map[string]string{
	"netcdf4":  "netCDF4",
	"h5netcdf": "h5netcdf",
	"scipy":    "scipy",
	"zarr":     "zarr",
	"h5py":     "h5py",
	"cfgrib":   "cfgrib",
	"rasterio": "rioxarray",
}

var formats = map[string]Format{
	".nc":       {".nc", "NetCDF", []string{"netcdf4", "h5netcdf", "scipy"}},
	".nc4":      {".nc4", "NetCDF4", []string{"netcdf4", "h5netcdf"}},
	".netcdf":   {".netcdf", "NetCDF", []string{"netcdf4", "h5netcdf", "scipy"}},
	".cdf":      {".cdf", "CDF/NetCDF", []string{"netcdf4", "h5netcdf", "scipy"}},
	".zarr":     {".zarr", "Zarr", []string{"zarr"}},
	".h5":       {".h5", "HDF5", []string{"h5netcdf", "h5py", "netcdf4"}},
	".hdf5":     {".hdf5", "HDF5", []string{"h5netcdf", "h5py", "netcdf4"}},
	".grib":     {".grib", "GRIB", []string{"cfgrib"}},
	".grib2":    {".grib2", "GRIB2", []string{"cfgrib"}},
	".grb":      {".grb", "GRIB", []string{"cfgrib"}},
	".tif":      {".tif", "GeoTIFF", []string{"rasterio"}},
	".tiff":     {".tiff", "GeoTIFF", []string{"rasterio"}},
	".geotiff":  {".geotiff", "GeoTIFF", []string{"rasterio"}},
	".jp2":      {".jp2", "JPEG-2000", []string{"rasterio"}},
	".jpeg2000": {".jpeg2000", "JPEG-2000", []string{"rasterio"}},
}

// PlottingPackage is required for Plot but not for Info.
const PlottingPackage = "matplotlib"

// DetectFormat returns the format for path's extension. Zarr stores are
// directories, so a trailing separator is ignored.
func DetectFormat(path string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(strings.TrimRight(path, `/\`)))
	f, ok := formats[ext]
	return f, ok
}

// Extensions returns every supported extension, sorted.
func Extensions() []string {
	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Packages returns the packages providing f's engines, in engine order.
func (f Format) Packages() []string {
	out := make([]string, 0, len(f.Engines))
	for _, engine := range f.Engines {
		out = append(out, EnginePackage(engine))
	}
	return out
}

// AvailableEngines returns f's engines whose package is available.
func (f Format) AvailableEngines(avail pyenv.PackageAvailabilityMap) []string {
	var out []string
	for _, engine := range f.Engines {
		if avail[EnginePackage(engine)] {
			out = append(out, engine)
		}
	}
	return out
}

// MissingPackages returns the packages for f's engines that are not
// available.
func (f Format) MissingPackages(avail pyenv.PackageAvailabilityMap) []string {
	return avail.Missing(f.Packages())
}

// Readable reports whether at least one engine for f can be used.
func (f Format) Readable(avail pyenv.PackageAvailabilityMap) bool {
	return len(f.AvailableEngines(avail)) > 0
}

// EnginePackage returns the package name for an xarray engine.
func EnginePackage(engine string) string {
	if pkg, ok := enginePackages[engine]; ok {
		return pkg
	}
	return engine
}

// OptionalPackages returns matplotlib plus every engine package, sorted.
// These degrade format or plot support when missing but never block the
// environment.
func OptionalPackages() []string {
	seen := map[string]bool{PlottingPackage: true}
	out := []string{PlottingPackage}
	for _, pkg := range enginePackages {
		if !seen[pkg] {
			seen[pkg] = true
			out = append(out, pkg)
		}
	}
	sort.Strings(out)
	return out
}

// CorePackages returns the packages without which no data operation works.
func CorePackages() []string {
	return []string{"xarray"}
}
