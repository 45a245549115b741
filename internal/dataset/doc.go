// Package dataset runs the xarray helper scripts that describe and plot
// scientific data files, and knows which Python packages each file format
// needs.
package dataset
