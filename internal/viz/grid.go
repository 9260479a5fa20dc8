// Package viz renders geocoded entities as density heatmaps and time-binned
// animations over boundary layers.
package viz

import (
	"math"

	"github.com/text2map/text2map-cli/internal/boundary"
	"github.com/text2map/text2map-cli/internal/model"
)

// Extent is a lon/lat bounding box in EPSG:4326.
type Extent struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
}

// Valid reports whether the extent spans a nonzero area.
func (e Extent) Valid() bool {
	return e.MaxLon > e.MinLon && e.MaxLat > e.MinLat
}

// Pad grows the extent by fraction on every side.
func (e Extent) Pad(fraction float64) Extent {
	dx := (e.MaxLon - e.MinLon) * fraction
	dy := (e.MaxLat - e.MinLat) * fraction
	return Extent{
		MinLon: e.MinLon - dx,
		MinLat: e.MinLat - dy,
		MaxLon: e.MaxLon + dx,
		MaxLat: e.MaxLat + dy,
	}
}

// DataExtent computes the bounding box of the boundary layers if any are
// loaded, falling back to the matched points. The second return value is
// false when neither source yields an area.
func DataExtent(boundaries *boundary.Set, points []model.GeocodedEntity) (Extent, bool) {
	e := Extent{
		MinLon: math.Inf(1), MinLat: math.Inf(1),
		MaxLon: math.Inf(-1), MaxLat: math.Inf(-1),
	}

	grow := func(lon, lat float64) {
		e.MinLon = math.Min(e.MinLon, lon)
		e.MinLat = math.Min(e.MinLat, lat)
		e.MaxLon = math.Max(e.MaxLon, lon)
		e.MaxLat = math.Max(e.MaxLat, lat)
	}

	layers := []*boundary.Layer{}
	if boundaries != nil {
		for _, l := range []*boundary.Layer{boundaries.Country, boundaries.Region, boundaries.County} {
			if l != nil {
				layers = append(layers, l)
			}
		}
	}
	for _, l := range layers {
		for _, r := range l.Regions() {
			b := r.Geom.Bounds()
			grow(b.Min(0), b.Min(1))
			grow(b.Max(0), b.Max(1))
		}
	}

	if len(layers) == 0 {
		for _, p := range points {
			if p.Matched {
				grow(p.Lon, p.Lat)
			}
		}
	}

	if math.IsInf(e.MinLon, 1) {
		return Extent{}, false
	}

	// A single point or a colinear set still needs a drawable area.
	const minSpan = 0.5
	if e.MaxLon-e.MinLon < minSpan {
		mid := (e.MinLon + e.MaxLon) / 2
		e.MinLon, e.MaxLon = mid-minSpan/2, mid+minSpan/2
	}
	if e.MaxLat-e.MinLat < minSpan {
		mid := (e.MinLat + e.MaxLat) / 2
		e.MinLat, e.MaxLat = mid-minSpan/2, mid+minSpan/2
	}

	return e.Pad(0.05), true
}

// Grid accumulates point density over an extent on an equirectangular cell
// lattice.
type Grid struct {
	extent     Extent
	cols, rows int
	cells      []float64
}

// NewGrid creates an empty cols x rows grid covering extent.
func NewGrid(extent Extent, cols, rows int) *Grid {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &Grid{
		extent: extent,
		cols:   cols,
		rows:   rows,
		cells:  make([]float64, cols*rows),
	}
}

// cell maps a coordinate to its column and row. Row 0 is the northern edge so
// the grid reads like an image.
func (g *Grid) cell(lat, lon float64) (int, int, bool) {
	if lon < g.extent.MinLon || lon > g.extent.MaxLon ||
		lat < g.extent.MinLat || lat > g.extent.MaxLat {
		return 0, 0, false
	}
	col := int((lon - g.extent.MinLon) / (g.extent.MaxLon - g.extent.MinLon) * float64(g.cols))
	row := int((g.extent.MaxLat - lat) / (g.extent.MaxLat - g.extent.MinLat) * float64(g.rows))
	if col >= g.cols {
		col = g.cols - 1
	}
	if row >= g.rows {
		row = g.rows - 1
	}
	return col, row, true
}

// Splat deposits a gaussian kernel of the given radius (in cells) centered on
// the point. Points outside the extent are ignored and reported false.
func (g *Grid) Splat(lat, lon float64, radius int) bool {
	col, row, ok := g.cell(lat, lon)
	if !ok {
		return false
	}
	if radius < 0 {
		radius = 0
	}

	sigma := float64(radius)/2 + 0.5
	for dr := -radius; dr <= radius; dr++ {
		for dc := -radius; dc <= radius; dc++ {
			c, r := col+dc, row+dr
			if c < 0 || c >= g.cols || r < 0 || r >= g.rows {
				continue
			}
			d2 := float64(dc*dc + dr*dr)
			g.cells[r*g.cols+c] += math.Exp(-d2 / (2 * sigma * sigma))
		}
	}
	return true
}

// Value returns the accumulated density at a cell.
func (g *Grid) Value(col, row int) float64 {
	return g.cells[row*g.cols+col]
}

// Max returns the largest cell value, or zero for an empty grid.
func (g *Grid) Max() float64 {
	max := 0.0
	for _, v := range g.cells {
		if v > max {
			max = v
		}
	}
	return max
}

// Dims returns the grid's column and row counts.
func (g *Grid) Dims() (cols, rows int) {
	return g.cols, g.rows
}
