// Package raster provides elevation lookup over gridded terrain data.
// The pipeline only ever asks one question of a raster: the ground
// elevation at a working-CRS coordinate, answered with an explicit
// present/absent flag.
package raster

// Source is the elevation provider the pipeline samples against.
type Source interface {
	// ElevationAt returns the ground elevation at (x, y). The boolean
	// is false when the location is outside the data or has no value.
	ElevationAt(x, y float64) (float64, bool)
	// Extent returns the outer bounds of the data.
	Extent() Extent
	// CellSize returns the grid resolution in working-CRS units.
	CellSize() float64
}

// Extent is an axis-aligned bounding box in the working CRS.
type Extent struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Contains reports whether (x, y) lies inside the extent, borders
// included.
func (e Extent) Contains(x, y float64) bool {
	return x >= e.MinX && x <= e.MaxX && y >= e.MinY && y <= e.MaxY
}

// Intersect clips e to o. The result may be invalid when the extents
// do not overlap.
func (e Extent) Intersect(o Extent) Extent {
	out := Extent{
		MinX: max(e.MinX, o.MinX),
		MinY: max(e.MinY, o.MinY),
		MaxX: min(e.MaxX, o.MaxX),
		MaxY: min(e.MaxY, o.MaxY),
	}
	return out
}

// Valid reports whether the extent encloses any area.
func (e Extent) Valid() bool {
	return e.MaxX > e.MinX && e.MaxY > e.MinY
}

// Width returns the x span of the extent.
func (e Extent) Width() float64 { return e.MaxX - e.MinX }

// Height returns the y span of the extent.
func (e Extent) Height() float64 { return e.MaxY - e.MinY }
