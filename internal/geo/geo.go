// Package geo provides the planar vector math and geometry builders
// shared by the extraction pipeline.
//
// Geometry handed to storage is built as simplefeatures types and
// serialized in WKB via their inherent Scan/Value functions, so all
// coordinates must already be in the working CRS by the time they
// reach this package.
package geo

import (
	"errors"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/stopbank/crestline/pkg/core"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ErrEmptyGeometry is returned when a builder receives no points
var ErrEmptyGeometry = errors.New("no coordinates provided")

// Unit scales v to length 1. Returns false for a zero or near-zero
// vector, which callers treat as a degenerate direction.
func Unit(v geom.XY) (geom.XY, bool) {
	l := math.Hypot(v.X, v.Y)
	if l < 1e-12 {
		return geom.XY{}, false
	}
	return geom.XY{X: v.X / l, Y: v.Y / l}, true
}

// LeftNormal rotates dir 90 degrees counter-clockwise.
func LeftNormal(dir geom.XY) geom.XY {
	return geom.XY{X: -dir.Y, Y: dir.X}
}

// RightNormal rotates dir 90 degrees clockwise.
func RightNormal(dir geom.XY) geom.XY {
	return geom.XY{X: dir.Y, Y: -dir.X}
}

// Offset displaces origin by dist along dir. dir is expected to be a
// unit vector.
func Offset(origin, dir geom.XY, dist float64) geom.XY {
	return geom.XY{X: origin.X + dir.X*dist, Y: origin.Y + dir.Y*dist}
}

// Distance returns the planar distance between two points.
func Distance(a, b geom.XY) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// PointXYZ converts a core.Position3D to a 3D geom.Point.
func PointXYZ(p core.Position3D) geom.Point {
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: p.X, Y: p.Y},
			Z:    p.Z,
			Type: geom.CoordinatesType(geom.DimXYZ),
		},
	)
}

// LineStringXY converts a core.Polyline to a 2D geom.LineString.
func LineStringXY(p core.Polyline) geom.LineString {
	if len(p) == 0 {
		return geom.LineString{}
	}
	coords := make([]float64, 0, len(p)*2)
	for _, pt := range p {
		coords = append(coords, pt.X, pt.Y)
	}
	seq := geom.NewSequence(coords, geom.DimXY)
	return geom.NewLineString(seq)
}

// LineStringXYZ converts positions to a 3D geom.LineString.
func LineStringXYZ(pts []core.Position3D) geom.LineString {
	if len(pts) == 0 {
		return geom.LineString{}
	}
	coords := make([]float64, 0, len(pts)*3)
	for _, pt := range pts {
		coords = append(coords, pt.X, pt.Y, pt.Z)
	}
	seq := geom.NewSequence(coords, geom.DimXYZ)
	return geom.NewLineString(seq)
}

// PolygonXYZ builds a polygon from a boundary ring. The ring is closed
// with a copy of its first vertex when the input is left open, since a
// valid linear ring must end where it starts.
func PolygonXYZ(ring []core.Position3D) (geom.Polygon, error) {
	if len(ring) < 3 {
		return geom.Polygon{}, ErrEmptyGeometry
	}

	closed := ring
	first, last := ring[0], ring[len(ring)-1]
	if first.X != last.X || first.Y != last.Y {
		closed = make([]core.Position3D, 0, len(ring)+1)
		closed = append(closed, ring...)
		closed = append(closed, first)
	}

	shell := LineStringXYZ(closed)
	poly := geom.NewPolygon([]geom.LineString{shell})
	if err := poly.Validate(); err != nil {
		return geom.Polygon{}, err
	}
	return poly, nil
}
