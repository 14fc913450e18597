// internal/geo/transform.go
package geo

import (
	"github.com/wroge/wgs84"

	"github.com/stopbank/crestline/pkg/core"
)

// Transformer reprojects source coordinates into the working CRS.
// The zero source==target case short-circuits to identity so callers
// can apply it unconditionally.
type Transformer struct {
	source   int
	target   int
	apply    func(a, b, c float64) (float64, float64, float64)
	identity bool
}

// NewTransformer builds a transformer between two EPSG codes.
func NewTransformer(sourceEPSG, targetEPSG int) *Transformer {
	if sourceEPSG == targetEPSG {
		return &Transformer{source: sourceEPSG, target: targetEPSG, identity: true}
	}

	epsg := wgs84.EPSG()
	// NZTM2000 is not in the library's built-in table. NZGD2000 is
	// treated as WGS84 here; the datum difference is far below cell size.
	epsg.Add(2193, wgs84.WGS84().TransverseMercator(173, 0, 0.9996, 1600000, 10000000))

	return &Transformer{
		source: sourceEPSG,
		target: targetEPSG,
		apply:  epsg.Transform(sourceEPSG, targetEPSG),
	}
}

// Apply converts a single coordinate pair.
func (t *Transformer) Apply(x, y float64) (float64, float64) {
	if t.identity {
		return x, y
	}
	x2, y2, _ := t.apply(x, y, 0)
	return x2, y2
}

// ApplyPolyline converts a whole polyline in place order, returning a
// new slice.
func (t *Transformer) ApplyPolyline(line core.Polyline) core.Polyline {
	if t.identity {
		return line
	}
	out := make(core.Polyline, len(line))
	for i, pt := range line {
		x, y := t.Apply(pt.X, pt.Y)
		out[i] = core.Position2D{X: x, Y: y}
	}
	return out
}

// Source returns the source EPSG code.
func (t *Transformer) Source() int { return t.source }

// Target returns the working-CRS EPSG code.
func (t *Transformer) Target() int { return t.target }
