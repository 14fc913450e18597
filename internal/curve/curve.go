// Package curve models centerline features and the station geometry
// derived from them. A curve is immutable after construction; chainage
// lookups interpolate linearly between its vertices.
package curve

import (
	"errors"
	"fmt"
	"math"
	"sort"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/stopbank/crestline/internal/geo"
	"github.com/stopbank/crestline/pkg/core"
)

// tangentStep is the half-width of the difference quotient used for
// tangent estimation. Clamping at the curve ends turns the central
// difference into a forward or backward one automatically.
const tangentStep = 0.01

// stationSnap collapses a final station that lands within this distance
// of the exact curve end, so the end station is not emitted twice.
const stationSnap = 1e-9

// ErrTooShort is returned for inputs with fewer than two distinct vertices.
var ErrTooShort = errors.New("curve needs at least two distinct vertices")

// Curve is one centerline in the working coordinate system.
type Curve struct {
	id         string
	attributes map[string]any
	points     []geom.XY
	cumulative []float64
	length     float64
}

// New builds a curve from working-CRS vertices. Consecutive duplicate
// vertices are dropped so every retained segment has positive length.
func New(id string, points []geom.XY, attributes map[string]any) (*Curve, error) {
	cleaned := make([]geom.XY, 0, len(points))
	for _, p := range points {
		if len(cleaned) > 0 {
			prev := cleaned[len(cleaned)-1]
			if prev.X == p.X && prev.Y == p.Y {
				continue
			}
		}
		cleaned = append(cleaned, p)
	}
	if len(cleaned) < 2 {
		return nil, fmt.Errorf("curve %q: %w", id, ErrTooShort)
	}

	cumulative := make([]float64, len(cleaned))
	for i := 1; i < len(cleaned); i++ {
		cumulative[i] = cumulative[i-1] + geo.Distance(cleaned[i-1], cleaned[i])
	}

	return &Curve{
		id:         id,
		attributes: attributes,
		points:     cleaned,
		cumulative: cumulative,
		length:     cumulative[len(cumulative)-1],
	}, nil
}

// ID returns the feature identifier taken from the source property.
func (c *Curve) ID() string { return c.id }

// Length returns the total curve length in working-CRS units.
func (c *Curve) Length() float64 { return c.length }

// Attributes returns the source feature properties. The map is shared
// and must be treated as read-only.
func (c *Curve) Attributes() map[string]any { return c.attributes }

// Vertices returns the curve geometry as a core polyline.
func (c *Curve) Vertices() core.Polyline {
	out := make(core.Polyline, len(c.points))
	for i, p := range c.points {
		out[i] = core.Position2D{X: p.X, Y: p.Y}
	}
	return out
}

// Feature converts the curve to its storage representation.
func (c *Curve) Feature() core.Feature {
	return core.Feature{
		ID:         c.id,
		Length:     c.length,
		Vertices:   c.Vertices(),
		Attributes: c.attributes,
	}
}

// PointAt returns the point at chainage d, clamped to the curve extent.
func (c *Curve) PointAt(d float64) geom.XY {
	if d <= 0 {
		return c.points[0]
	}
	if d >= c.length {
		return c.points[len(c.points)-1]
	}

	i := sort.SearchFloat64s(c.cumulative, d)
	if c.cumulative[i] == d {
		return c.points[i]
	}

	// d falls strictly inside segment [i-1, i]
	segStart := c.cumulative[i-1]
	segLen := c.cumulative[i] - segStart
	t := (d - segStart) / segLen
	a, b := c.points[i-1], c.points[i]
	return geom.XY{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
	}
}

// TangentAt estimates the unit tangent at chainage d by a small
// difference quotient. Returns false when the quotient degenerates to
// a zero vector; callers skip such stations.
func (c *Curve) TangentAt(d float64) (geom.XY, bool) {
	lo := math.Max(d-tangentStep, 0)
	hi := math.Min(d+tangentStep, c.length)
	a := c.PointAt(lo)
	b := c.PointAt(hi)
	return geo.Unit(geom.XY{X: b.X - a.X, Y: b.Y - a.Y})
}

// Stations returns the chainages 0, interval, 2*interval, ... plus the
// exact end chainage. maxChainage caps the walked length when positive.
// A multiple that lands on the end within stationSnap is merged with it.
func (c *Curve) Stations(interval, maxChainage float64) []float64 {
	end := c.length
	if maxChainage > 0 && maxChainage < end {
		end = maxChainage
	}
	if interval <= 0 || end <= 0 {
		return []float64{0, end}
	}

	out := make([]float64, 0, int(end/interval)+2)
	for i := 0; ; i++ {
		d := float64(i) * interval
		if d >= end {
			break
		}
		out = append(out, d)
	}
	if last := out[len(out)-1]; end-last < stationSnap {
		out[len(out)-1] = end
	} else {
		out = append(out, end)
	}
	return out
}
