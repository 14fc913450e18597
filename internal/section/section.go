// Package section assembles emitted break points into transverse
// cross-sections and per-feature toe boundaries.
package section

import (
	"sort"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/stopbank/crestline/internal/geo"
	"github.com/stopbank/crestline/internal/util"
	"github.com/stopbank/crestline/pkg/core"
)

// closureTolerance is the planar distance under which the boundary's
// first and last vertices count as already coincident.
const closureTolerance = 0.01

// chainageDecimals is the rounding applied to chainages before
// duplicate toe points are collapsed.
const chainageDecimals = 3

// Assembler buffers the five cross-section slots for one station.
// The first point offered for a slot wins; later toe ratio variants at
// the same station do not displace it.
type Assembler struct {
	featureID string
	chainage  float64

	toeLeft    *core.Position3D
	crestLeft  *core.Position3D
	center     *core.Position3D
	crestRight *core.Position3D
	toeRight   *core.Position3D
}

// NewAssembler starts a section at one station.
func NewAssembler(featureID string, chainage float64) *Assembler {
	return &Assembler{featureID: featureID, chainage: chainage}
}

// Offer routes a break point into its slot.
func (a *Assembler) Offer(bp core.BreakPoint) {
	pos := bp.Position
	switch {
	case bp.Role == core.RoleCenterline:
		if a.center == nil {
			a.center = &pos
		}
	case bp.Role == core.RoleCrest && bp.Side == core.SideLeft:
		if a.crestLeft == nil {
			a.crestLeft = &pos
		}
	case bp.Role == core.RoleCrest && bp.Side == core.SideRight:
		if a.crestRight == nil {
			a.crestRight = &pos
		}
	case bp.Role == core.RoleToe && bp.Side == core.SideLeft:
		if a.toeLeft == nil {
			a.toeLeft = &pos
		}
	case bp.Role == core.RoleToe && bp.Side == core.SideRight:
		if a.toeRight == nil {
			a.toeRight = &pos
		}
	}
}

// Section materializes the cross-section. It reports false until all
// five slots are filled; a partial station never yields a section.
func (a *Assembler) Section() (core.CrossSection, bool) {
	if a.toeLeft == nil || a.crestLeft == nil || a.center == nil ||
		a.crestRight == nil || a.toeRight == nil {
		return core.CrossSection{}, false
	}
	return core.CrossSection{
		FeatureID: a.featureID,
		Chainage:  a.chainage,
		Points: []core.Position3D{
			*a.toeLeft,
			*a.crestLeft,
			*a.center,
			*a.crestRight,
			*a.toeRight,
		},
	}, true
}

// BuildBoundary orders the accumulated toe points of one feature into
// a footprint ring: left side by ascending chainage, right side
// descending, duplicates collapsed per side on the chainage rounded to
// three decimals, first occurrence kept. When the walk does not end
// back at its start a closing copy of the first vertex is appended and
// Closed is set.
func BuildBoundary(featureID string, left, right []core.BreakPoint) (core.ToeBoundary, bool) {
	if len(left) == 0 || len(right) == 0 {
		return core.ToeBoundary{}, false
	}

	l := dedupeByChainage(left)
	r := dedupeByChainage(right)

	sort.Slice(l, func(i, j int) bool { return l[i].Chainage < l[j].Chainage })
	sort.Slice(r, func(i, j int) bool { return r[i].Chainage > r[j].Chainage })

	ring := make([]core.Position3D, 0, len(l)+len(r)+1)
	for _, bp := range l {
		ring = append(ring, bp.Position)
	}
	for _, bp := range r {
		ring = append(ring, bp.Position)
	}

	b := core.ToeBoundary{FeatureID: featureID, Ring: ring}
	first := ring[0]
	last := ring[len(ring)-1]
	gap := geo.Distance(
		geom.XY{X: first.X, Y: first.Y},
		geom.XY{X: last.X, Y: last.Y},
	)
	if gap > closureTolerance {
		b.Ring = append(b.Ring, first)
		b.Closed = true
	}
	return b, true
}

// dedupeByChainage collapses points sharing a rounded chainage,
// keeping the earliest emitted.
func dedupeByChainage(pts []core.BreakPoint) []core.BreakPoint {
	seen := make(map[float64]struct{}, len(pts))
	out := make([]core.BreakPoint, 0, len(pts))
	for _, bp := range pts {
		key := util.RoundTo(bp.Chainage, chainageDecimals)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, bp)
	}
	return out
}

// BoundaryGeometry converts a boundary into its storable shapes: the
// ring as a polygon and the same vertices as an outline line string.
func BoundaryGeometry(b core.ToeBoundary) (geom.Polygon, geom.LineString, error) {
	poly, err := geo.PolygonXYZ(b.Ring)
	if err != nil {
		return geom.Polygon{}, geom.LineString{}, err
	}
	return poly, geo.LineStringXYZ(b.Ring), nil
}
