// Package profile extracts ground profiles along transect rays and
// locates the crest and toe break indices within them.
package profile

import (
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/stopbank/crestline/internal/geo"
	"github.com/stopbank/crestline/pkg/core"
)

// Elevations is the single lookup the extractor needs from terrain.
type Elevations interface {
	ElevationAt(x, y float64) (float64, bool)
}

// DefaultSpacing is used when the configured sample spacing is zero or
// negative, where the ray walk would never advance.
const DefaultSpacing = 0.75

// Extractor walks a ray outward from a station origin and samples the
// ground at a fixed spacing. Walking stops at the first sample the
// source cannot resolve, so the returned profile is contiguous from
// the centerline out.
type Extractor struct {
	Source      Elevations
	Spacing     float64
	MaxDistance float64
}

// Extract samples along dir from origin. dir must be a unit vector.
// The first sample sits on the origin itself at distance 0.
func (e *Extractor) Extract(origin, dir geom.XY) core.Profile {
	spacing := e.Spacing
	if spacing <= 0 {
		spacing = DefaultSpacing
	}

	capacity := int(e.MaxDistance/spacing) + 1
	prof := make(core.Profile, 0, capacity)

	for i := 0; ; i++ {
		d := float64(i) * spacing
		if d > e.MaxDistance {
			break
		}
		p := geo.Offset(origin, dir, d)
		z, ok := e.Source.ElevationAt(p.X, p.Y)
		if !ok {
			break
		}
		prof = append(prof, core.Sample{Distance: d, Elevation: z})
	}
	return prof
}
