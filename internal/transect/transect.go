// Package transect casts perpendicular sample rays at regular stations
// along a centerline and classifies the resulting ground profiles into
// crest and toe break points.
package transect

import (
	"log/slog"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/stopbank/crestline/internal/curve"
	"github.com/stopbank/crestline/internal/geo"
	"github.com/stopbank/crestline/internal/profile"
	"github.com/stopbank/crestline/internal/section"
	"github.com/stopbank/crestline/pkg/core"
)

// Sink receives break points in emission order as they are produced.
// Implementations queue them for the storage flush worker.
type Sink interface {
	WriteBreakPoint(core.BreakPoint)
}

// Outputs toggles the point classes the builder emits. Cross-sections
// assemble from emitted points only, so disabling a point class also
// starves the section slots it would fill.
type Outputs struct {
	CenterlinePoints bool
	CrestPoints      bool
	ToePoints        bool
	CrossSections    bool
}

// Builder walks one curve at a time: stations at a fixed interval,
// a left and right ray per station, profile extraction and break
// detection per ray.
type Builder struct {
	Interval    float64
	MaxChainage float64
	Extractor   *profile.Extractor
	Detector    *profile.Detector
	// Elevations resolves the z of emitted points independently of the
	// profile samples that located them.
	Elevations profile.Elevations
	Outputs    Outputs
	Sink       Sink
	Log        *slog.Logger
}

// FeatureResult accumulates everything one curve produced. Break
// points also stream to the sink as they are found; the copies here
// feed cross-section assembly and the toe boundary.
type FeatureResult struct {
	FeatureID       string
	Stations        int
	SkippedStations int
	BreakPoints     int
	Sections        []core.CrossSection
	LeftToes        []core.BreakPoint
	RightToes       []core.BreakPoint
}

// Run processes every station of the curve and returns the feature's
// accumulated result. The curve is never mutated.
func (b *Builder) Run(c *curve.Curve) *FeatureResult {
	res := &FeatureResult{FeatureID: c.ID()}
	stations := c.Stations(b.Interval, b.MaxChainage)
	res.Stations = len(stations)

	for _, ch := range stations {
		b.station(c, ch, res)
	}
	return res
}

func (b *Builder) station(c *curve.Curve, ch float64, res *FeatureResult) {
	tangent, ok := c.TangentAt(ch)
	if !ok {
		res.SkippedStations++
		b.log().Debug("skipping station with degenerate tangent",
			"feature", c.ID(), "chainage", ch)
		return
	}

	origin := c.PointAt(ch)
	asm := section.NewAssembler(c.ID(), ch)

	b.side(c, ch, origin, geo.LeftNormal(tangent), core.SideLeft, res, asm)
	b.side(c, ch, origin, geo.RightNormal(tangent), core.SideRight, res, asm)

	if b.Outputs.CenterlinePoints {
		if bp, ok := b.emit(c, ch, core.SideCenter, core.RoleCenterline, 0, 0, origin, res); ok {
			asm.Offer(bp)
		}
	}

	if b.Outputs.CrossSections {
		if sec, ok := asm.Section(); ok {
			res.Sections = append(res.Sections, sec)
		}
	}
}

// side extracts and scans one ray, emitting the crest point and every
// toe variant that survives the crest-index filter.
func (b *Builder) side(c *curve.Curve, ch float64, origin, dir geom.XY, side core.Side, res *FeatureResult, asm *section.Assembler) {
	prof := b.Extractor.Extract(origin, dir)
	det := b.Detector.Detect(prof)
	if !det.HasCrest() {
		return
	}

	if b.Outputs.CrestPoints {
		at := geo.Offset(origin, dir, prof[det.Crest].Distance)
		if bp, ok := b.emit(c, ch, side, core.RoleCrest, 0, prof[det.Crest].Distance, at, res); ok {
			asm.Offer(bp)
		}
	}

	if !b.Outputs.ToePoints {
		return
	}
	for _, toe := range det.Toes {
		// toes at or before the crest are geometric noise
		if toe.Index <= det.Crest {
			continue
		}
		at := geo.Offset(origin, dir, prof[toe.Index].Distance)
		bp, ok := b.emit(c, ch, side, core.RoleToe, toe.Ratio, prof[toe.Index].Distance, at, res)
		if !ok {
			continue
		}
		asm.Offer(bp)
		if side == core.SideLeft {
			res.LeftToes = append(res.LeftToes, bp)
		} else {
			res.RightToes = append(res.RightToes, bp)
		}
	}
}

// emit resolves the point's elevation and hands it to the sink. A
// point whose elevation cannot be resolved is dropped.
func (b *Builder) emit(c *curve.Curve, ch float64, side core.Side, role core.Role, ratio, offset float64, at geom.XY, res *FeatureResult) (core.BreakPoint, bool) {
	z, ok := b.Elevations.ElevationAt(at.X, at.Y)
	if !ok {
		b.log().Debug("dropping break point with unresolved elevation",
			"feature", c.ID(), "chainage", ch, "side", side, "role", role)
		return core.BreakPoint{}, false
	}

	bp := core.BreakPoint{
		FeatureID:  c.ID(),
		Chainage:   ch,
		Side:       side,
		Role:       role,
		Ratio:      ratio,
		Offset:     offset,
		Position:   core.Position3D{X: at.X, Y: at.Y, Z: z},
		Attributes: c.Attributes(),
	}
	if b.Sink != nil {
		b.Sink.WriteBreakPoint(bp)
	}
	res.BreakPoints++
	return bp, true
}

func (b *Builder) log() *slog.Logger {
	if b.Log != nil {
		return b.Log
	}
	return slog.Default()
}
