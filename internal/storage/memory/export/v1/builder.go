package v1

import (
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/stopbank/crestline/internal/geo"
	"github.com/stopbank/crestline/internal/util"
	"github.com/stopbank/crestline/pkg/core"
)

// RunData contains all the data needed to build an export
type RunData struct {
	Run         *core.Run
	Features    []FeatureRecord
	BreakPoints []core.BreakPoint
	Sections    []core.CrossSection
	Boundaries  []core.ToeBoundary
	Volumes     []core.VolumeResult
}

// FeatureRecord groups a processed centerline with its summary counters
type FeatureRecord struct {
	Feature core.Feature
	Summary core.FeatureSummary
}

// Build creates an Export from the accumulated run data. Lengths and
// volumes are rounded to millimetre precision; counters come from the
// run header so the bundle matches what the backend was told, not what
// it happened to retain.
func Build(data *RunData) Export {
	export := Export{
		Version:         data.Run.Version,
		RunID:           data.Run.ID,
		StartedAt:       data.Run.StartedAt,
		FinishedAt:      data.Run.FinishedAt,
		CurvesPath:      data.Run.CurvesPath,
		RasterPath:      data.Run.RasterPath,
		SourceEPSG:      data.Run.SourceEPSG,
		TargetEPSG:      data.Run.TargetEPSG,
		Features:        make([]Feature, 0, len(data.Features)),
		Volumes:         VolumeList(data.Volumes),
		BreakPoints:     len(data.BreakPoints),
		Sections:        len(data.Sections),
		Boundaries:      len(data.Boundaries),
		SkippedStations: data.Run.SkippedStations,
	}

	for _, rec := range data.Features {
		export.Features = append(export.Features, Feature{
			FeatureID:       rec.Feature.ID,
			Length:          util.RoundTo(rec.Feature.Length, 3),
			Stations:        rec.Summary.Stations,
			SkippedStations: rec.Summary.SkippedStations,
			BreakPoints:     rec.Summary.BreakPoints,
			Sections:        rec.Summary.Sections,
			CutVolume:       util.RoundTo(rec.Summary.CutVolume, 3),
			FillVolume:      util.RoundTo(rec.Summary.FillVolume, 3),
			NetVolume:       util.RoundTo(rec.Summary.NetVolume, 3),
			HasVolume:       rec.Summary.HasVolume,
			DurationMs:      rec.Summary.Duration.Milliseconds(),
		})
	}

	return export
}

// VolumeList converts volume results for the bundle and the standalone
// volumes file.
func VolumeList(volumes []core.VolumeResult) []Volume {
	out := make([]Volume, 0, len(volumes))
	for _, v := range volumes {
		out = append(out, Volume{
			FeatureID: v.FeatureID,
			Cut:       util.RoundTo(v.Cut, 3),
			Fill:      util.RoundTo(v.Fill, 3),
			Net:       util.RoundTo(v.Net, 3),
			Cells:     v.Cells,
			CellArea:  v.CellArea,
		})
	}
	return out
}

// PointsCollection builds a GeoJSON FeatureCollection of break points.
// Source feature attributes merge into the properties without
// overwriting the derived keys.
func PointsCollection(points []core.BreakPoint) geom.GeoJSONFeatureCollection {
	fc := make(geom.GeoJSONFeatureCollection, 0, len(points))
	for _, bp := range points {
		props := map[string]any{
			"feature":  bp.FeatureID,
			"chainage": bp.Chainage,
			"side":     string(bp.Side),
			"role":     string(bp.Role),
			"offset":   bp.Offset,
		}
		if bp.Role == core.RoleToe {
			props["ratio"] = bp.Ratio
		}
		for k, v := range bp.Attributes {
			if _, taken := props[k]; !taken {
				props[k] = v
			}
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry:   geo.PointXYZ(bp.Position).AsGeometry(),
			Properties: props,
		})
	}
	return fc
}

// SectionsCollection builds a GeoJSON FeatureCollection of cross sections.
func SectionsCollection(sections []core.CrossSection) geom.GeoJSONFeatureCollection {
	fc := make(geom.GeoJSONFeatureCollection, 0, len(sections))
	for _, cs := range sections {
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: geo.LineStringXYZ(cs.Points).AsGeometry(),
			Properties: map[string]any{
				"feature":  cs.FeatureID,
				"chainage": cs.Chainage,
				"points":   len(cs.Points),
			},
		})
	}
	return fc
}

// BoundariesCollection builds a GeoJSON FeatureCollection of toe
// boundaries. Rings that form a valid polygon export as polygons; the
// rest degrade to line strings so the export never fails.
func BoundariesCollection(boundaries []core.ToeBoundary) geom.GeoJSONFeatureCollection {
	fc := make(geom.GeoJSONFeatureCollection, 0, len(boundaries))
	for _, tb := range boundaries {
		g := geo.LineStringXYZ(tb.Ring).AsGeometry()
		if poly, err := geo.PolygonXYZ(tb.Ring); err == nil {
			g = poly.AsGeometry()
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: g,
			Properties: map[string]any{
				"feature": tb.FeatureID,
				"closed":  tb.Closed,
				"points":  len(tb.Ring),
			},
		})
	}
	return fc
}
