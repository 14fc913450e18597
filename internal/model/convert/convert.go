// Package convert provides functions to convert core pipeline values
// into GORM models for persistence.
package convert

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/stopbank/crestline/internal/geo"
	"github.com/stopbank/crestline/internal/model"
	"github.com/stopbank/crestline/pkg/core"
)

// attributesToJSON flattens a property map for DB storage.
func attributesToJSON(attrs map[string]any) datatypes.JSON {
	if len(attrs) == 0 {
		return datatypes.JSON("{}")
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToRun converts a core.Run to a GORM model.Run. The snapshot is
// the redacted configuration in effect when the run started.
func CoreToRun(r core.Run, snapshot map[string]any) model.Run {
	return model.Run{
		UUID:            r.ID,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		Version:         r.Version,
		CurvesPath:      r.CurvesPath,
		RasterPath:      r.RasterPath,
		SourceEPSG:      r.SourceEPSG,
		TargetEPSG:      r.TargetEPSG,
		ConfigSnapshot:  attributesToJSON(snapshot),
		Features:        r.Features,
		BreakPoints:     r.BreakPoints,
		Sections:        r.Sections,
		Boundaries:      r.Boundaries,
		Volumes:         r.Volumes,
		SkippedStations: r.SkippedStations,
	}
}

// ApplyRunTotals copies the counters and end time of a finished run
// onto an existing row, leaving identity fields alone.
func ApplyRunTotals(row *model.Run, r core.Run) {
	row.FinishedAt = r.FinishedAt
	row.Features = r.Features
	row.BreakPoints = r.BreakPoints
	row.Sections = r.Sections
	row.Boundaries = r.Boundaries
	row.Volumes = r.Volumes
	row.SkippedStations = r.SkippedStations
}

// CoreToFeature converts a processed centerline and its summary to a
// GORM model.Feature. Volume fields stay zero until WriteVolume.
func CoreToFeature(runID uint, f core.Feature, s core.FeatureSummary) model.Feature {
	return model.Feature{
		RunID:           runID,
		FeatureID:       f.ID,
		Length:          f.Length,
		Stations:        s.Stations,
		SkippedStations: s.SkippedStations,
		BreakPoints:     s.BreakPoints,
		Sections:        s.Sections,
		Centerline:      geo.LineStringXY(f.Vertices),
		Attributes:      attributesToJSON(f.Attributes),
	}
}

// CoreToBreakPoint converts a core.BreakPoint to a GORM
// model.BreakPointRecord stamped with the write time.
func CoreToBreakPoint(runID uint, at time.Time, bp core.BreakPoint) model.BreakPointRecord {
	return model.BreakPointRecord{
		Time:       at,
		RunID:      runID,
		FeatureID:  bp.FeatureID,
		Chainage:   bp.Chainage,
		Side:       string(bp.Side),
		Role:       string(bp.Role),
		Ratio:      bp.Ratio,
		Offset:     bp.Offset,
		Elevation:  bp.Position.Z,
		Location:   geo.PointXYZ(bp.Position),
		Attributes: attributesToJSON(bp.Attributes),
	}
}

// CoreToCrossSection converts a core.CrossSection to a GORM
// model.CrossSectionRecord.
func CoreToCrossSection(runID uint, s core.CrossSection) model.CrossSectionRecord {
	return model.CrossSectionRecord{
		RunID:     runID,
		FeatureID: s.FeatureID,
		Chainage:  s.Chainage,
		Geometry:  geo.LineStringXYZ(s.Points),
	}
}

// CoreToToeBoundary converts a core.ToeBoundary to a GORM
// model.ToeBoundaryRecord. The ring must form a valid polygon shell.
func CoreToToeBoundary(runID uint, b core.ToeBoundary) (model.ToeBoundaryRecord, error) {
	poly, err := geo.PolygonXYZ(b.Ring)
	if err != nil {
		return model.ToeBoundaryRecord{}, err
	}
	return model.ToeBoundaryRecord{
		RunID:     runID,
		FeatureID: b.FeatureID,
		Boundary:  poly,
		Outline:   geo.LineStringXYZ(b.Ring),
		Points:    len(b.Ring),
		Closed:    b.Closed,
	}, nil
}

// CoreToVolume converts a core.VolumeResult to a GORM
// model.VolumeRecord stamped with the write time.
func CoreToVolume(runID uint, at time.Time, v core.VolumeResult) model.VolumeRecord {
	return model.VolumeRecord{
		Time:      at,
		RunID:     runID,
		FeatureID: v.FeatureID,
		Cut:       v.Cut,
		Fill:      v.Fill,
		Net:       v.Net,
		Cells:     v.Cells,
		CellArea:  v.CellArea,
	}
}

// ApplyVolume copies a volume result onto the denormalized carriers:
// the feature row and the toe-boundary row.
func ApplyVolume(f *model.Feature, b *model.ToeBoundaryRecord, v core.VolumeResult) {
	if f != nil {
		f.CutVolume = v.Cut
		f.FillVolume = v.Fill
		f.NetVolume = v.Net
		f.HasVolume = true
	}
	if b != nil {
		b.CutVolume = v.Cut
		b.FillVolume = v.Fill
		b.NetVolume = v.Net
		b.HasVolume = true
	}
}
