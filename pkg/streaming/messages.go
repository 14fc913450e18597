package streaming

import (
	"encoding/json"
	"time"

	"github.com/stopbank/crestline/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeBeginRun     = "begin_run"
	TypeEndRun       = "end_run"
	TypeFeature      = "feature"
	TypeBreakPoint   = "break_point"
	TypeCrossSection = "cross_section"
	TypeToeBoundary  = "toe_boundary"
	TypeVolume       = "volume"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// RunMessage carries run identity and source paths. On end_run the
// counter fields hold the final totals; on begin_run they are zero.
type RunMessage struct {
	RunID           string    `json:"runId"`
	StartedAt       time.Time `json:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt"`
	CurvesPath      string    `json:"curvesPath"`
	RasterPath      string    `json:"rasterPath"`
	SourceEPSG      int       `json:"sourceEpsg"`
	TargetEPSG      int       `json:"targetEpsg"`
	Version         string    `json:"version"`
	Features        int       `json:"features"`
	BreakPoints     int       `json:"breakPoints"`
	Sections        int       `json:"sections"`
	Boundaries      int       `json:"boundaries"`
	Volumes         int       `json:"volumes"`
	SkippedStations int       `json:"skippedStations"`
}

// FeatureMessage describes one processed centerline with the counters
// its extraction produced.
type FeatureMessage struct {
	FeatureID       string         `json:"featureId"`
	Length          float64        `json:"length"`
	Stations        int            `json:"stations"`
	SkippedStations int            `json:"skippedStations"`
	BreakPoints     int            `json:"breakPoints"`
	Sections        int            `json:"sections"`
	Centerline      [][2]float64   `json:"centerline"`
	Attributes      map[string]any `json:"attributes,omitempty"`
}

// BreakPointMessage is one derived crest, toe or centerline point.
type BreakPointMessage struct {
	FeatureID  string         `json:"featureId"`
	Chainage   float64        `json:"chainage"`
	Side       string         `json:"side"`
	Role       string         `json:"role"`
	Ratio      float64        `json:"ratio,omitempty"`
	Offset     float64        `json:"offset"`
	Position   [3]float64     `json:"position"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// CrossSectionMessage is the transverse point string at one chainage.
type CrossSectionMessage struct {
	FeatureID string       `json:"featureId"`
	Chainage  float64      `json:"chainage"`
	Points    [][3]float64 `json:"points"`
}

// ToeBoundaryMessage is one feature's footprint ring.
type ToeBoundaryMessage struct {
	FeatureID string       `json:"featureId"`
	Ring      [][3]float64 `json:"ring"`
	Closed    bool         `json:"closed"`
}

// VolumeMessage is the cut/fill balance for one feature.
type VolumeMessage struct {
	FeatureID string  `json:"featureId"`
	Cut       float64 `json:"cut"`
	Fill      float64 `json:"fill"`
	Net       float64 `json:"net"`
	Cells     int     `json:"cells"`
	CellArea  float64 `json:"cellArea"`
}

// NewRunMessage flattens a run header for the wire.
func NewRunMessage(r *core.Run) RunMessage {
	return RunMessage{
		RunID:           r.ID,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		CurvesPath:      r.CurvesPath,
		RasterPath:      r.RasterPath,
		SourceEPSG:      r.SourceEPSG,
		TargetEPSG:      r.TargetEPSG,
		Version:         r.Version,
		Features:        r.Features,
		BreakPoints:     r.BreakPoints,
		Sections:        r.Sections,
		Boundaries:      r.Boundaries,
		Volumes:         r.Volumes,
		SkippedStations: r.SkippedStations,
	}
}

// NewFeatureMessage combines a feature's geometry with its extraction summary.
func NewFeatureMessage(f *core.Feature, s *core.FeatureSummary) FeatureMessage {
	line := make([][2]float64, len(f.Vertices))
	for i, v := range f.Vertices {
		line[i] = [2]float64{v.X, v.Y}
	}
	return FeatureMessage{
		FeatureID:       f.ID,
		Length:          f.Length,
		Stations:        s.Stations,
		SkippedStations: s.SkippedStations,
		BreakPoints:     s.BreakPoints,
		Sections:        s.Sections,
		Centerline:      line,
		Attributes:      f.Attributes,
	}
}

// NewBreakPointMessage flattens a break point for the wire.
func NewBreakPointMessage(bp *core.BreakPoint) BreakPointMessage {
	return BreakPointMessage{
		FeatureID:  bp.FeatureID,
		Chainage:   bp.Chainage,
		Side:       string(bp.Side),
		Role:       string(bp.Role),
		Ratio:      bp.Ratio,
		Offset:     bp.Offset,
		Position:   [3]float64{bp.Position.X, bp.Position.Y, bp.Position.Z},
		Attributes: bp.Attributes,
	}
}

// NewCrossSectionMessage flattens a cross section for the wire.
func NewCrossSectionMessage(cs *core.CrossSection) CrossSectionMessage {
	return CrossSectionMessage{
		FeatureID: cs.FeatureID,
		Chainage:  cs.Chainage,
		Points:    positions(cs.Points),
	}
}

// NewToeBoundaryMessage flattens a toe boundary ring for the wire.
func NewToeBoundaryMessage(tb *core.ToeBoundary) ToeBoundaryMessage {
	return ToeBoundaryMessage{
		FeatureID: tb.FeatureID,
		Ring:      positions(tb.Ring),
		Closed:    tb.Closed,
	}
}

// NewVolumeMessage flattens a volume result for the wire.
func NewVolumeMessage(v *core.VolumeResult) VolumeMessage {
	return VolumeMessage{
		FeatureID: v.FeatureID,
		Cut:       v.Cut,
		Fill:      v.Fill,
		Net:       v.Net,
		Cells:     v.Cells,
		CellArea:  v.CellArea,
	}
}

func positions(pts []core.Position3D) [][3]float64 {
	out := make([][3]float64, len(pts))
	for i, p := range pts {
		out[i] = [3]float64{p.X, p.Y, p.Z}
	}
	return out
}
