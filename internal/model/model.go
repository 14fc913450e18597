package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Run{},
	&Feature{},
	&BreakPointRecord{},
	&CrossSectionRecord{},
	&ToeBoundaryRecord{},
	&VolumeRecord{},
}

////////////////////////
// RUN MODELS
////////////////////////

// Run is one extraction pass over a set of centerline features.
// The UUID is the public identifier carried through logs, metrics and
// exports; the gorm ID stays internal to the schema.
type Run struct {
	gorm.Model
	UUID            string         `json:"uuid" gorm:"size:36;uniqueIndex"`
	StartedAt       time.Time      `json:"startedAt" gorm:"type:timestamptz"`
	FinishedAt      time.Time      `json:"finishedAt" gorm:"type:timestamptz"`
	Version         string         `json:"version" gorm:"size:64"`
	CurvesPath      string         `json:"curvesPath" gorm:"size:255"` // GeoJSON centerline source
	RasterPath      string         `json:"rasterPath" gorm:"size:255"` // ESRI ASCII terrain source
	SourceEPSG      int            `json:"sourceEpsg"`                 // CRS of the curve input
	TargetEPSG      int            `json:"targetEpsg"`                 // working CRS
	ConfigSnapshot  datatypes.JSON `json:"configSnapshot"`             // redacted settings at run start
	Features        int            `json:"features"`
	BreakPoints     int            `json:"breakPoints"`
	Sections        int            `json:"sections"`
	Boundaries      int            `json:"boundaries"`
	Volumes         int            `json:"volumes"`
	SkippedStations int            `json:"skippedStations"`

	FeatureRecords []Feature `json:"-" gorm:"foreignkey:RunID"`
}

func (*Run) TableName() string {
	return "runs"
}

// Get loads the run row matching the receiver's UUID.
func (r *Run) Get(db *gorm.DB) (err error) {
	err = db.Where("uuid = ?", r.UUID).First(r).Error
	return err
}

// Feature is one processed centerline with its derived totals.
// Volume fields stay zero until the VolumeEngine fills them.
type Feature struct {
	gorm.Model
	RunID           uint            `json:"runId" gorm:"index:idx_feature_run_id"`
	Run             Run             `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	FeatureID       string          `json:"featureId" gorm:"size:127;index:idx_feature_feature_id"` // source id property
	Length          float64         `json:"length"`                                                 // chainage length in working units
	Stations        int             `json:"stations"`
	SkippedStations int             `json:"skippedStations"`
	BreakPoints     int             `json:"breakPoints"`
	Sections        int             `json:"sections"`
	Centerline      geom.LineString `json:"-" gorm:"type:geometry"` // projected centerline
	Attributes      datatypes.JSON  `json:"attributes"`             // source feature properties, unchanged
	CutVolume       float64         `json:"cutVolume"`
	FillVolume      float64         `json:"fillVolume"`
	NetVolume       float64         `json:"netVolume"`
	HasVolume       bool            `json:"hasVolume" gorm:"default:false"`
}

func (*Feature) TableName() string {
	return "features"
}

// Get loads the feature row for (RunID, FeatureID) on the receiver.
func (f *Feature) Get(db *gorm.DB) (err error) {
	err = db.Where("run_id = ? AND feature_id = ?", f.RunID, f.FeatureID).First(f).Error
	return err
}

////////////////////////
// ARTIFACT MODELS
////////////////////////

// BreakPointRecord is one derived crest, toe or centerline point.
// This is the high-volume table; rows arrive in emission order through
// the single flush worker.
type BreakPointRecord struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time       time.Time      `json:"time" gorm:"type:timestamptz;"`
	RunID      uint           `json:"runId" gorm:"index:idx_breakpoint_run_id"`
	Run        Run            `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	FeatureID  string         `json:"featureId" gorm:"size:127;index:idx_breakpoint_feature_id"`
	Chainage   float64        `json:"chainage" gorm:"index:idx_breakpoint_chainage"` // distance along the centerline
	Side       string         `json:"side" gorm:"size:8"`                            // left, right, center
	Role       string         `json:"role" gorm:"size:16"`                           // crest, toe, centerline
	Ratio      float64        `json:"ratio"`                                         // toe ratio variant, 0 for other roles
	Offset     float64        `json:"offset"`                                        // distance from the centerline along the ray
	Elevation  float64        `json:"elevation"`                                     // ground elevation at the point
	Location   geom.Point     `json:"-" gorm:"type:geometry"`                        // XYZ position in working CRS
	Attributes datatypes.JSON `json:"attributes"`
}

func (*BreakPointRecord) TableName() string {
	return "break_points"
}

// CrossSectionRecord is the transverse five-point string at one
// chainage: toe-left, crest-left, centerline, crest-right, toe-right.
type CrossSectionRecord struct {
	ID        uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID     uint            `json:"runId" gorm:"index:idx_crosssection_run_id"`
	Run       Run             `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	FeatureID string          `json:"featureId" gorm:"size:127;index:idx_crosssection_feature_id"`
	Chainage  float64         `json:"chainage"`
	Geometry  geom.LineString `json:"-" gorm:"type:geometry"` // XYZ string across the embankment
}

func (*CrossSectionRecord) TableName() string {
	return "cross_sections"
}

// ToeBoundaryRecord is the footprint outline of one feature. Volume
// fields mirror the feature row so the boundary can stand alone in
// exports.
type ToeBoundaryRecord struct {
	ID         uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID      uint            `json:"runId" gorm:"index:idx_toeboundary_run_id"`
	Run        Run             `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	FeatureID  string          `json:"featureId" gorm:"size:127;index:idx_toeboundary_feature_id"`
	Boundary   geom.Polygon    `json:"-" gorm:"type:geometry"` // closed footprint ring
	Outline    geom.LineString `json:"-" gorm:"type:geometry"` // same vertices as a polyline
	Points     int             `json:"points"`                 // ring vertex count
	Closed     bool            `json:"closed"`                 // whether a closing vertex was appended
	CutVolume  float64         `json:"cutVolume"`
	FillVolume float64         `json:"fillVolume"`
	NetVolume  float64         `json:"netVolume"`
	HasVolume  bool            `json:"hasVolume" gorm:"default:false"`
}

func (*ToeBoundaryRecord) TableName() string {
	return "toe_boundaries"
}

// VolumeRecord is the cut/fill balance between the lofted embankment
// surface and the stripped toe surface of one feature.
type VolumeRecord struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"`
	RunID     uint      `json:"runId" gorm:"index:idx_volume_run_id"`
	Run       Run       `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	FeatureID string    `json:"featureId" gorm:"size:127;index:idx_volume_feature_id"`
	Cut       float64   `json:"cut"`      // cubic working units removed
	Fill      float64   `json:"fill"`     // cubic working units added
	Net       float64   `json:"net"`      // fill minus cut
	Cells     int       `json:"cells"`    // contributing grid cells
	CellArea  float64   `json:"cellArea"` // square working units per cell
}

func (*VolumeRecord) TableName() string {
	return "volumes"
}
