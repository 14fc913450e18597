// pkg/core/run.go
package core

import "time"

// Feature is one source centerline after projection into the working
// coordinate system, ready for transect casting.
type Feature struct {
	ID         string
	Length     float64
	Vertices   Polyline
	Attributes map[string]any
}

// Run represents one extraction pass over a set of centerline features
type Run struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	CurvesPath      string
	RasterPath      string
	SourceEPSG      int
	TargetEPSG      int
	Version         string
	Features        int
	BreakPoints     int
	Sections        int
	Boundaries      int
	Volumes         int
	SkippedStations int
}

// FeatureSummary aggregates what one feature produced, for metrics
// and progress reporting.
type FeatureSummary struct {
	RunID           string
	FeatureID       string
	Length          float64
	Stations        int
	SkippedStations int
	BreakPoints     int
	Sections        int
	BoundaryPoints  int
	CutVolume       float64
	FillVolume      float64
	NetVolume       float64
	HasVolume       bool
	Duration        time.Duration
}

// UploadMetadata describes an exported run bundle for the web API upload.
type UploadMetadata struct {
	RunID       string
	Filename    string
	Features    int
	BreakPoints int
	NetVolume   float64
	StartedAt   time.Time
	FinishedAt  time.Time
}
