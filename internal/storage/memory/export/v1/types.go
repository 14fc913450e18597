// Package v1 contains the v1 export format for crestline run bundles.
// The bundle is what the upload API ships to the web frontend; the
// GeoJSON collections are written alongside it for GIS consumption.
package v1

import "time"

// Export is the root JSON structure for a v1 run bundle
type Export struct {
	Version         string    `json:"version"`
	RunID           string    `json:"runId"`
	StartedAt       time.Time `json:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt"`
	CurvesPath      string    `json:"curvesPath"`
	RasterPath      string    `json:"rasterPath"`
	SourceEPSG      int       `json:"sourceEpsg"`
	TargetEPSG      int       `json:"targetEpsg"`
	Features        []Feature `json:"features"`
	Volumes         []Volume  `json:"volumes"`
	BreakPoints     int       `json:"breakPoints"`
	Sections        int       `json:"sections"`
	Boundaries      int       `json:"boundaries"`
	SkippedStations int       `json:"skippedStations"`
	Files           []string  `json:"files"`
}

// Feature summarizes one processed centerline
type Feature struct {
	FeatureID       string  `json:"featureId"`
	Length          float64 `json:"length"`
	Stations        int     `json:"stations"`
	SkippedStations int     `json:"skippedStations"`
	BreakPoints     int     `json:"breakPoints"`
	Sections        int     `json:"sections"`
	CutVolume       float64 `json:"cutVolume"`
	FillVolume      float64 `json:"fillVolume"`
	NetVolume       float64 `json:"netVolume"`
	HasVolume       bool    `json:"hasVolume"`
	DurationMs      int64   `json:"durationMs"`
}

// Volume is one cut/fill balance
type Volume struct {
	FeatureID string  `json:"featureId"`
	Cut       float64 `json:"cut"`
	Fill      float64 `json:"fill"`
	Net       float64 `json:"net"`
	Cells     int     `json:"cells"`
	CellArea  float64 `json:"cellArea"`
}
