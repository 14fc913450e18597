// pkg/core/volume.go
package core

// VolumeResult holds the cut/fill balance between the embankment
// surface and the stripped ground surface inside one toe boundary.
// Net is Fill minus Cut; all volumes are in cubic working-CRS units.
type VolumeResult struct {
	FeatureID string
	Cut       float64
	Fill      float64
	Net       float64
	Cells     int
	CellArea  float64
}
