// pkg/core/section.go
package core

// CrossSection is a transverse string of points at one chainage,
// ordered toe-left, crest-left, centerline, crest-right, toe-right.
// A section is only assembled when all five points were detected.
type CrossSection struct {
	FeatureID string
	Chainage  float64
	Points    []Position3D
}

// ToeBoundary is the footprint outline of one embankment feature,
// built from the left toe string followed by the reversed right toe
// string. Closed reports whether a closing vertex equal to the first
// left point was appended.
type ToeBoundary struct {
	FeatureID string
	Ring      []Position3D
	Closed    bool
}
