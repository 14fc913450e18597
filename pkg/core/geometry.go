// pkg/core/geometry.go
package core

// Position2D represents a 2D point in the working coordinate system
type Position2D struct {
	X float64
	Y float64
}

// Position3D represents a 3D point in the working coordinate system
type Position3D struct {
	X float64
	Y float64
	Z float64
}

// XY returns the planimetric part of the position
func (p Position3D) XY() Position2D {
	return Position2D{X: p.X, Y: p.Y}
}

// Polyline is an ordered sequence of 2D points
type Polyline []Position2D
