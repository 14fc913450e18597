// pkg/core/breakpoint.go
package core

// Role classifies what a derived point marks on the embankment.
type Role string

const (
	RoleCenterline Role = "centerline"
	RoleCrest      Role = "crest"
	RoleToe        Role = "toe"
)

// Side identifies which side of the centerline a point was derived on.
type Side string

const (
	SideLeft   Side = "left"
	SideRight  Side = "right"
	SideCenter Side = "center"
)

// BreakPoint is a single derived terrain point: a crest, toe or
// centerline vertex at a given chainage. Attributes carry the source
// feature's properties unchanged.
type BreakPoint struct {
	FeatureID  string
	Chainage   float64
	Side       Side
	Role       Role
	Ratio      float64 // toe ratio variant that produced the point, 0 for other roles
	Offset     float64 // distance from the centerline along the ray
	Position   Position3D
	Attributes map[string]any
}
