package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stopbank/crestline/pkg/core"
)

func toe(side core.Side, chainage, x, y, z float64) core.BreakPoint {
	return core.BreakPoint{
		FeatureID: "STB-1",
		Chainage:  chainage,
		Side:      side,
		Role:      core.RoleToe,
		Ratio:     1.0,
		Position:  core.Position3D{X: x, Y: y, Z: z},
	}
}

func TestAssembler_CompleteSection(t *testing.T) {
	a := NewAssembler("STB-1", 25)

	a.Offer(core.BreakPoint{Role: core.RoleToe, Side: core.SideLeft, Position: core.Position3D{Y: 6}})
	a.Offer(core.BreakPoint{Role: core.RoleCrest, Side: core.SideLeft, Position: core.Position3D{Y: 3}})
	a.Offer(core.BreakPoint{Role: core.RoleCenterline, Side: core.SideCenter, Position: core.Position3D{Y: 0}})
	a.Offer(core.BreakPoint{Role: core.RoleCrest, Side: core.SideRight, Position: core.Position3D{Y: -3}})
	a.Offer(core.BreakPoint{Role: core.RoleToe, Side: core.SideRight, Position: core.Position3D{Y: -6}})

	sec, ok := a.Section()
	require.True(t, ok)
	assert.Equal(t, "STB-1", sec.FeatureID)
	assert.Equal(t, 25.0, sec.Chainage)
	require.Len(t, sec.Points, 5)
	assert.Equal(t, []float64{6, 3, 0, -3, -6},
		[]float64{sec.Points[0].Y, sec.Points[1].Y, sec.Points[2].Y, sec.Points[3].Y, sec.Points[4].Y})
}

func TestAssembler_PartialStationYieldsNothing(t *testing.T) {
	a := NewAssembler("STB-1", 0)
	a.Offer(core.BreakPoint{Role: core.RoleCrest, Side: core.SideLeft})
	a.Offer(core.BreakPoint{Role: core.RoleCenterline, Side: core.SideCenter})

	_, ok := a.Section()
	assert.False(t, ok)
}

func TestAssembler_FirstToeVariantWins(t *testing.T) {
	a := NewAssembler("STB-1", 0)

	a.Offer(core.BreakPoint{Role: core.RoleToe, Side: core.SideLeft, Ratio: 1.0, Position: core.Position3D{Y: 6}})
	a.Offer(core.BreakPoint{Role: core.RoleToe, Side: core.SideLeft, Ratio: 2.0, Position: core.Position3D{Y: 9}})
	a.Offer(core.BreakPoint{Role: core.RoleCrest, Side: core.SideLeft, Position: core.Position3D{Y: 3}})
	a.Offer(core.BreakPoint{Role: core.RoleCenterline, Side: core.SideCenter})
	a.Offer(core.BreakPoint{Role: core.RoleCrest, Side: core.SideRight, Position: core.Position3D{Y: -3}})
	a.Offer(core.BreakPoint{Role: core.RoleToe, Side: core.SideRight, Position: core.Position3D{Y: -6}})

	sec, ok := a.Section()
	require.True(t, ok)
	assert.Equal(t, 6.0, sec.Points[0].Y, "ratio 1.0 toe should hold the slot")
}

func TestBuildBoundary_OrdersAndCloses(t *testing.T) {
	left := []core.BreakPoint{
		toe(core.SideLeft, 10, 10, 5, 1),
		toe(core.SideLeft, 0, 0, 5, 1),
		toe(core.SideLeft, 5, 5, 5, 1),
	}
	right := []core.BreakPoint{
		toe(core.SideRight, 0, 0, -5, 1),
		toe(core.SideRight, 10, 10, -5, 1),
		toe(core.SideRight, 5, 5, -5, 1),
	}

	b, ok := BuildBoundary("STB-1", left, right)
	require.True(t, ok)
	assert.True(t, b.Closed)
	require.Len(t, b.Ring, 7)

	// left ascending by chainage
	assert.Equal(t, 0.0, b.Ring[0].X)
	assert.Equal(t, 5.0, b.Ring[1].X)
	assert.Equal(t, 10.0, b.Ring[2].X)
	// right descending
	assert.Equal(t, 10.0, b.Ring[3].X)
	assert.Equal(t, 5.0, b.Ring[4].X)
	assert.Equal(t, 0.0, b.Ring[5].X)
	// closing vertex equals the first
	assert.Equal(t, b.Ring[0], b.Ring[6])
}

func TestBuildBoundary_AlreadyClosedWithinTolerance(t *testing.T) {
	left := []core.BreakPoint{
		toe(core.SideLeft, 0, 0, 5, 1),
		toe(core.SideLeft, 10, 10, 5, 1),
	}
	// right walk ends within 0.01 of the left start
	right := []core.BreakPoint{
		toe(core.SideRight, 10, 10, -5, 1),
		toe(core.SideRight, 0, 0.003, 5.004, 1),
	}

	b, ok := BuildBoundary("STB-1", left, right)
	require.True(t, ok)
	assert.False(t, b.Closed)
	assert.Len(t, b.Ring, 4)
}

func TestBuildBoundary_DedupeKeepsFirst(t *testing.T) {
	left := []core.BreakPoint{
		toe(core.SideLeft, 1.0001, 1, 5, 1),
		toe(core.SideLeft, 1.0004, 1, 7, 2), // same rounded chainage, dropped
		toe(core.SideLeft, 1.0006, 1, 9, 3), // rounds to 1.001, kept
		toe(core.SideLeft, 8, 8, 5, 1),
	}
	right := []core.BreakPoint{
		toe(core.SideRight, 1, 1, -5, 1),
		toe(core.SideRight, 8, 8, -5, 1),
	}

	b, ok := BuildBoundary("STB-1", left, right)
	require.True(t, ok)

	// three left points survive: 1.0001, 1.0006, 8
	leftPart := b.Ring[:3]
	assert.Equal(t, 5.0, leftPart[0].Y, "first occurrence kept")
	assert.Equal(t, 9.0, leftPart[1].Y)
	assert.Equal(t, 5.0, leftPart[2].Y)
}

func TestBuildBoundary_RequiresBothSides(t *testing.T) {
	left := []core.BreakPoint{toe(core.SideLeft, 0, 0, 5, 1)}

	_, ok := BuildBoundary("STB-1", left, nil)
	assert.False(t, ok)

	_, ok = BuildBoundary("STB-1", nil, nil)
	assert.False(t, ok)
}

func TestBoundaryGeometry_ValidPolygonAndOutline(t *testing.T) {
	left := []core.BreakPoint{
		toe(core.SideLeft, 0, 0, 5, 1),
		toe(core.SideLeft, 10, 10, 5, 1),
	}
	right := []core.BreakPoint{
		toe(core.SideRight, 10, 10, -5, 1),
		toe(core.SideRight, 0, 0, -5, 1),
	}

	b, ok := BuildBoundary("STB-1", left, right)
	require.True(t, ok)

	poly, outline, err := BoundaryGeometry(b)
	require.NoError(t, err)
	assert.False(t, poly.IsEmpty())
	assert.Equal(t, len(b.Ring), outline.Coordinates().Length())
}

func TestBoundaryGeometry_DegenerateRing(t *testing.T) {
	b := core.ToeBoundary{
		FeatureID: "STB-1",
		Ring: []core.Position3D{
			{X: 0, Y: 0}, {X: 1, Y: 1},
		},
	}

	_, _, err := BoundaryGeometry(b)
	assert.Error(t, err)
}
