package raster

import (
	"math"
	"strings"
	"testing"
)

// 4x3 grid, origin (100, 200), cell 10. Values rise west to east and
// south to north so interpolation results are easy to derive by hand.
const testGrid = `ncols 4
nrows 3
xllcorner 100.0
yllcorner 200.0
cellsize 10.0
NODATA_value -9999
20 21 22 23
10 11 12 13
0 1 2 3
`

func parseTestGrid(t *testing.T, src string) *Grid {
	t.Helper()
	g, err := ParseASCIIGrid(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return g
}

func TestParseASCIIGrid_HeaderAndDims(t *testing.T) {
	g := parseTestGrid(t, testGrid)

	cols, rows := g.Size()
	if cols != 4 || rows != 3 {
		t.Errorf("expected 4x3 grid, got %dx%d", cols, rows)
	}

	ext := g.Extent()
	if ext.MinX != 100 || ext.MinY != 200 || ext.MaxX != 140 || ext.MaxY != 230 {
		t.Errorf("unexpected extent: %+v", ext)
	}
	if g.CellSize() != 10 {
		t.Errorf("expected cell size 10, got %f", g.CellSize())
	}
}

func TestGrid_CellCenterValues(t *testing.T) {
	g := parseTestGrid(t, testGrid)

	tests := []struct {
		name     string
		x, y     float64
		expected float64
	}{
		{"south-west center", 105, 205, 0},
		{"south-east center", 135, 205, 3},
		{"north-west center", 105, 225, 20},
		{"middle row", 115, 215, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := g.ElevationAt(tt.x, tt.y)
			if !ok {
				t.Fatal("expected value to resolve")
			}
			if v != tt.expected {
				t.Errorf("ElevationAt(%v,%v) = %v, want %v", tt.x, tt.y, v, tt.expected)
			}
		})
	}
}

func TestGrid_BilinearBetweenCenters(t *testing.T) {
	g := parseTestGrid(t, testGrid)

	// halfway between the (0) and (1) centers on the southern row
	v, ok := g.ElevationAt(110, 205)
	if !ok {
		t.Fatal("expected value to resolve")
	}
	if math.Abs(v-0.5) > 1e-9 {
		t.Errorf("expected 0.5, got %v", v)
	}

	// halfway up between rows 0 and 10
	v, ok = g.ElevationAt(105, 210)
	if !ok {
		t.Fatal("expected value to resolve")
	}
	if math.Abs(v-5.0) > 1e-9 {
		t.Errorf("expected 5.0, got %v", v)
	}

	// diagonal midpoint of four centers 0,1,10,11
	v, ok = g.ElevationAt(110, 210)
	if !ok {
		t.Fatal("expected value to resolve")
	}
	if math.Abs(v-5.5) > 1e-9 {
		t.Errorf("expected 5.5, got %v", v)
	}
}

func TestGrid_EdgeRimUsesNearestCell(t *testing.T) {
	g := parseTestGrid(t, testGrid)

	// inside the extent but south of the first center row
	v, ok := g.ElevationAt(105, 201)
	if !ok {
		t.Fatal("expected value to resolve")
	}
	if v != 0 {
		t.Errorf("expected nearest-cell value 0, got %v", v)
	}

	// extreme corner of the extent
	v, ok = g.ElevationAt(140, 230)
	if !ok {
		t.Fatal("expected value to resolve")
	}
	if v != 23 {
		t.Errorf("expected nearest-cell value 23, got %v", v)
	}
}

func TestGrid_OutsideExtent(t *testing.T) {
	g := parseTestGrid(t, testGrid)

	if _, ok := g.ElevationAt(99.9, 205); ok {
		t.Error("expected miss west of extent")
	}
	if _, ok := g.ElevationAt(105, 230.1); ok {
		t.Error("expected miss north of extent")
	}
}

func TestGrid_NoDataIsUnresolvable(t *testing.T) {
	src := `ncols 2
nrows 2
xllcorner 0
yllcorner 0
cellsize 1
NODATA_value -9999
1 -9999
1 1
`
	g := parseTestGrid(t, src)

	// the north-east cell is nodata
	if _, ok := g.ElevationAt(1.5, 1.5); ok {
		t.Error("expected nodata cell to be unresolvable")
	}

	// interpolation touching the nodata corner fails too
	if _, ok := g.ElevationAt(1.0, 1.0); ok {
		t.Error("expected interpolation over nodata to fail")
	}

	// the south-west quadrant is clean
	if _, ok := g.ElevationAt(0.5, 0.5); !ok {
		t.Error("expected clean cell to resolve")
	}
}

func TestParseASCIIGrid_CenterReferencedOrigin(t *testing.T) {
	src := `ncols 2
nrows 2
xllcenter 5.0
yllcenter 5.0
cellsize 10.0
NODATA_value -9999
3 4
1 2
`
	g := parseTestGrid(t, src)

	ext := g.Extent()
	if ext.MinX != 0 || ext.MinY != 0 {
		t.Errorf("expected corner origin (0,0), got (%v,%v)", ext.MinX, ext.MinY)
	}

	v, ok := g.ElevationAt(5, 5)
	if !ok || v != 1 {
		t.Errorf("expected first center to hold 1, got %v (ok=%v)", v, ok)
	}
}

func TestParseASCIIGrid_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing header", "ncols 2\nnrows 2\ncellsize 1\n1 2 3 4"},
		{"short data", "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3"},
		{"excess data", "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3 4 5"},
		{"bad value", "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 x 4"},
		{"zero cellsize", "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 0\n1 2 3 4"},
		{"unknown key", "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\nbogus 7\n1 2 3 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseASCIIGrid(strings.NewReader(tt.src)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}
