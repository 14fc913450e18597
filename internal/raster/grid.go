// internal/raster/grid.go
package raster

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/stopbank/crestline/internal/util"
)

// defaultNoData is assumed when a grid header omits nodata_value.
const defaultNoData = -9999

// Grid is an ESRI ASCII grid held fully in memory. Values are stored
// row-major from the northern edge, matching file order.
type Grid struct {
	ncols    int
	nrows    int
	xll      float64
	yll      float64
	cellSize float64
	nodata   float64
	values   []float64
}

// OpenASCIIGrid reads a .asc file from disk.
func OpenASCIIGrid(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening raster: %w", err)
	}
	defer f.Close()

	g, err := ParseASCIIGrid(f)
	if err != nil {
		return nil, fmt.Errorf("parsing raster %s: %w", path, err)
	}
	return g, nil
}

// ParseASCIIGrid parses the ESRI ASCII grid format: a whitespace-keyed
// header (ncols, nrows, xllcorner/xllcenter, yllcorner/yllcenter,
// cellsize, optional nodata_value) followed by nrows*ncols values
// ordered north to south.
func ParseASCIIGrid(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	sc.Split(bufio.ScanWords)

	g := &Grid{nodata: defaultNoData}
	var (
		xCentered, yCentered bool
		haveNcols, haveNrows bool
		haveX, haveY, haveCS bool
		firstValue           string
	)

	// header tokens alternate key/value until the first numeric token
	for sc.Scan() {
		tok := sc.Text()
		if !isHeaderKey(tok) {
			firstValue = tok
			break
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("header key %q has no value", tok)
		}
		val := sc.Text()

		switch strings.ToLower(tok) {
		case "ncols":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("invalid ncols %q", val)
			}
			g.ncols, haveNcols = n, true
		case "nrows":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("invalid nrows %q", val)
			}
			g.nrows, haveNrows = n, true
		case "xllcorner", "xllcenter":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q", strings.ToLower(tok), val)
			}
			g.xll, haveX = f, true
			xCentered = strings.EqualFold(tok, "xllcenter")
		case "yllcorner", "yllcenter":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q", strings.ToLower(tok), val)
			}
			g.yll, haveY = f, true
			yCentered = strings.EqualFold(tok, "yllcenter")
		case "cellsize":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid cellsize %q", val)
			}
			g.cellSize, haveCS = f, true
		case "nodata_value":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid nodata_value %q", val)
			}
			g.nodata = f
		default:
			return nil, fmt.Errorf("unknown header key %q", tok)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if !haveNcols || !haveNrows || !haveX || !haveY || !haveCS {
		return nil, errors.New("incomplete grid header")
	}
	if g.ncols <= 0 || g.nrows <= 0 {
		return nil, fmt.Errorf("grid dimensions %dx%d out of range", g.ncols, g.nrows)
	}
	if g.cellSize <= 0 {
		return nil, fmt.Errorf("cellsize %g out of range", g.cellSize)
	}

	// a center-referenced origin names the first cell center, not the
	// outer corner
	if xCentered {
		g.xll -= g.cellSize / 2
	}
	if yCentered {
		g.yll -= g.cellSize / 2
	}

	want := g.ncols * g.nrows
	g.values = make([]float64, 0, want)

	appendValue := func(tok string) error {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return fmt.Errorf("invalid grid value %q at index %d", tok, len(g.values))
		}
		g.values = append(g.values, v)
		return nil
	}

	if firstValue != "" {
		if err := appendValue(firstValue); err != nil {
			return nil, err
		}
	}
	for sc.Scan() {
		if len(g.values) >= want {
			return nil, fmt.Errorf("grid has more than %d values", want)
		}
		if err := appendValue(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(g.values) != want {
		return nil, fmt.Errorf("grid has %d values, want %d", len(g.values), want)
	}

	return g, nil
}

func isHeaderKey(tok string) bool {
	c := tok[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Extent returns the outer bounds of the grid.
func (g *Grid) Extent() Extent {
	return Extent{
		MinX: g.xll,
		MinY: g.yll,
		MaxX: g.xll + float64(g.ncols)*g.cellSize,
		MaxY: g.yll + float64(g.nrows)*g.cellSize,
	}
}

// CellSize returns the grid resolution.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Size returns the grid dimensions as columns, rows.
func (g *Grid) Size() (int, int) { return g.ncols, g.nrows }

// ElevationAt resolves the elevation at (x, y) by bilinear
// interpolation between the four surrounding cell centers. Inside the
// outer half-cell rim, where fewer than four centers surround the
// point, the lookup degrades to the nearest cell value. Any nodata
// cell among the contributors makes the point unresolvable.
func (g *Grid) ElevationAt(x, y float64) (float64, bool) {
	if !g.Extent().Contains(x, y) {
		return 0, false
	}

	// fractional position on the cell-center lattice, measured from
	// the south-west center
	gx := util.Clamp((x-g.xll)/g.cellSize-0.5, 0, float64(g.ncols-1))
	gy := util.Clamp((y-g.yll)/g.cellSize-0.5, 0, float64(g.nrows-1))

	col0 := int(gx)
	row0 := int(gy)
	col1 := col0
	if col0 < g.ncols-1 {
		col1 = col0 + 1
	}
	row1 := row0
	if row0 < g.nrows-1 {
		row1 = row0 + 1
	}
	fx := gx - float64(col0)
	fy := gy - float64(row0)

	corners := [4]struct {
		col, row int
		weight   float64
	}{
		{col0, row0, (1 - fx) * (1 - fy)},
		{col1, row0, fx * (1 - fy)},
		{col0, row1, (1 - fx) * fy},
		{col1, row1, fx * fy},
	}

	// zero-weight corners are ignored, so sampling exactly on a cell
	// center next to a nodata hole still resolves
	var sum float64
	for _, c := range corners {
		if c.weight == 0 {
			continue
		}
		v, ok := g.cell(c.col, c.row)
		if !ok {
			return 0, false
		}
		sum += v * c.weight
	}
	return sum, true
}

// cell returns the stored value for a column and south-based row.
func (g *Grid) cell(col, southRow int) (float64, bool) {
	storageRow := g.nrows - 1 - southRow
	v := g.values[storageRow*g.ncols+col]
	if v == g.nodata {
		return 0, false
	}
	return v, true
}
