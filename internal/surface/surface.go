// Package surface triangulates derived break points into TINs and
// answers elevation queries against them. Loft and toe surfaces built
// here feed the volume differencing stage.
package surface

import (
	"errors"
	"math"

	"github.com/stopbank/crestline/pkg/core"
)

// ErrTooFewPoints is returned when fewer than three distinct points remain.
var ErrTooFewPoints = errors.New("surface needs at least three distinct points")

// ErrDegenerate is returned when the points triangulate to nothing,
// which happens when they are all collinear.
var ErrDegenerate = errors.New("surface points are collinear")

const epsilon = 1e-10

// superScale stretches the bounding triangle far enough past the data
// envelope that its removal never clips a hull triangle.
const superScale = 20

type triangle struct {
	a, b, c core.Position3D
}

// circumcircle returns the center and squared radius of the triangle's
// circumscribed circle. ok is false for a degenerate (collinear) triangle.
func (t triangle) circumcircle() (cx, cy, r2 float64, ok bool) {
	d := 2 * (t.a.X*(t.b.Y-t.c.Y) + t.b.X*(t.c.Y-t.a.Y) + t.c.X*(t.a.Y-t.b.Y))
	if math.Abs(d) < epsilon {
		return 0, 0, 0, false
	}
	a2 := t.a.X*t.a.X + t.a.Y*t.a.Y
	b2 := t.b.X*t.b.X + t.b.Y*t.b.Y
	c2 := t.c.X*t.c.X + t.c.Y*t.c.Y
	cx = (a2*(t.b.Y-t.c.Y) + b2*(t.c.Y-t.a.Y) + c2*(t.a.Y-t.b.Y)) / d
	cy = (a2*(t.c.X-t.b.X) + b2*(t.a.X-t.c.X) + c2*(t.b.X-t.a.X)) / d
	dx := t.a.X - cx
	dy := t.a.Y - cy
	return cx, cy, dx*dx + dy*dy, true
}

// circumcircleContains reports whether (x, y) falls inside the
// circumcircle. Degenerate triangles contain everything, so insertion
// always replaces them.
func (t triangle) circumcircleContains(x, y float64) bool {
	cx, cy, r2, ok := t.circumcircle()
	if !ok {
		return true
	}
	dx := x - cx
	dy := y - cy
	return dx*dx+dy*dy <= r2
}

// elevationAt interpolates barycentrically inside the triangle,
// reporting false when (x, y) lies outside it.
func (t triangle) elevationAt(x, y float64) (float64, bool) {
	denom := (t.b.Y-t.c.Y)*(t.a.X-t.c.X) + (t.c.X-t.b.X)*(t.a.Y-t.c.Y)
	if math.Abs(denom) < epsilon {
		return 0, false
	}
	wa := ((t.b.Y-t.c.Y)*(x-t.c.X) + (t.c.X-t.b.X)*(y-t.c.Y)) / denom
	wb := ((t.c.Y-t.a.Y)*(x-t.c.X) + (t.a.X-t.c.X)*(y-t.c.Y)) / denom
	wc := 1 - wa - wb
	if wa < -epsilon || wb < -epsilon || wc < -epsilon {
		return 0, false
	}
	return wa*t.a.Z + wb*t.b.Z + wc*t.c.Z, true
}

// edge is an order-normalized triangle side, used to find the cavity
// boundary during insertion.
type edge struct {
	ax, ay, bx, by float64
}

func edgeKey(p, q core.Position3D) edge {
	if q.X < p.X || (q.X == p.X && q.Y < p.Y) {
		p, q = q, p
	}
	return edge{ax: p.X, ay: p.Y, bx: q.X, by: q.Y}
}

// Tin is a Delaunay triangulation of scattered terrain points.
type Tin struct {
	triangles []triangle
}

// Build triangulates the points with incremental Bowyer-Watson
// insertion: grow a bounding super-triangle, insert points one at a
// time by carving out the triangles whose circumcircle they violate,
// and finally drop every triangle still touching the super-triangle.
func Build(points []core.Position3D) (*Tin, error) {
	pts := dedupe(points)
	if len(pts) < 3 {
		return nil, ErrTooFewPoints
	}

	super := superTriangle(pts)
	tris := []triangle{super}
	for _, p := range pts {
		tris = insert(tris, p)
	}

	keep := make([]triangle, 0, len(tris))
	for _, t := range tris {
		if sharesVertex(t, super) {
			continue
		}
		keep = append(keep, t)
	}
	if len(keep) == 0 {
		return nil, ErrDegenerate
	}
	return &Tin{triangles: keep}, nil
}

// insert replaces every triangle whose circumcircle contains p with a
// fan from p to the cavity's boundary edges.
func insert(tris []triangle, p core.Position3D) []triangle {
	edgeCount := make(map[edge]int)
	edgeEnds := make(map[edge][2]core.Position3D)

	next := make([]triangle, 0, len(tris)+2)
	for _, t := range tris {
		if !t.circumcircleContains(p.X, p.Y) {
			next = append(next, t)
			continue
		}
		for _, side := range [3][2]core.Position3D{{t.a, t.b}, {t.b, t.c}, {t.c, t.a}} {
			k := edgeKey(side[0], side[1])
			edgeCount[k]++
			edgeEnds[k] = side
		}
	}

	for k, n := range edgeCount {
		// edges shared by two carved triangles are interior to the cavity
		if n != 1 {
			continue
		}
		ends := edgeEnds[k]
		next = append(next, triangle{a: ends[0], b: ends[1], c: p})
	}
	return next
}

// superTriangle spans the data envelope with a wide margin.
func superTriangle(pts []core.Position3D) triangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	dx := maxX - minX
	dy := maxY - minY
	deltaMax := math.Max(dx, dy)
	if deltaMax == 0 {
		deltaMax = 1
	}
	midX := (minX + maxX) / 2
	midY := (minY + maxY) / 2

	return triangle{
		a: core.Position3D{X: midX - superScale*deltaMax, Y: midY - deltaMax},
		b: core.Position3D{X: midX, Y: midY + superScale*deltaMax},
		c: core.Position3D{X: midX + superScale*deltaMax, Y: midY - deltaMax},
	}
}

func sameXY(p, q core.Position3D) bool {
	return p.X == q.X && p.Y == q.Y
}

func sharesVertex(t, s triangle) bool {
	for _, v := range [3]core.Position3D{t.a, t.b, t.c} {
		for _, w := range [3]core.Position3D{s.a, s.b, s.c} {
			if sameXY(v, w) {
				return true
			}
		}
	}
	return false
}

// dedupe drops points that repeat an earlier (x, y); the first
// occurrence keeps its z.
func dedupe(points []core.Position3D) []core.Position3D {
	seen := make(map[[2]float64]struct{}, len(points))
	out := make([]core.Position3D, 0, len(points))
	for _, p := range points {
		k := [2]float64{p.X, p.Y}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

// ElevationAt interpolates the surface at (x, y). It reports false
// outside the triangulated hull.
func (t *Tin) ElevationAt(x, y float64) (float64, bool) {
	for _, tri := range t.triangles {
		if z, ok := tri.elevationAt(x, y); ok {
			return z, true
		}
	}
	return 0, false
}

// Triangles reports the triangulation size.
func (t *Tin) Triangles() int {
	return len(t.triangles)
}
