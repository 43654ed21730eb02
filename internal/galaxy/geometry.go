package galaxy

import "math"

type Point struct {
	X, Y float64
}

func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }

func Distance(p, q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func onSegment(p, a, b Point) bool {
	return min(a.X, b.X) <= p.X && p.X <= max(a.X, b.X) &&
		min(a.Y, b.Y) <= p.Y && p.Y <= max(a.Y, b.Y)
}

// SegmentsIntersect reports whether segments ab and cd share a point other
// than a common endpoint. Collinear overlaps count as intersections.
func SegmentsIntersect(a, b, c, d Point) bool {
	if a == c || a == d || b == c || b == d {
		// segments meeting at an endpoint only intersect if they overlap
		shared, p, q := a, b, d
		switch {
		case a == d:
			q = c
		case b == c:
			shared, p, q = b, a, d
		case b == d:
			shared, p, q = b, a, c
		}
		if cross(shared, p, q) != 0 {
			return false
		}
		// collinear: overlap when both run the same way from the shared point
		v, w := p.Sub(shared), q.Sub(shared)
		return v.X*w.X+v.Y*w.Y > 0
	}

	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	switch {
	case d1 == 0 && onSegment(a, c, d):
		return true
	case d2 == 0 && onSegment(b, c, d):
		return true
	case d3 == 0 && onSegment(c, a, b):
		return true
	case d4 == 0 && onSegment(d, a, b):
		return true
	}
	return false
}

// Forest is a union-find over vertex indices. It is the cycle test for
// both cluster graphs and the cluster-level connection pass.
type Forest struct {
	parent []int
	rank   []int
}

func NewForest(n int) *Forest {
	f := &Forest{parent: make([]int, n), rank: make([]int, n)}
	for i := range f.parent {
		f.parent[i] = i
	}
	return f
}

func (f *Forest) find(x int) int {
	for f.parent[x] != x {
		f.parent[x] = f.parent[f.parent[x]]
		x = f.parent[x]
	}
	return x
}

// ClosesCycle reports whether an edge between a and b would close a cycle.
func (f *Forest) ClosesCycle(a, b int) bool {
	return f.find(a) == f.find(b)
}

// Join merges the trees of a and b. It returns false when they were
// already connected.
func (f *Forest) Join(a, b int) bool {
	ra, rb := f.find(a), f.find(b)
	if ra == rb {
		return false
	}
	switch {
	case f.rank[ra] < f.rank[rb]:
		f.parent[ra] = rb
	case f.rank[ra] > f.rank[rb]:
		f.parent[rb] = ra
	default:
		f.parent[rb] = ra
		f.rank[ra]++
	}
	return true
}
