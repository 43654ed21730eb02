package galaxy

import (
	"fmt"
	"sync"
)

// Edge joins two vertex indices, A < B.
type Edge struct {
	A, B int
}

func newEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Template is a planar lattice cluster graphs are cut from. Vertices sit on
// an integer grid and every vertex links to its eight neighbours.
type Template struct {
	Name     string
	Vertices []Point
	Edges    []Edge

	edgeIndex  map[Edge]int
	neighbours [][]int
	// intersecting[i] lists the edges that cross edge i.
	intersecting [][]int
}

// NewGridTemplate builds a w×h square lattice with 8-neighbourhood and
// precomputes which of its edges cross.
func NewGridTemplate(w, h int) *Template {
	t := &Template{
		Name:      fmt.Sprintf("grid-%dx%d", w, h),
		edgeIndex: make(map[Edge]int),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t.Vertices = append(t.Vertices, Point{float64(x), float64(y)})
		}
	}
	t.neighbours = make([][]int, len(t.Vertices))

	at := func(x, y int) int { return y*w + x }
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for _, d := range [][2]int{{1, 0}, {0, 1}, {1, 1}, {-1, 1}} {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || nx >= w || ny >= h {
					continue
				}
				t.addEdge(at(x, y), at(nx, ny))
			}
		}
	}

	t.intersecting = make([][]int, len(t.Edges))
	for i, e := range t.Edges {
		for j := i + 1; j < len(t.Edges); j++ {
			f := t.Edges[j]
			if SegmentsIntersect(t.Vertices[e.A], t.Vertices[e.B], t.Vertices[f.A], t.Vertices[f.B]) {
				t.intersecting[i] = append(t.intersecting[i], j)
				t.intersecting[j] = append(t.intersecting[j], i)
			}
		}
	}
	return t
}

func (t *Template) addEdge(a, b int) {
	e := newEdge(a, b)
	t.edgeIndex[e] = len(t.Edges)
	t.Edges = append(t.Edges, e)
	t.neighbours[a] = append(t.neighbours[a], b)
	t.neighbours[b] = append(t.neighbours[b], a)
}

func (t *Template) Neighbours(v int) []int { return t.neighbours[v] }

// Intersecting returns the edges crossing e; e must be a template edge.
func (t *Template) Intersecting(e Edge) []Edge {
	i, ok := t.edgeIndex[e]
	if !ok {
		return nil
	}
	out := make([]Edge, len(t.intersecting[i]))
	for k, j := range t.intersecting[i] {
		out[k] = t.Edges[j]
	}
	return out
}

var gridSizes = [][2]int{{4, 4}, {5, 4}, {5, 5}, {6, 5}, {6, 6}, {7, 6}, {8, 8}}

// Templates are built once and shared read-only by every generation.
var Templates = sync.OnceValue(func() []*Template {
	out := make([]*Template, 0, len(gridSizes))
	for _, s := range gridSizes {
		out = append(out, NewGridTemplate(s[0], s[1]))
	}
	return out
})

// templatesFor lists the templates with room for n vertices.
func templatesFor(n int) []*Template {
	var out []*Template
	for _, t := range Templates() {
		if len(t.Vertices) >= n {
			out = append(out, t)
		}
	}
	return out
}
