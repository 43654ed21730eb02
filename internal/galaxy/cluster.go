package galaxy

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"galactic-server/internal/random"
)

// ErrTemplate means a template could not produce a cluster graph.
var ErrTemplate = errors.New("galaxy template exhausted")

// Cluster is a planar graph cut from a template. Vertices index into
// Template.Vertices; edges use template indices too.
type Cluster struct {
	Template *Template
	Vertices []int
	Edges    []Edge
}

// Positions returns the template coordinates of the cluster's vertices.
func (c *Cluster) Positions() []Point {
	out := make([]Point, len(c.Vertices))
	for i, v := range c.Vertices {
		out[i] = c.Template.Vertices[v]
	}
	return out
}

// NewCluster cuts a connected graph of n vertices from t: a random connected
// vertex subset, a non-crossing spanning tree over it, then
// floor(n*cyclePercentage) extra non-crossing edges where available.
func NewCluster(t *Template, n int, cyclePercentage float64, src random.Source) (*Cluster, error) {
	if n <= 0 || n > len(t.Vertices) {
		return nil, fmt.Errorf("%w: %s cannot hold %d vertices", ErrTemplate, t.Name, n)
	}

	c := &Cluster{Template: t, Vertices: connectedSubset(t, n, src)}
	b := newBuilder(c)
	if err := b.spanningTree(src); err != nil {
		return nil, err
	}
	b.addCycles(int(math.Floor(float64(n)*cyclePercentage)), src)
	return c, nil
}

// connectedSubset grows a vertex set from a random seed vertex by repeatedly
// taking a random vertex adjacent to the set.
func connectedSubset(t *Template, n int, src random.Source) []int {
	start := src.IntN(len(t.Vertices))
	chosen := map[int]bool{start: true}
	out := []int{start}

	var frontier []int
	inFrontier := make(map[int]bool)
	push := func(v int) {
		for _, nb := range t.Neighbours(v) {
			if !chosen[nb] && !inFrontier[nb] {
				inFrontier[nb] = true
				frontier = append(frontier, nb)
			}
		}
	}
	push(start)

	for len(out) < n && len(frontier) > 0 {
		i := src.IntN(len(frontier))
		v := frontier[i]
		frontier[i] = frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		chosen[v] = true
		out = append(out, v)
		push(v)
	}
	slices.Sort(out)
	return out
}

type builder struct {
	c       *Cluster
	member  map[int]bool
	chosen  map[Edge]bool
	forest  *Forest
	forestI map[int]int
}

func newBuilder(c *Cluster) *builder {
	b := &builder{
		c:       c,
		member:  make(map[int]bool, len(c.Vertices)),
		chosen:  make(map[Edge]bool),
		forest:  NewForest(len(c.Vertices)),
		forestI: make(map[int]int, len(c.Vertices)),
	}
	for i, v := range c.Vertices {
		b.member[v] = true
		b.forestI[v] = i
	}
	return b
}

func (b *builder) crosses(e Edge) bool {
	for _, o := range b.c.Template.Intersecting(e) {
		if b.chosen[o] {
			return true
		}
	}
	return false
}

func (b *builder) add(e Edge) {
	b.chosen[e] = true
	b.c.Edges = append(b.c.Edges, e)
	b.forest.Join(b.forestI[e.A], b.forestI[e.B])
}

// spanningTree runs a Prim variant: each step picks a random edge from a
// visited vertex to an unvisited neighbour that neither closes a cycle nor
// crosses a chosen edge.
func (b *builder) spanningTree(src random.Source) error {
	t := b.c.Template
	visited := map[int]bool{b.c.Vertices[0]: true}

	for len(visited) < len(b.c.Vertices) {
		var candidates []Edge
		for _, v := range b.c.Vertices {
			if !visited[v] {
				continue
			}
			for _, nb := range t.Neighbours(v) {
				if !b.member[nb] || visited[nb] {
					continue
				}
				e := newEdge(v, nb)
				if b.forest.ClosesCycle(b.forestI[v], b.forestI[nb]) || b.crosses(e) {
					continue
				}
				candidates = append(candidates, e)
			}
		}
		if len(candidates) == 0 {
			return fmt.Errorf("%w: no spanning edge left in %s after %d of %d vertices",
				ErrTemplate, t.Name, len(visited), len(b.c.Vertices))
		}

		e := random.Choice(src, candidates)
		b.add(e)
		visited[e.A] = true
		visited[e.B] = true
	}
	return nil
}

// addCycles adds up to n random extra edges between member vertices that
// are neither duplicates nor crossing.
func (b *builder) addCycles(n int, src random.Source) {
	if n <= 0 {
		return
	}
	var candidates []Edge
	for _, e := range b.c.Template.Edges {
		if b.member[e.A] && b.member[e.B] && !b.chosen[e] {
			candidates = append(candidates, e)
		}
	}
	random.Shuffle(src, candidates)

	added := 0
	for _, e := range candidates {
		if added == n {
			break
		}
		if b.crosses(e) {
			continue
		}
		b.chosen[e] = true
		b.c.Edges = append(b.c.Edges, e)
		added++
	}
}
