/*
Copyright © 2023 the CityMesh authors.
This file is part of CityMesh.

CityMesh is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

CityMesh is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with CityMesh.  If not, see <http://www.gnu.org/licenses/>.
*/

package polyfix

import (
	"errors"
	"math"
	"sort"

	"github.com/ctessum/geom"
)

// ErrMergeFailed is returned by Merge when no outline enclosing both
// polygons can be traced through the merge graph.
var ErrMergeFailed = errors.New("polyfix: polygon merge failed")

// parallelTol is the squared sine below which two edges are treated as
// parallel.
const parallelTol = 1e-6

// mergeGraph is a planar graph over the vertices of two polygons and the
// connection points between them.
type mergeGraph struct {
	vertices []geom.Point
	adj      [][]int
}

func (g *mergeGraph) add(p geom.Point) int {
	g.vertices = append(g.vertices, p)
	g.adj = append(g.adj, nil)
	return len(g.vertices) - 1
}

func (g *mergeGraph) connect(i, j int) {
	if i == j {
		return
	}
	g.adj[i] = appendUnique(g.adj[i], j)
	g.adj[j] = appendUnique(g.adj[j], i)
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

// connectVertexEdge connects vertex i to edge (j0, j1) if it is within tol
// of either endpoint or, failing that, of the edge itself, in which case a
// new vertex is inserted at the projection of i onto the edge.
func (g *mergeGraph) connectVertexEdge(i, j0, j1 int, tol2 float64) {
	p, q0, q1 := g.vertices[i], g.vertices[j0], g.vertices[j1]
	var connected bool
	if distance2(p, q0) < tol2 {
		g.connect(i, j0)
		connected = true
	}
	if distance2(p, q1) < tol2 {
		g.connect(i, j1)
		connected = true
	}
	if connected {
		return
	}
	v := sub(q1, q0)
	v2 := dot(v, v)
	if v2 < tol2 {
		return
	}
	if SegmentDistanceSquared(q0, q1, p) >= tol2 {
		return
	}
	t := dot(sub(p, q0), v) / v2
	k := g.add(geom.Point{X: q0.X + t*v.X, Y: q0.Y + t*v.Y})
	g.connect(k, i)
	g.connect(k, j0)
	g.connect(k, j1)
}

// connectEdgeEdge inserts a vertex at the intersection of edges (i0, i1)
// and (j0, j1) if it lies within tol of both edges.
func (g *mergeGraph) connectEdgeEdge(i0, i1, j0, j1 int, tol float64) {
	p0, p1 := g.vertices[i0], g.vertices[i1]
	q0, q1 := g.vertices[j0], g.vertices[j1]
	u, v := sub(p1, p0), sub(q1, q0)
	uu, vv := dot(u, u), dot(v, v)
	if uu == 0 || vv == 0 {
		return
	}
	den := cross(u, v)
	if den*den < parallelTol*uu*vv {
		return
	}
	w := sub(q0, p0)
	s := cross(w, v) / den
	t := cross(w, u) / den
	su, sv := tol/math.Sqrt(uu), tol/math.Sqrt(vv)
	if s < -su || s > 1+su || t < -sv || t > 1+sv {
		return
	}
	k := g.add(geom.Point{X: p0.X + s*u.X, Y: p0.Y + s*u.Y})
	for _, e := range []int{i0, i1, j0, j1} {
		g.connect(k, e)
	}
}

// unify collapses vertices closer than tol into the lowest-numbered one
// and returns the indices of the remaining vertices.
func (g *mergeGraph) unify(tol2 float64) []int {
	n := len(g.vertices)
	rep := make([]int, n)
	removed := make([]bool, n)
	for i := range rep {
		rep[i] = i
	}
	for i := 0; i < n; i++ {
		if removed[i] {
			continue
		}
		for j := i + 1; j < n; j++ {
			if !removed[j] && distance2(g.vertices[i], g.vertices[j]) < tol2 {
				rep[j] = i
				removed[j] = true
			}
		}
	}
	adj := make([][]int, n)
	for i, nb := range g.adj {
		for _, j := range nb {
			a, b := rep[i], rep[j]
			if a == b {
				continue
			}
			adj[a] = appendUnique(adj[a], b)
			adj[b] = appendUnique(adj[b], a)
		}
	}
	var keep []int
	for i := range adj {
		sort.Ints(adj[i])
		if !removed[i] {
			keep = append(keep, i)
		}
	}
	g.adj = adj
	return keep
}

// Merge returns a polygon that covers the union of p0 and p1 while
// following their edges as closely as possible. Vertices and edges of the
// two polygons that are within tol of each other are connected, and the
// outline of the resulting planar graph is traced counter-clockwise by
// taking the right-most turn at every vertex. Both polygons are expected
// to be closed and counter-clockwise.
func Merge(p0, p1 []geom.Point, tol float64) ([]geom.Point, error) {
	m, n := len(p0), len(p1)
	if m < 3 || n < 3 {
		return nil, ErrMergeFailed
	}
	tol2 := tol * tol

	g := new(mergeGraph)
	for _, p := range p0 {
		g.add(p)
	}
	for _, p := range p1 {
		g.add(p)
	}
	for i := 0; i < m; i++ {
		g.connect(i, (i+1)%m)
	}
	for j := 0; j < n; j++ {
		g.connect(m+j, m+(j+1)%n)
	}
	for i0 := 0; i0 < m; i0++ {
		i1 := (i0 + 1) % m
		for j := 0; j < n; j++ {
			j0, j1 := m+j, m+(j+1)%n
			g.connectVertexEdge(i0, j0, j1, tol2)
			g.connectVertexEdge(i1, j0, j1, tol2)
			g.connectVertexEdge(j0, i0, i1, tol2)
			g.connectVertexEdge(j1, i0, i1, tol2)
			g.connectEdgeEdge(i0, i1, j0, j1, tol)
		}
	}
	keep := g.unify(tol2)

	walk, ok := g.walk(keep)
	if !ok {
		return nil, ErrMergeFailed
	}
	o := make([]geom.Point, len(walk))
	for i, k := range walk {
		o[i] = g.vertices[k]
	}
	for _, p := range [][]geom.Point{p0, p1} {
		for _, v := range p {
			if !encloses(o, v, tol2) {
				return nil, ErrMergeFailed
			}
		}
	}
	return o, nil
}

// walk traces the outline of the graph. It starts from an edge with no
// vertex strictly to its right, trying vertices from the lowest-left one
// and their edges from the shortest one.
func (g *mergeGraph) walk(keep []int) ([]int, bool) {
	v := g.vertices
	order := append([]int(nil), keep...)
	sort.SliceStable(order, func(a, b int) bool {
		p, q := v[order[a]], v[order[b]]
		return p.X < q.X || (p.X == q.X && p.Y < q.Y)
	})
	start, first := -1, -1
search:
	for _, i := range order {
		candidates := append([]int(nil), g.adj[i]...)
		sort.SliceStable(candidates, func(a, b int) bool {
			return distance2(v[i], v[candidates[a]]) < distance2(v[i], v[candidates[b]])
		})
		for _, k := range candidates {
			if g.onOutline(keep, i, k) {
				start, first = i, k
				break search
			}
		}
	}
	if first < 0 {
		return nil, false
	}

	walk := []int{start, first}
	visited := map[int]bool{start: true, first: true}
	maxSteps := 2 * len(keep)
	for step := 0; step < maxSteps; step++ {
		prev, cur := walk[len(walk)-2], walk[len(walk)-1]
		r := sub(v[prev], v[cur])
		next := -1
		var bestAngle, bestLength float64
		for _, k := range g.adj[cur] {
			if k != start && visited[k] {
				continue
			}
			if k == prev && len(g.adj[cur]) > 1 {
				continue
			}
			if crossesWalk(v, walk, cur, k) {
				continue
			}
			e := sub(v[k], v[cur])
			// Counter-clockwise angle from the reversed incoming edge; the
			// smallest one is the right-most turn.
			a := math.Atan2(cross(r, e), dot(r, e))
			if a <= 0 {
				a += 2 * math.Pi
			}
			l := dot(e, e)
			if next < 0 || a < bestAngle-parallelTol || (math.Abs(a-bestAngle) <= parallelTol && l < bestLength) {
				next, bestAngle, bestLength = k, a, l
			}
		}
		if next < 0 {
			return nil, false
		}
		if next == start {
			return walk, len(walk) >= 3
		}
		walk = append(walk, next)
		visited[next] = true
	}
	return nil, false
}

// onOutline reports whether no kept vertex lies strictly to the right of
// edge (i, k).
func (g *mergeGraph) onOutline(keep []int, i, k int) bool {
	v := g.vertices
	u := sub(v[k], v[i])
	for _, q := range keep {
		if q == i || q == k {
			continue
		}
		w := sub(v[q], v[i])
		c := cross(u, w)
		if c < 0 && c*c > parallelTol*dot(u, u)*dot(w, w) {
			return false
		}
	}
	return true
}

// crossesWalk reports whether edge (cur, k) properly crosses any edge
// already in the walk.
func crossesWalk(v []geom.Point, walk []int, cur, k int) bool {
	for l := 0; l+1 < len(walk)-1; l++ {
		if segmentsCross(v[cur], v[k], v[walk[l]], v[walk[l+1]]) {
			return true
		}
	}
	return false
}
