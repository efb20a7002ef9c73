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

package triangle

import "github.com/ctessum/geom"

type edge [2]int

func newEdge(a, b int) edge {
	if a < b {
		return edge{a, b}
	}
	return edge{b, a}
}

// refiner performs longest-edge propagation path (LEPP) bisection. An
// edge is always split in every triangle that shares it, so the
// triangulation stays conforming.
type refiner struct {
	points []geom.Point
	tris   [][3]int
	alive  []bool
	edges  map[edge][]int
}

func newRefiner(points []geom.Point, tris [][3]int) *refiner {
	r := &refiner{
		points: points,
		edges:  make(map[edge][]int),
	}
	for _, t := range tris {
		r.add(t)
	}
	return r
}

func (r *refiner) add(t [3]int) {
	i := len(r.tris)
	r.tris = append(r.tris, t)
	r.alive = append(r.alive, true)
	for k := 0; k < 3; k++ {
		e := newEdge(t[k], t[(k+1)%3])
		r.edges[e] = append(r.edges[e], i)
	}
}

func (r *refiner) remove(i int) {
	t := r.tris[i]
	for k := 0; k < 3; k++ {
		e := newEdge(t[k], t[(k+1)%3])
		s := r.edges[e]
		for j, v := range s {
			if v == i {
				s = append(s[:j], s[j+1:]...)
				break
			}
		}
		if len(s) == 0 {
			delete(r.edges, e)
		} else {
			r.edges[e] = s
		}
	}
	r.alive[i] = false
}

func (r *refiner) area(i int) float64 {
	t := r.tris[i]
	return cross(r.points[t[0]], r.points[t[1]], r.points[t[2]]) / 2
}

// longer reports whether edge a is longer than edge b, breaking ties by
// vertex index so that every triangle has a unique longest edge.
func (r *refiner) longer(a, b edge) bool {
	la, lb := r.length2(a), r.length2(b)
	if la != lb {
		return la > lb
	}
	if a[0] != b[0] {
		return a[0] > b[0]
	}
	return a[1] > b[1]
}

func (r *refiner) length2(e edge) float64 {
	p, q := r.points[e[0]], r.points[e[1]]
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}

func (r *refiner) longest(i int) edge {
	t := r.tris[i]
	e := newEdge(t[0], t[1])
	for k := 1; k < 3; k++ {
		if f := newEdge(t[k], t[(k+1)%3]); r.longer(f, e) {
			e = f
		}
	}
	return e
}

// bisect splits e at its midpoint in every triangle that contains it.
func (r *refiner) bisect(e edge) {
	p, q := r.points[e[0]], r.points[e[1]]
	m := len(r.points)
	r.points = append(r.points, geom.Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2})
	for _, i := range append([]int(nil), r.edges[e]...) {
		t := r.tris[i]
		k := 0
		for newEdge(t[k], t[(k+1)%3]) != e {
			k++
		}
		a, b, o := t[k], t[(k+1)%3], t[(k+2)%3]
		r.remove(i)
		r.add([3]int{a, m, o})
		r.add([3]int{m, b, o})
	}
}

// lepp follows the longest-edge propagation path from triangle i to an
// edge that is the longest edge of every triangle sharing it, and
// bisects that edge.
func (r *refiner) lepp(i int) {
	for {
		e := r.longest(i)
		n := -1
		for _, j := range r.edges[e] {
			if j != i {
				n = j
			}
		}
		if n < 0 || r.longest(n) == e {
			r.bisect(e)
			return
		}
		i = n
	}
}

// refine bisects triangles until none has an area greater than maxArea.
func (r *refiner) refine(maxArea float64) {
	for i := 0; i < len(r.tris); i++ {
		for r.alive[i] && r.area(i) > maxArea {
			r.lepp(i)
		}
	}
}

// triangles returns the current triangles.
func (r *refiner) triangles() [][3]int {
	o := make([][3]int, 0, len(r.tris))
	for i, t := range r.tris {
		if r.alive[i] {
			o = append(o, t)
		}
	}
	return o
}
