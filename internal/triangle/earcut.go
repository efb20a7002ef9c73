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

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// earClip triangulates the counter-clockwise polygon whose vertices are
// pts[poly[0]], pts[poly[1]], .... The polygon may be weakly simple, as
// produced by bridge.
func earClip(pts []geom.Point, poly []int) ([][3]int, error) {
	n := len(poly)
	next := make([]int, n)
	prev := make([]int, n)
	for i := range poly {
		next[i] = (i + 1) % n
		prev[i] = (i + n - 1) % n
	}
	p := func(k int) geom.Point { return pts[poly[k]] }
	isEar := func(k int) bool {
		a, b, c := p(prev[k]), p(k), p(next[k])
		if cross(a, b, c) <= 0 {
			return false
		}
		for j := next[next[k]]; j != prev[k]; j = next[j] {
			q := p(j)
			if q != a && q != b && q != c && inTriangle(a, b, c, q) {
				return false
			}
		}
		return true
	}

	tris := make([][3]int, 0, n-2)
	count, node := n, 0
	remove := func(k int) {
		next[prev[k]] = next[k]
		prev[next[k]] = prev[k]
		count--
	}
	// find returns the first vertex from node on for which ok is true.
	find := func(ok func(k int) bool) int {
		k := node
		for i := 0; i < count; i++ {
			if ok(k) {
				return k
			}
			k = next[k]
		}
		return -1
	}
	for count > 3 {
		k := find(isEar)
		if k < 0 {
			// Round-off can hide every ear; clip any convex vertex instead.
			k = find(func(k int) bool { return cross(p(prev[k]), p(k), p(next[k])) > 0 })
		}
		if k < 0 {
			// Only degenerate vertices remain, such as the tips of bridges.
			k = find(func(k int) bool { return cross(p(prev[k]), p(k), p(next[k])) == 0 })
			if k < 0 {
				return nil, fmt.Errorf("triangle: polygon is not counter-clockwise or not simple")
			}
			node = next[k]
			remove(k)
			continue
		}
		tris = append(tris, [3]int{poly[prev[k]], poly[k], poly[next[k]]})
		node = next[k]
		remove(k)
	}
	if cross(p(prev[node]), p(node), p(next[node])) > 0 {
		tris = append(tris, [3]int{poly[prev[node]], poly[node], poly[next[node]]})
	}
	return tris, nil
}

// rightmost returns the position in ring of the vertex with the largest
// x coordinate, choosing the lowest one on ties.
func rightmost(pts []geom.Point, ring []int) int {
	m := 0
	for i := 1; i < len(ring); i++ {
		p, q := pts[ring[i]], pts[ring[m]]
		if p.X > q.X || (p.X == q.X && p.Y < q.Y) {
			m = i
		}
	}
	return m
}

// bridge joins the clockwise hole to the counter-clockwise polygon poly
// by a pair of coincident edges from the rightmost vertex of the hole to a
// visible polygon vertex, returning the combined weakly simple polygon.
func bridge(pts []geom.Point, poly, hole []int) ([]int, error) {
	mi := rightmost(pts, hole)
	m := pts[hole[mi]]
	n := len(poly)

	// Cast a ray from m in the +x direction and find the nearest edge.
	best, bk := math.Inf(1), -1
	for k := 0; k < n; k++ {
		a, b := pts[poly[k]], pts[poly[(k+1)%n]]
		if a.Y == b.Y {
			continue
		}
		if (a.Y <= m.Y && m.Y <= b.Y) || (b.Y <= m.Y && m.Y <= a.Y) {
			x := a.X + (m.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if x >= m.X && x < best {
				best, bk = x, k
			}
		}
	}
	if bk < 0 {
		return nil, fmt.Errorf("triangle: hole is not inside the polygon")
	}
	v := poly[bk]
	if b := poly[(bk+1)%n]; pts[b].X > pts[v].X {
		v = b
	}
	hit := geom.Point{X: best, Y: m.Y}
	if pts[v] != hit {
		// A polygon vertex inside triangle (m, hit, v) may block the view
		// of v; the one making the smallest angle with the ray is visible.
		a, b, c := m, hit, pts[v]
		if cross(a, b, c) < 0 {
			b, c = c, b
		}
		bestTan, bestDist := math.Inf(1), math.Inf(1)
		for _, r := range poly {
			q := pts[r]
			if q.X <= m.X || !inTriangle(a, b, c, q) {
				continue
			}
			d := q.X - m.X
			tan := math.Abs(q.Y-m.Y) / d
			if tan < bestTan || (tan == bestTan && d < bestDist) {
				bestTan, bestDist, v = tan, d, r
			}
		}
	}

	// v may occur more than once in a polygon that already has bridges;
	// use the occurrence whose interior angle contains m.
	kv := -1
	for k := 0; k < n; k++ {
		if poly[k] != v {
			continue
		}
		if kv < 0 {
			kv = k
		}
		a, q, b := pts[poly[(k+n-1)%n]], pts[v], pts[poly[(k+1)%n]]
		var inside bool
		if cross(a, q, b) >= 0 {
			inside = cross(a, q, m) >= 0 && cross(q, b, m) >= 0
		} else {
			inside = cross(a, q, m) >= 0 || cross(q, b, m) >= 0
		}
		if inside {
			kv = k
			break
		}
	}

	o := make([]int, 0, n+len(hole)+2)
	o = append(o, poly[:kv+1]...)
	o = append(o, hole[mi:]...)
	o = append(o, hole[:mi]...)
	o = append(o, hole[mi], v)
	o = append(o, poly[kv+1:]...)
	return o, nil
}
