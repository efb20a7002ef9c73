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

// Package triangle computes conforming triangulations of a rectangular
// domain containing non-overlapping polygonal subdomains. The domain
// outside the subdomains is triangulated by ear clipping after bridging
// each subdomain into the outer boundary, each subdomain is ear clipped
// separately, and the result is refined by longest-edge propagation
// bisection until no triangle is larger than the requested area.
// Vertices on subdomain boundaries are shared by the triangles on both
// sides, so subdomain boundaries are edges of the triangulation.
package triangle

import (
	"fmt"
	"sort"

	"github.com/ctessum/geom"
)

// Triangulator is the default triangulator used by package mesh.
type Triangulator struct{}

// Triangulate triangulates the region inside boundary, constrained so that
// the edges of each subdomain are edges of the triangulation. Rings may
// repeat their first vertex at the end. Triangles larger than maxArea are
// refined; maxArea <= 0 disables refinement. Points are returned as a
// flat array of x, y pairs and triangles as a flat array of
// counter-clockwise vertex index triples.
func (Triangulator) Triangulate(boundary []geom.Point, subdomains [][]geom.Point, maxArea float64) ([]float64, []int, error) {
	var pts []geom.Point
	addRing := func(r []geom.Point, ccw bool) ([]int, error) {
		if n := len(r); n > 1 && r[0] == r[n-1] {
			r = r[:n-1]
		}
		if len(r) < 3 {
			return nil, fmt.Errorf("triangle: ring has %d vertices; need at least 3", len(r))
		}
		a := signedArea(r)
		if a == 0 {
			return nil, fmt.Errorf("triangle: ring has zero area")
		}
		idx := make([]int, len(r))
		for i := range r {
			idx[i] = len(pts) + i
		}
		pts = append(pts, r...)
		if (a > 0) != ccw {
			reverse(idx)
		}
		return idx, nil
	}

	outer, err := addRing(boundary, true)
	if err != nil {
		return nil, nil, fmt.Errorf("triangle: boundary: %v", err)
	}
	var tris [][3]int
	holes := make([][]int, 0, len(subdomains))
	for i, s := range subdomains {
		ring, err := addRing(s, true)
		if err != nil {
			return nil, nil, fmt.Errorf("triangle: subdomain %d: %v", i, err)
		}
		t, err := earClip(pts, ring)
		if err != nil {
			return nil, nil, fmt.Errorf("triangle: subdomain %d: %v", i, err)
		}
		tris = append(tris, t...)
		hole := append([]int(nil), ring...)
		reverse(hole)
		holes = append(holes, hole)
	}

	// Bridge holes from right to left so that every bridge can see the
	// current outer polygon.
	maxX := func(h []int) float64 { return pts[h[rightmost(pts, h)]].X }
	sort.SliceStable(holes, func(i, j int) bool { return maxX(holes[i]) > maxX(holes[j]) })
	for i, h := range holes {
		if outer, err = bridge(pts, outer, h); err != nil {
			return nil, nil, fmt.Errorf("triangle: subdomain hole %d: %v", i, err)
		}
	}
	ground, err := earClip(pts, outer)
	if err != nil {
		return nil, nil, fmt.Errorf("triangle: domain: %v", err)
	}
	tris = append(ground, tris...)

	if maxArea > 0 {
		r := newRefiner(pts, tris)
		r.refine(maxArea)
		pts, tris = r.points, r.triangles()
	}

	points := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		points = append(points, p.X, p.Y)
	}
	triangles := make([]int, 0, 3*len(tris))
	for _, t := range tris {
		triangles = append(triangles, t[0], t[1], t[2])
	}
	return points, triangles, nil
}

func cross(o, a, b geom.Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func signedArea(r []geom.Point) float64 {
	var s float64
	for i, a := range r {
		b := r[(i+1)%len(r)]
		s += a.X*b.Y - a.Y*b.X
	}
	return s / 2
}

// inTriangle reports whether q is inside or on the boundary of the
// counter-clockwise triangle abc.
func inTriangle(a, b, c, q geom.Point) bool {
	return cross(a, b, q) >= 0 && cross(b, c, q) >= 0 && cross(c, a, q) >= 0
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
