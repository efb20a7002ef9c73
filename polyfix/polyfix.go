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

// Package polyfix repairs building footprint polygons and merges
// neighboring footprints into a single outline.
//
// Polygons are represented as slices of vertices without a duplicated
// closing vertex. Every function returns a new slice and leaves its input
// unmodified.
package polyfix

import "github.com/ctessum/geom"

// MakeClosed truncates p at the first vertex after the first one that lies
// within tol of the first vertex. It reports whether p was changed.
func MakeClosed(p []geom.Point, tol float64) ([]geom.Point, bool) {
	if len(p) == 0 {
		return p, false
	}
	tol2 := tol * tol
	for i := 1; i < len(p); i++ {
		if distance2(p[i], p[0]) < tol2 {
			return append([]geom.Point(nil), p[:i]...), true
		}
	}
	return p, false
}

// MakeOriented reverses p if it is oriented clockwise. It reports whether
// p was changed.
func MakeOriented(p []geom.Point) ([]geom.Point, bool) {
	if SignedArea(p) >= 0 {
		return p, false
	}
	o := make([]geom.Point, len(p))
	for i, v := range p {
		o[len(p)-1-i] = v
	}
	return o, true
}

// MakeSimple removes every vertex where the polygon continues in
// (nearly) the same direction, that is, where the sine of the angle between
// the incoming and outgoing edges is smaller than tol. It reports whether
// p was changed.
func MakeSimple(p []geom.Point, tol float64) ([]geom.Point, bool) {
	n := len(p)
	if n < 3 {
		return p, false
	}
	tol2 := tol * tol
	remove := make([]bool, n)
	var numRemove int
	for i := range p {
		u := sub(p[i], p[(i+n-1)%n])
		v := sub(p[(i+1)%n], p[i])
		uv := dot(u, v)
		if uv > 0 && uv*uv > (1-tol2)*dot(u, u)*dot(v, v) {
			remove[i] = true
			numRemove++
		}
	}
	if numRemove == 0 {
		return p, false
	}
	o := make([]geom.Point, 0, n-numRemove)
	for i, v := range p {
		if !remove[i] {
			o = append(o, v)
		}
	}
	return o, true
}

// MergeVertices collapses runs of consecutive vertices that are closer
// together than minDistance into their first vertex. It reports whether p
// was changed.
func MergeVertices(p []geom.Point, minDistance float64) ([]geom.Point, bool) {
	if len(p) < 2 {
		return p, false
	}
	d2 := minDistance * minDistance
	o := []geom.Point{p[0]}
	for _, v := range p[1:] {
		if distance2(v, o[len(o)-1]) < d2 {
			continue
		}
		o = append(o, v)
	}
	for len(o) > 1 && distance2(o[len(o)-1], o[0]) < d2 {
		o = o[:len(o)-1]
	}
	return o, len(o) != len(p)
}
