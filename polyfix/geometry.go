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
	"math"
	"sort"

	"github.com/ctessum/geom"
)

func sub(a, b geom.Point) geom.Point { return geom.Point{X: a.X - b.X, Y: a.Y - b.Y} }
func dot(a, b geom.Point) float64    { return a.X*b.X + a.Y*b.Y }
func cross(a, b geom.Point) float64  { return a.X*b.Y - a.Y*b.X }

func distance2(a, b geom.Point) float64 {
	d := sub(a, b)
	return dot(d, d)
}

// SignedArea returns the area enclosed by p, positive when p is oriented
// counter-clockwise.
func SignedArea(p []geom.Point) float64 {
	var a float64
	for i, v := range p {
		w := p[(i+1)%len(p)]
		a += v.X*w.Y - w.X*v.Y
	}
	return a / 2
}

// Centroid returns the average of the vertices of p.
func Centroid(p []geom.Point) geom.Point {
	var c geom.Point
	if len(p) == 0 {
		return c
	}
	for _, v := range p {
		c.X += v.X
		c.Y += v.Y
	}
	c.X /= float64(len(p))
	c.Y /= float64(len(p))
	return c
}

// Bounds returns the bounding box of p.
func Bounds(p []geom.Point) *geom.Bounds {
	b := geom.NewBounds()
	for _, v := range p {
		b.Min.X = math.Min(b.Min.X, v.X)
		b.Min.Y = math.Min(b.Min.Y, v.Y)
		b.Max.X = math.Max(b.Max.X, v.X)
		b.Max.Y = math.Max(b.Max.Y, v.Y)
	}
	return b
}

// Contains reports whether q lies strictly inside p.
func Contains(p []geom.Point, q geom.Point) bool {
	if len(p) < 3 {
		return false
	}
	return q.Within(geom.Polygon{p}) == geom.Inside
}

// Covers reports whether q lies inside p or on its boundary.
func Covers(p []geom.Point, q geom.Point) bool {
	if len(p) < 3 {
		return false
	}
	return q.Within(geom.Polygon{p}) != geom.Outside
}

// winding returns the winding number of p around q. Edges are treated as
// half-open in y so that a point level with a vertex is counted once.
func winding(p []geom.Point, q geom.Point) int {
	var w int
	for i, a := range p {
		b := p[(i+1)%len(p)]
		side := cross(sub(b, a), sub(q, a))
		if a.Y <= q.Y {
			if b.Y > q.Y && side > 0 {
				w++
			}
		} else if b.Y <= q.Y && side < 0 {
			w--
		}
	}
	return w
}

// encloses reports whether q is inside p or within a squared distance
// tol2 of its boundary.
func encloses(p []geom.Point, q geom.Point, tol2 float64) bool {
	return winding(p, q) != 0 || SquaredDistanceToBoundary(p, q) < tol2
}

// SegmentDistanceSquared returns the squared distance from p to the
// segment (q0, q1).
func SegmentDistanceSquared(q0, q1, p geom.Point) float64 {
	v := sub(q1, q0)
	v2 := dot(v, v)
	if v2 == 0 {
		return distance2(p, q0)
	}
	t := math.Max(0, math.Min(1, dot(sub(p, q0), v)/v2))
	return distance2(p, geom.Point{X: q0.X + t*v.X, Y: q0.Y + t*v.Y})
}

// SquaredDistanceToBoundary returns the squared distance from q to the
// nearest edge of p.
func SquaredDistanceToBoundary(p []geom.Point, q geom.Point) float64 {
	d := math.Inf(1)
	for i := range p {
		d = math.Min(d, SegmentDistanceSquared(p[i], p[(i+1)%len(p)], q))
	}
	return d
}

// segmentsIntersect reports whether segments (a, b) and (c, d) share at
// least one point.
func segmentsIntersect(a, b, c, d geom.Point) bool {
	d1 := cross(sub(b, a), sub(c, a))
	d2 := cross(sub(b, a), sub(d, a))
	d3 := cross(sub(d, c), sub(a, c))
	d4 := cross(sub(d, c), sub(b, c))
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(a, b, c)) || (d2 == 0 && onSegment(a, b, d)) ||
		(d3 == 0 && onSegment(c, d, a)) || (d4 == 0 && onSegment(c, d, b))
}

// segmentsCross reports whether segments (a, b) and (c, d) intersect at a
// single point interior to both.
func segmentsCross(a, b, c, d geom.Point) bool {
	d1 := cross(sub(b, a), sub(c, a))
	d2 := cross(sub(b, a), sub(d, a))
	d3 := cross(sub(d, c), sub(a, c))
	d4 := cross(sub(d, c), sub(b, c))
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

// onSegment reports whether p, known to be collinear with (a, b), lies
// within the segment's bounding box.
func onSegment(a, b, p geom.Point) bool {
	return p.X >= math.Min(a.X, b.X) && p.X <= math.Max(a.X, b.X) &&
		p.Y >= math.Min(a.Y, b.Y) && p.Y <= math.Max(a.Y, b.Y)
}

// DistanceSquared returns the squared distance between polygons p0 and p1:
// zero if their boundaries intersect or one contains the other, and
// otherwise the smallest squared distance from a vertex of one polygon to
// an edge of the other.
func DistanceSquared(p0, p1 []geom.Point) float64 {
	for i := range p0 {
		a, b := p0[i], p0[(i+1)%len(p0)]
		for j := range p1 {
			if segmentsIntersect(a, b, p1[j], p1[(j+1)%len(p1)]) {
				return 0
			}
		}
	}
	if len(p1) > 0 && Covers(p0, p1[0]) {
		return 0
	}
	if len(p0) > 0 && Covers(p1, p0[0]) {
		return 0
	}
	d := math.Inf(1)
	for _, v := range p0 {
		d = math.Min(d, SquaredDistanceToBoundary(p1, v))
	}
	for _, v := range p1 {
		d = math.Min(d, SquaredDistanceToBoundary(p0, v))
	}
	return d
}

// ConvexHull returns the convex hull of points as a counter-clockwise
// polygon, computed with Andrew's monotone chain algorithm.
func ConvexHull(points []geom.Point) []geom.Point {
	p := append([]geom.Point(nil), points...)
	sort.Slice(p, func(i, j int) bool {
		if p[i].X != p[j].X {
			return p[i].X < p[j].X
		}
		return p[i].Y < p[j].Y
	})
	if len(p) < 3 {
		return p
	}
	hull := make([]geom.Point, 0, 2*len(p))
	for _, v := range p {
		for len(hull) >= 2 && cross(sub(hull[len(hull)-1], hull[len(hull)-2]), sub(v, hull[len(hull)-2])) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, v)
	}
	lower := len(hull) + 1
	for i := len(p) - 2; i >= 0; i-- {
		v := p[i]
		for len(hull) >= lower && cross(sub(hull[len(hull)-1], hull[len(hull)-2]), sub(v, hull[len(hull)-2])) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, v)
	}
	return hull[:len(hull)-1]
}
