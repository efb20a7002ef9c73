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

package mesh

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/citymesh/internal/triangle"
)

// A Triangulator computes a triangulation of the region inside boundary
// in which the edges of every subdomain ring are triangulation edges.
// Points are returned as a flat array of x, y pairs and triangles as a
// flat array of zero-based vertex index triples. No triangle may be
// larger than maxArea unless maxArea <= 0.
type Triangulator interface {
	Triangulate(boundary []geom.Point, subdomains [][]geom.Point, maxArea float64) (points []float64, triangles []int, err error)
}

// DefaultTriangulator is the triangulator used when none is specified.
var DefaultTriangulator Triangulator = triangle.Triangulator{}

// triangulate calls tri and converts its flat output arrays.
func triangulate(tri Triangulator, boundary []geom.Point, subdomains [][]geom.Point, maxArea float64) ([]geom.Point, [][3]int, error) {
	if tri == nil {
		tri = DefaultTriangulator
	}
	points, triangles, err := tri.Triangulate(closeRing(boundary), closeRings(subdomains), maxArea)
	if err != nil {
		return nil, nil, fmt.Errorf("mesh: triangulating: %v", err)
	}
	if len(points)%2 != 0 || len(triangles)%3 != 0 {
		return nil, nil, fmt.Errorf("mesh: triangulator returned %d coordinates and %d indices",
			len(points), len(triangles))
	}
	vertices := make([]geom.Point, len(points)/2)
	for i := range vertices {
		vertices[i] = geom.Point{X: points[2*i], Y: points[2*i+1]}
	}
	cells := make([][3]int, len(triangles)/3)
	for i := range cells {
		copy(cells[i][:], triangles[3*i:3*i+3])
		if err := checkCell(cells[i][:], len(vertices)); err != nil {
			return nil, nil, fmt.Errorf("mesh: triangulator returned invalid triangle %d: %v", i, err)
		}
	}
	return vertices, cells, nil
}

// closeRing returns a copy of r that repeats its first vertex at the end.
func closeRing(r []geom.Point) []geom.Point {
	o := make([]geom.Point, len(r), len(r)+1)
	copy(o, r)
	if len(r) > 0 && r[0] != r[len(r)-1] {
		o = append(o, r[0])
	}
	return o
}

func closeRings(rings [][]geom.Point) [][]geom.Point {
	o := make([][]geom.Point, len(rings))
	for i, r := range rings {
		o[i] = closeRing(r)
	}
	return o
}
