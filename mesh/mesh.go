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
	"math"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/citymesh/geom3d"
)

// Mesh2D is a planar triangle mesh with one marker per triangle.
type Mesh2D struct {
	Vertices []geom.Point
	Cells    [][3]int
	Markers  []Marker
	Origin   geom.Point
}

// CellCentroid returns the centroid of triangle i.
func (m *Mesh2D) CellCentroid(i int) geom.Point {
	c := m.Cells[i]
	a, b, d := m.Vertices[c[0]], m.Vertices[c[1]], m.Vertices[c[2]]
	return geom.Point{X: (a.X + b.X + d.X) / 3, Y: (a.Y + b.Y + d.Y) / 3}
}

// CellArea returns the unsigned area of triangle i.
func (m *Mesh2D) CellArea(i int) float64 {
	c := m.Cells[i]
	a, b, d := m.Vertices[c[0]], m.Vertices[c[1]], m.Vertices[c[2]]
	return math.Abs((b.X-a.X)*(d.Y-a.Y)-(b.Y-a.Y)*(d.X-a.X)) / 2
}

// Check verifies that every cell refers to existing vertices and that
// there is one marker per cell.
func (m *Mesh2D) Check() error {
	if len(m.Markers) != len(m.Cells) {
		return fmt.Errorf("mesh: %d markers for %d cells", len(m.Markers), len(m.Cells))
	}
	for i, c := range m.Cells {
		if err := checkCell(c[:], len(m.Vertices)); err != nil {
			return fmt.Errorf("mesh: cell %d: %v", i, err)
		}
	}
	return nil
}

// VolumeMesh is a tetrahedral mesh built by extruding a Mesh2D through
// NumLayers layers, with one marker per tetrahedron.
type VolumeMesh struct {
	Vertices  []geom3d.Point
	Cells     [][4]int
	Markers   []Marker
	NumLayers int
	Origin    geom.Point
}

// CellVolume returns the signed volume of tetrahedron i.
func (m *VolumeMesh) CellVolume(i int) float64 {
	c := m.Cells[i]
	p0 := m.Vertices[c[0]]
	a := m.Vertices[c[1]].Sub(p0)
	b := m.Vertices[c[2]].Sub(p0)
	d := m.Vertices[c[3]].Sub(p0)
	return a.Dot(b.Cross(d)) / 6
}

// Bounds returns the bounding box of the mesh vertices.
func (m *VolumeMesh) Bounds() *geom3d.Bounds {
	b := geom3d.NewBounds()
	for _, v := range m.Vertices {
		b.ExtendPoint(v)
	}
	return b
}

// Check verifies that every cell refers to existing vertices and that
// there is one marker per cell.
func (m *VolumeMesh) Check() error {
	if len(m.Markers) != len(m.Cells) {
		return fmt.Errorf("mesh: %d markers for %d cells", len(m.Markers), len(m.Cells))
	}
	for i, c := range m.Cells {
		if err := checkCell(c[:], len(m.Vertices)); err != nil {
			return fmt.Errorf("mesh: cell %d: %v", i, err)
		}
	}
	return nil
}

// Surface3D is a triangulated surface in three dimensions.
type Surface3D struct {
	Vertices []geom3d.Point
	Cells    [][3]int
	Origin   geom.Point
}

// Check verifies that every cell refers to existing vertices.
func (s *Surface3D) Check() error {
	for i, c := range s.Cells {
		if err := checkCell(c[:], len(s.Vertices)); err != nil {
			return fmt.Errorf("mesh: cell %d: %v", i, err)
		}
	}
	return nil
}

// Area returns the total area of the surface.
func (s *Surface3D) Area() float64 {
	var a float64
	for _, c := range s.Cells {
		p0 := s.Vertices[c[0]]
		a += s.Vertices[c[1]].Sub(p0).Cross(s.Vertices[c[2]].Sub(p0)).Norm() / 2
	}
	return a
}

func checkCell(c []int, numVertices int) error {
	for k, v := range c {
		if v < 0 || v >= numVertices {
			return fmt.Errorf("vertex index %d out of range [0, %d)", v, numVertices)
		}
		for _, w := range c[k+1:] {
			if v == w {
				return fmt.Errorf("repeated vertex %d", v)
			}
		}
	}
	return nil
}
