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
	"sort"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/citymesh"
	"github.com/spatialmodel/citymesh/geom3d"
	"github.com/spatialmodel/citymesh/polyfix"
)

// GenerateMesh2D triangulates the rectangle bounds with the footprints
// of the buildings in c as subdomains, with triangles no larger than half
// of resolution². Triangles whose centroid is inside footprint i are
// marked BuildingMarker(i), other triangles with a vertex inside or on a
// footprint are marked Halo and the rest are marked Ground.
func GenerateMesh2D(c *citymesh.City, bounds geom.Bounds, resolution float64, tri Triangulator,
	log logrus.FieldLogger) (*Mesh2D, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if !(resolution > 0) {
		return nil, fmt.Errorf("mesh: resolution must be > 0; got %g", resolution)
	}
	if bounds.Min.X >= bounds.Max.X || bounds.Min.Y >= bounds.Max.Y {
		return nil, fmt.Errorf("mesh: invalid domain bounds %v", bounds)
	}
	boundary := []geom.Point{
		bounds.Min,
		{X: bounds.Max.X, Y: bounds.Min.Y},
		bounds.Max,
		{X: bounds.Min.X, Y: bounds.Max.Y},
	}
	subdomains := make([][]geom.Point, len(c.Buildings))
	for i, b := range c.Buildings {
		if b.Empty() {
			return nil, fmt.Errorf("mesh: building %d (%s) has an empty footprint", i, b.UUID)
		}
		subdomains[i] = b.Footprint
	}
	index, err := c.Index()
	if err != nil {
		return nil, fmt.Errorf("mesh: %v", err)
	}

	vertices, cells, err := triangulate(tri, boundary, subdomains, 0.5*resolution*resolution)
	if err != nil {
		return nil, err
	}
	m := &Mesh2D{
		Vertices: vertices,
		Cells:    cells,
		Markers:  make([]Marker, len(cells)),
		Origin:   c.Origin,
	}
	var numBuilding, numHalo int
	for i, cell := range cells {
		m.Markers[i] = GroundMarker()
		ctr := m.CellCentroid(i)
		if j, ok := containing(c, index.Overlapping(geom.NewBoundsPoint(ctr)), ctr, polyfix.Contains); ok {
			m.Markers[i] = BuildingMarker(j)
			numBuilding++
			continue
		}
		for _, v := range cell {
			p := vertices[v]
			if _, ok := containing(c, index.Overlapping(geom.NewBoundsPoint(p)), p, polyfix.Covers); ok {
				m.Markers[i] = HaloMarker()
				numHalo++
				break
			}
		}
	}
	log.WithFields(logrus.Fields{
		"vertices":  len(vertices),
		"triangles": len(cells),
		"building":  numBuilding,
		"halo":      numHalo,
		"ground":    len(cells) - numBuilding - numHalo,
	}).Info("generated 2D mesh")
	return m, nil
}

// containing returns the first candidate building whose footprint
// satisfies inside for p.
func containing(c *citymesh.City, candidates []int, p geom.Point,
	inside func([]geom.Point, geom.Point) bool) (int, bool) {
	for _, j := range candidates {
		if inside(c.Buildings[j].Footprint, p) {
			return j, true
		}
	}
	return -1, false
}

// GenerateMesh3D extrudes m2 into a tetrahedral mesh filling
// domainHeight above groundElevation with layers of equal thickness no
// greater than resolution. Columns over building i are omitted from the
// bottom layer and from every layer whose middle is below the building
// height, so the mesh starts at the layer nearest the roof. The first
// tetrahedron of each column is marked with the column's 2D marker and
// all others are marked Interior. Vertices that belong to no
// tetrahedron are removed.
func GenerateMesh3D(m2 *Mesh2D, c *citymesh.City, groundElevation, domainHeight, resolution float64,
	log logrus.FieldLogger) (*VolumeMesh, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if !(resolution > 0) || !(domainHeight > 0) {
		return nil, fmt.Errorf("mesh: resolution and domain height must be > 0; got %g and %g",
			resolution, domainHeight)
	}
	if err := m2.Check(); err != nil {
		return nil, err
	}
	numLayers := int(math.Ceil(domainHeight / resolution))
	dz := domainHeight / float64(numLayers)
	layerSize := len(m2.Vertices)

	heights := make([]float64, len(m2.Cells))
	for i, mk := range m2.Markers {
		if !mk.IsBuilding() {
			continue
		}
		if mk.Building >= len(c.Buildings) {
			return nil, fmt.Errorf("mesh: triangle %d refers to building %d of %d", i, mk.Building, len(c.Buildings))
		}
		heights[i] = c.Buildings[mk.Building].Height
	}

	cells := make([][4]int, 0, 3*numLayers*len(m2.Cells))
	markers := make([]Marker, 0, cap(cells))
	started := make([]bool, len(m2.Cells))
	var numSkipped int
	for layer := 0; layer < numLayers; layer++ {
		for i, t := range m2.Cells {
			mk := m2.Markers[i]
			if mk.IsBuilding() && (layer == 0 || float64(layer)*dz+dz/2 < heights[i]) {
				numSkipped++
				continue
			}
			// Sorting the vertices makes neighboring prisms split their
			// shared faces the same way.
			s := []int{t[0], t[1], t[2]}
			sort.Ints(s)
			u0, u1, u2 := layer*layerSize+s[0], layer*layerSize+s[1], layer*layerSize+s[2]
			v0, v1, v2 := u0+layerSize, u1+layerSize, u2+layerSize
			cells = append(cells,
				[4]int{u0, u1, u2, v2},
				[4]int{u0, v1, u1, v2},
				[4]int{u0, v0, v1, v2},
			)
			first := InteriorMarker()
			if !started[i] {
				first = mk
				started[i] = true
			}
			markers = append(markers, first, InteriorMarker(), InteriorMarker())
		}
	}

	// Compact the vertices.
	newIndex := make([]int, (numLayers+1)*layerSize)
	for i := range newIndex {
		newIndex[i] = -1
	}
	for _, cell := range cells {
		for _, v := range cell {
			newIndex[v] = 0
		}
	}
	var vertices []geom3d.Point
	for i, used := range newIndex {
		if used < 0 {
			continue
		}
		newIndex[i] = len(vertices)
		p := m2.Vertices[i%layerSize]
		vertices = append(vertices, geom3d.Point{
			X: p.X,
			Y: p.Y,
			Z: float64(i/layerSize)*dz + groundElevation,
		})
	}
	for k := range cells {
		for j, v := range cells[k] {
			cells[k][j] = newIndex[v]
		}
	}
	log.WithFields(logrus.Fields{
		"layers":          numLayers,
		"layer thickness": dz,
		"vertices":        len(vertices),
		"tetrahedra":      len(cells),
		"skipped prisms":  numSkipped,
	}).Info("generated volume mesh")
	return &VolumeMesh{
		Vertices:  vertices,
		Cells:     cells,
		Markers:   markers,
		NumLayers: numLayers,
		Origin:    m2.Origin,
	}, nil
}
