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
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/citymesh"
	"github.com/spatialmodel/citymesh/geom3d"
	"github.com/spatialmodel/citymesh/grid"
)

// GenerateSurfaces3D returns a ground surface following dem over bounds
// and one closed-top prism surface per building in c. Ground vertices
// under buildings and their halos are lowered to the smallest terrain
// elevation of each triangle they belong to, so that building walls
// always reach the ground.
func GenerateSurfaces3D(c *citymesh.City, dem *grid.GridField2D, bounds geom.Bounds, resolution float64,
	tri Triangulator, log logrus.FieldLogger) (*Surface3D, []*Surface3D, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	m2, err := GenerateMesh2D(c, bounds, resolution, tri, log)
	if err != nil {
		return nil, nil, err
	}

	ground := &Surface3D{
		Vertices: make([]geom3d.Point, len(m2.Vertices)),
		Cells:    append([][3]int(nil), m2.Cells...),
		Origin:   m2.Origin,
	}
	for i, p := range m2.Vertices {
		z, err := dem.Evaluate(p)
		if err != nil {
			return nil, nil, fmt.Errorf("mesh: ground surface: %w", err)
		}
		ground.Vertices[i] = geom3d.Point{X: p.X, Y: p.Y, Z: z}
	}
	var numLowered int
	elevation := make([]float64, len(ground.Vertices))
	for i, v := range ground.Vertices {
		elevation[i] = v.Z
	}
	for i, cell := range m2.Cells {
		if m2.Markers[i].Domain == Ground {
			continue
		}
		zMin := math.Min(elevation[cell[0]], math.Min(elevation[cell[1]], elevation[cell[2]]))
		for _, v := range cell {
			if zMin < ground.Vertices[v].Z {
				ground.Vertices[v].Z = zMin
				numLowered++
			}
		}
	}

	buildings := make([]*Surface3D, len(c.Buildings))
	for i := range c.Buildings {
		if buildings[i], err = buildingSurface(&c.Buildings[i], tri, c.Origin); err != nil {
			return nil, nil, fmt.Errorf("mesh: building %d (%s): %v", i, c.Buildings[i].UUID, err)
		}
	}
	log.WithFields(logrus.Fields{
		"ground vertices":  len(ground.Vertices),
		"ground triangles": len(ground.Cells),
		"lowered vertices": numLowered,
		"buildings":        len(buildings),
	}).Info("generated surfaces")
	return ground, buildings, nil
}

// buildingSurface returns a prism with a triangulated top at the roof
// height and walls down to the ground height. The bottom is open.
func buildingSurface(b *citymesh.Building, tri Triangulator, origin geom.Point) (*Surface3D, error) {
	top, cells, err := triangulate(tri, b.Footprint, nil, 0)
	if err != nil {
		return nil, err
	}
	index := make(map[geom.Point]int, len(top))
	s := &Surface3D{Origin: origin, Cells: cells}
	for i, p := range top {
		index[p] = i
		s.Vertices = append(s.Vertices, geom3d.Point{X: p.X, Y: p.Y, Z: b.RoofHeight()})
	}
	ring := b.Footprint
	n := len(ring)
	bottom := len(s.Vertices)
	for _, p := range ring {
		s.Vertices = append(s.Vertices, geom3d.Point{X: p.X, Y: p.Y, Z: b.GroundHeight})
	}
	for k, p := range ring {
		v1, ok := index[p]
		if !ok {
			return nil, fmt.Errorf("footprint vertex %v is missing from the roof triangulation", p)
		}
		v3, ok := index[ring[(k+1)%n]]
		if !ok {
			return nil, fmt.Errorf("footprint vertex %v is missing from the roof triangulation", ring[(k+1)%n])
		}
		v0, v2 := bottom+k, bottom+(k+1)%n
		s.Cells = append(s.Cells, [3]int{v0, v2, v1}, [3]int{v1, v2, v3})
	}
	return s, nil
}

// MergeSurfaces concatenates surfaces into a single surface with the
// origin of the first one.
func MergeSurfaces(surfaces []*Surface3D) *Surface3D {
	o := new(Surface3D)
	for i, s := range surfaces {
		if i == 0 {
			o.Origin = s.Origin
		}
		offset := len(o.Vertices)
		o.Vertices = append(o.Vertices, s.Vertices...)
		for _, c := range s.Cells {
			o.Cells = append(o.Cells, [3]int{c[0] + offset, c[1] + offset, c[2] + offset})
		}
	}
	return o
}
