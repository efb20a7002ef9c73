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
	"sort"

	"github.com/spatialmodel/citymesh/geom3d"
)

// tetFaces lists the faces of a tetrahedron by local vertex index, each
// followed by the local index of the opposite vertex.
var tetFaces = [4][4]int{
	{1, 2, 3, 0},
	{0, 3, 2, 1},
	{0, 1, 3, 2},
	{0, 2, 1, 3},
}

type faceKey [3]int

func newFaceKey(a, b, c int) faceKey {
	k := []int{a, b, c}
	sort.Ints(k)
	return faceKey{k[0], k[1], k[2]}
}

// BoundaryMesh returns the surface made of the faces of m that belong to
// exactly one tetrahedron, oriented with normals pointing out of the
// mesh. Only vertices on the boundary are kept.
func BoundaryMesh(m *VolumeMesh) *Surface3D {
	count := make(map[faceKey]int, 2*len(m.Cells))
	for _, c := range m.Cells {
		for _, f := range tetFaces {
			count[newFaceKey(c[f[0]], c[f[1]], c[f[2]])]++
		}
	}
	s := &Surface3D{Origin: m.Origin}
	newIndex := make(map[int]int)
	vertex := func(v int) int {
		if i, ok := newIndex[v]; ok {
			return i
		}
		i := len(s.Vertices)
		newIndex[v] = i
		s.Vertices = append(s.Vertices, m.Vertices[v])
		return i
	}
	for _, c := range m.Cells {
		for _, f := range tetFaces {
			a, b, d := c[f[0]], c[f[1]], c[f[2]]
			if count[newFaceKey(a, b, d)] != 1 {
				continue
			}
			if outward(m.Vertices[a], m.Vertices[b], m.Vertices[d], m.Vertices[c[f[3]]]) {
				s.Cells = append(s.Cells, [3]int{vertex(a), vertex(b), vertex(d)})
			} else {
				s.Cells = append(s.Cells, [3]int{vertex(a), vertex(d), vertex(b)})
			}
		}
	}
	return s
}

// outward reports whether the normal of triangle abc points away from p.
func outward(a, b, c, p geom3d.Point) bool {
	n := b.Sub(a).Cross(c.Sub(a))
	return n.Dot(p.Sub(a)) < 0
}
