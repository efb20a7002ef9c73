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

package smoother

import (
	"fmt"
	"math"

	"github.com/spatialmodel/citymesh"
	"github.com/spatialmodel/citymesh/grid"
	"github.com/spatialmodel/citymesh/mesh"
)

// Kind is the type of boundary condition at a vertex. Kinds are ordered
// by precedence: when a vertex qualifies for more than one, the greater
// kind applies.
type Kind int

// Boundary condition kinds.
const (
	Free Kind = iota
	Top
	Ground
	Halo
	Building
)

func (k Kind) String() string {
	switch k {
	case Free:
		return "free"
	case Top:
		return "top"
	case Ground:
		return "ground"
	case Halo:
		return "halo"
	case Building:
		return "building"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Condition is the boundary condition at a vertex. Value is the fixed
// vertical displacement and is zero for free vertices.
type Condition struct {
	Kind       Kind
	BuildingID int
	Value      float64
}

// topTol is the distance below the top of the mesh within which vertices
// are fixed to the top.
const topTol = 1e-6

// BoundaryConditions classifies the vertices of vm. The bottom face of a
// tetrahedron marked Ground fixes its vertices to the elevation field.
// The bottom face of one marked Halo fixes them to the lowest elevation
// under the face, and if fixBuildings is set, the bottom face of one
// marked with a building fixes them to its roof. Vertices at topHeight
// are fixed in place.
func BoundaryConditions(vm *mesh.VolumeMesh, c *citymesh.City, dem *grid.GridField2D,
	topHeight float64, fixBuildings bool) ([]Condition, error) {
	bcs := make([]Condition, len(vm.Vertices))
	set := func(v int, bc Condition) {
		cur := &bcs[v]
		switch {
		case bc.Kind > cur.Kind:
			*cur = bc
		case bc.Kind == Halo && cur.Kind == Halo:
			cur.Value = math.Min(cur.Value, bc.Value)
		}
	}
	for v, p := range vm.Vertices {
		if p.Z >= topHeight-topTol {
			set(v, Condition{Kind: Top})
		}
	}
	for i, cell := range vm.Cells {
		mk := vm.Markers[i]
		face := cell[:3]
		switch {
		case mk.Domain == mesh.Ground:
			for _, v := range face {
				p := vm.Vertices[v]
				z, err := dem.Evaluate(p.XY())
				if err != nil {
					return nil, fmt.Errorf("smoother: ground vertex %d: %w", v, err)
				}
				set(v, Condition{Kind: Ground, Value: z - p.Z})
			}
		case mk.Domain == mesh.Halo:
			zMin := math.Inf(1)
			for _, v := range face {
				z, err := dem.Evaluate(vm.Vertices[v].XY())
				if err != nil {
					return nil, fmt.Errorf("smoother: halo vertex %d: %w", v, err)
				}
				zMin = math.Min(zMin, z)
			}
			for _, v := range face {
				set(v, Condition{Kind: Halo, Value: zMin - vm.Vertices[v].Z})
			}
		case mk.IsBuilding() && fixBuildings:
			if mk.Building >= len(c.Buildings) {
				return nil, fmt.Errorf("smoother: cell %d refers to building %d of %d", i, mk.Building, len(c.Buildings))
			}
			roof := c.Buildings[mk.Building].RoofHeight()
			for _, v := range face {
				set(v, Condition{Kind: Building, BuildingID: mk.Building, Value: roof - vm.Vertices[v].Z})
			}
		}
	}
	return bcs, nil
}
