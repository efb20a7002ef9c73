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

// Package mesh generates two-dimensional domain triangulations, layered
// tetrahedral volume meshes and triangulated surfaces from a city model.
package mesh

import "fmt"

// Domain classifies a mesh cell.
type Domain int

// Domains of mesh cells.
const (
	// Ground cells lie on the terrain away from buildings.
	Ground Domain = iota
	// Halo cells touch a building footprint without lying inside it.
	Halo
	// BuildingDomain cells lie inside a building footprint, or in a volume
	// mesh, directly on top of the building's roof.
	BuildingDomain
	// Interior cells are volume cells that do not touch the bottom of the
	// domain.
	Interior
)

func (d Domain) String() string {
	switch d {
	case Ground:
		return "ground"
	case Halo:
		return "halo"
	case BuildingDomain:
		return "building"
	case Interior:
		return "interior"
	default:
		return fmt.Sprintf("Domain(%d)", int(d))
	}
}

// Marker is the domain of a mesh cell, together with the index of the
// building it belongs to when the domain is BuildingDomain.
type Marker struct {
	Domain   Domain
	Building int
}

// GroundMarker returns the marker of ground cells.
func GroundMarker() Marker { return Marker{Domain: Ground} }

// HaloMarker returns the marker of halo cells.
func HaloMarker() Marker { return Marker{Domain: Halo} }

// InteriorMarker returns the marker of interior cells.
func InteriorMarker() Marker { return Marker{Domain: Interior} }

// BuildingMarker returns the marker of cells belonging to building i.
func BuildingMarker(i int) Marker { return Marker{Domain: BuildingDomain, Building: i} }

// IsBuilding reports whether m marks a building cell.
func (m Marker) IsBuilding() bool { return m.Domain == BuildingDomain }

// Integer codes of the non-building domains.
const (
	haloCode     = -1
	groundCode   = -2
	interiorCode = -3
)

// Code returns the integer representation of m used in saved meshes:
// the building index for building cells, and -1, -2 and -3 for halo,
// ground and interior cells.
func (m Marker) Code() int {
	switch m.Domain {
	case BuildingDomain:
		return m.Building
	case Halo:
		return haloCode
	case Ground:
		return groundCode
	default:
		return interiorCode
	}
}

// MarkerFromCode is the inverse of Marker.Code.
func MarkerFromCode(c int) (Marker, error) {
	switch {
	case c >= 0:
		return BuildingMarker(c), nil
	case c == haloCode:
		return HaloMarker(), nil
	case c == groundCode:
		return GroundMarker(), nil
	case c == interiorCode:
		return InteriorMarker(), nil
	default:
		return Marker{}, fmt.Errorf("mesh: invalid marker code %d", c)
	}
}

func (m Marker) String() string {
	if m.IsBuilding() {
		return fmt.Sprintf("building %d", m.Building)
	}
	return m.Domain.String()
}
