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

// Package citymesh builds city models from building footprints and
// airborne LiDAR point clouds. A City holds one Building per footprint
// with ground and roof heights extracted from the point cloud; the mesh
// and smoother subpackages turn a City into a terrain- and
// building-conforming tetrahedral volume mesh.
package citymesh

// Version gives the version number.
const Version = "0.1.0"
