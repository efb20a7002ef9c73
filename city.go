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

package citymesh

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/citymesh/geom3d"
	"github.com/spatialmodel/citymesh/polyfix"
	"github.com/spatialmodel/citymesh/spatialindex"
	"gonum.org/v1/gonum/stat"
)

// Point classification codes.
const (
	ClassGround = 2
	ClassWater  = 9
)

// PointCloud holds LiDAR points and their classification codes.
type PointCloud struct {
	Points         []geom3d.Point
	Classification []int
	Bounds         geom.Bounds
}

// CalculateBounds sets the planar bounding box of the points.
func (pc *PointCloud) CalculateBounds() {
	b := geom.NewBounds()
	for _, p := range pc.Points {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	pc.Bounds = *b
}

// SetOrigin translates the points by -origin.
func (pc *PointCloud) SetOrigin(origin geom.Point) {
	for i := range pc.Points {
		pc.Points[i].X -= origin.X
		pc.Points[i].Y -= origin.Y
	}
	pc.CalculateBounds()
}

// RemoveOutliers removes points whose elevation is more than margin
// standard deviations from the mean elevation and returns the number of
// points removed.
func (pc *PointCloud) RemoveOutliers(margin float64) int {
	if len(pc.Points) == 0 {
		return 0
	}
	z := make([]float64, len(pc.Points))
	for i, p := range pc.Points {
		z[i] = p.Z
	}
	mean, std := stat.MeanStdDev(z, nil)
	hasClass := len(pc.Classification) == len(pc.Points)
	var n int
	for i, p := range pc.Points {
		if math.Abs(p.Z-mean) > margin*std {
			continue
		}
		pc.Points[n] = p
		if hasClass {
			pc.Classification[n] = pc.Classification[i]
		}
		n++
	}
	removed := len(pc.Points) - n
	pc.Points = pc.Points[:n]
	if hasClass {
		pc.Classification = pc.Classification[:n]
	}
	pc.CalculateBounds()
	return removed
}

// Building is a building in a city model.
type Building struct {
	Footprint []geom.Point
	UUID      string
	SHPFileID int

	GroundHeight float64 // Elevation of the ground at the building, m
	Height       float64 // Height of the roof above the ground, m

	// GroundPoints and RoofPoints hold the point cloud points near and
	// inside the footprint, sorted by elevation.
	GroundPoints []geom3d.Point
	RoofPoints   []geom3d.Point
}

// RoofHeight returns the elevation of the roof.
func (b *Building) RoofHeight() float64 { return b.GroundHeight + b.Height }

// Empty reports whether the building has been absorbed by a merge.
func (b *Building) Empty() bool { return len(b.Footprint) == 0 }

// Bounds returns the bounding box of the footprint.
func (b *Building) Bounds() *geom.Bounds { return polyfix.Bounds(b.Footprint) }

// City is a collection of buildings.
type City struct {
	Name      string
	Origin    geom.Point
	Buildings []Building

	index *spatialindex.Index
}

// Index returns a spatial index over the footprint bounds, building it if
// necessary.
func (c *City) Index() (*spatialindex.Index, error) {
	if c.index != nil {
		return c.index, nil
	}
	bounds := make([]*geom.Bounds, len(c.Buildings))
	for i := range c.Buildings {
		bounds[i] = c.Buildings[i].Bounds()
	}
	idx := spatialindex.New()
	if err := idx.Build(bounds); err != nil {
		return nil, fmt.Errorf("citymesh: building city index: %v", err)
	}
	c.index = idx
	return idx, nil
}

// ClearIndex invalidates the spatial index. It must be called whenever
// footprints change.
func (c *City) ClearIndex() { c.index = nil }

// SetOrigin translates the city so that its coordinates are relative to
// origin.
func (c *City) SetOrigin(origin geom.Point) {
	dx, dy := origin.X-c.Origin.X, origin.Y-c.Origin.Y
	for i := range c.Buildings {
		b := &c.Buildings[i]
		for j := range b.Footprint {
			b.Footprint[j].X -= dx
			b.Footprint[j].Y -= dy
		}
		for _, pts := range [][]geom3d.Point{b.GroundPoints, b.RoofPoints} {
			for j := range pts {
				pts[j].X -= dx
				pts[j].Y -= dy
			}
		}
	}
	c.Origin = origin
	c.ClearIndex()
}

// Bounds returns the bounding box of all footprints.
func (c *City) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for i := range c.Buildings {
		b.Extend(c.Buildings[i].Bounds())
	}
	return b
}

// removeEmpty deletes absorbed buildings.
func (c *City) removeEmpty() {
	n := 0
	for _, b := range c.Buildings {
		if b.Empty() {
			continue
		}
		c.Buildings[n] = b
		n++
	}
	c.Buildings = c.Buildings[:n]
	c.ClearIndex()
}
