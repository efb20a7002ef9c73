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

// Package grid holds uniform lattices over two- and three-dimensional
// bounding boxes, scalar fields defined on their vertices, and the
// rasterization of point clouds into elevation fields.
package grid

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/citymesh/geom3d"
)

// snapTol is the distance from a cell edge, in units of the cell size,
// within which a fractional offset is snapped to the edge.
const snapTol = 1e-9

// Grid2D is a uniform lattice of vertices over a planar bounding box.
// Vertices are numbered row by row with x varying fastest.
type Grid2D struct {
	BoundingBox  geom.Bounds
	XSize, YSize int
	XStep, YStep float64
}

// NewGrid2D returns a grid with xSize by ySize vertices spanning b.
func NewGrid2D(b geom.Bounds, xSize, ySize int) (*Grid2D, error) {
	if b.Min.X >= b.Max.X || b.Min.Y >= b.Max.Y {
		return nil, fmt.Errorf("grid: invalid bounding box %v", b)
	}
	if xSize < 2 || ySize < 2 {
		return nil, fmt.Errorf("grid: grid must have at least 2 vertices per axis; got %dx%d", xSize, ySize)
	}
	return &Grid2D{
		BoundingBox: b,
		XSize:       xSize,
		YSize:       ySize,
		XStep:       (b.Max.X - b.Min.X) / float64(xSize-1),
		YStep:       (b.Max.Y - b.Min.Y) / float64(ySize-1),
	}, nil
}

// NumVertices returns the number of grid vertices.
func (g *Grid2D) NumVertices() int { return g.XSize * g.YSize }

// Contains reports whether p is within the grid's bounding box. Points
// within a small fraction of a step outside the box are accepted so that
// computed vertex coordinates on the upper boundary are always inside.
func (g *Grid2D) Contains(p geom.Point) bool {
	tx, ty := snapTol*g.XStep, snapTol*g.YStep
	return p.X >= g.BoundingBox.Min.X-tx && p.X <= g.BoundingBox.Max.X+tx &&
		p.Y >= g.BoundingBox.Min.Y-ty && p.Y <= g.BoundingBox.Max.Y+ty
}

// Index2Coordinate returns the location of vertex i.
func (g *Grid2D) Index2Coordinate(i int) geom.Point {
	ix := i % g.XSize
	iy := i / g.XSize
	return geom.Point{
		X: g.BoundingBox.Min.X + float64(ix)*g.XStep,
		Y: g.BoundingBox.Min.Y + float64(iy)*g.YStep,
	}
}

// Point2Index returns the index of the vertex closest to p. Points outside
// of the grid map to the closest boundary vertex.
func (g *Grid2D) Point2Index(p geom.Point) int {
	ix := clampInt(int(math.Floor((p.X-g.BoundingBox.Min.X)/g.XStep+0.5)), 0, g.XSize-1)
	iy := clampInt(int(math.Floor((p.Y-g.BoundingBox.Min.Y)/g.YStep+0.5)), 0, g.YSize-1)
	return iy*g.XSize + ix
}

// Point2Cell returns the index of the lower-left vertex of the cell
// containing p along with the fractional position of p within that cell.
// Cell indices are clamped so that points on the upper boundary map to
// the last cell with an offset of 1.
func (g *Grid2D) Point2Cell(p geom.Point) (i int, x, y float64) {
	ix, x := cellOffset(p.X-g.BoundingBox.Min.X, g.XStep, g.XSize)
	iy, y := cellOffset(p.Y-g.BoundingBox.Min.Y, g.YStep, g.YSize)
	return iy*g.XSize + ix, x, y
}

// Index2Boundary returns the indices of the (up to four) axis-aligned
// neighbors of vertex i.
func (g *Grid2D) Index2Boundary(i int) []int {
	ix := i % g.XSize
	iy := i / g.XSize
	o := make([]int, 0, 4)
	if ix > 0 {
		o = append(o, i-1)
	}
	if ix < g.XSize-1 {
		o = append(o, i+1)
	}
	if iy > 0 {
		o = append(o, i-g.XSize)
	}
	if iy < g.YSize-1 {
		o = append(o, i+g.XSize)
	}
	return o
}

// Grid3D is a uniform lattice of vertices over a box. Vertices are
// numbered with x varying fastest, then y, then z.
type Grid3D struct {
	BoundingBox         geom3d.Bounds
	XSize, YSize, ZSize int
	XStep, YStep, ZStep float64
}

// NewGrid3D returns a grid with xSize by ySize by zSize vertices spanning b.
func NewGrid3D(b geom3d.Bounds, xSize, ySize, zSize int) (*Grid3D, error) {
	if b.Min.X >= b.Max.X || b.Min.Y >= b.Max.Y || b.Min.Z >= b.Max.Z {
		return nil, fmt.Errorf("grid: invalid bounding box %v", b)
	}
	if xSize < 2 || ySize < 2 || zSize < 2 {
		return nil, fmt.Errorf("grid: grid must have at least 2 vertices per axis; got %dx%dx%d",
			xSize, ySize, zSize)
	}
	return &Grid3D{
		BoundingBox: b,
		XSize:       xSize,
		YSize:       ySize,
		ZSize:       zSize,
		XStep:       (b.Max.X - b.Min.X) / float64(xSize-1),
		YStep:       (b.Max.Y - b.Min.Y) / float64(ySize-1),
		ZStep:       (b.Max.Z - b.Min.Z) / float64(zSize-1),
	}, nil
}

// NumVertices returns the number of grid vertices.
func (g *Grid3D) NumVertices() int { return g.XSize * g.YSize * g.ZSize }

// Contains reports whether p is within the grid's bounding box, with the
// same tolerance as Grid2D.Contains.
func (g *Grid3D) Contains(p geom3d.Point) bool {
	tx, ty, tz := snapTol*g.XStep, snapTol*g.YStep, snapTol*g.ZStep
	b := g.BoundingBox
	return p.X >= b.Min.X-tx && p.X <= b.Max.X+tx &&
		p.Y >= b.Min.Y-ty && p.Y <= b.Max.Y+ty &&
		p.Z >= b.Min.Z-tz && p.Z <= b.Max.Z+tz
}

// Index2Coordinate returns the location of vertex i.
func (g *Grid3D) Index2Coordinate(i int) geom3d.Point {
	layer := g.XSize * g.YSize
	ix := i % g.XSize
	iy := (i % layer) / g.XSize
	iz := i / layer
	return geom3d.Point{
		X: g.BoundingBox.Min.X + float64(ix)*g.XStep,
		Y: g.BoundingBox.Min.Y + float64(iy)*g.YStep,
		Z: g.BoundingBox.Min.Z + float64(iz)*g.ZStep,
	}
}

// Point2Cell returns the index of the lower-left-bottom vertex of the cell
// containing p along with the fractional position of p within that cell.
func (g *Grid3D) Point2Cell(p geom3d.Point) (i int, x, y, z float64) {
	ix, x := cellOffset(p.X-g.BoundingBox.Min.X, g.XStep, g.XSize)
	iy, y := cellOffset(p.Y-g.BoundingBox.Min.Y, g.YStep, g.YSize)
	iz, z := cellOffset(p.Z-g.BoundingBox.Min.Z, g.ZStep, g.ZSize)
	return (iz*g.YSize+iy)*g.XSize + ix, x, y, z
}

// cellOffset maps the distance d from the grid origin along one axis to a
// cell index in [0, size-2] and a fractional offset in [0, 1].
func cellOffset(d, step float64, size int) (int, float64) {
	s := d / step
	i := clampInt(int(math.Floor(s)), 0, size-2)
	f := s - float64(i)
	switch {
	case f < snapTol:
		f = 0
	case f > 1-snapTol:
		f = 1
	}
	return i, f
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
