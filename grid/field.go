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

package grid

import (
	"errors"
	"fmt"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/citymesh/geom3d"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrOutOfDomain is returned when a field is evaluated outside of its
// bounding box.
var ErrOutOfDomain = errors.New("grid: point is outside of the field domain")

// GridField2D is a scalar field defined on the vertices of a Grid2D.
type GridField2D struct {
	Grid Grid2D

	// Values holds one value per grid vertex.
	Values []float64

	// Origin is the offset of the local coordinate system.
	Origin geom.Point
}

// NewGridField2D returns a zero-valued field on g.
func NewGridField2D(g *Grid2D) *GridField2D {
	return &GridField2D{Grid: *g, Values: make([]float64, g.NumVertices())}
}

// check verifies that the field holds one value per grid vertex.
func (f *GridField2D) check() error {
	if len(f.Values) != f.Grid.NumVertices() {
		return fmt.Errorf("grid: field has %d values but grid has %d vertices",
			len(f.Values), f.Grid.NumVertices())
	}
	return nil
}

// Evaluate returns the bilinear interpolation of the field at p.
func (f *GridField2D) Evaluate(p geom.Point) (float64, error) {
	if !f.Grid.Contains(p) {
		return 0, fmt.Errorf("%w: (%g, %g)", ErrOutOfDomain, p.X, p.Y)
	}
	i, x, y := f.Grid.Point2Cell(p)
	xs := f.Grid.XSize
	v00 := f.Values[i]
	v10 := f.Values[i+1]
	v01 := f.Values[i+xs]
	v11 := f.Values[i+xs+1]
	return (1-x)*(1-y)*v00 + x*(1-y)*v10 + (1-x)*y*v01 + x*y*v11, nil
}

// Nearest returns the value at the grid vertex closest to p.
func (f *GridField2D) Nearest(p geom.Point) (float64, error) {
	if !f.Grid.Contains(p) {
		return 0, fmt.Errorf("%w: (%g, %g)", ErrOutOfDomain, p.X, p.Y)
	}
	return f.Values[f.Grid.Point2Index(p)], nil
}

// Interpolate sets the values of f by evaluating src at the vertices of f.
func (f *GridField2D) Interpolate(src *GridField2D) error {
	for i := range f.Values {
		v, err := src.Evaluate(f.Grid.Index2Coordinate(i))
		if err != nil {
			return fmt.Errorf("grid: interpolating field: %v", err)
		}
		f.Values[i] = v
	}
	return nil
}

// Min returns the minimum field value.
func (f *GridField2D) Min() float64 { return floats.Min(f.Values) }

// Max returns the maximum field value.
func (f *GridField2D) Max() float64 { return floats.Max(f.Values) }

// Mean returns the mean field value.
func (f *GridField2D) Mean() float64 { return stat.Mean(f.Values, nil) }

// Smooth applies n passes of Laplacian smoothing, replacing each value
// with the mean of itself and its axis-aligned neighbors.
func (f *GridField2D) Smooth(n int) {
	tmp := make([]float64, len(f.Values))
	for pass := 0; pass < n; pass++ {
		for i, v := range f.Values {
			nbrs := f.Grid.Index2Boundary(i)
			sum := v
			for _, j := range nbrs {
				sum += f.Values[j]
			}
			tmp[i] = sum / float64(len(nbrs)+1)
		}
		copy(f.Values, tmp)
	}
}

// GridField3D is a scalar field defined on the vertices of a Grid3D.
type GridField3D struct {
	Grid   Grid3D
	Values []float64
	Origin geom.Point
}

// NewGridField3D returns a zero-valued field on g.
func NewGridField3D(g *Grid3D) *GridField3D {
	return &GridField3D{Grid: *g, Values: make([]float64, g.NumVertices())}
}

// Evaluate returns the trilinear interpolation of the field at p.
func (f *GridField3D) Evaluate(p geom3d.Point) (float64, error) {
	if !f.Grid.Contains(p) {
		return 0, fmt.Errorf("%w: (%g, %g, %g)", ErrOutOfDomain, p.X, p.Y, p.Z)
	}
	i, x, y, z := f.Grid.Point2Cell(p)
	xs := f.Grid.XSize
	ls := f.Grid.XSize * f.Grid.YSize
	v := f.Values
	bottom := (1-x)*(1-y)*v[i] + x*(1-y)*v[i+1] + (1-x)*y*v[i+xs] + x*y*v[i+xs+1]
	j := i + ls
	top := (1-x)*(1-y)*v[j] + x*(1-y)*v[j+1] + (1-x)*y*v[j+xs] + x*y*v[j+xs+1]
	return (1-z)*bottom + z*top, nil
}

// Min returns the minimum field value.
func (f *GridField3D) Min() float64 { return floats.Min(f.Values) }

// Max returns the maximum field value.
func (f *GridField3D) Max() float64 { return floats.Max(f.Values) }

// Mean returns the mean field value.
func (f *GridField3D) Mean() float64 { return stat.Mean(f.Values, nil) }
