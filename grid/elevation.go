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
	"math"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/citymesh/geom3d"
)

var (
	// ErrNoPoints is returned when no point contributes to any grid vertex.
	ErrNoPoints = errors.New("grid: no points inside elevation field domain")

	// ErrDisconnected is returned when gap filling fails to reach every
	// missing grid vertex.
	ErrDisconnected = errors.New("grid: gap filling did not reach every grid vertex")
)

// vertex states during gap filling.
const (
	missing = iota
	filled
	queued
)

// FromPointCloud rasterizes the points that fall within bounds into an
// elevation field with the given vertex spacing. Points outside bounds
// are dropped, not clamped onto the boundary. Points more than
// outlierThreshold above the mean elevation are ignored. Each remaining
// point contributes to its nearest grid vertex and that vertex's
// neighbors; vertices that receive no contribution are filled from
// adjacent vertices.
func FromPointCloud(points []geom3d.Point, bounds geom.Bounds, resolution, outlierThreshold float64,
	log logrus.FieldLogger) (*GridField2D, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if resolution <= 0 {
		return nil, fmt.Errorf("grid: elevation field resolution must be > 0; got %g", resolution)
	}
	xSize := int((bounds.Max.X-bounds.Min.X)/resolution) + 1
	ySize := int((bounds.Max.Y-bounds.Min.Y)/resolution) + 1
	if xSize < 2 {
		xSize = 2
	}
	if ySize < 2 {
		ySize = 2
	}
	g, err := NewGrid2D(bounds, xSize, ySize)
	if err != nil {
		return nil, fmt.Errorf("grid: creating elevation field: %v", err)
	}
	f := NewGridField2D(g)
	log.WithFields(logrus.Fields{
		"xsize": g.XSize,
		"ysize": g.YSize,
		"xstep": g.XStep,
		"ystep": g.YStep,
	}).Info("computing elevation field from point cloud")

	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	var sum float64
	for _, p := range points {
		sum += p.Z
	}
	mean := sum / float64(len(points))

	counts := make([]int, len(f.Values))
	var outliers int
	for _, p := range points {
		q := p.XY()
		if !g.Contains(q) {
			continue
		}
		if p.Z-mean > outlierThreshold {
			outliers++
			continue
		}
		i := g.Point2Index(q)
		f.Values[i] += p.Z
		counts[i]++
		for _, j := range g.Index2Boundary(i) {
			f.Values[j] += p.Z
			counts[j]++
		}
	}

	state := make([]int, len(f.Values))
	var numMissing int
	for i, c := range counts {
		if c == 0 {
			numMissing++
			continue
		}
		f.Values[i] /= float64(c)
		state[i] = filled
	}
	if numMissing == len(f.Values) {
		return nil, ErrNoPoints
	}
	log.WithFields(logrus.Fields{
		"outliers":      outliers,
		"mean":          mean,
		"vertices":      len(f.Values),
		"missing (%)":   100 * float64(numMissing) / float64(len(f.Values)),
		"outlier limit": mean + outlierThreshold,
	}).Info("rasterized point cloud")

	if numFound := fillGaps(f, state); numFound != numMissing {
		return nil, fmt.Errorf("%w: filled %d of %d", ErrDisconnected, numFound, numMissing)
	}
	return f, nil
}

// fillGaps propagates values from filled vertices into missing neighbors
// and returns the number of vertices that were filled.
func fillGaps(f *GridField2D, state []int) int {
	var stack []int
	for i, s := range state {
		if s != filled {
			continue
		}
		for _, j := range f.Grid.Index2Boundary(i) {
			if state[j] == missing {
				state[i] = queued
				stack = append(stack, i)
				break
			}
		}
	}
	var numFound int
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, j := range f.Grid.Index2Boundary(i) {
			if state[j] != missing {
				continue
			}
			f.Values[j] = f.Values[i]
			state[j] = queued
			stack = append(stack, j)
			numFound++
		}
	}
	return numFound
}

// Bounds returns the planar bounding box of points.
func Bounds(points []geom3d.Point) geom.Bounds {
	b := geom.Bounds{
		Min: geom.Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: geom.Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	for _, p := range points {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}
