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
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/citymesh/geom3d"
	"github.com/spatialmodel/citymesh/grid"
	"github.com/spatialmodel/citymesh/polyfix"
	"github.com/spatialmodel/citymesh/spatialindex"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmptyPointCloud is returned when building points are requested
	// from a point cloud without points.
	ErrEmptyPointCloud = errors.New("citymesh: empty point cloud")

	// ErrMissingClassification is returned when a point cloud does not
	// have one classification code per point.
	ErrMissingClassification = errors.New("citymesh: missing classifications for point cloud")
)

// Footprint is a building outline read from a footprint file.
type Footprint struct {
	Polygon   []geom.Point
	UUID      string
	SHPFileID int
}

// GenerateCity creates a city with one flat building per footprint whose
// vertices are all within bbox. Footprints without a UUID are assigned a
// random one.
func (cfg *Config) GenerateCity(footprints []Footprint, bbox geom.Bounds) (*City, error) {
	if bbox.Min.X >= bbox.Max.X || bbox.Min.Y >= bbox.Max.Y {
		return nil, fmt.Errorf("citymesh: generating city: invalid bounding box %v", bbox)
	}
	c := new(City)
	for _, f := range footprints {
		if !boundsContain(bbox, f.Polygon) {
			continue
		}
		id := f.UUID
		if id == "" {
			id = uuid.New().String()
		}
		c.Buildings = append(c.Buildings, Building{
			Footprint: append([]geom.Point(nil), f.Polygon...),
			UUID:      id,
			SHPFileID: f.SHPFileID,
		})
	}
	cfg.log().Infof("added %d/%d buildings inside bounding box", len(c.Buildings), len(footprints))
	return c, nil
}

func boundsContain(b geom.Bounds, p []geom.Point) bool {
	if len(p) == 0 {
		return false
	}
	for _, v := range p {
		if v.X < b.Min.X || v.X > b.Max.X || v.Y < b.Min.Y || v.Y > b.Max.Y {
			return false
		}
	}
	return true
}

// CleanCity makes every footprint closed (to within tol) and
// counter-clockwise, merges vertices closer than MinVertexDistance and
// removes collinear vertices. Footprints left with fewer than three
// vertices are removed.
func (cfg *Config) CleanCity(c *City, tol float64) {
	c.ClearIndex()
	var numClosed, numOriented, numMerged, numSimplified, numRemoved int
	n := len(c.Buildings)
	for i := range c.Buildings {
		b := &c.Buildings[i]
		var changed bool
		if b.Footprint, changed = polyfix.MakeClosed(b.Footprint, tol); changed {
			numClosed++
		}
		if b.Footprint, changed = polyfix.MakeOriented(b.Footprint); changed {
			numOriented++
		}
		if b.Footprint, changed = polyfix.MergeVertices(b.Footprint, cfg.MinVertexDistance); changed {
			numMerged++
		}
		if b.Footprint, changed = polyfix.MakeSimple(b.Footprint, cfg.Epsilon); changed {
			numSimplified++
		}
		if len(b.Footprint) < 3 {
			b.Footprint = nil
			numRemoved++
		}
	}
	c.removeEmpty()
	cfg.log().WithFields(logrus.Fields{
		"closed":     numClosed,
		"oriented":   numOriented,
		"merged":     numMerged,
		"simplified": numSimplified,
		"removed":    numRemoved,
		"buildings":  n,
	}).Info("cleaned city footprints")
}

// ExtractBuildingPoints assigns point cloud points to buildings. Ground
// and water points within groundMargin of a footprint boundary become
// ground points of that building; other points inside a footprint become
// roof points. Both point lists are sorted by elevation.
func (cfg *Config) ExtractBuildingPoints(c *City, pc *PointCloud, groundMargin float64) error {
	if len(pc.Points) == 0 {
		return ErrEmptyPointCloud
	}
	if len(pc.Classification) != len(pc.Points) {
		return ErrMissingClassification
	}

	pointBounds := make([]*geom.Bounds, len(pc.Points))
	for i, p := range pc.Points {
		pointBounds[i] = geom.NewBoundsPoint(p.XY())
	}
	pointIndex := spatialindex.New()
	if err := pointIndex.Build(pointBounds); err != nil {
		return fmt.Errorf("citymesh: extracting building points: %v", err)
	}
	buildingBounds := make([]*geom.Bounds, len(c.Buildings))
	for i := range c.Buildings {
		b := c.Buildings[i].Bounds()
		b.Min.X -= groundMargin
		b.Min.Y -= groundMargin
		b.Max.X += groundMargin
		b.Max.Y += groundMargin
		buildingBounds[i] = b
	}
	buildingIndex := spatialindex.New()
	if err := buildingIndex.Build(buildingBounds); err != nil {
		return fmt.Errorf("citymesh: extracting building points: %v", err)
	}

	for i := range c.Buildings {
		c.Buildings[i].GroundPoints = nil
		c.Buildings[i].RoofPoints = nil
	}
	d2 := groundMargin * groundMargin
	for _, pair := range pointIndex.FindCollisions(buildingIndex) {
		p := pc.Points[pair[0]]
		b := &c.Buildings[pair[1]]
		q := p.XY()
		switch pc.Classification[pair[0]] {
		case ClassGround, ClassWater:
			if polyfix.SquaredDistanceToBoundary(b.Footprint, q) < d2 {
				b.GroundPoints = append(b.GroundPoints, p)
			}
		default:
			if polyfix.Contains(b.Footprint, q) {
				b.RoofPoints = append(b.RoofPoints, p)
			}
		}
	}

	if len(c.Buildings) == 0 {
		return nil
	}
	nGround := make([]float64, len(c.Buildings))
	nRoof := make([]float64, len(c.Buildings))
	for i := range c.Buildings {
		b := &c.Buildings[i]
		sortByZ(b.GroundPoints)
		sortByZ(b.RoofPoints)
		nGround[i] = float64(len(b.GroundPoints))
		nRoof[i] = float64(len(b.RoofPoints))
	}
	log := cfg.log()
	log.Infof("min/mean/max number of ground points per building is %g/%.1f/%g",
		floats.Min(nGround), stat.Mean(nGround, nil), floats.Max(nGround))
	log.Infof("min/mean/max number of roof points per building is %g/%.1f/%g",
		floats.Min(nRoof), stat.Mean(nRoof, nil), floats.Max(nRoof))
	return nil
}

func sortByZ(p []geom3d.Point) {
	sort.SliceStable(p, func(i, j int) bool { return p[i].Z < p[j].Z })
}

// percentile returns the elevation at the given percentile of points,
// which must be sorted by elevation.
func percentile(points []geom3d.Point, p float64) float64 {
	i := int(math.Floor(p * float64(len(points))))
	if i < 0 {
		i = 0
	}
	if i > len(points)-1 {
		i = len(points) - 1
	}
	return points[i].Z
}

// ComputeBuildingHeights sets the ground height and height of every
// building from percentiles of its ground and roof points. Buildings
// without ground points take their ground height from dtm at the
// footprint centroid, and buildings without roof points or with roofs
// lower than MinBuildingHeight are given a height of MinBuildingHeight.
func (cfg *Config) ComputeBuildingHeights(c *City, dtm *grid.GridField2D, groundPercentile, roofPercentile float64) error {
	minHeight := cfg.MinBuildingHeight
	var numMissingGround, numMissingRoof, numSmall int
	for i := range c.Buildings {
		b := &c.Buildings[i]
		var h0 float64
		if len(b.GroundPoints) == 0 {
			v, err := dtm.Evaluate(polyfix.Centroid(b.Footprint))
			if err != nil {
				return fmt.Errorf("citymesh: computing height of building %s: %w", b.UUID, err)
			}
			h0 = v
			numMissingGround++
		} else {
			h0 = percentile(b.GroundPoints, groundPercentile)
		}

		var h1 float64
		if len(b.RoofPoints) == 0 {
			h1 = h0 + minHeight
			numMissingRoof++
		} else {
			h1 = percentile(b.RoofPoints, roofPercentile)
		}
		if h1 < h0+minHeight {
			h1 = h0 + minHeight
			numSmall++
		}
		b.GroundHeight = h0
		b.Height = math.Max(h1-h0, minHeight)
	}
	n := len(c.Buildings)
	log := cfg.log()
	if numMissingGround > 0 {
		log.Warnf("missing ground points for %d/%d buildings; using terrain elevation", numMissingGround, n)
	}
	if numMissingRoof > 0 {
		log.Warnf("missing roof points for %d/%d buildings; using minimum building height", numMissingRoof, n)
	}
	if numSmall > 0 {
		log.Warnf("height too small (adjusted) for %d/%d buildings", numSmall, n)
	}
	return nil
}

// MergeBuildings merges building j into building i, using
// MinBuildingDistance as the merge tolerance. Building j is left empty.
func (cfg *Config) MergeBuildings(c *City, i, j int) {
	cfg.mergeBuildings(c, i, j, cfg.MinBuildingDistance)
}

func (cfg *Config) mergeBuildings(c *City, i, j int, tol float64) {
	c.ClearIndex()
	bi, bj := &c.Buildings[i], &c.Buildings[j]
	footprint, err := polyfix.Merge(bi.Footprint, bj.Footprint, tol)
	if err != nil {
		cfg.log().WithFields(logrus.Fields{
			"building0": bi.UUID,
			"building1": bj.UUID,
		}).Warnf("%v; falling back to convex hull", err)
		footprint = polyfix.ConvexHull(append(append([]geom.Point(nil), bi.Footprint...), bj.Footprint...))
	}
	bi.Footprint = footprint
	bi.GroundPoints = append(bi.GroundPoints, bj.GroundPoints...)
	bi.RoofPoints = append(bi.RoofPoints, bj.RoofPoints...)
	sortByZ(bi.GroundPoints)
	sortByZ(bi.RoofPoints)

	h0 := math.Min(bi.GroundHeight, bj.GroundHeight)
	h1 := math.Max(bi.RoofHeight(), bj.RoofHeight())
	bi.GroundHeight = h0
	bi.Height = h1 - h0

	*bj = Building{}
}

// MergeCity merges all buildings that are closer together than
// minDistance. A merged building is checked again against all others so
// that chains of nearby buildings are merged into one.
func (cfg *Config) MergeCity(c *City, minDistance float64) {
	c.ClearIndex()
	tol2 := minDistance * minDistance
	queue := make([]int, len(c.Buildings))
	for i := range queue {
		queue[i] = i
	}
	n := len(c.Buildings)
	var numMerged int
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if c.Buildings[i].Empty() {
			continue
		}
		for j := range c.Buildings {
			if i == j || c.Buildings[j].Empty() {
				continue
			}
			if !nearBounds(c.Buildings[i].Bounds(), c.Buildings[j].Bounds(), minDistance) {
				continue
			}
			if polyfix.DistanceSquared(c.Buildings[i].Footprint, c.Buildings[j].Footprint) >= tol2 {
				continue
			}
			cfg.mergeBuildings(c, i, j, minDistance)
			numMerged++
			queue = append(queue, i)
		}
	}
	c.removeEmpty()
	cfg.log().Infof("merged %d buildings; %d/%d remaining", numMerged, len(c.Buildings), n)
}

// nearBounds reports whether a and b are within d of overlapping.
func nearBounds(a, b *geom.Bounds, d float64) bool {
	return a.Min.X-d <= b.Max.X && a.Min.Y-d <= b.Max.Y &&
		a.Max.X+d >= b.Min.X && a.Max.Y+d >= b.Min.Y
}

// SimplifyCity merges buildings closer than minDistance and cleans the
// resulting footprints.
func (cfg *Config) SimplifyCity(c *City, minDistance float64) {
	cfg.MergeCity(c, minDistance)
	cfg.CleanCity(c, cfg.Epsilon)
}

// RemoveSmallBuildings removes buildings with footprint area smaller than
// minArea.
func (cfg *Config) RemoveSmallBuildings(c *City, minArea float64) {
	var numRemoved int
	for i := range c.Buildings {
		if math.Abs(polyfix.SignedArea(c.Buildings[i].Footprint)) < minArea {
			c.Buildings[i] = Building{}
			numRemoved++
		}
	}
	c.removeEmpty()
	cfg.log().Infof("removed %d buildings smaller than %g m²", numRemoved, minArea)
}
