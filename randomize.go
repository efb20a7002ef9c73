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
	"math/rand"

	"github.com/ctessum/geom"
	"github.com/google/uuid"
	"github.com/spatialmodel/citymesh/grid"
)

// Dimensions of randomly generated buildings.
const (
	randomMaxSide     = 20.0  // m
	randomMaxHeight   = 10.0  // m
	randomMaxAttempts = 10000 // per building
)

// RandomizeCity generates a city of numBuildings rectangular buildings at
// random locations within the domain of dtm, for benchmarking. Building
// centers are kept at least half the maximum side length apart and two
// side lengths from the domain boundary. The same seed always produces
// the same city.
func (cfg *Config) RandomizeCity(dtm *grid.GridField2D, numBuildings int, seed int64) (*City, error) {
	rng := rand.New(rand.NewSource(seed))
	bbox := dtm.Grid.BoundingBox
	dx := bbox.Max.X - bbox.Min.X
	dy := bbox.Max.Y - bbox.Min.Y
	const a = randomMaxSide

	c := &City{Origin: dtm.Origin}
	var centers []geom.Point
	for i := 0; i < numBuildings; i++ {
		var placed bool
		for attempt := 0; attempt < randomMaxAttempts; attempt++ {
			p := geom.Point{X: bbox.Min.X + rng.Float64()*dx, Y: bbox.Min.Y + rng.Float64()*dy}
			if p.X-bbox.Min.X < 2*a || bbox.Max.X-p.X < 2*a || p.Y-bbox.Min.Y < 2*a || bbox.Max.Y-p.Y < 2*a {
				continue
			}
			ok := true
			for _, q := range centers {
				ex, ey := p.X-q.X, p.Y-q.Y
				if ex*ex+ey*ey < 0.25*a*a {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
			w := (0.05 + 0.95*rng.Float64()) * a
			l := (0.05 + 0.95*rng.Float64()) * a
			h := (0.25 + 0.75*rng.Float64()) * randomMaxHeight
			h0, err := dtm.Evaluate(p)
			if err != nil {
				return nil, fmt.Errorf("citymesh: randomizing city: %v", err)
			}
			id, err := uuid.NewRandomFromReader(rng)
			if err != nil {
				return nil, fmt.Errorf("citymesh: randomizing city: %v", err)
			}
			c.Buildings = append(c.Buildings, Building{
				Footprint: []geom.Point{
					{X: p.X - w/2, Y: p.Y - l/2},
					{X: p.X + w/2, Y: p.Y - l/2},
					{X: p.X + w/2, Y: p.Y + l/2},
					{X: p.X - w/2, Y: p.Y + l/2},
				},
				UUID:         id.String(),
				SHPFileID:    i,
				GroundHeight: h0,
				Height:       h,
			})
			centers = append(centers, p)
			placed = true
			break
		}
		if !placed {
			return nil, fmt.Errorf("citymesh: unable to place random building %d/%d after %d attempts; "+
				"try a smaller number of buildings", i+1, numBuildings, randomMaxAttempts)
		}
	}
	cfg.log().Infof("created %d random buildings", numBuildings)
	return c, nil
}
