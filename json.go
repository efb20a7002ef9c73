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
	"encoding/json"
	"fmt"
	"io"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/citymesh/geom3d"
)

type jsonPoint2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type jsonPoint3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type jsonBuilding struct {
	Footprint    []jsonPoint2 `json:"footprint"`
	Height       float64      `json:"height"`
	GroundHeight float64      `json:"groundHeight"`
	UUID         string       `json:"uuid"`
	SHPFileID    int          `json:"shpFileID"`
	GroundPoints []jsonPoint3 `json:"groundPoints"`
	RoofPoints   []jsonPoint3 `json:"roofPoints"`
}

type jsonCity struct {
	Name      string         `json:"name,omitempty"`
	Origin    jsonPoint2     `json:"origin"`
	Buildings []jsonBuilding `json:"buildings"`
}

type jsonPointCloud struct {
	Points         []jsonPoint3 `json:"points"`
	Classification []int        `json:"classification"`
}

func toJSON2(p []geom.Point) []jsonPoint2 {
	if p == nil {
		return nil
	}
	o := make([]jsonPoint2, len(p))
	for i, v := range p {
		o[i] = jsonPoint2{X: v.X, Y: v.Y}
	}
	return o
}

func fromJSON2(p []jsonPoint2) []geom.Point {
	if p == nil {
		return nil
	}
	o := make([]geom.Point, len(p))
	for i, v := range p {
		o[i] = geom.Point{X: v.X, Y: v.Y}
	}
	return o
}

func toJSON3(p []geom3d.Point) []jsonPoint3 {
	if p == nil {
		return nil
	}
	o := make([]jsonPoint3, len(p))
	for i, v := range p {
		o[i] = jsonPoint3(v)
	}
	return o
}

func fromJSON3(p []jsonPoint3) []geom3d.Point {
	if p == nil {
		return nil
	}
	o := make([]geom3d.Point, len(p))
	for i, v := range p {
		o[i] = geom3d.Point(v)
	}
	return o
}

// Save writes c to w as JSON.
func (c *City) Save(w io.Writer) error {
	jc := jsonCity{
		Name:      c.Name,
		Origin:    jsonPoint2{X: c.Origin.X, Y: c.Origin.Y},
		Buildings: make([]jsonBuilding, len(c.Buildings)),
	}
	for i, b := range c.Buildings {
		jc.Buildings[i] = jsonBuilding{
			Footprint:    toJSON2(b.Footprint),
			Height:       b.Height,
			GroundHeight: b.GroundHeight,
			UUID:         b.UUID,
			SHPFileID:    b.SHPFileID,
			GroundPoints: toJSON3(b.GroundPoints),
			RoofPoints:   toJSON3(b.RoofPoints),
		}
	}
	if err := json.NewEncoder(w).Encode(jc); err != nil {
		return fmt.Errorf("citymesh: saving city: %v", err)
	}
	return nil
}

// LoadCity reads a city previously written by Save.
func LoadCity(r io.Reader) (*City, error) {
	var jc jsonCity
	if err := json.NewDecoder(r).Decode(&jc); err != nil {
		return nil, fmt.Errorf("citymesh: loading city: %v", err)
	}
	c := &City{
		Name:      jc.Name,
		Origin:    geom.Point{X: jc.Origin.X, Y: jc.Origin.Y},
		Buildings: make([]Building, len(jc.Buildings)),
	}
	for i, b := range jc.Buildings {
		c.Buildings[i] = Building{
			Footprint:    fromJSON2(b.Footprint),
			Height:       b.Height,
			GroundHeight: b.GroundHeight,
			UUID:         b.UUID,
			SHPFileID:    b.SHPFileID,
			GroundPoints: fromJSON3(b.GroundPoints),
			RoofPoints:   fromJSON3(b.RoofPoints),
		}
	}
	return c, nil
}

// SavePointCloud writes pc to w as JSON.
func SavePointCloud(w io.Writer, pc *PointCloud) error {
	jp := jsonPointCloud{
		Points:         toJSON3(pc.Points),
		Classification: pc.Classification,
	}
	if err := json.NewEncoder(w).Encode(jp); err != nil {
		return fmt.Errorf("citymesh: saving point cloud: %v", err)
	}
	return nil
}

// LoadPointCloud reads a point cloud previously written by SavePointCloud.
func LoadPointCloud(r io.Reader) (*PointCloud, error) {
	var jp jsonPointCloud
	if err := json.NewDecoder(r).Decode(&jp); err != nil {
		return nil, fmt.Errorf("citymesh: loading point cloud: %v", err)
	}
	if jp.Classification != nil && len(jp.Classification) != len(jp.Points) {
		return nil, fmt.Errorf("citymesh: loading point cloud: %d classifications for %d points",
			len(jp.Classification), len(jp.Points))
	}
	pc := &PointCloud{
		Points:         fromJSON3(jp.Points),
		Classification: jp.Classification,
	}
	pc.CalculateBounds()
	return pc, nil
}
