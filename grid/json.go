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
	"encoding/json"
	"fmt"
	"io"

	"github.com/ctessum/geom"
)

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type jsonBounds struct {
	Min jsonPoint `json:"min"`
	Max jsonPoint `json:"max"`
}

type jsonGrid struct {
	BoundingBox jsonBounds `json:"boundingBox"`
	Sizes       []int      `json:"sizes"`
	Steps       []float64  `json:"steps"`
}

type jsonField struct {
	Grid   jsonGrid  `json:"grid"`
	Values []float64 `json:"values"`
	Origin jsonPoint `json:"origin"`
}

func toJSONPoint(p geom.Point) jsonPoint   { return jsonPoint{X: p.X, Y: p.Y} }
func fromJSONPoint(p jsonPoint) geom.Point { return geom.Point{X: p.X, Y: p.Y} }

// Save writes f to w as JSON.
func (f *GridField2D) Save(w io.Writer) error {
	if err := f.check(); err != nil {
		return err
	}
	jf := jsonField{
		Grid: jsonGrid{
			BoundingBox: jsonBounds{
				Min: toJSONPoint(f.Grid.BoundingBox.Min),
				Max: toJSONPoint(f.Grid.BoundingBox.Max),
			},
			Sizes: []int{f.Grid.XSize, f.Grid.YSize},
			Steps: []float64{f.Grid.XStep, f.Grid.YStep},
		},
		Values: f.Values,
		Origin: toJSONPoint(f.Origin),
	}
	if err := json.NewEncoder(w).Encode(jf); err != nil {
		return fmt.Errorf("grid: saving field: %v", err)
	}
	return nil
}

// LoadGridField2D reads a field previously written by Save.
func LoadGridField2D(r io.Reader) (*GridField2D, error) {
	var jf jsonField
	if err := json.NewDecoder(r).Decode(&jf); err != nil {
		return nil, fmt.Errorf("grid: loading field: %v", err)
	}
	if len(jf.Grid.Sizes) != 2 || len(jf.Grid.Steps) != 2 {
		return nil, fmt.Errorf("grid: loading field: expected 2 sizes and steps, got %d and %d",
			len(jf.Grid.Sizes), len(jf.Grid.Steps))
	}
	f := &GridField2D{
		Grid: Grid2D{
			BoundingBox: geom.Bounds{
				Min: fromJSONPoint(jf.Grid.BoundingBox.Min),
				Max: fromJSONPoint(jf.Grid.BoundingBox.Max),
			},
			XSize: jf.Grid.Sizes[0],
			YSize: jf.Grid.Sizes[1],
			XStep: jf.Grid.Steps[0],
			YStep: jf.Grid.Steps[1],
		},
		Values: jf.Values,
		Origin: fromJSONPoint(jf.Origin),
	}
	if err := f.check(); err != nil {
		return nil, err
	}
	return f, nil
}
