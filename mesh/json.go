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

package mesh

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/citymesh/geom3d"
)

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type jsonMesh struct {
	Vertices  []float64 `json:"vertices"`
	Cells     []int     `json:"cells"`
	Markers   []int     `json:"markers,omitempty"`
	NumLayers int       `json:"numLayers,omitempty"`
	Origin    jsonPoint `json:"origin"`
}

func encodeMarkers(m []Marker) []int {
	o := make([]int, len(m))
	for i, mk := range m {
		o[i] = mk.Code()
	}
	return o
}

func decodeMarkers(codes []int) ([]Marker, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	o := make([]Marker, len(codes))
	for i, c := range codes {
		mk, err := MarkerFromCode(c)
		if err != nil {
			return nil, err
		}
		o[i] = mk
	}
	return o, nil
}

func flatten2(v []geom.Point) []float64 {
	o := make([]float64, 0, 2*len(v))
	for _, p := range v {
		o = append(o, p.X, p.Y)
	}
	return o
}

func flatten3(v []geom3d.Point) []float64 {
	o := make([]float64, 0, 3*len(v))
	for _, p := range v {
		o = append(o, p.X, p.Y, p.Z)
	}
	return o
}

func decodeJSON(r io.Reader, kind string, dim, cellSize int) (*jsonMesh, error) {
	var jm jsonMesh
	if err := json.NewDecoder(r).Decode(&jm); err != nil {
		return nil, fmt.Errorf("mesh: loading %s: %v", kind, err)
	}
	if len(jm.Vertices)%dim != 0 || len(jm.Cells)%cellSize != 0 {
		return nil, fmt.Errorf("mesh: loading %s: %d coordinates and %d indices do not form %d-d points and cells of %d",
			kind, len(jm.Vertices), len(jm.Cells), dim, cellSize)
	}
	return &jm, nil
}

func encodeJSON(w io.Writer, kind string, jm *jsonMesh) error {
	if err := json.NewEncoder(w).Encode(jm); err != nil {
		return fmt.Errorf("mesh: saving %s: %v", kind, err)
	}
	return nil
}

// Save writes m to w as JSON.
func (m *Mesh2D) Save(w io.Writer) error {
	jm := &jsonMesh{
		Vertices: flatten2(m.Vertices),
		Cells:    make([]int, 0, 3*len(m.Cells)),
		Markers:  encodeMarkers(m.Markers),
		Origin:   jsonPoint{X: m.Origin.X, Y: m.Origin.Y},
	}
	for _, c := range m.Cells {
		jm.Cells = append(jm.Cells, c[:]...)
	}
	return encodeJSON(w, "2D mesh", jm)
}

// LoadMesh2D reads a mesh previously written by Mesh2D.Save.
func LoadMesh2D(r io.Reader) (*Mesh2D, error) {
	jm, err := decodeJSON(r, "2D mesh", 2, 3)
	if err != nil {
		return nil, err
	}
	m := &Mesh2D{
		Vertices: make([]geom.Point, len(jm.Vertices)/2),
		Cells:    make([][3]int, len(jm.Cells)/3),
		Origin:   geom.Point{X: jm.Origin.X, Y: jm.Origin.Y},
	}
	for i := range m.Vertices {
		m.Vertices[i] = geom.Point{X: jm.Vertices[2*i], Y: jm.Vertices[2*i+1]}
	}
	for i := range m.Cells {
		copy(m.Cells[i][:], jm.Cells[3*i:])
	}
	if m.Markers, err = decodeMarkers(jm.Markers); err != nil {
		return nil, err
	}
	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

// Save writes m to w as JSON.
func (m *VolumeMesh) Save(w io.Writer) error {
	jm := &jsonMesh{
		Vertices:  flatten3(m.Vertices),
		Cells:     make([]int, 0, 4*len(m.Cells)),
		Markers:   encodeMarkers(m.Markers),
		NumLayers: m.NumLayers,
		Origin:    jsonPoint{X: m.Origin.X, Y: m.Origin.Y},
	}
	for _, c := range m.Cells {
		jm.Cells = append(jm.Cells, c[:]...)
	}
	return encodeJSON(w, "volume mesh", jm)
}

// LoadVolumeMesh reads a mesh previously written by VolumeMesh.Save.
func LoadVolumeMesh(r io.Reader) (*VolumeMesh, error) {
	jm, err := decodeJSON(r, "volume mesh", 3, 4)
	if err != nil {
		return nil, err
	}
	m := &VolumeMesh{
		Vertices:  make([]geom3d.Point, len(jm.Vertices)/3),
		Cells:     make([][4]int, len(jm.Cells)/4),
		NumLayers: jm.NumLayers,
		Origin:    geom.Point{X: jm.Origin.X, Y: jm.Origin.Y},
	}
	for i := range m.Vertices {
		m.Vertices[i] = geom3d.Point{X: jm.Vertices[3*i], Y: jm.Vertices[3*i+1], Z: jm.Vertices[3*i+2]}
	}
	for i := range m.Cells {
		copy(m.Cells[i][:], jm.Cells[4*i:])
	}
	if m.Markers, err = decodeMarkers(jm.Markers); err != nil {
		return nil, err
	}
	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

// Save writes s to w as JSON.
func (s *Surface3D) Save(w io.Writer) error {
	jm := &jsonMesh{
		Vertices: flatten3(s.Vertices),
		Cells:    make([]int, 0, 3*len(s.Cells)),
		Origin:   jsonPoint{X: s.Origin.X, Y: s.Origin.Y},
	}
	for _, c := range s.Cells {
		jm.Cells = append(jm.Cells, c[:]...)
	}
	return encodeJSON(w, "surface", jm)
}

// LoadSurface3D reads a surface previously written by Surface3D.Save.
func LoadSurface3D(r io.Reader) (*Surface3D, error) {
	jm, err := decodeJSON(r, "surface", 3, 3)
	if err != nil {
		return nil, err
	}
	s := &Surface3D{
		Vertices: make([]geom3d.Point, len(jm.Vertices)/3),
		Cells:    make([][3]int, len(jm.Cells)/3),
		Origin:   geom.Point{X: jm.Origin.X, Y: jm.Origin.Y},
	}
	for i := range s.Vertices {
		s.Vertices[i] = geom3d.Point{X: jm.Vertices[3*i], Y: jm.Vertices[3*i+1], Z: jm.Vertices[3*i+2]}
	}
	for i := range s.Cells {
		copy(s.Cells[i][:], jm.Cells[3*i:])
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return s, nil
}
