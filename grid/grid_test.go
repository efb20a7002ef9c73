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
	"bytes"
	"errors"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ctessum/geom"
	"github.com/kr/pretty"
	"github.com/spatialmodel/citymesh/geom3d"
)

// testField returns a field over an irregular box with distinct values
// at every vertex.
func testField(t *testing.T) *GridField2D {
	g, err := NewGrid2D(geom.Bounds{
		Min: geom.Point{X: 0.3, Y: -1.7},
		Max: geom.Point{X: 10.9, Y: 4.2},
	}, 7, 5)
	if err != nil {
		t.Fatal(err)
	}
	f := NewGridField2D(g)
	for i := range f.Values {
		f.Values[i] = math.Sin(float64(i)) * 10
	}
	f.Origin = geom.Point{X: 1000, Y: 2000}
	return f
}

func TestNewGrid2D(t *testing.T) {
	b := geom.Bounds{Max: geom.Point{X: 10, Y: 5}}
	if _, err := NewGrid2D(b, 1, 5); err == nil {
		t.Error("a grid with one vertex along x should be rejected")
	}
	if _, err := NewGrid2D(geom.Bounds{Min: geom.Point{X: 1}, Max: geom.Point{X: 0, Y: 1}}, 2, 2); err == nil {
		t.Error("a degenerate bounding box should be rejected")
	}
	g, err := NewGrid2D(b, 11, 6)
	if err != nil {
		t.Fatal(err)
	}
	if g.XStep != 1 || g.YStep != 1 || g.NumVertices() != 66 {
		t.Errorf("unexpected grid %+v", g)
	}
}

func TestEvaluateAtNodes(t *testing.T) {
	f := testField(t)
	for i, want := range f.Values {
		got, err := f.Evaluate(f.Grid.Index2Coordinate(i))
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("vertex %d: got %v, want %v", i, got, want)
		}
	}
}

func TestEvaluateOutOfDomain(t *testing.T) {
	f := testField(t)
	for _, p := range []geom.Point{{X: 0, Y: 0}, {X: 11, Y: 0}, {X: 5, Y: 4.3}} {
		if _, err := f.Evaluate(p); !errors.Is(err, ErrOutOfDomain) {
			t.Errorf("%v: got error %v, want %v", p, err, ErrOutOfDomain)
		}
	}
}

func TestPoint2Cell(t *testing.T) {
	g, err := NewGrid2D(geom.Bounds{Max: geom.Point{X: 4, Y: 3}}, 5, 4)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		p    geom.Point
		i    int
		x, y float64
	}{
		{p: geom.Point{X: 0, Y: 0}, i: 0, x: 0, y: 0},
		{p: geom.Point{X: 1.5, Y: 0.25}, i: 1, x: 0.5, y: 0.25},
		{p: geom.Point{X: 4, Y: 3}, i: 2*5 + 3, x: 1, y: 1},
		{p: geom.Point{X: 4, Y: 1.5}, i: 1*5 + 3, x: 1, y: 0.5},
	}
	for _, test := range tests {
		i, x, y := g.Point2Cell(test.p)
		if i != test.i || x != test.x || y != test.y {
			t.Errorf("%v: got (%d, %g, %g), want (%d, %g, %g)", test.p, i, x, y, test.i, test.x, test.y)
		}
	}
	if nb := g.Index2Boundary(0); !reflect.DeepEqual(nb, []int{1, 5}) {
		t.Errorf("corner neighbors: %v", nb)
	}
	if nb := g.Index2Boundary(6); !reflect.DeepEqual(nb, []int{5, 7, 1, 11}) {
		t.Errorf("interior neighbors: %v", nb)
	}
	if i := g.Point2Index(geom.Point{X: 2.6, Y: 0.4}); i != 3 {
		t.Errorf("nearest index: got %d, want 3", i)
	}
}

func TestEvaluateLinear(t *testing.T) {
	g, err := NewGrid2D(geom.Bounds{Max: geom.Point{X: 10, Y: 10}}, 6, 11)
	if err != nil {
		t.Fatal(err)
	}
	f := NewGridField2D(g)
	lin := func(p geom.Point) float64 { return 2*p.X + 3*p.Y + 1 }
	for i := range f.Values {
		f.Values[i] = lin(g.Index2Coordinate(i))
	}
	for _, p := range []geom.Point{{X: 0.1, Y: 9.9}, {X: 3.3, Y: 4.4}, {X: 10, Y: 10}, {X: 7.77, Y: 0}} {
		v, err := f.Evaluate(p)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(v-lin(p)) > 1e-12 {
			t.Errorf("%v: got %g, want %g", p, v, lin(p))
		}
	}
	if f.Min() != 1 || f.Max() != 51 || f.Mean() != 26 {
		t.Errorf("min, max, mean: %g, %g, %g", f.Min(), f.Max(), f.Mean())
	}

	// Interpolating onto a finer grid preserves the linear field.
	g2, err := NewGrid2D(geom.Bounds{Min: geom.Point{X: 1, Y: 1}, Max: geom.Point{X: 9, Y: 9}}, 17, 17)
	if err != nil {
		t.Fatal(err)
	}
	f2 := NewGridField2D(g2)
	if err := f2.Interpolate(f); err != nil {
		t.Fatal(err)
	}
	for i, v := range f2.Values {
		if want := lin(g2.Index2Coordinate(i)); math.Abs(v-want) > 1e-12 {
			t.Errorf("interpolated vertex %d: got %g, want %g", i, v, want)
		}
	}
}

func TestSmoothConstant(t *testing.T) {
	g, err := NewGrid2D(geom.Bounds{Max: geom.Point{X: 4, Y: 4}}, 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	f := NewGridField2D(g)
	for i := range f.Values {
		f.Values[i] = 7
	}
	f.Smooth(3)
	for i, v := range f.Values {
		if math.Abs(v-7) > 1e-14 {
			t.Errorf("vertex %d: got %g, want 7", i, v)
		}
	}
	f.Values[12] = 12
	f.Smooth(1)
	if f.Values[12] != 8 {
		t.Errorf("smoothed peak: got %g, want 8", f.Values[12])
	}
}

func TestGridField3D(t *testing.T) {
	g, err := NewGrid3D(geom3d.Bounds{Max: geom3d.Point{X: 2, Y: 3, Z: 4}}, 3, 4, 5)
	if err != nil {
		t.Fatal(err)
	}
	f := NewGridField3D(g)
	lin := func(p geom3d.Point) float64 { return p.X - 2*p.Y + 0.5*p.Z }
	for i := range f.Values {
		f.Values[i] = lin(g.Index2Coordinate(i))
	}
	for i, want := range f.Values {
		got, err := f.Evaluate(g.Index2Coordinate(i))
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("vertex %d: got %g, want %g", i, got, want)
		}
	}
	p := geom3d.Point{X: 1.25, Y: 2.5, Z: 3.75}
	if v, err := f.Evaluate(p); err != nil || math.Abs(v-lin(p)) > 1e-12 {
		t.Errorf("interior point: got %g (%v), want %g", v, err, lin(p))
	}
	if _, err := f.Evaluate(geom3d.Point{X: 1, Y: 1, Z: 5}); !errors.Is(err, ErrOutOfDomain) {
		t.Errorf("got error %v, want %v", err, ErrOutOfDomain)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	f := testField(t)
	var buf bytes.Buffer
	if err := f.Save(&buf); err != nil {
		t.Fatal(err)
	}
	f2, err := LoadGridField2D(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(f, f2) {
		t.Errorf("round trip mismatch: %v", pretty.Diff(f, f2))
	}

	if _, err := LoadGridField2D(bytes.NewBufferString(
		`{"grid":{"boundingBox":{"min":{"x":0,"y":0},"max":{"x":1,"y":1}},"sizes":[2,2],"steps":[1,1]},"values":[1,2,3]}`,
	)); err == nil {
		t.Error("a field with the wrong number of values should be rejected")
	}
}

func TestNetCDFRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "citymesh_grid")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	f := testField(t)
	w, err := os.Create(filepath.Join(dir, "dem.nc"))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.WriteNetCDF(w, "ground elevation", "m"); err != nil {
		t.Fatal(err)
	}
	w.Close()

	r, err := os.Open(filepath.Join(dir, "dem.nc"))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	f2, err := ReadNetCDF(r)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(f, f2) {
		t.Errorf("round trip mismatch: %v", pretty.Diff(f, f2))
	}
}
