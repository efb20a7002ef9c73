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

package spatialindex

import (
	"reflect"
	"testing"

	"github.com/ctessum/geom"
)

func box(x0, y0, x1, y1 float64) *geom.Bounds {
	return &geom.Bounds{Min: geom.Point{X: x0, Y: y0}, Max: geom.Point{X: x1, Y: y1}}
}

func pointBox(x, y float64) *geom.Bounds { return box(x, y, x, y) }

var _ geom.Geom = (*item)(nil)

func TestItemBounds(t *testing.T) {
	b := box(1, 2, 3, 4)
	it := &item{bounds: b, i: 7}
	if it.Bounds() != b {
		t.Errorf("got bounds %v, want %v", it.Bounds(), b)
	}
	x := New()
	if err := x.Build([]*geom.Bounds{box(0, 0, 1, 1), b}); err != nil {
		t.Fatal(err)
	}
	if got := x.Overlapping(box(2.5, 3.5, 2.6, 3.6)); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("got %v, want [1]", got)
	}
	if x.Bounds(1) != b {
		t.Errorf("object 1 bounds: got %v, want %v", x.Bounds(1), b)
	}
}

func TestFindCollisions(t *testing.T) {
	buildings := New()
	if err := buildings.Build([]*geom.Bounds{
		box(0, 0, 1, 1),
		box(5, 5, 6, 6),
		box(0.5, 0.5, 5.5, 5.5),
	}); err != nil {
		t.Fatal(err)
	}
	points := New()
	if err := points.Build([]*geom.Bounds{
		pointBox(0.2, 0.2),
		pointBox(3, 3),
		pointBox(10, 10),
		pointBox(5.5, 5.5),
	}); err != nil {
		t.Fatal(err)
	}

	want := [][2]int{{0, 0}, {1, 2}, {3, 1}, {3, 2}}
	if got := points.FindCollisions(buildings); !reflect.DeepEqual(got, want) {
		t.Errorf("points x buildings: got %v, want %v", got, want)
	}
	want = [][2]int{{0, 0}, {1, 3}, {2, 1}, {2, 3}}
	if got := buildings.FindCollisions(points); !reflect.DeepEqual(got, want) {
		t.Errorf("buildings x points: got %v, want %v", got, want)
	}
}

func TestOverlappingNearest(t *testing.T) {
	x := New()
	if err := x.Build([]*geom.Bounds{box(0, 0, 1, 1), box(2, 2, 3, 3), box(10, 0, 11, 1)}); err != nil {
		t.Fatal(err)
	}
	if got := x.Overlapping(box(0.5, 0.5, 2.5, 2.5)); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("overlapping: got %v", got)
	}
	if i, ok := x.Nearest(geom.Point{X: 9, Y: 0.5}); !ok || i != 2 {
		t.Errorf("nearest: got %d, %v", i, ok)
	}
}

func TestClearRebuild(t *testing.T) {
	x := New()
	if _, ok := x.Nearest(geom.Point{}); ok {
		t.Error("empty index should have no nearest object")
	}
	if err := x.Build([]*geom.Bounds{box(0, 0, 1, 1)}); err != nil {
		t.Fatal(err)
	}
	if err := x.Build([]*geom.Bounds{box(0, 0, 1, 1)}); err == nil {
		t.Error("building a non-empty index should fail")
	}
	x.Clear()
	if !x.Empty() || x.Len() != 0 {
		t.Error("index should be empty after Clear")
	}
	if err := x.Build([]*geom.Bounds{box(0, 0, 1, 1), box(1, 1, 2, 2)}); err != nil {
		t.Fatal(err)
	}
	if x.Len() != 2 {
		t.Errorf("len: got %d, want 2", x.Len())
	}
	if err := New().Build([]*geom.Bounds{box(1, 1, 0, 0)}); err == nil {
		t.Error("degenerate bounds should be rejected")
	}
}
