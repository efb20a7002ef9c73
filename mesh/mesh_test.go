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
	"bytes"
	"math"
	"reflect"
	"testing"

	"github.com/ctessum/geom"
	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/citymesh"
	"github.com/spatialmodel/citymesh/geom3d"
	"github.com/spatialmodel/citymesh/grid"
	"github.com/spatialmodel/citymesh/polyfix"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return log
}

// fixedTriangulator returns the same triangulation for every input.
type fixedTriangulator struct {
	points    []float64
	triangles []int
}

func (f fixedTriangulator) Triangulate(boundary []geom.Point, subdomains [][]geom.Point, maxArea float64) ([]float64, []int, error) {
	return f.points, f.triangles, nil
}

// stripMesh is a 4×1 strip with a 1×1 building in the second column.
// The building is split into four triangles around a center vertex that
// is shared with no other column.
func stripMesh() (fixedTriangulator, *citymesh.City) {
	tri := fixedTriangulator{
		points: []float64{
			0, 0, 1, 0, 2, 0, 3, 0, 4, 0,
			0, 1, 1, 1, 2, 1, 3, 1, 4, 1,
			1.5, 0.5,
		},
		triangles: []int{
			0, 1, 6, 0, 6, 5,
			1, 2, 10, 2, 7, 10, 7, 6, 10, 6, 1, 10,
			2, 3, 8, 2, 8, 7,
			3, 4, 9, 3, 9, 8,
		},
	}
	c := &citymesh.City{
		Origin: geom.Point{X: 500, Y: 600},
		Buildings: []citymesh.Building{{
			UUID:      "b",
			Footprint: []geom.Point{{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 1}},
			Height:    10,
		}},
	}
	return tri, c
}

var stripBounds = geom.Bounds{Max: geom.Point{X: 4, Y: 1}}

func TestMarkerCode(t *testing.T) {
	for _, m := range []Marker{GroundMarker(), HaloMarker(), InteriorMarker(), BuildingMarker(0), BuildingMarker(17)} {
		m2, err := MarkerFromCode(m.Code())
		if err != nil {
			t.Fatal(err)
		}
		if m2 != m {
			t.Errorf("%v: round trip gave %v", m, m2)
		}
	}
	if c := HaloMarker().Code(); c != -1 {
		t.Errorf("halo code %d, want -1", c)
	}
	if c := GroundMarker().Code(); c != -2 {
		t.Errorf("ground code %d, want -2", c)
	}
	if c := InteriorMarker().Code(); c != -3 {
		t.Errorf("interior code %d, want -3", c)
	}
	if _, err := MarkerFromCode(-4); err == nil {
		t.Error("code -4 should be rejected")
	}
}

func TestGenerateMesh2DMarkers(t *testing.T) {
	tri, c := stripMesh()
	m, err := GenerateMesh2D(c, stripBounds, 1, tri, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	want := []Marker{
		HaloMarker(), HaloMarker(),
		BuildingMarker(0), BuildingMarker(0), BuildingMarker(0), BuildingMarker(0),
		HaloMarker(), HaloMarker(),
		GroundMarker(), GroundMarker(),
	}
	if !reflect.DeepEqual(m.Markers, want) {
		t.Errorf("markers: %v", pretty.Diff(m.Markers, want))
	}
	if m.Origin != c.Origin {
		t.Errorf("origin %v, want %v", m.Origin, c.Origin)
	}
	if _, err := GenerateMesh2D(c, stripBounds, 0, tri, quietLogger()); err == nil {
		t.Error("a zero resolution should be rejected")
	}
}

// The building is exactly one layer tall in a two-layer mesh, so its
// column is skipped in the first layer only.
func TestGenerateMesh3DBuildingSkip(t *testing.T) {
	tri, c := stripMesh()
	m2, err := GenerateMesh2D(c, stripBounds, 1, tri, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	const ground = 0.0
	vm, err := GenerateMesh3D(m2, c, ground, 20, 10, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := vm.Check(); err != nil {
		t.Fatal(err)
	}
	if vm.NumLayers != 2 {
		t.Errorf("got %d layers, want 2", vm.NumLayers)
	}
	if len(vm.Cells) != 48 {
		t.Errorf("got %d tetrahedra, want 48", len(vm.Cells))
	}
	// The center of the building is only used by the upper layers.
	if len(vm.Vertices) != 32 {
		t.Errorf("got %d vertices, want 32", len(vm.Vertices))
	}
	for _, v := range vm.Vertices {
		if v.X == 1.5 && v.Y == 0.5 && v.Z == ground {
			t.Error("unused vertex under the building was not removed")
		}
	}

	var lower, upper int
	counts := make(map[Marker]int)
	var volume float64
	for i, cell := range vm.Cells {
		counts[vm.Markers[i]]++
		volume += math.Abs(vm.CellVolume(i))
		var ctr geom3d.Point
		for _, v := range cell {
			ctr = ctr.Add(vm.Vertices[v].Scale(0.25))
		}
		if polyfix.Contains(c.Buildings[0].Footprint, ctr.XY()) {
			if ctr.Z < 10 {
				lower++
			} else {
				upper++
			}
		}
		if vm.Markers[i].IsBuilding() {
			for _, v := range cell[:3] {
				if z := vm.Vertices[v].Z; z != 10 {
					t.Errorf("building tetrahedron %d has a bottom vertex at z = %g", i, z)
				}
			}
		}
	}
	if lower != 0 || upper != 12 {
		t.Errorf("building column has %d tetrahedra in the lower layer and %d in the upper; want 0 and 12", lower, upper)
	}
	wantCounts := map[Marker]int{BuildingMarker(0): 4, HaloMarker(): 4, GroundMarker(): 2, InteriorMarker(): 38}
	if !reflect.DeepEqual(counts, wantCounts) {
		t.Errorf("marker counts: %v", pretty.Diff(counts, wantCounts))
	}
	if math.Abs(volume-70) > 1e-9 {
		t.Errorf("volume %g, want 70", volume)
	}
}

func TestBoundaryMesh(t *testing.T) {
	tri, c := stripMesh()
	m2, err := GenerateMesh2D(c, stripBounds, 1, tri, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	vm, err := GenerateMesh3D(m2, c, 0, 20, 10, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	s := BoundaryMesh(vm)
	if err := s.Check(); err != nil {
		t.Fatal(err)
	}
	if a := s.Area(); math.Abs(a-208) > 1e-9 {
		t.Errorf("boundary area %g, want 208", a)
	}
	// The divergence theorem gives the enclosed volume when the faces
	// are oriented outward.
	var volume float64
	for _, f := range s.Cells {
		a, b, d := s.Vertices[f[0]], s.Vertices[f[1]], s.Vertices[f[2]]
		volume += a.Dot(b.Cross(d)) / 6
	}
	if math.Abs(volume-70) > 1e-9 {
		t.Errorf("enclosed volume %g, want 70", volume)
	}
}

func TestMeshJSONRoundTrip(t *testing.T) {
	tri, c := stripMesh()
	m2, err := GenerateMesh2D(c, stripBounds, 1, tri, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := m2.Save(&buf); err != nil {
		t.Fatal(err)
	}
	m2b, err := LoadMesh2D(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m2, m2b) {
		t.Errorf("2D mesh round trip: %v", pretty.Diff(m2, m2b))
	}

	vm, err := GenerateMesh3D(m2, c, 3.25, 20, 10, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	if err := vm.Save(&buf); err != nil {
		t.Fatal(err)
	}
	vmb, err := LoadVolumeMesh(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(vm, vmb) {
		t.Errorf("volume mesh round trip: %v", pretty.Diff(vm, vmb))
	}

	s := BoundaryMesh(vm)
	buf.Reset()
	if err := s.Save(&buf); err != nil {
		t.Fatal(err)
	}
	sb, err := LoadSurface3D(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(s, sb) {
		t.Errorf("surface round trip: %v", pretty.Diff(s, sb))
	}

	if _, err := LoadMesh2D(bytes.NewBufferString(`{"vertices":[0,0,1,0,0,1],"cells":[0,1,3],"markers":[-2]}`)); err == nil {
		t.Error("an out of range vertex index should be rejected")
	}
	if _, err := LoadMesh2D(bytes.NewBufferString(`{"vertices":[0,0,1,0,0,1],"cells":[0,1,2],"markers":[-7]}`)); err == nil {
		t.Error("an invalid marker should be rejected")
	}
}

func flatDEM(t *testing.T, size, z float64) *grid.GridField2D {
	g, err := grid.NewGrid2D(geom.Bounds{Max: geom.Point{X: size, Y: size}}, 11, 11)
	if err != nil {
		t.Fatal(err)
	}
	f := grid.NewGridField2D(g)
	for i := range f.Values {
		f.Values[i] = z
	}
	return f
}

func testCity() *citymesh.City {
	return &citymesh.City{Buildings: []citymesh.Building{
		{UUID: "a", Footprint: []geom.Point{{X: 40, Y: 40}, {X: 60, Y: 40}, {X: 60, Y: 60}, {X: 40, Y: 60}}, GroundHeight: 1, Height: 10},
		{UUID: "b", Footprint: []geom.Point{{X: 10, Y: 10}, {X: 25, Y: 12}, {X: 20, Y: 30}}, GroundHeight: 1, Height: 5},
	}}
}

func TestGenerateWithDefaultTriangulator(t *testing.T) {
	c := testCity()
	bounds := geom.Bounds{Max: geom.Point{X: 100, Y: 100}}
	m2, err := GenerateMesh2D(c, bounds, 10, nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := m2.Check(); err != nil {
		t.Fatal(err)
	}
	var total float64
	buildingArea := make([]float64, len(c.Buildings))
	for i := range m2.Cells {
		a := m2.CellArea(i)
		total += a
		if a > 50+1e-9 {
			t.Errorf("triangle %d has area %g > 50", i, a)
		}
		if mk := m2.Markers[i]; mk.IsBuilding() {
			buildingArea[mk.Building] += a
		}
	}
	if math.Abs(total-10000) > 1e-6 {
		t.Errorf("total area %g, want 10000", total)
	}
	for i, b := range c.Buildings {
		if want := polyfix.SignedArea(b.Footprint); math.Abs(buildingArea[i]-want) > 1e-6 {
			t.Errorf("building %d: marked area %g, want %g", i, buildingArea[i], want)
		}
	}

	vm, err := GenerateMesh3D(m2, c, 1, 100, 10, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	var volume float64
	for i := range vm.Cells {
		volume += math.Abs(vm.CellVolume(i))
	}
	// Building a is one layer tall and b is skipped in the first layer only.
	want := 100*100*100 - 10*(polyfix.SignedArea(c.Buildings[0].Footprint)+polyfix.SignedArea(c.Buildings[1].Footprint))
	if math.Abs(volume-want) > 1e-6*want {
		t.Errorf("volume %g, want %g", volume, want)
	}
	if b := vm.Bounds(); b.Min.Z != 1 || math.Abs(b.Max.Z-101) > 1e-9 {
		t.Errorf("vertical extent %g to %g, want 1 to 101", b.Min.Z, b.Max.Z)
	}
}

func TestGenerateSurfaces3D(t *testing.T) {
	c := testCity()
	bounds := geom.Bounds{Max: geom.Point{X: 100, Y: 100}}
	ground, buildings, err := GenerateSurfaces3D(c, flatDEM(t, 100, 1), bounds, 20, nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if a := ground.Area(); math.Abs(a-10000) > 1e-6 {
		t.Errorf("ground area %g, want 10000", a)
	}
	for _, v := range ground.Vertices {
		if v.Z != 1 {
			t.Errorf("ground vertex %v should be at z = 1", v)
		}
	}
	if len(buildings) != 2 {
		t.Fatalf("got %d buildings, want 2", len(buildings))
	}
	a := buildings[0]
	if len(a.Vertices) != 8 || len(a.Cells) != 10 {
		t.Errorf("building a has %d vertices and %d triangles; want 8 and 10", len(a.Vertices), len(a.Cells))
	}
	if area := a.Area(); math.Abs(area-1200) > 1e-9 {
		t.Errorf("building a area %g, want 1200", area)
	}
	for _, s := range append([]*Surface3D{ground}, buildings...) {
		if err := s.Check(); err != nil {
			t.Fatal(err)
		}
	}
	merged := MergeSurfaces(append([]*Surface3D{ground}, buildings...))
	if n := len(ground.Vertices) + len(buildings[0].Vertices) + len(buildings[1].Vertices); len(merged.Vertices) != n {
		t.Errorf("merged surface has %d vertices, want %d", len(merged.Vertices), n)
	}
	if err := merged.Check(); err != nil {
		t.Fatal(err)
	}
	if math.Abs(merged.Area()-(ground.Area()+buildings[0].Area()+buildings[1].Area())) > 1e-6 {
		t.Error("merging should preserve area")
	}
}

func TestGenerateSurfacesLowerHalo(t *testing.T) {
	c := testCity()
	dem := flatDEM(t, 100, 0)
	// Raise the terrain toward +x so that halo vertices are lowered.
	for i := range dem.Values {
		dem.Values[i] = dem.Grid.Index2Coordinate(i).X / 10
	}
	bounds := geom.Bounds{Max: geom.Point{X: 100, Y: 100}}
	ground, _, err := GenerateSurfaces3D(c, dem, bounds, 20, nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	var lowered int
	for _, v := range ground.Vertices {
		z, err := dem.Evaluate(v.XY())
		if err != nil {
			t.Fatal(err)
		}
		if v.Z > z+1e-12 {
			t.Errorf("vertex %v is above the terrain at %g", v, z)
		}
		if v.Z < z-1e-12 {
			lowered++
		}
	}
	if lowered == 0 {
		t.Error("no vertices near buildings were lowered")
	}
}
