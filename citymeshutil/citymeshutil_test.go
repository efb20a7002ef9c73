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

package citymeshutil

import (
	"bytes"
	"io"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/citymesh"
	"github.com/spatialmodel/citymesh/geom3d"
	"github.com/spatialmodel/citymesh/grid"
	"github.com/spatialmodel/citymesh/mesh"
	"github.com/spatialmodel/citymesh/polyfix"
)

func testConfig() *citymesh.Config {
	cfg := citymesh.DefaultConfig()
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	cfg.Log = log
	cfg.MeshResolution = 10
	cfg.DomainHeight = 30
	return cfg
}

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "citymeshutil")
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Config(viper.New())
		if err != nil {
			t.Fatal(err)
		}
		want := citymesh.DefaultConfig()
		if *cfg != *want {
			t.Errorf("got %+v, want %+v", cfg, want)
		}
	})
	t.Run("set", func(t *testing.T) {
		v := viper.New()
		v.Set("MeshResolution", "5")
		v.Set("SmoothingMaxIterations", 20)
		v.Set("AutoDomain", "false")
		v.Set("XMax", 100.0)
		v.Set("YMax", 50)
		cfg, err := Config(v)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.MeshResolution != 5 || cfg.SmoothingMaxIterations != 20 || cfg.AutoDomain ||
			cfg.XMax != 100 || cfg.YMax != 50 {
			t.Errorf("unexpected configuration %+v", cfg)
		}
	})
	t.Run("invalid", func(t *testing.T) {
		v := viper.New()
		v.Set("MeshResolution", "fine")
		if _, err := Config(v); err == nil {
			t.Error("a non-numeric resolution should be rejected")
		}
		v.Set("MeshResolution", -1)
		if _, err := Config(v); err == nil {
			t.Error("a negative resolution should be rejected")
		}
	})
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "CityMesh v" + citymesh.Version; !strings.Contains(buf.String(), want) {
		t.Errorf("output %q does not contain %q", buf.String(), want)
	}
}

func TestParamsCommand(t *testing.T) {
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	Root.SetArgs([]string{"params", "--MeshResolution=5"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "MeshResolution = 5.0") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "Log") {
		t.Errorf("the logger should not be printed:\n%s", buf.String())
	}
}

// writeInputs writes a footprint shapefile with one 20×20 building and a
// point cloud with ground points at z = 0 around it and roof points at
// z = 8 inside it.
func writeInputs(t *testing.T, dir string) CityInputs {
	c := &citymesh.City{Buildings: []citymesh.Building{{
		UUID:      "house",
		Footprint: []geom.Point{{X: 20, Y: 20}, {X: 40, Y: 20}, {X: 40, Y: 40}, {X: 20, Y: 40}},
		Height:    1,
	}}}
	footprints := filepath.Join(dir, "footprints.shp")
	if err := c.WriteShapefile(footprints); err != nil {
		t.Fatal(err)
	}

	pc := new(citymesh.PointCloud)
	for y := 0; y <= 60; y++ {
		for x := 0; x <= 60; x++ {
			if x > 20 && x < 40 && y > 20 && y < 40 {
				continue
			}
			pc.Points = append(pc.Points, geom3d.Point{X: float64(x), Y: float64(y)})
			pc.Classification = append(pc.Classification, citymesh.ClassGround)
		}
	}
	for y := 20.5; y < 40; y++ {
		for x := 20.5; x < 40; x++ {
			pc.Points = append(pc.Points, geom3d.Point{X: x, Y: y, Z: 8})
			pc.Classification = append(pc.Classification, 6)
		}
	}
	pc.CalculateBounds()
	pointCloud := filepath.Join(dir, "points.json")
	if err := writeFile(pointCloud, func(w io.Writer) error { return citymesh.SavePointCloud(w, pc) }); err != nil {
		t.Fatal(err)
	}
	return CityInputs{
		Footprints: footprints,
		UUIDField:  "UUID",
		PointCloud: pointCloud,
		ClassField: "CLASS",
	}
}

func TestPipeline(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	cfg := testConfig()

	if err := BuildCity(cfg, writeInputs(t, dir), dir); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{CityFile, CityShapefile, CityGeoJSONFile, DEMFile, DEMNetCDFFile} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing output: %v", err)
		}
	}
	c, dem, err := loadCityAndDEM(dir)
	if err != nil {
		t.Fatal(err)
	}
	ncf, err := os.Open(filepath.Join(dir, DEMNetCDFFile))
	if err != nil {
		t.Fatal(err)
	}
	demNC, err := grid.ReadNetCDF(ncf)
	ncf.Close()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(demNC, dem) {
		t.Error("netCDF and JSON elevation models differ")
	}
	if c.Origin != (geom.Point{X: 10, Y: 10}) {
		t.Errorf("origin %v, want (10, 10)", c.Origin)
	}
	if b := dem.Grid.BoundingBox; b.Max.X != 40 || b.Max.Y != 40 {
		t.Errorf("elevation model bounds %v, want [0, 40]²", b)
	}
	if len(c.Buildings) != 1 {
		t.Fatalf("got %d buildings, want 1", len(c.Buildings))
	}
	b := c.Buildings[0]
	if b.UUID != "house" || b.GroundHeight != 0 || math.Abs(b.Height-8) > 1e-12 {
		t.Errorf("building %s has ground height %g and height %g; want house, 0 and 8", b.UUID, b.GroundHeight, b.Height)
	}
	if a := polyfix.SignedArea(b.Footprint); math.Abs(a-400) > 1e-9 {
		t.Errorf("footprint area %g, want 400", a)
	}

	if err := BuildSurfaces(cfg, dir); err != nil {
		t.Fatal(err)
	}
	var ground, buildings *mesh.Surface3D
	if err := readFile(filepath.Join(dir, GroundSurfaceFile), func(r io.Reader) (err error) {
		ground, err = mesh.LoadSurface3D(r)
		return
	}); err != nil {
		t.Fatal(err)
	}
	if err := readFile(filepath.Join(dir, BuildingSurfaceFile), func(r io.Reader) (err error) {
		buildings, err = mesh.LoadSurface3D(r)
		return
	}); err != nil {
		t.Fatal(err)
	}
	if a := ground.Area(); math.Abs(a-1600) > 1e-6 {
		t.Errorf("ground area %g, want 1600", a)
	}
	if a := buildings.Area(); math.Abs(a-(400+4*20*8)) > 1e-6 {
		t.Errorf("building surface area %g, want %d", a, 400+4*20*8)
	}

	if err := BuildVolumeMesh(cfg, dir, true); err != nil {
		t.Fatal(err)
	}
	var vm *mesh.VolumeMesh
	if err := readFile(filepath.Join(dir, VolumeMeshFile), func(r io.Reader) (err error) {
		vm, err = mesh.LoadVolumeMesh(r)
		return
	}); err != nil {
		t.Fatal(err)
	}
	bounds := vm.Bounds()
	if math.Abs(bounds.Min.Z) > 1e-9 || math.Abs(bounds.Max.Z-30) > 1e-9 {
		t.Errorf("vertical extent %g to %g, want 0 to 30", bounds.Min.Z, bounds.Max.Z)
	}
	var roof int
	for _, v := range vm.Vertices {
		if polyfix.Covers(b.Footprint, v.XY()) && math.Abs(v.Z-8) < 1e-9 {
			roof++
		}
	}
	if roof == 0 {
		t.Error("no vertices were moved to the roof")
	}
	for _, f := range []string{Mesh2DFile, BoundarySurfaceFile} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing output: %v", err)
		}
	}
}

func TestRandomCity(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	g, err := grid.NewGrid2D(geom.Bounds{Max: geom.Point{X: 200, Y: 200}}, 21, 21)
	if err != nil {
		t.Fatal(err)
	}
	dem := grid.NewGridField2D(g)
	if err := writeFile(filepath.Join(dir, DEMFile), dem.Save); err != nil {
		t.Fatal(err)
	}
	if err := RandomCity(testConfig(), dir, 5, 1); err != nil {
		t.Fatal(err)
	}
	c, _, err := loadCityAndDEM(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Buildings) != 5 {
		t.Errorf("got %d buildings, want 5", len(c.Buildings))
	}
}

func TestLoadMismatchedOrigin(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	g, err := grid.NewGrid2D(geom.Bounds{Max: geom.Point{X: 10, Y: 10}}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, DEMFile), grid.NewGridField2D(g).Save); err != nil {
		t.Fatal(err)
	}
	c := &citymesh.City{Origin: geom.Point{X: 1}}
	if err := writeFile(filepath.Join(dir, CityFile), c.Save); err != nil {
		t.Fatal(err)
	}
	if _, _, err := loadCityAndDEM(dir); err == nil {
		t.Error("mismatched origins should be rejected")
	}
}
