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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/citymesh"
	"github.com/spatialmodel/citymesh/geom3d"
	"github.com/spatialmodel/citymesh/grid"
	"github.com/spatialmodel/citymesh/internal/hash"
	"github.com/spatialmodel/citymesh/mesh"
	"github.com/spatialmodel/citymesh/smoother"
	"github.com/spf13/cobra"
)

// Names of the files written to and read from the output directory.
const (
	CityFile            = "city.json"
	CityShapefile       = "city.shp"
	CityGeoJSONFile     = "city.geojson"
	DEMFile             = "dem.json"
	DEMNetCDFFile       = "dem.nc"
	GroundSurfaceFile   = "ground_surface.json"
	BuildingSurfaceFile = "building_surfaces.json"
	Mesh2DFile          = "mesh2d.json"
	VolumeMeshFile      = "volume_mesh.json"
	BoundarySurfaceFile = "boundary.json"
	defaultLogFile      = "citymesh.log"
)

// newLogger returns a logger writing to the command output and to
// logFile, or to citymesh.log in outputDir if logFile is empty. The
// returned function closes the log file.
func newLogger(cmd *cobra.Command, logFile, outputDir string) (*logrus.Logger, func(), error) {
	if logFile == "" {
		logFile = filepath.Join(outputDir, defaultLogFile)
	}
	f, err := os.Create(os.ExpandEnv(logFile))
	if err != nil {
		return nil, nil, fmt.Errorf("citymesh: problem creating log file: %v", err)
	}
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true, DisableColors: true}
	log.Out = io.MultiWriter(cmd.OutOrStdout(), f)
	return log, func() { f.Close() }, nil
}

// logConfig logs a short hash of cfg so that runs with identical
// parameters can be identified.
func logConfig(cfg *citymesh.Config, stage string) {
	c := *cfg
	c.Log = nil
	cfg.Log.WithFields(logrus.Fields{
		"config":  hash.Short(c),
		"version": citymesh.Version,
	}).Infof("starting %s", stage)
}

// CityInputs holds the input files for BuildCity.
type CityInputs struct {
	// Footprints is a polygon shapefile of building footprints.
	Footprints string

	// UUIDField is the footprint attribute holding building identifiers.
	UUIDField string

	// Filter is an optional expression of footprint attributes.
	Filter string

	// SpatialReference is the projection that footprints are converted to.
	// If it is empty, footprints are not reprojected.
	SpatialReference string

	// PointCloud is a PointZ shapefile or a JSON point cloud.
	PointCloud string

	// ClassField is the point cloud shapefile classification attribute.
	ClassField string
}

// BuildCity builds a city model and a ground elevation model and writes
// them to outputDir.
func BuildCity(cfg *citymesh.Config, in CityInputs, outputDir string) error {
	start := time.Now()
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	log := cfg.Log
	logConfig(cfg, "city")

	var sr *proj.SR
	if in.SpatialReference != "" {
		var err error
		if sr, err = proj.Parse(os.ExpandEnv(in.SpatialReference)); err != nil {
			return fmt.Errorf("citymesh: parsing SpatialReference: %v", err)
		}
	}
	footprints, err := citymesh.ReadFootprints(os.ExpandEnv(in.Footprints), in.UUIDField, in.Filter, sr)
	if err != nil {
		return err
	}
	log.Infof("read %d footprints from %s", len(footprints), in.Footprints)

	pc, err := readPointCloud(os.ExpandEnv(in.PointCloud), in.ClassField)
	if err != nil {
		return err
	}
	log.Infof("read %d points from %s", len(pc.Points), in.PointCloud)

	origin, bounds, err := cfg.ComputeDomainBounds(footprints, &pc.Bounds)
	if err != nil {
		return err
	}
	c, err := cfg.GenerateCity(footprints, bounds)
	if err != nil {
		return err
	}
	c.SetOrigin(origin)
	pc.SetOrigin(origin)
	local := geom.Bounds{
		Min: geom.Point{X: bounds.Min.X - origin.X, Y: bounds.Min.Y - origin.Y},
		Max: geom.Point{X: bounds.Max.X - origin.X, Y: bounds.Max.Y - origin.Y},
	}

	dem, err := grid.FromPointCloud(groundPoints(pc), local, cfg.ElevationModelResolution,
		cfg.OutlierThreshold, log)
	if err != nil {
		return fmt.Errorf("citymesh: computing elevation model: %w", err)
	}
	dem.Origin = origin
	dem.Smooth(cfg.GroundSmoothing)

	cfg.CleanCity(c, cfg.Epsilon)
	if err := cfg.ExtractBuildingPoints(c, pc, cfg.GroundMargin); err != nil {
		return err
	}
	if err := cfg.ComputeBuildingHeights(c, dem, cfg.GroundPercentile, cfg.RoofPercentile); err != nil {
		return err
	}
	cfg.SimplifyCity(c, cfg.MinBuildingDistance)
	cfg.RemoveSmallBuildings(c, cfg.MinBuildingSize)

	if err := writeFile(filepath.Join(outputDir, CityFile), c.Save); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(outputDir, DEMFile), dem.Save); err != nil {
		return err
	}
	ncf, err := os.Create(filepath.Join(outputDir, DEMNetCDFFile))
	if err != nil {
		return fmt.Errorf("citymesh: %v", err)
	}
	if err := dem.WriteNetCDF(ncf, "ground elevation", "m"); err != nil {
		ncf.Close()
		return err
	}
	if err := ncf.Close(); err != nil {
		return fmt.Errorf("citymesh: %v", err)
	}
	if err := c.WriteShapefile(filepath.Join(outputDir, CityShapefile)); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(outputDir, CityGeoJSONFile), c.WriteGeoJSON); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"buildings": len(c.Buildings),
		"time":      time.Since(start),
	}).Info("built city")
	return nil
}

// readPointCloud reads a JSON point cloud if filename ends in .json and a
// PointZ shapefile otherwise.
func readPointCloud(filename, classField string) (*citymesh.PointCloud, error) {
	if strings.ToLower(filepath.Ext(filename)) != ".json" {
		return citymesh.ReadPointCloudShapefile(filename, classField, nil)
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("citymesh: %v", err)
	}
	defer f.Close()
	return citymesh.LoadPointCloud(f)
}

// groundPoints returns the ground and water points of pc, or all points
// if pc is not classified.
func groundPoints(pc *citymesh.PointCloud) []geom3d.Point {
	if len(pc.Classification) != len(pc.Points) {
		return pc.Points
	}
	var o []geom3d.Point
	for i, p := range pc.Points {
		if c := pc.Classification[i]; c == citymesh.ClassGround || c == citymesh.ClassWater {
			o = append(o, p)
		}
	}
	return o
}

// BuildSurfaces reads the city and elevation model from outputDir and
// writes ground and building surface meshes.
func BuildSurfaces(cfg *citymesh.Config, outputDir string) error {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	logConfig(cfg, "mesh")
	c, dem, err := loadCityAndDEM(outputDir)
	if err != nil {
		return err
	}
	ground, buildings, err := mesh.GenerateSurfaces3D(c, dem, dem.Grid.BoundingBox, cfg.MeshResolution, nil, cfg.Log)
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(outputDir, GroundSurfaceFile), ground.Save); err != nil {
		return err
	}
	return writeFile(filepath.Join(outputDir, BuildingSurfaceFile), mesh.MergeSurfaces(buildings).Save)
}

// BuildVolumeMesh reads the city and elevation model from outputDir and
// writes a 2D mesh, a smoothed volume mesh and its boundary. If twoPass
// is true, the mesh is smoothed with free roofs before it is smoothed
// with fixed roofs.
func BuildVolumeMesh(cfg *citymesh.Config, outputDir string, twoPass bool) error {
	start := time.Now()
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	log := cfg.Log
	logConfig(cfg, "volume")
	c, dem, err := loadCityAndDEM(outputDir)
	if err != nil {
		return err
	}
	m2, err := mesh.GenerateMesh2D(c, dem.Grid.BoundingBox, cfg.MeshResolution, nil, log)
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(outputDir, Mesh2DFile), m2.Save); err != nil {
		return err
	}
	groundElevation := dem.Mean()
	vm, err := mesh.GenerateMesh3D(m2, c, groundElevation, cfg.DomainHeight, cfg.MeshResolution, log)
	if err != nil {
		return err
	}

	opts := smoother.Options{
		TopHeight:     groundElevation + cfg.DomainHeight,
		MaxIterations: cfg.SmoothingMaxIterations,
		Tolerance:     cfg.SmoothingRelativeTolerance,
		Log:           log,
	}
	passes := []bool{true}
	if twoPass {
		passes = []bool{false, true}
	}
	for _, fix := range passes {
		opts.FixBuildings = fix
		if _, err := smoother.Smooth(vm, c, dem, opts); err != nil {
			return err
		}
	}

	if err := writeFile(filepath.Join(outputDir, VolumeMeshFile), vm.Save); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(outputDir, BoundarySurfaceFile), mesh.BoundaryMesh(vm).Save); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"vertices":   len(vm.Vertices),
		"tetrahedra": len(vm.Cells),
		"time":       time.Since(start),
	}).Info("built volume mesh")
	return nil
}

// RandomCity reads the elevation model from outputDir and writes a city
// of numBuildings random buildings.
func RandomCity(cfg *citymesh.Config, outputDir string, numBuildings int, seed int64) error {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	logConfig(cfg, "random")
	var dem *grid.GridField2D
	err := readFile(filepath.Join(outputDir, DEMFile), func(r io.Reader) (err error) {
		dem, err = grid.LoadGridField2D(r)
		return
	})
	if err != nil {
		return err
	}
	c, err := cfg.RandomizeCity(dem, numBuildings, seed)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(outputDir, CityFile), c.Save)
}

func loadCityAndDEM(dir string) (*citymesh.City, *grid.GridField2D, error) {
	var c *citymesh.City
	err := readFile(filepath.Join(dir, CityFile), func(r io.Reader) (err error) {
		c, err = citymesh.LoadCity(r)
		return
	})
	if err != nil {
		return nil, nil, err
	}
	var dem *grid.GridField2D
	err = readFile(filepath.Join(dir, DEMFile), func(r io.Reader) (err error) {
		dem, err = grid.LoadGridField2D(r)
		return
	})
	if err != nil {
		return nil, nil, err
	}
	if c.Origin != dem.Origin {
		return nil, nil, fmt.Errorf("citymesh: city origin %v does not match elevation model origin %v",
			c.Origin, dem.Origin)
	}
	return c, dem, nil
}

func writeFile(filename string, save func(io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("citymesh: %v", err)
	}
	if err := save(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("citymesh: %v", err)
	}
	return nil
}

func readFile(filename string, load func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("citymesh: %v", err)
	}
	defer f.Close()
	return load(f)
}
