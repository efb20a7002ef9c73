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
	"math"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/citymesh/polyfix"
)

// Config holds the tuning parameters for building city models and meshes.
type Config struct {
	X0, Y0 float64 // Origin subtracted from all input coordinates

	// XMin, YMin, XMax and YMax give the domain bounds relative to the
	// origin. They are only used when AutoDomain is false.
	XMin, YMin, XMax, YMax float64

	// AutoDomain specifies that the domain should be computed from the
	// footprint bounds, expanded by DomainMargin and limited to the point
	// cloud bounds.
	AutoDomain   bool
	DomainMargin float64 // m

	ElevationModelResolution float64 // m
	OutlierThreshold         float64 // Points higher than this above the mean elevation are ignored, m
	GroundSmoothing          int     // Number of smoothing passes applied to the elevation model

	MinBuildingDistance float64 // Buildings closer than this are merged, m
	MinBuildingHeight   float64 // m
	MinBuildingSize     float64 // Buildings with smaller footprints are removed, m²
	MinVertexDistance   float64 // m
	GroundMargin        float64 // Width of the band around footprints searched for ground points, m
	GroundPercentile    float64 // Percentile of ground point elevations used as ground height
	RoofPercentile      float64 // Percentile of roof point elevations used as roof height

	MeshResolution float64 // m
	DomainHeight   float64 // Height of the volume mesh above the mean ground elevation, m

	Epsilon float64 // Tolerance for geometric predicates

	SmoothingMaxIterations     int
	SmoothingRelativeTolerance float64

	// Log receives progress messages. If nil, the standard logger is used.
	Log logrus.FieldLogger `toml:"-" json:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		AutoDomain:                 true,
		DomainMargin:               10,
		ElevationModelResolution:   1,
		OutlierThreshold:           150,
		MinBuildingDistance:        1,
		MinBuildingHeight:          2.5,
		MinBuildingSize:            15,
		MinVertexDistance:          1,
		GroundMargin:               1,
		GroundPercentile:           0.5,
		RoofPercentile:             0.9,
		MeshResolution:             10,
		DomainHeight:               100,
		Epsilon:                    1e-6,
		SmoothingMaxIterations:     1000,
		SmoothingRelativeTolerance: 1e-3,
	}
}

func (cfg *Config) log() logrus.FieldLogger {
	if cfg.Log == nil {
		return logrus.StandardLogger()
	}
	return cfg.Log
}

// Validate checks that the configuration values are within their allowed
// ranges.
func (cfg *Config) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"ElevationModelResolution", cfg.ElevationModelResolution},
		{"OutlierThreshold", cfg.OutlierThreshold},
		{"MeshResolution", cfg.MeshResolution},
		{"DomainHeight", cfg.DomainHeight},
		{"Epsilon", cfg.Epsilon},
		{"SmoothingRelativeTolerance", cfg.SmoothingRelativeTolerance},
	}
	for _, p := range positive {
		if !(p.v > 0) {
			return fmt.Errorf("citymesh: configuration variable %s must be > 0; got %g", p.name, p.v)
		}
	}
	nonNegative := []struct {
		name string
		v    float64
	}{
		{"DomainMargin", cfg.DomainMargin},
		{"MinBuildingDistance", cfg.MinBuildingDistance},
		{"MinBuildingHeight", cfg.MinBuildingHeight},
		{"MinBuildingSize", cfg.MinBuildingSize},
		{"MinVertexDistance", cfg.MinVertexDistance},
		{"GroundMargin", cfg.GroundMargin},
		{"GroundSmoothing", float64(cfg.GroundSmoothing)},
	}
	for _, p := range nonNegative {
		if p.v < 0 || math.IsNaN(p.v) {
			return fmt.Errorf("citymesh: configuration variable %s must be >= 0; got %g", p.name, p.v)
		}
	}
	for _, p := range []struct {
		name string
		v    float64
	}{{"GroundPercentile", cfg.GroundPercentile}, {"RoofPercentile", cfg.RoofPercentile}} {
		if p.v < 0 || p.v > 1 || math.IsNaN(p.v) {
			return fmt.Errorf("citymesh: configuration variable %s must be between 0 and 1; got %g", p.name, p.v)
		}
	}
	if cfg.SmoothingMaxIterations < 1 {
		return fmt.Errorf("citymesh: configuration variable SmoothingMaxIterations must be >= 1; got %d",
			cfg.SmoothingMaxIterations)
	}
	if !cfg.AutoDomain && (cfg.XMax <= cfg.XMin || cfg.YMax <= cfg.YMin) {
		return fmt.Errorf("citymesh: invalid domain bounds [%g, %g] x [%g, %g]",
			cfg.XMin, cfg.XMax, cfg.YMin, cfg.YMax)
	}
	return nil
}

// ComputeDomainBounds returns the origin and the bounding box of the
// domain in input coordinates. When AutoDomain is set, the domain is the
// bounding box of the footprints expanded by DomainMargin and limited to
// pointCloudBounds (if not nil), and the origin is its lower-left corner.
// Otherwise the domain is given by X0, Y0, XMin, YMin, XMax and YMax.
func (cfg *Config) ComputeDomainBounds(footprints []Footprint, pointCloudBounds *geom.Bounds) (geom.Point, geom.Bounds, error) {
	if !cfg.AutoDomain {
		o := geom.Point{X: cfg.X0, Y: cfg.Y0}
		return o, geom.Bounds{
			Min: geom.Point{X: cfg.X0 + cfg.XMin, Y: cfg.Y0 + cfg.YMin},
			Max: geom.Point{X: cfg.X0 + cfg.XMax, Y: cfg.Y0 + cfg.YMax},
		}, nil
	}
	if len(footprints) == 0 {
		return geom.Point{}, geom.Bounds{}, fmt.Errorf("citymesh: computing domain bounds: no footprints")
	}
	b := geom.NewBounds()
	for _, f := range footprints {
		b.Extend(polyfix.Bounds(f.Polygon))
	}
	b.Min.X -= cfg.DomainMargin
	b.Min.Y -= cfg.DomainMargin
	b.Max.X += cfg.DomainMargin
	b.Max.Y += cfg.DomainMargin
	log := cfg.log()
	log.WithField("bounds", *b).Info("footprint bounds")
	if pointCloudBounds != nil {
		log.WithField("bounds", *pointCloudBounds).Info("point cloud bounds")
		b.Min.X = math.Max(b.Min.X, pointCloudBounds.Min.X)
		b.Min.Y = math.Max(b.Min.Y, pointCloudBounds.Min.Y)
		b.Max.X = math.Min(b.Max.X, pointCloudBounds.Max.X)
		b.Max.Y = math.Min(b.Max.Y, pointCloudBounds.Max.Y)
	}
	if b.Min.X >= b.Max.X || b.Min.Y >= b.Max.Y {
		return geom.Point{}, geom.Bounds{}, fmt.Errorf("citymesh: footprints and point cloud do not overlap")
	}
	log.WithField("bounds", *b).Info("domain bounds")
	return b.Min, *b, nil
}
