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

	"github.com/lnashier/viper"
	"github.com/spatialmodel/citymesh"
	"github.com/spf13/cast"
)

// Config unmarshals a viper configuration into a validated city model
// configuration. Values that are not set keep their defaults.
func Config(cfg *viper.Viper) (*citymesh.Config, error) {
	c := citymesh.DefaultConfig()
	floats := []struct {
		name string
		v    *float64
	}{
		{"X0", &c.X0},
		{"Y0", &c.Y0},
		{"XMin", &c.XMin},
		{"YMin", &c.YMin},
		{"XMax", &c.XMax},
		{"YMax", &c.YMax},
		{"DomainMargin", &c.DomainMargin},
		{"ElevationModelResolution", &c.ElevationModelResolution},
		{"OutlierThreshold", &c.OutlierThreshold},
		{"MinBuildingDistance", &c.MinBuildingDistance},
		{"MinBuildingHeight", &c.MinBuildingHeight},
		{"MinBuildingSize", &c.MinBuildingSize},
		{"MinVertexDistance", &c.MinVertexDistance},
		{"GroundMargin", &c.GroundMargin},
		{"GroundPercentile", &c.GroundPercentile},
		{"RoofPercentile", &c.RoofPercentile},
		{"MeshResolution", &c.MeshResolution},
		{"DomainHeight", &c.DomainHeight},
		{"Epsilon", &c.Epsilon},
		{"SmoothingRelativeTolerance", &c.SmoothingRelativeTolerance},
	}
	for _, f := range floats {
		if !cfg.IsSet(f.name) {
			continue
		}
		v, err := cast.ToFloat64E(cfg.Get(f.name))
		if err != nil {
			return nil, fmt.Errorf("citymeshutil: parsing configuration variable %s: %v", f.name, err)
		}
		*f.v = v
	}
	ints := []struct {
		name string
		v    *int
	}{
		{"GroundSmoothing", &c.GroundSmoothing},
		{"SmoothingMaxIterations", &c.SmoothingMaxIterations},
	}
	for _, f := range ints {
		if !cfg.IsSet(f.name) {
			continue
		}
		v, err := cast.ToIntE(cfg.Get(f.name))
		if err != nil {
			return nil, fmt.Errorf("citymeshutil: parsing configuration variable %s: %v", f.name, err)
		}
		*f.v = v
	}
	if cfg.IsSet("AutoDomain") {
		v, err := cast.ToBoolE(cfg.Get("AutoDomain"))
		if err != nil {
			return nil, fmt.Errorf("citymeshutil: parsing configuration variable AutoDomain: %v", err)
		}
		c.AutoDomain = v
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
