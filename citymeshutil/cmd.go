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

// Package citymeshutil contains the command-line interface for CityMesh.
package citymeshutil

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/citymesh"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	d := citymesh.DefaultConfig()

	// Flags shared by every command that builds something.
	build := []*pflag.FlagSet{cityCmd.Flags(), meshCmd.Flags(), volumeCmd.Flags(), randomCmd.Flags(), paramsCmd.Flags()}

	// Options are the configuration options available to CityMesh.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "OutputDirectory",
			usage: `
              OutputDirectory is the directory where output files are
              written. Commands that read a city or elevation model
              produced by an earlier command read them from here.`,
			shorthand:  "o",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{cityCmd.Flags(), meshCmd.Flags(), volumeCmd.Flags(), randomCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the log file. If it is empty, the log
              is written to citymesh.log in OutputDirectory.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cityCmd.Flags(), meshCmd.Flags(), volumeCmd.Flags(), randomCmd.Flags()},
		},
		{
			name: "Footprints",
			usage: `
              Footprints is the path to a polygon shapefile of building
              footprints.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cityCmd.Flags()},
		},
		{
			name: "UUIDField",
			usage: `
              UUIDField is the footprint shapefile attribute holding the
              building identifier. Buildings without one are given a
              random identifier.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cityCmd.Flags()},
		},
		{
			name: "FootprintFilter",
			usage: `
              FootprintFilter is an expression of footprint attributes,
              for example "Height > 5 && Type == 'house'". Only footprints
              for which it is true are used. If it is empty, all footprints
              are used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cityCmd.Flags()},
		},
		{
			name: "SpatialReference",
			usage: `
              SpatialReference gives the projection of the point cloud in
              Proj4 or WKT format. If it is not empty, footprints are
              reprojected to it.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cityCmd.Flags()},
		},
		{
			name: "PointCloud",
			usage: `
              PointCloud is the path to the LiDAR point cloud, either a
              PointZ shapefile or a JSON file.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cityCmd.Flags()},
		},
		{
			name: "ClassField",
			usage: `
              ClassField is the point cloud shapefile attribute holding the
              LAS classification code of each point.`,
			defaultVal: "CLASS",
			flagsets:   []*pflag.FlagSet{cityCmd.Flags()},
		},
		{
			name: "NumBuildings",
			usage: `
              NumBuildings is the number of buildings in a random city.`,
			shorthand:  "n",
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{randomCmd.Flags()},
		},
		{
			name: "Seed",
			usage: `
              Seed is the random number generator seed for a random city.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{randomCmd.Flags()},
		},
		{
			name: "TwoPassSmoothing",
			usage: `
              TwoPassSmoothing specifies that the volume mesh is first
              smoothed with free building roofs and then again with the
              roofs fixed. Otherwise it is smoothed once with the roofs
              fixed.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{volumeCmd.Flags()},
		},
		{
			name: "X0",
			usage: `
              X0 is the X coordinate of the origin of the domain. It is
              only used when AutoDomain is false.`,
			defaultVal: d.X0,
			flagsets:   build,
		},
		{
			name: "Y0",
			usage: `
              Y0 is the Y coordinate of the origin of the domain. It is
              only used when AutoDomain is false.`,
			defaultVal: d.Y0,
			flagsets:   build,
		},
		{
			name: "XMin",
			usage: `
              XMin is the lower X bound of the domain relative to the origin.`,
			defaultVal: d.XMin,
			flagsets:   build,
		},
		{
			name: "YMin",
			usage: `
              YMin is the lower Y bound of the domain relative to the origin.`,
			defaultVal: d.YMin,
			flagsets:   build,
		},
		{
			name: "XMax",
			usage: `
              XMax is the upper X bound of the domain relative to the origin.`,
			defaultVal: d.XMax,
			flagsets:   build,
		},
		{
			name: "YMax",
			usage: `
              YMax is the upper Y bound of the domain relative to the origin.`,
			defaultVal: d.YMax,
			flagsets:   build,
		},
		{
			name: "AutoDomain",
			usage: `
              AutoDomain specifies that the domain is the bounding box of
              the footprints, expanded by DomainMargin and limited to the
              extent of the point cloud.`,
			defaultVal: d.AutoDomain,
			flagsets:   build,
		},
		{
			name: "DomainMargin",
			usage: `
              DomainMargin is the distance [m] the footprint bounding box
              is expanded by when AutoDomain is true.`,
			defaultVal: d.DomainMargin,
			flagsets:   build,
		},
		{
			name: "ElevationModelResolution",
			usage: `
              ElevationModelResolution is the vertex spacing [m] of the
              ground elevation model.`,
			defaultVal: d.ElevationModelResolution,
			flagsets:   build,
		},
		{
			name: "OutlierThreshold",
			usage: `
              OutlierThreshold [m]: ground points higher than this above the
              mean elevation are ignored.`,
			defaultVal: d.OutlierThreshold,
			flagsets:   build,
		},
		{
			name: "GroundSmoothing",
			usage: `
              GroundSmoothing is the number of smoothing passes applied to
              the ground elevation model.`,
			defaultVal: d.GroundSmoothing,
			flagsets:   build,
		},
		{
			name: "MinBuildingDistance",
			usage: `
              MinBuildingDistance [m]: buildings closer together than this
              are merged.`,
			defaultVal: d.MinBuildingDistance,
			flagsets:   build,
		},
		{
			name: "MinBuildingHeight",
			usage: `
              MinBuildingHeight [m] is the smallest allowed building height.`,
			defaultVal: d.MinBuildingHeight,
			flagsets:   build,
		},
		{
			name: "MinBuildingSize",
			usage: `
              MinBuildingSize [m²]: buildings with smaller footprints are
              removed.`,
			defaultVal: d.MinBuildingSize,
			flagsets:   build,
		},
		{
			name: "MinVertexDistance",
			usage: `
              MinVertexDistance [m]: footprint vertices closer together
              than this are merged.`,
			defaultVal: d.MinVertexDistance,
			flagsets:   build,
		},
		{
			name: "GroundMargin",
			usage: `
              GroundMargin [m] is the width of the band around each
              footprint where ground points are assigned to the building.`,
			defaultVal: d.GroundMargin,
			flagsets:   build,
		},
		{
			name: "GroundPercentile",
			usage: `
              GroundPercentile is the percentile, between 0 and 1, of the
              ground point elevations used as a building's ground height.`,
			defaultVal: d.GroundPercentile,
			flagsets:   build,
		},
		{
			name: "RoofPercentile",
			usage: `
              RoofPercentile is the percentile, between 0 and 1, of the
              roof point elevations used as a building's roof height.`,
			defaultVal: d.RoofPercentile,
			flagsets:   build,
		},
		{
			name: "MeshResolution",
			usage: `
              MeshResolution [m] is the target edge length of mesh cells.`,
			defaultVal: d.MeshResolution,
			flagsets:   build,
		},
		{
			name: "DomainHeight",
			usage: `
              DomainHeight [m] is the height of the volume mesh above the
              mean ground elevation.`,
			defaultVal: d.DomainHeight,
			flagsets:   build,
		},
		{
			name: "Epsilon",
			usage: `
              Epsilon is the tolerance of geometric predicates.`,
			defaultVal: d.Epsilon,
			flagsets:   build,
		},
		{
			name: "SmoothingMaxIterations",
			usage: `
              SmoothingMaxIterations is the maximum number of smoother
              iterations.`,
			defaultVal: d.SmoothingMaxIterations,
			flagsets:   build,
		},
		{
			name: "SmoothingRelativeTolerance",
			usage: `
              SmoothingRelativeTolerance is the largest vertex displacement
              update at which the smoother stops.`,
			defaultVal: d.SmoothingRelativeTolerance,
			flagsets:   build,
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("CITYMESH")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(cityCmd)
	Root.AddCommand(meshCmd)
	Root.AddCommand(volumeCmd)
	Root.AddCommand(randomCmd)
	Root.AddCommand(paramsCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("citymesh: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "citymesh",
	Short: "Build city models and volume meshes from LiDAR data.",
	Long: `CityMesh builds 2.5D city models from building footprints and LiDAR point
clouds, and generates ground-conforming tetrahedral meshes of the air above
them. Use the subcommands specified below to access the functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CITYMESH_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of CityMesh.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("CityMesh v%s\n", citymesh.Version)
	},
	DisableAutoGenTag: true,
}

// cityCmd builds a city model and ground elevation model.
var cityCmd = &cobra.Command{
	Use:   "city",
	Short: "Build a city model",
	Long: `city builds a city model from a footprint shapefile and a LiDAR point
cloud. It writes the city (city.json, city.shp and city.geojson) and the
ground elevation model (dem.json and dem.nc) to OutputDirectory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := Config(Cfg)
		if err != nil {
			return err
		}
		outputDir := Cfg.GetString("OutputDirectory")
		log, closeLog, err := newLogger(cmd, Cfg.GetString("LogFile"), outputDir)
		if err != nil {
			return err
		}
		defer closeLog()
		cfg.Log = log
		return BuildCity(cfg, CityInputs{
			Footprints:       Cfg.GetString("Footprints"),
			UUIDField:        Cfg.GetString("UUIDField"),
			Filter:           Cfg.GetString("FootprintFilter"),
			SpatialReference: Cfg.GetString("SpatialReference"),
			PointCloud:       Cfg.GetString("PointCloud"),
			ClassField:       Cfg.GetString("ClassField"),
		}, outputDir)
	},
	DisableAutoGenTag: true,
}

// meshCmd builds ground and building surface meshes.
var meshCmd = &cobra.Command{
	Use:   "mesh",
	Short: "Build surface meshes",
	Long: `mesh reads city.json and dem.json from OutputDirectory and writes a
triangulated ground surface (ground_surface.json) and building surfaces
(building_surfaces.json) for visualization.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := Config(Cfg)
		if err != nil {
			return err
		}
		outputDir := Cfg.GetString("OutputDirectory")
		log, closeLog, err := newLogger(cmd, Cfg.GetString("LogFile"), outputDir)
		if err != nil {
			return err
		}
		defer closeLog()
		cfg.Log = log
		return BuildSurfaces(cfg, outputDir)
	},
	DisableAutoGenTag: true,
}

// volumeCmd builds a smoothed volume mesh.
var volumeCmd = &cobra.Command{
	Use:   "volume",
	Short: "Build a volume mesh",
	Long: `volume reads city.json and dem.json from OutputDirectory and writes the
2D mesh (mesh2d.json), the smoothed tetrahedral volume mesh
(volume_mesh.json) and its boundary surface (boundary.json).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := Config(Cfg)
		if err != nil {
			return err
		}
		outputDir := Cfg.GetString("OutputDirectory")
		log, closeLog, err := newLogger(cmd, Cfg.GetString("LogFile"), outputDir)
		if err != nil {
			return err
		}
		defer closeLog()
		cfg.Log = log
		return BuildVolumeMesh(cfg, outputDir, Cfg.GetBool("TwoPassSmoothing"))
	},
	DisableAutoGenTag: true,
}

// randomCmd builds a random city for benchmarking.
var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Build a random city",
	Long: `random reads dem.json from OutputDirectory and writes a city of
NumBuildings randomly placed rectangular buildings to city.json. The same
Seed always gives the same city.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := Config(Cfg)
		if err != nil {
			return err
		}
		outputDir := Cfg.GetString("OutputDirectory")
		log, closeLog, err := newLogger(cmd, Cfg.GetString("LogFile"), outputDir)
		if err != nil {
			return err
		}
		defer closeLog()
		cfg.Log = log
		return RandomCity(cfg, outputDir, Cfg.GetInt("NumBuildings"), int64(Cfg.GetInt("Seed")))
	},
	DisableAutoGenTag: true,
}

// paramsCmd prints the effective configuration.
var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Print the configuration",
	Long: `params prints the configuration that results from the defaults, the
configuration file, environment variables and command-line arguments, in
TOML format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := Config(Cfg)
		if err != nil {
			return err
		}
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
	},
	DisableAutoGenTag: true,
}
