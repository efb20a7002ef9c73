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
	"fmt"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// DataVersion is written to netCDF files so that incompatible files can
// be detected when they are read.
const DataVersion = "1.0.0"

// ncVar is the name of the netCDF variable holding field values.
const ncVar = "values"

// DenseArray returns the field values as an array with shape [YSize, XSize].
func (f *GridField2D) DenseArray() *sparse.DenseArray {
	a := sparse.ZerosDense(f.Grid.YSize, f.Grid.XSize)
	copy(a.Elements, f.Values)
	return a
}

// WriteNetCDF writes f to w in netCDF format. description and units are
// stored as attributes of the values variable. w must be a file because
// the record count is rewritten in place once the data are written.
func (f *GridField2D) WriteNetCDF(w *os.File, description, units string) error {
	if err := f.check(); err != nil {
		return err
	}
	h := cdf.NewHeader([]string{"y", "x"}, []int{f.Grid.YSize, f.Grid.XSize})
	h.AddAttribute("", "comment", "CityMesh grid field")
	h.AddAttribute("", "data_version", DataVersion)
	h.AddAttribute("", "xmin", []float64{f.Grid.BoundingBox.Min.X})
	h.AddAttribute("", "ymin", []float64{f.Grid.BoundingBox.Min.Y})
	h.AddAttribute("", "xmax", []float64{f.Grid.BoundingBox.Max.X})
	h.AddAttribute("", "ymax", []float64{f.Grid.BoundingBox.Max.Y})
	h.AddAttribute("", "dx", []float64{f.Grid.XStep})
	h.AddAttribute("", "dy", []float64{f.Grid.YStep})
	h.AddAttribute("", "x0", []float64{f.Origin.X})
	h.AddAttribute("", "y0", []float64{f.Origin.Y})
	h.AddVariable(ncVar, []string{"y", "x"}, []float64{0})
	h.AddAttribute(ncVar, "description", description)
	h.AddAttribute(ncVar, "units", units)
	h.Define()

	ff, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("grid: creating netcdf file: %v", err)
	}
	data := f.DenseArray()
	end := ff.Header.Lengths(ncVar)
	start := make([]int, len(end))
	if _, err = ff.Writer(ncVar, start, end).Write(data.Elements); err != nil {
		return fmt.Errorf("grid: writing netcdf file: %v", err)
	}
	if err = cdf.UpdateNumRecs(w); err != nil {
		return fmt.Errorf("grid: writing netcdf file: %v", err)
	}
	return nil
}

// ReadNetCDF reads a field previously written by WriteNetCDF.
func ReadNetCDF(rw cdf.ReaderWriterAt) (*GridField2D, error) {
	ff, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("grid: opening netcdf file: %v", err)
	}
	if v, ok := ff.Header.GetAttribute("", "data_version").(string); !ok || v != DataVersion {
		return nil, fmt.Errorf("grid: netcdf data version %v is incompatible with the required version %s",
			ff.Header.GetAttribute("", "data_version"), DataVersion)
	}
	attr := func(name string) float64 {
		return ff.Header.GetAttribute("", name).([]float64)[0]
	}
	dims := ff.Header.Lengths(ncVar)
	if len(dims) != 2 {
		return nil, fmt.Errorf("grid: netcdf variable %s has %d dimensions; want 2", ncVar, len(dims))
	}
	data := sparse.ZerosDense(dims...)
	if _, err = ff.Reader(ncVar, nil, nil).Read(data.Elements); err != nil {
		return nil, fmt.Errorf("grid: reading netcdf file: %v", err)
	}
	f := &GridField2D{
		Grid: Grid2D{
			BoundingBox: geom.Bounds{
				Min: geom.Point{X: attr("xmin"), Y: attr("ymin")},
				Max: geom.Point{X: attr("xmax"), Y: attr("ymax")},
			},
			XSize: dims[1],
			YSize: dims[0],
			XStep: attr("dx"),
			YStep: attr("dy"),
		},
		Values: data.Elements,
		Origin: geom.Point{X: attr("x0"), Y: attr("y0")},
	}
	if err := f.check(); err != nil {
		return nil, err
	}
	return f, nil
}
