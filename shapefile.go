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
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	goshp "github.com/jonas-p/go-shp"
	"github.com/spatialmodel/citymesh/geom3d"
	"github.com/spatialmodel/citymesh/polyfix"
	"github.com/spf13/cast"
)

// fieldName converts a shapefile attribute name to a string.
func fieldName(f goshp.Field) string {
	return strings.TrimRight(string(f.Name[:]), "\x00 ")
}

// attribute converts a raw shapefile attribute to a number when possible
// and to a trimmed string otherwise.
func attribute(s string) interface{} {
	s = strings.TrimSpace(strings.Trim(s, "\x00"))
	if v, err := cast.ToFloat64E(s); err == nil {
		return v
	}
	return s
}

// ReadFootprints reads building footprints from the polygon shapefile at
// filename. The attribute uuidField, if not empty, holds the building
// identifiers. If filter is not empty, it is evaluated as an expression
// over the attributes of each record (for example "Height > 2 && Type == 'house'")
// and only records for which it is true are kept. If sr is not nil,
// footprints are projected from the spatial reference in the
// shapefile's .prj file to sr. Only the outer ring of each record is used.
func ReadFootprints(filename, uuidField, filter string, sr *proj.SR) ([]Footprint, error) {
	d, err := shp.NewDecoder(filename)
	if err != nil {
		return nil, fmt.Errorf("citymesh: opening footprint shapefile: %v", err)
	}
	defer d.Close()

	var trans proj.Transformer
	if sr != nil {
		src, err := d.SR()
		if err != nil {
			return nil, fmt.Errorf("citymesh: reading footprint spatial reference: %v", err)
		}
		if trans, err = src.NewTransform(sr); err != nil {
			return nil, fmt.Errorf("citymesh: reading footprints: %v", err)
		}
	}
	var expr *govaluate.EvaluableExpression
	if filter != "" {
		if expr, err = govaluate.NewEvaluableExpression(filter); err != nil {
			return nil, fmt.Errorf("citymesh: invalid footprint filter %q: %v", filter, err)
		}
	}
	var names []string
	for _, f := range d.Fields() {
		names = append(names, fieldName(f))
	}
	if uuidField != "" {
		var found bool
		for _, n := range names {
			found = found || strings.EqualFold(n, uuidField)
		}
		if !found {
			return nil, fmt.Errorf("citymesh: footprint shapefile has no attribute %s", uuidField)
		}
	}

	var footprints []Footprint
	for row := 0; ; row++ {
		g, fields, more := d.DecodeRowFields(names...)
		if err := d.Error(); err != nil {
			return nil, fmt.Errorf("citymesh: reading footprints: %v", err)
		}
		if !more {
			break
		}
		if expr != nil {
			params := make(map[string]interface{}, len(fields))
			for k, v := range fields {
				params[k] = attribute(v)
			}
			result, err := expr.Evaluate(params)
			if err != nil {
				return nil, fmt.Errorf("citymesh: evaluating footprint filter for record %d: %v", row, err)
			}
			keep, err := cast.ToBoolE(result)
			if err != nil {
				return nil, fmt.Errorf("citymesh: footprint filter must be boolean: %v", err)
			}
			if !keep {
				continue
			}
		}
		if trans != nil {
			if g, err = g.Transform(trans); err != nil {
				return nil, fmt.Errorf("citymesh: projecting footprint %d: %v", row, err)
			}
		}
		poly, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("citymesh: footprint %d has geometry type %T; want polygon", row, g)
		}
		f := Footprint{Polygon: outerRing(poly), SHPFileID: row}
		if uuidField != "" {
			for k, v := range fields {
				if strings.EqualFold(k, uuidField) {
					f.UUID = strings.TrimSpace(strings.Trim(v, "\x00"))
				}
			}
		}
		if len(f.Polygon) < 3 {
			continue
		}
		footprints = append(footprints, f)
	}
	return footprints, nil
}

// outerRing returns the ring with the largest area, without a repeated
// closing vertex.
func outerRing(p geom.Polygonal) []geom.Point {
	var ring []geom.Point
	area := -1.
	for _, poly := range p.Polygons() {
		for _, r := range poly {
			if a := math.Abs(polyfix.SignedArea(r)); a > area {
				area = a
				ring = r
			}
		}
	}
	ring = append([]geom.Point(nil), ring...)
	if n := len(ring); n > 1 && ring[0] == ring[n-1] {
		ring = ring[:n-1]
	}
	return ring
}

// ReadPointCloudShapefile reads a point cloud from the PointZ shapefile
// at filename. Classifications are read from the attribute classField
// unless it is empty. If bounds is not nil, only points within it are kept.
func ReadPointCloudShapefile(filename, classField string, bounds *geom.Bounds) (*PointCloud, error) {
	r, err := goshp.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("citymesh: opening point cloud shapefile: %v", err)
	}
	defer r.Close()

	classIndex := -1
	if classField != "" {
		for i, f := range r.Fields() {
			if strings.EqualFold(fieldName(f), classField) {
				classIndex = i
			}
		}
		if classIndex < 0 {
			return nil, fmt.Errorf("citymesh: point cloud shapefile has no attribute %s", classField)
		}
	}

	pc := new(PointCloud)
	for r.Next() {
		n, s := r.Shape()
		var p geom3d.Point
		switch s := s.(type) {
		case *goshp.PointZ:
			p = geom3d.Point{X: s.X, Y: s.Y, Z: s.Z}
		default:
			return nil, fmt.Errorf("citymesh: point cloud record %d has shape type %T; want PointZ", n, s)
		}
		if bounds != nil && (p.X < bounds.Min.X || p.X > bounds.Max.X || p.Y < bounds.Min.Y || p.Y > bounds.Max.Y) {
			continue
		}
		pc.Points = append(pc.Points, p)
		if classIndex >= 0 {
			v := strings.TrimSpace(strings.Trim(r.ReadAttribute(n, classIndex), "\x00"))
			c, err := cast.ToIntE(v)
			if err != nil {
				return nil, fmt.Errorf("citymesh: point cloud record %d: invalid classification %q", n, v)
			}
			pc.Classification = append(pc.Classification, c)
		}
	}
	pc.CalculateBounds()
	return pc, nil
}

// WritePointCloudShapefile writes pc to a PointZ shapefile at filename,
// with classifications in the attribute CLASS.
func WritePointCloudShapefile(filename string, pc *PointCloud) error {
	if len(pc.Classification) != len(pc.Points) {
		return ErrMissingClassification
	}
	w, err := goshp.Create(filename, goshp.POINTZ)
	if err != nil {
		return fmt.Errorf("citymesh: creating point cloud shapefile: %v", err)
	}
	defer w.Close()
	w.SetFields([]goshp.Field{goshp.NumberField("CLASS", 4)})
	for i, p := range pc.Points {
		w.Write(&goshp.PointZ{X: p.X, Y: p.Y, Z: p.Z})
		w.WriteAttribute(i, 0, pc.Classification[i])
	}
	return nil
}

// WriteShapefile writes the building footprints of c to a polygon
// shapefile at filename, with attributes UUID, Height and Ground.
func (c *City) WriteShapefile(filename string) error {
	e, err := shp.NewEncoderFromFields(filename, goshp.POLYGON,
		goshp.StringField("UUID", 40),
		goshp.FloatField("Height", 16, 3),
		goshp.FloatField("Ground", 16, 3),
	)
	if err != nil {
		return fmt.Errorf("citymesh: creating building shapefile: %v", err)
	}
	defer e.Close()
	for _, b := range c.Buildings {
		if err := e.EncodeFields(closedPolygon(b.Footprint), b.UUID, b.Height, b.GroundHeight); err != nil {
			return fmt.Errorf("citymesh: writing building %s: %v", b.UUID, err)
		}
	}
	return nil
}

func closedPolygon(p []geom.Point) geom.Polygon {
	ring := append([]geom.Point(nil), p...)
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return geom.Polygon{ring}
}

type geoJSONFeature struct {
	Type       string                 `json:"type"`
	Geometry   *geojson.Geometry      `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// WriteGeoJSON writes the building footprints of c to w as a GeoJSON
// feature collection.
func (c *City) WriteGeoJSON(w io.Writer) error {
	fc := geoJSONCollection{Type: "FeatureCollection", Features: make([]geoJSONFeature, 0, len(c.Buildings))}
	for _, b := range c.Buildings {
		g, err := geojson.ToGeoJSON(closedPolygon(b.Footprint))
		if err != nil {
			return fmt.Errorf("citymesh: encoding building %s: %v", b.UUID, err)
		}
		fc.Features = append(fc.Features, geoJSONFeature{
			Type:     "Feature",
			Geometry: g,
			Properties: map[string]interface{}{
				"uuid":         b.UUID,
				"height":       b.Height,
				"groundHeight": b.GroundHeight,
			},
		})
	}
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		return fmt.Errorf("citymesh: writing geojson: %v", err)
	}
	return nil
}
