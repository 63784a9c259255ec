package feature

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/peterstace/simplefeatures/geom"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/tectonics/platerecon/referenceframe"
	"github.com/tectonics/platerecon/spatialmath"
	"github.com/tectonics/platerecon/utils"
)

// Feature properties understood when reading GeoJSON. The names follow the PLATES shapefile
// attribute conventions.
const (
	PropertyPlateID = "PLATEID1"
	PropertyFromAge = "FROMAGE"
	PropertyToAge   = "TOAGE"
	PropertyName    = "NAME"
)

// LoadGeoJSONFile reads a GeoJSON feature collection from disk.
func LoadGeoJSONFile(path string) (*FeatureCollection, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open feature file")
	}
	defer func() {
		//nolint:errcheck
		f.Close()
	}()
	return ReadGeoJSON(f, path)
}

// ReadGeoJSON reads a GeoJSON FeatureCollection. Coordinates are (longitude, latitude) in degrees.
// A missing plate id means the globe plate; missing ages mean the feature is always valid.
func ReadGeoJSON(r io.Reader, filename string) (*FeatureCollection, error) {
	var in geom.GeoJSONFeatureCollection
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, errors.Wrapf(err, "cannot decode %s", filename)
	}
	fc := &FeatureCollection{Filename: filename}
	var errs error
	for i, gf := range in {
		f, err := featureFromGeoJSON(gf, i)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "%s: feature %d", filename, i))
			continue
		}
		fc.Features = append(fc.Features, f)
	}
	if errs != nil {
		return nil, errs
	}
	return fc, nil
}

func featureFromGeoJSON(gf geom.GeoJSONFeature, index int) (*Feature, error) {
	f := &Feature{
		ID:         featureID(gf.ID, index),
		ValidTime:  AlwaysValid(),
		Properties: map[string]interface{}{},
	}
	for k, v := range gf.Properties {
		f.Properties[k] = v
	}

	plate, ok, err := numberProperty(gf.Properties, PropertyPlateID)
	if err != nil {
		return nil, err
	}
	if ok {
		if plate < 0 || plate != float64(uint32(plate)) {
			return nil, errors.Errorf("%s %g is not a plate id", PropertyPlateID, plate)
		}
		f.PlateID = referenceframe.PlateID(plate)
	}
	if begin, ok, err := numberProperty(gf.Properties, PropertyFromAge); err != nil {
		return nil, err
	} else if ok {
		f.ValidTime.Begin = begin
	}
	if end, ok, err := numberProperty(gf.Properties, PropertyToAge); err != nil {
		return nil, err
	} else if ok {
		f.ValidTime.End = end
	}
	if name, ok := gf.Properties[PropertyName]; ok {
		s, isString := name.(string)
		if !isString {
			return nil, errors.Wrap(utils.NewUnexpectedTypeError[string](name), PropertyName)
		}
		f.Name = s
	}

	f.Geometries, err = geometriesFromGeom(gf.Geometry)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func featureID(id interface{}, index int) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("feature-%d", index)
	}
}

// numberProperty accepts JSON numbers and numeric strings.
func numberProperty(props map[string]interface{}, key string) (float64, bool, error) {
	v, ok := props[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false, errors.Wrap(err, key)
		}
		return f, true, nil
	default:
		return 0, false, errors.Wrap(utils.NewUnexpectedTypeError[float64](v), key)
	}
}

func geometriesFromGeom(g geom.Geometry) ([]spatialmath.Geometry, error) {
	switch g.Type() {
	case geom.TypePoint:
		c, ok := g.MustAsPoint().Coordinates()
		if !ok {
			return nil, nil
		}
		return []spatialmath.Geometry{spatialmath.NewPointGeometry(c.XY.Y, c.XY.X)}, nil
	case geom.TypeMultiPoint:
		mp := g.MustAsMultiPoint()
		lls := make([]spatialmath.LatLon, 0, mp.NumPoints())
		for i := 0; i < mp.NumPoints(); i++ {
			if c, ok := mp.PointN(i).Coordinates(); ok {
				lls = append(lls, spatialmath.LatLon{Lat: c.XY.Y, Lon: c.XY.X})
			}
		}
		if len(lls) == 0 {
			return nil, nil
		}
		return []spatialmath.Geometry{spatialmath.NewMultiPointGeometry(lls)}, nil
	case geom.TypeLineString:
		return polylines(g.MustAsLineString()), nil
	case geom.TypeMultiLineString:
		mls := g.MustAsMultiLineString()
		var out []spatialmath.Geometry
		for i := 0; i < mls.NumLineStrings(); i++ {
			out = append(out, polylines(mls.LineStringN(i))...)
		}
		return out, nil
	case geom.TypePolygon:
		return polygons(g.MustAsPolygon()), nil
	case geom.TypeMultiPolygon:
		mp := g.MustAsMultiPolygon()
		var out []spatialmath.Geometry
		for i := 0; i < mp.NumPolygons(); i++ {
			out = append(out, polygons(mp.PolygonN(i))...)
		}
		return out, nil
	case geom.TypeGeometryCollection:
		gc := g.MustAsGeometryCollection()
		var out []spatialmath.Geometry
		for i := 0; i < gc.NumGeometries(); i++ {
			sub, err := geometriesFromGeom(gc.GeometryN(i))
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	default:
		return nil, errors.Errorf("unsupported geometry type %s", g.Type())
	}
}

func sequenceLatLons(seq geom.Sequence) []spatialmath.LatLon {
	lls := make([]spatialmath.LatLon, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		xy := seq.GetXY(i)
		lls[i] = spatialmath.LatLon{Lat: xy.Y, Lon: xy.X}
	}
	return lls
}

func polylines(ls geom.LineString) []spatialmath.Geometry {
	lls := sequenceLatLons(ls.Coordinates())
	if len(lls) == 0 {
		return nil
	}
	return []spatialmath.Geometry{spatialmath.NewPolylineGeometry(lls)}
}

// openRing drops the closing vertex GeoJSON repeats at the end of each ring.
func openRing(ls geom.LineString) []spatialmath.LatLon {
	lls := sequenceLatLons(ls.Coordinates())
	if n := len(lls); n > 1 && lls[0] == lls[n-1] {
		lls = lls[:n-1]
	}
	return lls
}

func polygons(p geom.Polygon) []spatialmath.Geometry {
	exterior := openRing(p.ExteriorRing())
	if len(exterior) == 0 {
		return nil
	}
	interiors := make([][]spatialmath.LatLon, 0, p.NumInteriorRings())
	for i := 0; i < p.NumInteriorRings(); i++ {
		interiors = append(interiors, openRing(p.InteriorRingN(i)))
	}
	return []spatialmath.Geometry{spatialmath.NewPolygonGeometry(exterior, interiors...)}
}

// GeomFromGeometry converts a geometry on the unit sphere to a GeoJSON geometry in
// (longitude, latitude) degrees. Polygon rings are closed. Lines and rings with fewer than two
// distinct vertices are reported as errors.
func GeomFromGeometry(g spatialmath.Geometry) (geom.Geometry, error) {
	switch v := g.(type) {
	case *spatialmath.PointGeometry:
		pt, err := xyFromPoint(v.Position).AsPoint()
		if err != nil {
			return geom.Geometry{}, errors.Wrap(err, "point")
		}
		return pt.AsGeometry(), nil
	case *spatialmath.MultiPointGeometry:
		pts := make([]geom.Point, len(v.Positions))
		for i, p := range v.Positions {
			pt, err := xyFromPoint(p).AsPoint()
			if err != nil {
				return geom.Geometry{}, errors.Wrapf(err, "multi point %d", i)
			}
			pts[i] = pt
		}
		return geom.NewMultiPoint(pts).AsGeometry(), nil
	case *spatialmath.PolylineGeometry:
		ls, err := lineString(v.Vertices, false)
		if err != nil {
			return geom.Geometry{}, errors.Wrap(err, "polyline")
		}
		return ls.AsGeometry(), nil
	case *spatialmath.PolygonGeometry:
		rings := make([]geom.LineString, 0, 1+len(v.Interiors))
		exterior, err := lineString(v.Exterior, true)
		if err != nil {
			return geom.Geometry{}, errors.Wrap(err, "polygon exterior")
		}
		rings = append(rings, exterior)
		for i, ring := range v.Interiors {
			interior, err := lineString(ring, true)
			if err != nil {
				return geom.Geometry{}, errors.Wrapf(err, "polygon interior %d", i)
			}
			rings = append(rings, interior)
		}
		// rings on the sphere need not be simple in the lon/lat plane, e.g. across the antimeridian
		poly, err := geom.NewPolygon(rings, geom.DisableAllValidations)
		if err != nil {
			return geom.Geometry{}, errors.Wrap(err, "polygon")
		}
		return poly.AsGeometry(), nil
	default:
		return geom.Geometry{}, utils.NewUnexpectedTypeError[spatialmath.Geometry](g)
	}
}

func xyFromPoint(p r3.Vector) geom.XY {
	ll := spatialmath.LatLonFromPoint(p)
	return geom.XY{X: ll.Lon, Y: ll.Lat}
}

func lineString(vertices []r3.Vector, closed bool) (geom.LineString, error) {
	flat := make([]float64, 0, 2*(len(vertices)+1))
	for _, v := range vertices {
		xy := xyFromPoint(v)
		flat = append(flat, xy.X, xy.Y)
	}
	if closed && len(vertices) > 0 {
		flat = append(flat, flat[0], flat[1])
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// WriteGeoJSON writes features as an indented GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, features geom.GeoJSONFeatureCollection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(features)
}
