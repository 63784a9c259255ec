package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// GeometryType identifies the kind of a Geometry.
type GeometryType int

// The geometry kinds a feature may carry.
const (
	UnknownType GeometryType = iota
	PointType
	MultiPointType
	PolylineType
	PolygonType
)

func (t GeometryType) String() string {
	switch t {
	case PointType:
		return "point"
	case MultiPointType:
		return "multipoint"
	case PolylineType:
		return "polyline"
	case PolygonType:
		return "polygon"
	case UnknownType:
	}
	return "unknown"
}

// Geometry is a geometry on the unit sphere made of unit vectors.
type Geometry interface {
	fmt.Stringer
	Type() GeometryType
	// Points returns every vertex of the geometry.
	Points() []r3.Vector
	// Rotate returns a copy of the geometry with every vertex rotated.
	Rotate(r *FiniteRotation) Geometry
}

func rotateAll(r *FiniteRotation, vs []r3.Vector) []r3.Vector {
	out := make([]r3.Vector, len(vs))
	for i, v := range vs {
		out[i] = r.Rotate(v)
	}
	return out
}

func pointsFromLatLons(lls []LatLon) []r3.Vector {
	out := make([]r3.Vector, len(lls))
	for i, ll := range lls {
		out[i] = ll.Point()
	}
	return out
}

// PointGeometry is a single position.
type PointGeometry struct {
	Position r3.Vector
}

// NewPointGeometry returns a point at lat, lon degrees.
func NewPointGeometry(lat, lon float64) *PointGeometry {
	return &PointGeometry{PointFromLatLon(lat, lon)}
}

// Type returns PointType.
func (p *PointGeometry) Type() GeometryType { return PointType }

// Points returns the single position.
func (p *PointGeometry) Points() []r3.Vector { return []r3.Vector{p.Position} }

// Rotate returns the rotated point.
func (p *PointGeometry) Rotate(r *FiniteRotation) Geometry {
	return &PointGeometry{r.Rotate(p.Position)}
}

func (p *PointGeometry) String() string {
	ll := LatLonFromPoint(p.Position)
	return fmt.Sprintf("point(%.4f %.4f)", ll.Lat, ll.Lon)
}

// MultiPointGeometry is an unordered set of positions.
type MultiPointGeometry struct {
	Positions []r3.Vector
}

// NewMultiPointGeometry returns a multipoint from lat/lon positions.
func NewMultiPointGeometry(lls []LatLon) *MultiPointGeometry {
	return &MultiPointGeometry{pointsFromLatLons(lls)}
}

// Type returns MultiPointType.
func (mp *MultiPointGeometry) Type() GeometryType { return MultiPointType }

// Points returns the positions.
func (mp *MultiPointGeometry) Points() []r3.Vector { return mp.Positions }

// Rotate returns the rotated multipoint.
func (mp *MultiPointGeometry) Rotate(r *FiniteRotation) Geometry {
	return &MultiPointGeometry{rotateAll(r, mp.Positions)}
}

func (mp *MultiPointGeometry) String() string {
	return fmt.Sprintf("multipoint(%d points)", len(mp.Positions))
}

// PolylineGeometry is a sequence of great circle arcs joining consecutive vertices.
type PolylineGeometry struct {
	Vertices []r3.Vector
}

// NewPolylineGeometry returns a polyline from lat/lon vertices.
func NewPolylineGeometry(lls []LatLon) *PolylineGeometry {
	return &PolylineGeometry{pointsFromLatLons(lls)}
}

// Type returns PolylineType.
func (pl *PolylineGeometry) Type() GeometryType { return PolylineType }

// Points returns the vertices.
func (pl *PolylineGeometry) Points() []r3.Vector { return pl.Vertices }

// Rotate returns the rotated polyline.
func (pl *PolylineGeometry) Rotate(r *FiniteRotation) Geometry {
	return &PolylineGeometry{rotateAll(r, pl.Vertices)}
}

func (pl *PolylineGeometry) String() string {
	return fmt.Sprintf("polyline(%d vertices)", len(pl.Vertices))
}

// PolygonGeometry is an exterior ring plus optional interior rings. Rings are not closed: the last
// vertex joins the first implicitly.
type PolygonGeometry struct {
	Exterior  []r3.Vector
	Interiors [][]r3.Vector
}

// NewPolygonGeometry returns a polygon from lat/lon rings.
func NewPolygonGeometry(exterior []LatLon, interiors ...[]LatLon) *PolygonGeometry {
	poly := &PolygonGeometry{Exterior: pointsFromLatLons(exterior)}
	for _, ring := range interiors {
		poly.Interiors = append(poly.Interiors, pointsFromLatLons(ring))
	}
	return poly
}

// Type returns PolygonType.
func (pg *PolygonGeometry) Type() GeometryType { return PolygonType }

// Points returns the exterior vertices followed by those of each interior ring.
func (pg *PolygonGeometry) Points() []r3.Vector {
	out := append([]r3.Vector{}, pg.Exterior...)
	for _, ring := range pg.Interiors {
		out = append(out, ring...)
	}
	return out
}

// Rotate returns the rotated polygon.
func (pg *PolygonGeometry) Rotate(r *FiniteRotation) Geometry {
	rotated := &PolygonGeometry{Exterior: rotateAll(r, pg.Exterior)}
	for _, ring := range pg.Interiors {
		rotated.Interiors = append(rotated.Interiors, rotateAll(r, ring))
	}
	return rotated
}

func (pg *PolygonGeometry) String() string {
	return fmt.Sprintf("polygon(%d exterior vertices, %d interior rings)", len(pg.Exterior), len(pg.Interiors))
}
