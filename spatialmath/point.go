package spatialmath

import (
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
	geo "github.com/kellydunn/golang-geo"
)

// LatLon is a position on the sphere in degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PointFromLatLon returns the unit vector for a latitude and longitude in degrees.
func PointFromLatLon(lat, lon float64) r3.Vector {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon)).Vector
}

// Point returns the unit vector of the position.
func (ll LatLon) Point() r3.Vector {
	return PointFromLatLon(ll.Lat, ll.Lon)
}

// LatLonFromPoint returns the latitude and longitude of a vector. The vector need not be unit length.
func LatLonFromPoint(v r3.Vector) LatLon {
	ll := s2.LatLngFromPoint(s2.Point{Vector: v})
	return LatLon{Lat: ll.Lat.Degrees(), Lon: ll.Lng.Degrees()}
}

func geoPoint(v r3.Vector) *geo.Point {
	ll := LatLonFromPoint(v)
	return geo.NewPoint(ll.Lat, ll.Lon)
}

// GreatCircleDistanceKm returns the great circle distance between two positions on the Earth in km.
func GreatCircleDistanceKm(a, b r3.Vector) float64 {
	return geoPoint(a).GreatCircleDistance(geoPoint(b))
}
