package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// NED holds the components of a vector in the local North, East, Down frame at a point.
type NED struct {
	North float64 `json:"north"`
	East  float64 `json:"east"`
	Down  float64 `json:"down"`
}

// ColatLon returns the colatitude and longitude components, which point south and east.
func (n NED) ColatLon() (colat, lon float64) {
	return -n.North, n.East
}

// CartesianConvMatrix3D converts geocentric vectors into the local North, East, Down frame of a
// point. Its rows are the North, East and Down unit vectors expressed in the geocentric frame.
type CartesianConvMatrix3D struct {
	m *mat.Dense
}

// NewCartesianConvMatrix3D builds the conversion matrix at the given position, which need not be
// unit length.
func NewCartesianConvMatrix3D(point r3.Vector) *CartesianConvMatrix3D {
	ll := LatLonFromPoint(point)
	sinLat, cosLat := math.Sincos(ll.Lat * math.Pi / 180)
	sinLon, cosLon := math.Sincos(ll.Lon * math.Pi / 180)
	return &CartesianConvMatrix3D{mat.NewDense(3, 3, []float64{
		-sinLat * cosLon, -sinLat * sinLon, cosLat,
		-sinLon, cosLon, 0,
		-cosLat * cosLon, -cosLat * sinLon, -sinLat,
	})}
}

// North returns the local north unit vector.
func (c *CartesianConvMatrix3D) North() r3.Vector {
	return c.row(0)
}

// East returns the local east unit vector.
func (c *CartesianConvMatrix3D) East() r3.Vector {
	return c.row(1)
}

// Down returns the local down unit vector.
func (c *CartesianConvMatrix3D) Down() r3.Vector {
	return c.row(2)
}

func (c *CartesianConvMatrix3D) row(i int) r3.Vector {
	return r3.Vector{X: c.m.At(i, 0), Y: c.m.At(i, 1), Z: c.m.At(i, 2)}
}

// ToNED converts a geocentric vector into its local frame components.
func (c *CartesianConvMatrix3D) ToNED(v r3.Vector) NED {
	var out mat.VecDense
	out.MulVec(c.m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return NED{North: out.AtVec(0), East: out.AtVec(1), Down: out.AtVec(2)}
}

// FromNED converts local frame components back to a geocentric vector. The matrix is orthonormal,
// so its transpose is its inverse.
func (c *CartesianConvMatrix3D) FromNED(n NED) r3.Vector {
	var out mat.VecDense
	out.MulVec(c.m.T(), mat.NewVecDense(3, []float64{n.North, n.East, n.Down}))
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}
