package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// EarthRadiusCm is the Earth radius used for velocities, in centimetres.
const EarthRadiusCm = 6.378e8

// perMillionYears converts a rate per million years into a rate per year.
const perMillionYears = 1e-6

// AngularVelocity is an angular velocity vector in radians per million years: its direction is the
// stage pole and its length the rotation rate.
type AngularVelocity r3.Vector

// StageAngularVelocity returns the angular velocity of the stage rotation carrying positions at
// the older time to the younger time, over deltaTime million years.
func StageAngularVelocity(rotationT1, rotationT2 *FiniteRotation, deltaTime float64) AngularVelocity {
	stage := StageRotation(rotationT1, rotationT2)
	if rotationT1.q == rotationT2.q || stage.RepresentsIdentity() || deltaTime == 0 {
		return AngularVelocity{}
	}
	aa := stage.RotationParams(rotationT1.axisHint)
	return AngularVelocity(aa.Axis().Mul(aa.Theta / deltaTime))
}

// CalculateVelocityVector returns the geocentric velocity, in cm/yr, of a point moving with a
// plate whose total rotations are rotationT1 at t1 and rotationT2 at t2, where t1 is one million
// years younger than t2. Identical rotations yield exactly the zero vector.
func CalculateVelocityVector(point r3.Vector, rotationT1, rotationT2 *FiniteRotation) r3.Vector {
	return CalculateVelocityVectorOverInterval(point, rotationT1, rotationT2, 1)
}

// CalculateVelocityVectorOverInterval is CalculateVelocityVector for rotations deltaTime million
// years apart.
func CalculateVelocityVectorOverInterval(point r3.Vector, rotationT1, rotationT2 *FiniteRotation, deltaTime float64) r3.Vector {
	if rotationT1.q == rotationT2.q || deltaTime == 0 {
		return r3.Vector{}
	}
	q := quat.Mul(rotationT1.q, quat.Conj(rotationT2.q))
	if representsIdentity(q) {
		return r3.Vector{}
	}
	aa := NewFiniteRotation(q, nil).RotationParams(rotationT1.axisHint)
	omega := aa.Theta / deltaTime
	return aa.Axis().Cross(point).Mul(omega * EarthRadiusCm * perMillionYears)
}

// VelocityColatLon returns the colatitude and longitude components of a geocentric velocity at point.
func VelocityColatLon(point, velocity r3.Vector) (colat, lon float64) {
	return NewCartesianConvMatrix3D(point).ToNED(velocity).ColatLon()
}

// VelocityMagnitudeAngle decomposes the horizontal part of a geocentric velocity at point into a
// magnitude and an angle in radians measured anticlockwise from east, atan2(north, east).
func VelocityMagnitudeAngle(point, velocity r3.Vector) (magnitude, angle float64) {
	ned := NewCartesianConvMatrix3D(point).ToNED(velocity)
	return math.Hypot(ned.North, ned.East), math.Atan2(ned.North, ned.East)
}
