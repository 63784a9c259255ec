package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// identityEpsilon bounds how far |w| of a unit quaternion may be from 1 for it to count as the
// identity rotation.
const identityEpsilon = 1e-12

// slerpLinearThreshold is the quaternion dot product above which slerp falls back to a
// normalized linear interpolation, because sin(theta) is too small to divide by.
const slerpLinearThreshold = 0.9995

// QuaternionAlmostEqual is an equality test for all the float components of a quaternion. Quaternions have double coverage, q == -q, and
// this function will *not* account for this. Use RotationsAlmostEqual unless you're certain this is what you want.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	return math.Abs(a.Real-b.Real) <= tol &&
		math.Abs(a.Imag-b.Imag) <= tol &&
		math.Abs(a.Jmag-b.Jmag) <= tol &&
		math.Abs(a.Kmag-b.Kmag) <= tol
}

// Normalize scales a quaternion to unit length. The zero quaternion normalizes to the identity.
func Normalize(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}

// representsIdentity reports whether the unit quaternion q, or -q, is the identity.
func representsIdentity(q quat.Number) bool {
	return math.Abs(math.Abs(q.Real)-1) <= identityEpsilon
}

func quatDot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// Slerp spherically interpolates between two unit quaternions along the shortest arc. A fraction
// of 0 yields a, 1 yields b (or -b, which is the same rotation).
func Slerp(a, b quat.Number, fraction float64) quat.Number {
	dot := quatDot(a, b)
	if dot < 0 {
		b = quat.Scale(-1, b)
		dot = -dot
	}
	if dot > slerpLinearThreshold {
		return Normalize(quat.Add(a, quat.Scale(fraction, quat.Sub(b, a))))
	}
	theta0 := math.Acos(dot)
	sinTheta0 := math.Sin(theta0)
	theta := theta0 * fraction
	s0 := math.Cos(theta) - dot*math.Sin(theta)/sinTheta0
	s1 := math.Sin(theta) / sinTheta0
	return Normalize(quat.Add(quat.Scale(s0, a), quat.Scale(s1, b)))
}
