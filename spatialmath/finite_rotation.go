// Package spatialmath defines the rotation algebra and spherical geometry used to reconstruct
// plate positions: finite rotations, points on the unit sphere, local frames and velocities.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
	"gonum.org/v1/gonum/num/quat"

	"github.com/tectonics/platerecon/utils"
)

// FiniteRotation is a rigid rotation of the sphere stored as a unit quaternion. The optional axis
// hint picks the sign of the axis when the rotation is converted back to an axis and angle.
type FiniteRotation struct {
	q        quat.Number
	axisHint *r3.Vector
}

// NewIdentityRotation returns the rotation which leaves every point in place.
func NewIdentityRotation() *FiniteRotation {
	return &FiniteRotation{q: quat.Number{Real: 1}}
}

// NewFiniteRotation wraps a quaternion, normalizing it to unit length. A nil axis hint is allowed.
func NewFiniteRotation(q quat.Number, axisHint *r3.Vector) *FiniteRotation {
	return &FiniteRotation{q: Normalize(q), axisHint: copyHint(axisHint)}
}

// NewFiniteRotationFromAxisAngle returns a rotation of angle radians about axis. The axis also
// becomes the axis hint. A zero axis yields the identity.
func NewFiniteRotationFromAxisAngle(axis r3.Vector, angle float64) *FiniteRotation {
	r4 := &R4AA{Theta: angle, RX: axis.X, RY: axis.Y, RZ: axis.Z}
	if !r4.Normalize() {
		return NewIdentityRotation()
	}
	hint := r4.Axis()
	return &FiniteRotation{q: r4.ToQuat(), axisHint: &hint}
}

// NewFiniteRotationFromEulerPole returns the rotation about the pole at (lat, lon) by angle, all in
// degrees. This is how poles are written in rotation files.
func NewFiniteRotationFromEulerPole(poleLat, poleLon, angleDeg float64) *FiniteRotation {
	axis := s2.PointFromLatLng(s2.LatLngFromDegrees(poleLat, poleLon)).Vector
	return NewFiniteRotationFromAxisAngle(axis, utils.DegToRad(angleDeg))
}

func copyHint(hint *r3.Vector) *r3.Vector {
	if hint == nil {
		return nil
	}
	h := *hint
	return &h
}

// Quaternion returns the unit quaternion of the rotation.
func (r *FiniteRotation) Quaternion() quat.Number {
	return r.q
}

// AxisHint returns the axis hint, or nil if the rotation has none.
func (r *FiniteRotation) AxisHint() *r3.Vector {
	return copyHint(r.axisHint)
}

// Inverse returns the rotation which undoes r. The axis hint is kept, so extracting the axis of
// the inverse yields the same axis with a negated angle.
func (r *FiniteRotation) Inverse() *FiniteRotation {
	return &FiniteRotation{q: quat.Conj(r.q), axisHint: copyHint(r.axisHint)}
}

// Compose returns a * b, the rotation which applies b first and then a. The result carries b's
// axis hint if it has one, otherwise a's.
func Compose(a, b *FiniteRotation) *FiniteRotation {
	hint := b.axisHint
	if hint == nil {
		hint = a.axisHint
	}
	return &FiniteRotation{q: Normalize(quat.Mul(a.q, b.q)), axisHint: copyHint(hint)}
}

// Reanchor converts a rotation expressed relative to an old anchor into one relative to a new
// anchor, given the new anchor's own rotation relative to the old anchor.
func Reanchor(newAnchorRelOld, plateRelOld *FiniteRotation) *FiniteRotation {
	return Compose(newAnchorRelOld.Inverse(), plateRelOld)
}

// RepresentsIdentity reports whether the rotation leaves every point in place, within tolerance.
// Both q and -q are recognised.
func (r *FiniteRotation) RepresentsIdentity() bool {
	return representsIdentity(r.q)
}

// Rotate applies the rotation to a vector by quaternion conjugation.
func (r *FiniteRotation) Rotate(v r3.Vector) r3.Vector {
	p := quat.Mul(quat.Mul(r.q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(r.q))
	return r3.Vector{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// RotationParams extracts the angle (radians) and unit axis of the rotation. If axisHint is nil the
// rotation's own hint is used. When a hint is available and points away from the extracted axis,
// the axis and angle are both negated so the axis agrees with the hint. The identity rotation
// yields a zero angle about the hint (or the z axis) rather than an undefined axis.
func (r *FiniteRotation) RotationParams(axisHint *r3.Vector) *R4AA {
	if axisHint == nil {
		axisHint = r.axisHint
	}
	if r.RepresentsIdentity() {
		aa := NewR4AA()
		if axisHint != nil {
			aa = &R4AA{Theta: 0, RX: axisHint.X, RY: axisHint.Y, RZ: axisHint.Z}
			if !aa.Normalize() {
				aa = NewR4AA()
			}
		}
		return aa
	}

	// q and -q are the same rotation; choosing w >= 0 keeps theta in [0, pi].
	q := r.q
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	sinHalf := math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	theta := 2 * math.Atan2(sinHalf, q.Real)
	aa := &R4AA{Theta: theta, RX: q.Imag / sinHalf, RY: q.Jmag / sinHalf, RZ: q.Kmag / sinHalf}
	if axisHint != nil && aa.Axis().Dot(*axisHint) < 0 {
		aa.flip()
	}
	return aa
}

// EulerPole returns the pole latitude and longitude and the rotation angle, all in degrees.
func (r *FiniteRotation) EulerPole() (lat, lon, angle float64) {
	aa := r.RotationParams(nil)
	ll := s2.LatLngFromPoint(s2.Point{Vector: aa.Axis()})
	return ll.Lat.Degrees(), ll.Lng.Degrees(), utils.RadToDeg(aa.Theta)
}

// String prints the rotation as an Euler pole.
func (r *FiniteRotation) String() string {
	lat, lon, angle := r.EulerPole()
	return fmt.Sprintf("pole (%.4f, %.4f) angle %.4f", lat, lon, angle)
}

// RotationsAlmostEqual reports whether a and b describe the same rotation within tol, accounting
// for the double coverage q == -q.
func RotationsAlmostEqual(a, b *FiniteRotation, tol float64) bool {
	return QuaternionAlmostEqual(a.q, b.q, tol) || QuaternionAlmostEqual(a.q, quat.Scale(-1, b.q), tol)
}

// Interpolate returns the rotation at time t between r1 at t1 and r2 at t2 by spherical linear
// interpolation. The result carries axisHint, or r1's hint if axisHint is nil.
func Interpolate(r1, r2 *FiniteRotation, t1, t2, t float64, axisHint *r3.Vector) *FiniteRotation {
	if axisHint == nil {
		axisHint = r1.axisHint
	}
	if t2 == t1 {
		return &FiniteRotation{q: r1.q, axisHint: copyHint(axisHint)}
	}
	fraction := (t - t1) / (t2 - t1)
	return &FiniteRotation{q: Slerp(r1.q, r2.q, fraction), axisHint: copyHint(axisHint)}
}

// StageRotation returns the rotation carrying positions at the older time t2 to the younger time
// t1, given the total rotations at each: rotationT1 * rotationT2^-1.
func StageRotation(rotationT1, rotationT2 *FiniteRotation) *FiniteRotation {
	return &FiniteRotation{
		q:        Normalize(quat.Mul(rotationT1.q, quat.Conj(rotationT2.q))),
		axisHint: copyHint(rotationT1.axisHint),
	}
}
