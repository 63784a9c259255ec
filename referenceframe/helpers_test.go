package referenceframe

import (
	"testing"

	"go.viam.com/test"

	"github.com/tectonics/platerecon/spatialmath"
)

// constantSequence builds a sequence holding rot at both ends of [youngest, oldest].
func constantSequence(t *testing.T, moving, fixed PlateID, youngest, oldest float64, rot *spatialmath.FiniteRotation) *RotationSequence {
	t.Helper()
	seq, err := NewRotationSequence(moving, fixed, []TimeSample{
		{Time: youngest, Rotation: rot},
		{Time: oldest, Rotation: rot},
	})
	test.That(t, err, test.ShouldBeNil)
	return seq
}

// linearSequence builds a sequence growing from the identity at youngest to the given Euler pole
// rotation at oldest.
func linearSequence(t *testing.T, moving, fixed PlateID, youngest, oldest, poleLat, poleLon, angle float64) *RotationSequence {
	t.Helper()
	seq, err := NewRotationSequence(moving, fixed, []TimeSample{
		{Time: youngest, Rotation: spatialmath.NewFiniteRotationFromEulerPole(poleLat, poleLon, 0)},
		{Time: oldest, Rotation: spatialmath.NewFiniteRotationFromEulerPole(poleLat, poleLon, angle)},
	})
	test.That(t, err, test.ShouldBeNil)
	return seq
}

func rotationsEqual(t *testing.T, actual, expected *spatialmath.FiniteRotation) {
	t.Helper()
	test.That(t, actual, test.ShouldNotBeNil)
	if !spatialmath.RotationsAlmostEqual(actual, expected, 1e-9) {
		t.Fatalf("rotation %v, expected %v", actual, expected)
	}
}
