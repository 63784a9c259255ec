package feature

import (
	"bytes"
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/tectonics/platerecon/referenceframe"
	"github.com/tectonics/platerecon/spatialmath"
)

const sampleRotationFile = `
999 0.0 0.0 0.0 0.0 999 !header comment
802 0.0 90.0 0.0 0.0 000 !AFR-ANT
802 100.0 10.0 20.0 30.0 000 !AFR-ANT
801 0.0 90.0 0.0 0.0 802 !SAM-AFR
#801 25.0 1.0 2.0 3.0 802 !disabled
801 50.0 -5.0 110.0 8.0 802
801 50.0 40.0 40.0 12.0 000 !crossover
801 80.0 45.0 40.0 20.0 000
`

func TestParseRotationFile(t *testing.T) {
	coll, err := ParseRotationFile(strings.NewReader(sampleRotationFile), "sample.rot")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, coll.Filename, test.ShouldEqual, "sample.rot")
	test.That(t, len(coll.Sequences), test.ShouldEqual, 3)

	afr := coll.Sequences[0]
	test.That(t, afr.MovingPlate(), test.ShouldEqual, referenceframe.PlateID(802))
	test.That(t, afr.FixedPlate(), test.ShouldEqual, referenceframe.PlateID(0))
	rot, err := afr.FiniteRotationAtTime(100)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.RotationsAlmostEqual(rot, spatialmath.NewFiniteRotationFromEulerPole(10, 20, 30), 1e-12), test.ShouldBeTrue)

	sam := coll.Sequences[1]
	test.That(t, sam.FixedPlate(), test.ShouldEqual, referenceframe.PlateID(802))
	samples := sam.Samples()
	test.That(t, len(samples), test.ShouldEqual, 3)
	test.That(t, samples[0].Comment, test.ShouldEqual, "SAM-AFR")
	test.That(t, samples[1].Disabled, test.ShouldBeTrue)
	test.That(t, samples[1].Comment, test.ShouldEqual, "disabled")
	youngest, oldest, ok := sam.TimeWindow()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, youngest, test.ShouldEqual, 0.)
	test.That(t, oldest, test.ShouldEqual, 50.)

	crossover := coll.Sequences[2]
	test.That(t, crossover.MovingPlate(), test.ShouldEqual, referenceframe.PlateID(801))
	test.That(t, crossover.FixedPlate(), test.ShouldEqual, referenceframe.PlateID(0))
	test.That(t, crossover.Samples()[0].Comment, test.ShouldEqual, "crossover")
}

func TestParseRotationFileErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		input    string
		contains []string
	}{
		{"too few fields", "801 0.0 90.0 0.0 0.0\n", []string{"bad.rot:1", "expected 6 fields"}},
		{"bad number", "801 zero 90.0 0.0 0.0 802\n", []string{"bad.rot:1", "bad time"}},
		{"bad latitude", "\n801 0.0 95.0 0.0 0.0 802\n", []string{"bad.rot:2", "out of range"}},
		{"bad plate", "-801 0.0 90.0 0.0 0.0 802\n", []string{"moving plate"}},
		{"duplicate time", "801 0.0 90.0 0.0 0.0 802\n801 0.0 80.0 0.0 1.0 802\n", []string{"bad.rot:1", "duplicate sample"}},
		{
			"every error reported",
			"801 x 90.0 0.0 0.0 802\n801 0.0 90.0 0.0 y 802\n",
			[]string{"bad.rot:1", "bad.rot:2", "bad angle"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRotationFile(strings.NewReader(tc.input), "bad.rot")
			test.That(t, err, test.ShouldNotBeNil)
			for _, s := range tc.contains {
				test.That(t, err.Error(), test.ShouldContainSubstring, s)
			}
		})
	}
}

func TestWriteRotationFileRoundTrip(t *testing.T) {
	coll, err := ParseRotationFile(strings.NewReader(sampleRotationFile), "sample.rot")
	test.That(t, err, test.ShouldBeNil)

	var buf bytes.Buffer
	test.That(t, WriteRotationFile(&buf, coll), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "#801 25.0000")
	test.That(t, buf.String(), test.ShouldContainSubstring, "802 100.0000 10.0000 20.0000 30.0000 000 !AFR-ANT")

	again, err := ParseRotationFile(&buf, "again.rot")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(again.Sequences), test.ShouldEqual, len(coll.Sequences))
	for i, seq := range coll.Sequences {
		other := again.Sequences[i]
		test.That(t, other.MovingPlate(), test.ShouldEqual, seq.MovingPlate())
		test.That(t, other.FixedPlate(), test.ShouldEqual, seq.FixedPlate())
		for j, s := range seq.Samples() {
			o := other.Samples()[j]
			test.That(t, o.Time, test.ShouldAlmostEqual, s.Time)
			test.That(t, o.Disabled, test.ShouldEqual, s.Disabled)
			test.That(t, spatialmath.RotationsAlmostEqual(o.Rotation, s.Rotation, 1e-5), test.ShouldBeTrue)
		}
	}
}
