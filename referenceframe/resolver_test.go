package referenceframe

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/tectonics/platerecon/logging"
	"github.com/tectonics/platerecon/spatialmath"
)

func TestAnchorIsIdentity(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rc := NewRotationContext(linearSequence(t, 802, 0, 0, 100, 45, 45, 30))

	for _, anchor := range []PlateID{0, 802, 12345} {
		for _, tm := range []float64{0, 30, 1000} {
			tree := BuildReconstructionTree(rc, tm, anchor, nil, logger)
			rot, ok := tree.Rotation(anchor)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, rot.RepresentsIdentity(), test.ShouldBeTrue)
			test.That(t, tree.Reason(anchor), test.ShouldBeNil)
		}
	}
}

func TestPlateCircuitScenario(t *testing.T) {
	logger := logging.NewTestLogger(t)
	r1 := spatialmath.NewFiniteRotationFromEulerPole(60, -20, 15)
	r2 := spatialmath.NewFiniteRotationFromEulerPole(-5, 110, 8)
	rc := NewRotationContext(
		constantSequence(t, 802, 0, 0, 100, r1),
		constantSequence(t, 801, 802, 0, 50, r2),
	)

	tree := BuildReconstructionTree(rc, 30, 0, []PlateID{801, 802}, logger)
	rot801, ok := tree.Rotation(801)
	test.That(t, ok, test.ShouldBeTrue)
	rotationsEqual(t, rot801, spatialmath.Compose(r1, r2))
	rot802, ok := tree.Rotation(802)
	test.That(t, ok, test.ShouldBeTrue)
	rotationsEqual(t, rot802, r1)

	tree = BuildReconstructionTree(rc, 70, 0, []PlateID{801, 802}, logger)
	_, ok = tree.Rotation(801)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, errors.Is(tree.Reason(801), ErrNotDefinedAtTime), test.ShouldBeTrue)
	test.That(t, tree.Unresolvable(), test.ShouldResemble, []PlateID{801})
	rot802, ok = tree.Rotation(802)
	test.That(t, ok, test.ShouldBeTrue)
	rotationsEqual(t, rot802, r1)
}

func TestChainComposition(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rc := NewRotationContext(
		linearSequence(t, 1, 2, 0, 200, 10, 20, 30),
		linearSequence(t, 2, 3, 0, 200, -40, 100, 12),
		linearSequence(t, 3, 0, 0, 200, 80, -170, 45),
	)
	local := func(p PlateID) *spatialmath.FiniteRotation {
		h, ok := rc.History(p)
		test.That(t, ok, test.ShouldBeTrue)
		seq, ok := h.AtTime(120)
		test.That(t, ok, test.ShouldBeTrue)
		rot, err := seq.FiniteRotationAtTime(120)
		test.That(t, err, test.ShouldBeNil)
		return rot
	}

	resolver := NewResolver(rc, 120, 0, logger)
	rot, err := resolver.Resolve(1)
	test.That(t, err, test.ShouldBeNil)
	expected := spatialmath.Compose(local(3), spatialmath.Compose(local(2), local(1)))
	rotationsEqual(t, rot, expected)

	// ancestors are cached by the same pass
	tree := resolver.Tree()
	test.That(t, tree.PlateIDs(), test.ShouldResemble, []PlateID{0, 1, 2, 3})
	rot2, _ := tree.Rotation(2)
	rotationsEqual(t, rot2, spatialmath.Compose(local(3), local(2)))
}

func TestUnresolvableAncestor(t *testing.T) {
	logger := logging.NewTestLogger(t)
	id := spatialmath.NewIdentityRotation()
	rc := NewRotationContext(
		constantSequence(t, 803, 804, 0, 100, id),
		constantSequence(t, 805, 803, 0, 100, id),
	)
	resolver := NewResolver(rc, 10, 0, logger)
	_, err := resolver.Resolve(805)
	test.That(t, err, test.ShouldNotBeNil)

	var plateErr *UnresolvablePlateError
	test.That(t, errors.As(err, &plateErr), test.ShouldBeTrue)
	test.That(t, plateErr.Plate, test.ShouldEqual, PlateID(805))
	test.That(t, plateErr.Time, test.ShouldEqual, 10.)
	test.That(t, errors.Is(err, ErrUnresolvableAncestor), test.ShouldBeTrue)

	tree := resolver.Tree()
	test.That(t, tree.Unresolvable(), test.ShouldResemble, []PlateID{803, 804, 805})
	test.That(t, errors.Is(tree.Reason(804), ErrNoRotationHistory), test.ShouldBeTrue)
	test.That(t, errors.Is(tree.Reason(803), ErrUnresolvableAncestor), test.ShouldBeTrue)
	test.That(t, errors.Is(tree.Reason(999), ErrPlateNotInTree), test.ShouldBeTrue)

	// failures are cached
	_, err2 := resolver.Resolve(803)
	test.That(t, err2, test.ShouldEqual, tree.Reason(803))
}

func TestRotationCycle(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	id := spatialmath.NewIdentityRotation()
	rc := NewRotationContext(
		constantSequence(t, 901, 902, 0, 100, id),
		constantSequence(t, 902, 901, 0, 100, id),
		constantSequence(t, 903, 901, 0, 100, id),
		constantSequence(t, 905, 905, 0, 100, id),
	)

	tree := BuildReconstructionTree(rc, 10, 0, []PlateID{903, 901, 905}, logger)
	test.That(t, tree.Len(), test.ShouldEqual, 1)
	test.That(t, tree.Unresolvable(), test.ShouldResemble, []PlateID{901, 902, 903, 905})

	var cycle *RotationCycleError
	test.That(t, errors.As(tree.Reason(902), &cycle), test.ShouldBeTrue)
	test.That(t, cycle.Plates, test.ShouldResemble, []PlateID{901, 902})
	test.That(t, cycle.Error(), test.ShouldEqual, "rotation cycle 901 -> 902 -> 901")
	test.That(t, errors.As(tree.Reason(901), &cycle), test.ShouldBeTrue)

	test.That(t, errors.As(tree.Reason(903), &cycle), test.ShouldBeTrue)
	test.That(t, errors.Is(tree.Reason(903), ErrUnresolvableAncestor), test.ShouldBeTrue)

	test.That(t, errors.As(tree.Reason(905), &cycle), test.ShouldBeTrue)
	test.That(t, cycle.Plates, test.ShouldResemble, []PlateID{905})

	test.That(t, logs.FilterMessage("rotation cycle never reaches the anchor plate").Len(), test.ShouldEqual, 2)
}

func TestReanchorConsistency(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rc := NewRotationContext(
		linearSequence(t, 802, 0, 0, 100, 60, -20, 15),
		linearSequence(t, 801, 802, 0, 50, -5, 110, 8),
		linearSequence(t, 701, 801, 0, 80, 33, 3, 21),
	)

	fromGlobe := BuildReconstructionTree(rc, 40, 0, nil, logger)
	reanchored, err := fromGlobe.Reanchor(802)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, reanchored.Anchor(), test.ShouldEqual, PlateID(802))
	test.That(t, reanchored.Time(), test.ShouldEqual, 40.)

	direct := BuildReconstructionTree(rc, 40, 802, []PlateID{801, 701, 0}, logger)
	for _, p := range []PlateID{801, 701, 802, 0} {
		want, ok := direct.Rotation(p)
		test.That(t, ok, test.ShouldBeTrue)
		got, ok := reanchored.Rotation(p)
		test.That(t, ok, test.ShouldBeTrue)
		rotationsEqual(t, got, want)
	}

	// the old anchor is expressed relative to the new one
	globe, ok := reanchored.Rotation(0)
	test.That(t, ok, test.ShouldBeTrue)
	r802, _ := fromGlobe.Rotation(802)
	rotationsEqual(t, globe, r802.Inverse())

	same, err := fromGlobe.Reanchor(0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same, test.ShouldEqual, fromGlobe)

	_, err = fromGlobe.Reanchor(4242)
	test.That(t, errors.Is(err, ErrPlateNotInTree), test.ShouldBeTrue)
}

func TestNonRootAnchorResolvesWholeHierarchy(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rc := NewRotationContext(
		linearSequence(t, 802, 0, 0, 100, 60, -20, 15),
		linearSequence(t, 801, 802, 0, 50, -5, 110, 8),
		linearSequence(t, 701, 801, 0, 80, 33, 3, 21),
	)

	fromGlobe := BuildReconstructionTree(rc, 40, 0, nil, logger)
	want, err := fromGlobe.Reanchor(801)
	test.That(t, err, test.ShouldBeNil)

	direct := BuildReconstructionTree(rc, 40, 801, []PlateID{802, 0, 701}, logger)
	test.That(t, direct.Anchor(), test.ShouldEqual, PlateID(801))
	test.That(t, direct.Len(), test.ShouldEqual, 4)
	for _, p := range []PlateID{802, 0, 701} {
		got, ok := direct.Rotation(p)
		test.That(t, ok, test.ShouldBeTrue)
		expected, ok := want.Rotation(p)
		test.That(t, ok, test.ShouldBeTrue)
		rotationsEqual(t, got, expected)
	}
	anchorRot, ok := direct.Rotation(801)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, anchorRot.RepresentsIdentity(), test.ShouldBeTrue)

	// the globe seen from 801 undoes the 802 and 801 stage
	r801, _ := fromGlobe.Rotation(801)
	globe, _ := direct.Rotation(0)
	rotationsEqual(t, globe, r801.Inverse())

	t.Run("anchor chain undefined at time", func(t *testing.T) {
		// 801 has no sequence at 70 Ma, so only plates below it can resolve
		tree := BuildReconstructionTree(rc, 70, 801, []PlateID{802, 701}, logger)
		_, ok := tree.Rotation(802)
		test.That(t, ok, test.ShouldBeFalse)
		test.That(t, tree.Reason(802), test.ShouldNotBeNil)
		_, ok = tree.Rotation(701)
		test.That(t, ok, test.ShouldBeTrue)
		anchorRot, ok := tree.Rotation(801)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, anchorRot.RepresentsIdentity(), test.ShouldBeTrue)
	})
}

func TestResolverIgnoresLaterMutation(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rc := NewRotationContext(constantSequence(t, 802, 0, 0, 100, spatialmath.NewIdentityRotation()))
	resolver := NewResolver(rc, 10, 0, logger)
	rc.RemovePlate(802)
	_, err := resolver.Resolve(802)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resolver.Tree().Generation(), test.ShouldEqual, uint64(1))
}

func TestReconstructionTreeString(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rc := NewRotationContext(constantSequence(t, 801, 802, 0, 10, spatialmath.NewIdentityRotation()))
	tree := BuildReconstructionTree(rc, 5, 0, nil, logger)
	out := tree.String()
	test.That(t, out, test.ShouldContainSubstring, "anchor 0")
	test.That(t, out, test.ShouldContainSubstring, "no rotation history")
	test.That(t, out, test.ShouldContainSubstring, "resolved")

	// a tree of every plate knows other plates have no history
	test.That(t, errors.Is(tree.Reason(4242), ErrNoRotationHistory), test.ShouldBeTrue)
	partial := BuildReconstructionTree(rc, 5, 0, []PlateID{801}, logger)
	test.That(t, errors.Is(partial.Reason(4242), ErrPlateNotInTree), test.ShouldBeTrue)
}
