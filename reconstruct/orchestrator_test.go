package reconstruct

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/tectonics/platerecon/feature"
	"github.com/tectonics/platerecon/logging"
	"github.com/tectonics/platerecon/referenceframe"
	"github.com/tectonics/platerecon/spatialmath"
)

// 802 rotates 10 degrees about the north pole every 10 Ma; 801 rides on 802 until 50 Ma.
const testRotations = `
802 0.0 90.0 0.0 0.0 000
802 100.0 90.0 0.0 100.0 000
801 0.0 90.0 0.0 0.0 802
801 50.0 0.0 0.0 20.0 802
`

func testFileState(t *testing.T) *feature.FileState {
	t.Helper()
	rot, err := feature.ParseRotationFile(strings.NewReader(testRotations), "test.rot")
	test.That(t, err, test.ShouldBeNil)

	onAfrica := feature.NewFeature("afr", 802, spatialmath.NewPointGeometry(0, 0))
	onSAM := feature.NewFeature("sam", 801, spatialmath.NewPolylineGeometry([]spatialmath.LatLon{{Lat: 0, Lon: 10}, {Lat: 5, Lon: 10}}))
	young := feature.NewFeature("young", 802, spatialmath.NewPointGeometry(10, 10))
	young.ValidTime = feature.ValidTime{Begin: 20, End: 0}
	lost := feature.NewFeature("lost", 4242, spatialmath.NewPointGeometry(0, 0))
	empty := feature.NewFeature("empty", 802)

	fs := feature.NewFileState()
	fs.AddRotationCollection(rot)
	fs.AddFeatureCollection(&feature.FeatureCollection{
		Filename: "features.geojson",
		Features: []*feature.Feature{onAfrica, onSAM, young, lost, empty},
	})
	return fs
}

func TestReconstructToTime(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	o := NewOrchestrator(testFileState(t), logger)
	test.That(t, o.State(), test.ShouldEqual, Idle)

	r, err := o.ReconstructToTime(ctx, 30)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, o.State(), test.ShouldEqual, Done)
	test.That(t, o.Reconstruction(), test.ShouldEqual, r)
	test.That(t, r.Time(), test.ShouldEqual, 30.)
	test.That(t, r.Anchor(), test.ShouldEqual, referenceframe.GlobePlateID)

	// 30 degrees about the pole moves (0, 0) to (0, 30)
	afr := r.GeometriesOf("afr")
	test.That(t, len(afr), test.ShouldEqual, 1)
	ll := spatialmath.LatLonFromPoint(afr[0].Geometry.Points()[0])
	test.That(t, ll.Lat, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, ll.Lon, test.ShouldAlmostEqual, 30, 1e-9)
	test.That(t, afr[0].PresentDay.Points()[0], test.ShouldResemble, spatialmath.PointFromLatLon(0, 0))

	test.That(t, len(r.GeometriesOf("sam")), test.ShouldEqual, 1)

	for id, reason := range map[string]ExclusionReason{
		"young": NotValidAtTime,
		"lost":  PlateNotResolvable,
		"empty": NoGeometry,
	} {
		ex, ok := r.Exclusion(id)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, ex.Reason, test.ShouldEqual, reason)
		test.That(t, len(r.GeometriesOf(id)), test.ShouldEqual, 0)
	}
	lost, _ := r.Exclusion("lost")
	test.That(t, errors.Is(lost.Err, referenceframe.ErrNoRotationHistory), test.ShouldBeTrue)

	// at 70 Ma plate 801 has no rotation
	r, err = o.ReconstructToTime(ctx, 70)
	test.That(t, err, test.ShouldBeNil)
	ex, ok := r.Exclusion("sam")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ex.Reason, test.ShouldEqual, PlateNotResolvable)
	test.That(t, errors.Is(ex.Err, referenceframe.ErrNotDefinedAtTime), test.ShouldBeTrue)
	test.That(t, len(r.GeometriesOf("afr")), test.ShouldEqual, 1)
}

func TestIdentityReconstructionIsNotExclusion(t *testing.T) {
	o := NewOrchestrator(testFileState(t), logging.NewTestLogger(t))
	r, err := o.ReconstructToTime(context.Background(), 0)
	test.That(t, err, test.ShouldBeNil)
	afr := r.GeometriesOf("afr")
	test.That(t, len(afr), test.ShouldEqual, 1)
	test.That(t, afr[0].Rotation.RepresentsIdentity(), test.ShouldBeTrue)
	_, excluded := r.Exclusion("afr")
	test.That(t, excluded, test.ShouldBeFalse)
}

func TestReconstructIsIdempotent(t *testing.T) {
	ctx := context.Background()
	o := NewOrchestrator(testFileState(t), logging.NewTestLogger(t), WithInitialTime(40))
	first, err := o.Reconstruct(ctx)
	test.That(t, err, test.ShouldBeNil)
	second, err := o.Reconstruct(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second, test.ShouldNotEqual, first)
	test.That(t, second.Tree(), test.ShouldEqual, first.Tree())
	test.That(t, len(second.Geometries()), test.ShouldEqual, len(first.Geometries()))
	for i, g := range first.Geometries() {
		test.That(t, second.Geometries()[i].Geometry.Points(), test.ShouldResemble, g.Geometry.Points())
	}
	test.That(t, second.Excluded(), test.ShouldResemble, first.Excluded())
}

func TestChangedFlagsAndHooks(t *testing.T) {
	ctx := context.Background()
	o := NewOrchestrator(testFileState(t), logging.NewTestLogger(t), WithTopology("boundaries"))

	var calls []string
	o.AddHook(HookFuncs{
		Begin: func(o *Orchestrator, tm float64, anchor referenceframe.PlateID) {
			test.That(t, o.State(), test.ShouldEqual, BuildingTree)
			calls = append(calls, "begin1")
		},
		End: func(o *Orchestrator, event *EndReconstructionEvent) {
			test.That(t, event.Topology, test.ShouldEqual, "boundaries")
			test.That(t, len(event.ReconstructableCollections), test.ShouldEqual, 1)
			test.That(t, len(event.RotationCollections), test.ShouldEqual, 1)
			test.That(t, event.Reconstruction, test.ShouldNotBeNil)
			calls = append(calls, "end1")
		},
	})
	o.AddHook(HookFuncs{End: func(o *Orchestrator, event *EndReconstructionEvent) {
		calls = append(calls, "end2")
	}})

	type flags struct{ time, anchor bool }
	var got []flags
	o.OnReconstructed(func(r *Reconstruction, timeChanged, anchorChanged bool) {
		got = append(got, flags{timeChanged, anchorChanged})
	})

	_, err := o.ReconstructToTime(ctx, 10)
	test.That(t, err, test.ShouldBeNil)
	_, err = o.ReconstructToTime(ctx, 10+1e-12)
	test.That(t, err, test.ShouldBeNil)
	_, err = o.ReconstructWithAnchor(ctx, 802)
	test.That(t, err, test.ShouldBeNil)
	_, err = o.ReconstructWithAnchor(ctx, 802)
	test.That(t, err, test.ShouldBeNil)
	_, err = o.Reconstruct(ctx)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, got, test.ShouldResemble, []flags{
		{true, false},
		{false, false},
		{false, true},
		{false, false},
		{false, false},
	})
	test.That(t, calls[:3], test.ShouldResemble, []string{"begin1", "end1", "end2"})
	test.That(t, len(calls), test.ShouldEqual, 15)
	test.That(t, o.Anchor(), test.ShouldEqual, referenceframe.PlateID(802))
}

func TestReconstructWithAnchor(t *testing.T) {
	ctx := context.Background()
	o := NewOrchestrator(testFileState(t), logging.NewTestLogger(t), WithInitialTime(30))
	r, err := o.ReconstructWithAnchor(ctx, 802)
	test.That(t, err, test.ShouldBeNil)

	// features on the anchor plate stay put
	afr := r.GeometriesOf("afr")
	test.That(t, afr[0].Rotation.RepresentsIdentity(), test.ShouldBeTrue)
	ll := spatialmath.LatLonFromPoint(afr[0].Geometry.Points()[0])
	test.That(t, ll.Lon, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestReconstructWithNonRootAnchor(t *testing.T) {
	ctx := context.Background()
	o := NewOrchestrator(testFileState(t), logging.NewTestLogger(t), WithInitialTime(30))
	globe, err := o.Reconstruct(ctx)
	test.That(t, err, test.ShouldBeNil)
	from801, err := globe.Tree().Reanchor(801)
	test.That(t, err, test.ShouldBeNil)

	r, err := o.ReconstructWithAnchor(ctx, 801)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Anchor(), test.ShouldEqual, referenceframe.PlateID(801))

	// afr sits on 802, the fixed plate of the anchor
	afr := r.GeometriesOf("afr")
	test.That(t, afr, test.ShouldHaveLength, 1)
	want, ok := from801.Rotation(802)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, spatialmath.RotationsAlmostEqual(afr[0].Rotation, want, 1e-9), test.ShouldBeTrue)

	sam := r.GeometriesOf("sam")
	test.That(t, sam, test.ShouldHaveLength, 1)
	test.That(t, sam[0].Rotation.RepresentsIdentity(), test.ShouldBeTrue)
}

func TestFailedPassKeepsTimeAndAnchor(t *testing.T) {
	ctx := context.Background()
	fs := testFileState(t)
	o := NewOrchestrator(fs, logging.NewTestLogger(t))

	type flags struct{ time, anchor bool }
	var got []flags
	o.OnReconstructed(func(r *Reconstruction, timeChanged, anchorChanged bool) {
		got = append(got, flags{timeChanged, anchorChanged})
	})
	_, err := o.ReconstructToTime(ctx, 10)
	test.That(t, err, test.ShouldBeNil)

	fs.SetActive("features.geojson", false)
	_, err = o.ReconstructToTime(ctx, 20)
	test.That(t, errors.Is(err, ErrNoReconstructableFeatures), test.ShouldBeTrue)
	test.That(t, o.Time(), test.ShouldEqual, 10.)
	_, err = o.ReconstructWithAnchor(ctx, 802)
	test.That(t, errors.Is(err, ErrNoReconstructableFeatures), test.ShouldBeTrue)
	test.That(t, o.Anchor(), test.ShouldEqual, referenceframe.GlobePlateID)

	fs.SetActive("features.geojson", true)
	r, err := o.ReconstructToTime(ctx, 20)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Time(), test.ShouldEqual, 20.)
	test.That(t, o.Time(), test.ShouldEqual, 20.)
	_, err = o.ReconstructWithAnchor(ctx, 802)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, got, test.ShouldResemble, []flags{
		{true, false},
		{true, false},
		{false, true},
	})
}

func TestRefusedPassRunsNoHooks(t *testing.T) {
	fs := testFileState(t)
	o := NewOrchestrator(fs, logging.NewTestLogger(t))
	var calls int
	o.AddHook(HookFuncs{
		Begin: func(o *Orchestrator, tm float64, anchor referenceframe.PlateID) { calls++ },
		End:   func(o *Orchestrator, event *EndReconstructionEvent) { calls++ },
	})

	fs.SetActive("test.rot", false)
	_, err := o.Reconstruct(context.Background())
	test.That(t, errors.Is(err, ErrNoRotationFeatures), test.ShouldBeTrue)

	fs.SetActive("test.rot", true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Reconstruct(ctx)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, calls, test.ShouldEqual, 0)
}

func TestMissingInputKeepsPreviousReconstruction(t *testing.T) {
	ctx := context.Background()
	fs := testFileState(t)
	o := NewOrchestrator(fs, logging.NewTestLogger(t))
	r, err := o.ReconstructToTime(ctx, 10)
	test.That(t, err, test.ShouldBeNil)

	fs.SetActive("features.geojson", false)
	_, err = o.ReconstructToTime(ctx, 20)
	test.That(t, errors.Is(err, ErrNoReconstructableFeatures), test.ShouldBeTrue)
	test.That(t, o.Reconstruction(), test.ShouldEqual, r)
	test.That(t, o.State(), test.ShouldEqual, Idle)

	fs.SetActive("features.geojson", true)
	fs.SetActive("test.rot", false)
	_, err = o.Reconstruct(ctx)
	test.That(t, errors.Is(err, ErrNoRotationFeatures), test.ShouldBeTrue)
	test.That(t, o.Reconstruction(), test.ShouldEqual, r)
}

func TestReloadedRotationsInvalidateTrees(t *testing.T) {
	ctx := context.Background()
	fs := testFileState(t)
	o := NewOrchestrator(fs, logging.NewTestLogger(t))
	r, err := o.ReconstructToTime(ctx, 30)
	test.That(t, err, test.ShouldBeNil)

	faster, err := feature.ParseRotationFile(strings.NewReader("802 0.0 90.0 0.0 0.0 000\n802 100.0 90.0 0.0 150.0 000\n"), "test.rot")
	test.That(t, err, test.ShouldBeNil)
	fs.AddRotationCollection(faster)

	r2, err := o.Reconstruct(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r2.Tree(), test.ShouldNotEqual, r.Tree())
	ll := spatialmath.LatLonFromPoint(r2.GeometriesOf("afr")[0].Geometry.Points()[0])
	test.That(t, ll.Lon, test.ShouldAlmostEqual, 45, 1e-9)
}

func TestReconstructCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := NewOrchestrator(testFileState(t), logging.NewTestLogger(t))
	_, err := o.Reconstruct(ctx)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, o.Reconstruction(), test.ShouldBeNil)
}

func TestReconstructionGeoJSON(t *testing.T) {
	o := NewOrchestrator(testFileState(t), logging.NewTestLogger(t))
	r, err := o.ReconstructToTime(context.Background(), 30)
	test.That(t, err, test.ShouldBeNil)
	fc, err := r.GeoJSON()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(fc), test.ShouldEqual, 2)
	test.That(t, fc[0].ID, test.ShouldEqual, "afr")
	test.That(t, fc[0].Properties["RECON_TIME"], test.ShouldEqual, 30.)
	test.That(t, fc[0].Properties[feature.PropertyPlateID], test.ShouldEqual, uint32(802))
}

func TestOrchestratorDefaultsToGlobalLogger(t *testing.T) {
	o := NewOrchestrator(testFileState(t), nil)
	r, err := o.ReconstructToTime(context.Background(), 10)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Time(), test.ShouldEqual, 10.)
}
