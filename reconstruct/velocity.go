package reconstruct

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tectonics/platerecon/referenceframe"
	"github.com/tectonics/platerecon/spatialmath"
)

// Velocity is the velocity of a point moving with a plate, in cm/yr.
type Velocity struct {
	Point spatialmath.LatLon
	Plate referenceframe.PlateID
	// Vector is geocentric.
	Vector r3.Vector
	// Colat and Lon are the colatitude (positive south) and longitude (positive east) components.
	Colat, Lon float64
	// Magnitude is the horizontal speed and Azimuth its direction in radians anticlockwise from east.
	Magnitude, Azimuth float64
}

// NewVelocity decomposes a geocentric velocity at point into local components.
func NewVelocity(point r3.Vector, plate referenceframe.PlateID, v r3.Vector) Velocity {
	colat, lon := spatialmath.VelocityColatLon(point, v)
	magnitude, azimuth := spatialmath.VelocityMagnitudeAngle(point, v)
	return Velocity{
		Point:     spatialmath.LatLonFromPoint(point),
		Plate:     plate,
		Vector:    v,
		Colat:     colat,
		Lon:       lon,
		Magnitude: magnitude,
		Azimuth:   azimuth,
	}
}

// plateVelocity computes the velocity at point of a plate between two trees.
func plateVelocity(point r3.Vector, plate referenceframe.PlateID, younger, older *referenceframe.ReconstructionTree) (Velocity, error) {
	r1, ok := younger.Rotation(plate)
	if !ok {
		return Velocity{}, errors.Wrapf(younger.Reason(plate), "no rotation at %g Ma", younger.Time())
	}
	r2, ok := older.Rotation(plate)
	if !ok {
		return Velocity{}, errors.Wrapf(older.Reason(plate), "no rotation at %g Ma", older.Time())
	}
	deltaTime := math.Abs(older.Time() - younger.Time())
	v := spatialmath.CalculateVelocityVectorOverInterval(point, r1, r2, deltaTime)
	return NewVelocity(point, plate, v), nil
}

// VelocityAt returns the velocity of point, given in the anchor frame at time t1, moving with plate
// between t1 and the older time t2. The two trees are taken from the tree cache or built
// concurrently, each by its own resolver.
func (o *Orchestrator) VelocityAt(
	ctx context.Context,
	point r3.Vector,
	plate referenceframe.PlateID,
	t1, t2 float64,
) (Velocity, error) {
	if t2 < t1 {
		t1, t2 = t2, t1
	}
	o.SyncRotations()
	if o.rotations.Len() == 0 {
		return Velocity{}, ErrNoRotationFeatures
	}
	anchor := o.Anchor()

	var younger, older *referenceframe.ReconstructionTree
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		younger = o.trees.Get(t1, anchor)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		older = o.trees.Get(t2, anchor)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Velocity{}, err
	}
	return plateVelocity(point, plate, younger, older)
}

// SpeedSummary summarizes the speeds of a velocity field in cm/yr.
type SpeedSummary struct {
	Count                  int
	Min, Max, Mean, Median float64
	StandardDeviation      float64
}

// VelocityField is the velocity of every reconstructed vertex of a reconstruction.
type VelocityField struct {
	Time      float64
	DeltaTime float64
	Anchor    referenceframe.PlateID
	Samples   []Velocity
	// Skipped counts vertices whose plate has no rotation at Time+DeltaTime.
	Skipped int
	Summary SpeedSummary
}

// ComputeVelocityField computes the velocity of every vertex of r between r's time and the time of
// older, which must be the later tree for the same anchor.
func ComputeVelocityField(r *Reconstruction, older *referenceframe.ReconstructionTree) (*VelocityField, error) {
	if older.Anchor() != r.Anchor() {
		return nil, errors.Errorf("velocity trees have different anchors %d and %d", r.Anchor(), older.Anchor())
	}
	field := &VelocityField{Time: r.Time(), DeltaTime: older.Time() - r.Time(), Anchor: r.Anchor()}
	speeds := []float64{}
	for _, rfg := range r.geometries {
		for _, p := range rfg.Geometry.Points() {
			v, err := plateVelocity(p, rfg.Feature.PlateID, r.tree, older)
			if err != nil {
				field.Skipped++
				continue
			}
			field.Samples = append(field.Samples, v)
			speeds = append(speeds, v.Vector.Norm())
		}
	}
	summary, err := summarizeSpeeds(speeds)
	if err != nil {
		return nil, err
	}
	field.Summary = summary
	return field, nil
}

func summarizeSpeeds(speeds []float64) (SpeedSummary, error) {
	if len(speeds) == 0 {
		return SpeedSummary{}, nil
	}
	data := stats.Float64Data(speeds)
	var (
		summary = SpeedSummary{Count: len(speeds)}
		err     error
	)
	if summary.Min, err = data.Min(); err != nil {
		return SpeedSummary{}, err
	}
	if summary.Max, err = data.Max(); err != nil {
		return SpeedSummary{}, err
	}
	if summary.Mean, err = data.Mean(); err != nil {
		return SpeedSummary{}, err
	}
	if summary.Median, err = data.Median(); err != nil {
		return SpeedSummary{}, err
	}
	if summary.StandardDeviation, err = data.StandardDeviation(); err != nil {
		return SpeedSummary{}, err
	}
	return summary, nil
}

// VelocityField computes the velocity field of the last reconstruction over deltaTime million
// years into the past.
func (o *Orchestrator) VelocityField(ctx context.Context, deltaTime float64) (*VelocityField, error) {
	r := o.Reconstruction()
	if r == nil {
		return nil, errors.New("nothing reconstructed yet")
	}
	if deltaTime <= 0 {
		return nil, errors.Errorf("velocity delta time must be positive, got %g", deltaTime)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	older := o.trees.Get(r.Time()+deltaTime, r.Anchor())
	return ComputeVelocityField(r, older)
}
