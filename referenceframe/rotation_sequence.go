package referenceframe

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/tectonics/platerecon/spatialmath"
	"github.com/tectonics/platerecon/utils"
)

// TimeSample is a total rotation of the moving plate relative to the fixed plate at one time (Ma).
type TimeSample struct {
	Time     float64
	Rotation *spatialmath.FiniteRotation
	Comment  string
	// Disabled samples are kept for round tripping but ignored by time lookups.
	Disabled bool
}

// RotationSequence is the time sampled rotation of one moving plate relative to one fixed plate.
// It is defined over the closed interval spanned by its enabled samples.
type RotationSequence struct {
	movingPlate PlateID
	fixedPlate  PlateID
	samples     []TimeSample
	enabled     []TimeSample
	epsilon     float64
}

// NewRotationSequence sorts the samples by time and builds the sequence. At least one sample is
// required. Samples whose time matches an earlier sample are rejected.
func NewRotationSequence(moving, fixed PlateID, samples []TimeSample) (*RotationSequence, error) {
	if len(samples) == 0 {
		return nil, errors.Wrapf(ErrEmptySequence, "moving plate %d fixed plate %d", moving, fixed)
	}
	sorted := append([]TimeSample{}, samples...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	seq := &RotationSequence{movingPlate: moving, fixedPlate: fixed, samples: sorted, epsilon: utils.DefaultTimeEpsilon}
	for i, s := range sorted {
		if s.Rotation == nil {
			return nil, errors.Errorf("moving plate %d: sample at %g Ma has no rotation", moving, s.Time)
		}
		if s.Disabled {
			continue
		}
		if n := len(seq.enabled); n > 0 && utils.RealEqual(seq.enabled[n-1].Time, s.Time, seq.epsilon) {
			return nil, errors.Errorf("moving plate %d: duplicate sample at %g Ma (sample %d)", moving, s.Time, i)
		}
		seq.enabled = append(seq.enabled, s)
	}
	return seq, nil
}

// MovingPlate returns the plate this sequence rotates.
func (seq *RotationSequence) MovingPlate() PlateID {
	return seq.movingPlate
}

// FixedPlate returns the plate the sequence's rotations are relative to.
func (seq *RotationSequence) FixedPlate() PlateID {
	return seq.fixedPlate
}

// Samples returns every sample, including disabled ones, sorted by time.
func (seq *RotationSequence) Samples() []TimeSample {
	return append([]TimeSample{}, seq.samples...)
}

// TimeWindow returns the youngest and oldest enabled sample times. ok is false if every sample is
// disabled, in which case the sequence is never defined.
func (seq *RotationSequence) TimeWindow() (youngest, oldest float64, ok bool) {
	if len(seq.enabled) == 0 {
		return 0, 0, false
	}
	return seq.enabled[0].Time, seq.enabled[len(seq.enabled)-1].Time, true
}

// IsDefinedAtTime reports whether t lies within the sequence's time window.
func (seq *RotationSequence) IsDefinedAtTime(t float64) bool {
	youngest, oldest, ok := seq.TimeWindow()
	return ok && utils.RealInClosedInterval(t, youngest, oldest, seq.epsilon)
}

// FiniteRotationAtTime returns the rotation at t. Sample times return the sample's rotation;
// times between samples are interpolated by slerp between the bracketing samples.
func (seq *RotationSequence) FiniteRotationAtTime(t float64) (*spatialmath.FiniteRotation, error) {
	if !seq.IsDefinedAtTime(t) {
		return nil, errors.Wrapf(ErrNotDefinedAtTime, "moving plate %d fixed plate %d at %g Ma", seq.movingPlate, seq.fixedPlate, t)
	}
	idx := sort.Search(len(seq.enabled), func(i int) bool {
		return utils.RealLessOrEqual(t, seq.enabled[i].Time, seq.epsilon)
	})
	if idx == len(seq.enabled) {
		// t is within epsilon above the oldest sample
		idx--
	}
	younger := seq.enabled[max(idx-1, 0)]
	older := seq.enabled[idx]
	if utils.RealEqual(t, older.Time, seq.epsilon) {
		return older.Rotation, nil
	}
	return spatialmath.Interpolate(younger.Rotation, older.Rotation, younger.Time, older.Time, t, older.Rotation.AxisHint()), nil
}

func (seq *RotationSequence) String() string {
	youngest, oldest, _ := seq.TimeWindow()
	return fmt.Sprintf("%d rel %d [%g, %g] Ma (%d samples)", seq.movingPlate, seq.fixedPlate, youngest, oldest, len(seq.samples))
}
