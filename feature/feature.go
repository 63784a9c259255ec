// Package feature holds the data a reconstruction consumes: reconstructable features with their
// plate ids and geometries, rotation collections read from rotation files, and the FileState that
// tracks which loaded collections are active.
package feature

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/tectonics/platerecon/referenceframe"
	"github.com/tectonics/platerecon/spatialmath"
	"github.com/tectonics/platerecon/utils"
)

var (
	// DistantPast is a time older than any reconstruction time.
	DistantPast = math.Inf(1)
	// DistantFuture is a time younger than any reconstruction time.
	DistantFuture = math.Inf(-1)
)

// ValidTime is the period a feature exists for. Begin is the older bound (its appearance) and End
// the younger one, both in Ma.
type ValidTime struct {
	Begin float64
	End   float64
}

// AlwaysValid is the valid time of a feature with no time limits.
func AlwaysValid() ValidTime {
	return ValidTime{Begin: DistantPast, End: DistantFuture}
}

// IsValidAt reports whether t lies within the valid time.
func (vt ValidTime) IsValidAt(t, epsilon float64) bool {
	return utils.RealLessOrEqual(vt.End, t, epsilon) && utils.RealLessOrEqual(t, vt.Begin, epsilon)
}

func (vt ValidTime) String() string {
	return fmt.Sprintf("[%g, %g]", vt.Begin, vt.End)
}

// Feature is a reconstructable feature: present day geometries attached to one plate.
type Feature struct {
	ID         string
	Name       string
	PlateID    referenceframe.PlateID
	ValidTime  ValidTime
	Geometries []spatialmath.Geometry
	Properties map[string]interface{}
}

// NewFeature returns an always valid feature.
func NewFeature(id string, plate referenceframe.PlateID, geometries ...spatialmath.Geometry) *Feature {
	return &Feature{
		ID:         id,
		PlateID:    plate,
		ValidTime:  AlwaysValid(),
		Geometries: geometries,
		Properties: map[string]interface{}{},
	}
}

func (f *Feature) String() string {
	if f.Name != "" {
		return fmt.Sprintf("%s (%s) plate %d", f.ID, f.Name, f.PlateID)
	}
	return fmt.Sprintf("%s plate %d", f.ID, f.PlateID)
}

// FeatureCollection is a set of reconstructable features loaded from one file.
type FeatureCollection struct {
	Filename string
	Features []*Feature
}

// PlateIDs returns the distinct plates referenced by the collection's features, sorted.
func (fc *FeatureCollection) PlateIDs() []referenceframe.PlateID {
	ids := lo.Map(fc.Features, func(f *Feature, _ int) referenceframe.PlateID { return f.PlateID })
	return referenceframe.SortPlateIDs(lo.Uniq(ids))
}

// RotationCollection is the rotation sequences loaded from one rotation file.
type RotationCollection struct {
	Filename  string
	Sequences []*referenceframe.RotationSequence
}
