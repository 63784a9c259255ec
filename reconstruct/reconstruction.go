// Package reconstruct rotates reconstructable features to a past geological time. An Orchestrator
// gathers the active collections from a FileState, builds a ReconstructionTree and applies each
// plate's rotation to the geometries of the features on that plate.
package reconstruct

import (
	"github.com/peterstace/simplefeatures/geom"
	"github.com/pkg/errors"

	"github.com/tectonics/platerecon/feature"
	"github.com/tectonics/platerecon/referenceframe"
	"github.com/tectonics/platerecon/spatialmath"
	"github.com/tectonics/platerecon/utils"
)

// ExclusionReason says why a feature is missing from a Reconstruction.
type ExclusionReason int

// The reasons a feature may be excluded.
const (
	// PlateNotResolvable means the feature's plate has no rotation at the reconstruction time.
	PlateNotResolvable ExclusionReason = iota
	// NotValidAtTime means the feature does not exist at the reconstruction time.
	NotValidAtTime
	// NoGeometry means the feature has nothing to reconstruct.
	NoGeometry
)

func (r ExclusionReason) String() string {
	switch r {
	case PlateNotResolvable:
		return "plate not resolvable"
	case NotValidAtTime:
		return "not valid at time"
	case NoGeometry:
		return "no geometry"
	}
	return "unknown"
}

// ReconstructedFeatureGeometry is one geometry of a feature rotated to the reconstruction time.
type ReconstructedFeatureGeometry struct {
	Feature    *feature.Feature
	PresentDay spatialmath.Geometry
	Geometry   spatialmath.Geometry
	Rotation   *spatialmath.FiniteRotation
}

// ExcludedFeature is a feature that was not reconstructed. Err carries the plate's resolution
// failure for PlateNotResolvable.
type ExcludedFeature struct {
	Feature *feature.Feature
	Reason  ExclusionReason
	Err     error
}

// Reconstruction is the result of one reconstruct pass: the tree used and the reconstructed
// geometries, in feature collection order.
type Reconstruction struct {
	tree       *referenceframe.ReconstructionTree
	geometries []*ReconstructedFeatureGeometry
	excluded   []ExcludedFeature
}

// Tree returns the tree the geometries were rotated with.
func (r *Reconstruction) Tree() *referenceframe.ReconstructionTree {
	return r.tree
}

// Time returns the reconstruction time.
func (r *Reconstruction) Time() float64 {
	return r.tree.Time()
}

// Anchor returns the anchor plate.
func (r *Reconstruction) Anchor() referenceframe.PlateID {
	return r.tree.Anchor()
}

// Geometries returns every reconstructed geometry.
func (r *Reconstruction) Geometries() []*ReconstructedFeatureGeometry {
	return r.geometries
}

// Excluded returns every feature left out of the reconstruction.
func (r *Reconstruction) Excluded() []ExcludedFeature {
	return r.excluded
}

// GeometriesOf returns the reconstructed geometries of the feature with the given id. A feature
// that is reconstructed has at least one; an excluded feature has none.
func (r *Reconstruction) GeometriesOf(featureID string) []*ReconstructedFeatureGeometry {
	var out []*ReconstructedFeatureGeometry
	for _, g := range r.geometries {
		if g.Feature.ID == featureID {
			out = append(out, g)
		}
	}
	return out
}

// Exclusion returns why the feature with the given id was excluded.
func (r *Reconstruction) Exclusion(featureID string) (ExcludedFeature, bool) {
	for _, e := range r.excluded {
		if e.Feature.ID == featureID {
			return e, true
		}
	}
	return ExcludedFeature{}, false
}

// GeoJSON returns the reconstructed geometries as GeoJSON features carrying the source feature's
// properties plus the reconstruction time and anchor.
func (r *Reconstruction) GeoJSON() (geom.GeoJSONFeatureCollection, error) {
	out := make(geom.GeoJSONFeatureCollection, 0, len(r.geometries))
	for _, rfg := range r.geometries {
		g, err := feature.GeomFromGeometry(rfg.Geometry)
		if err != nil {
			return nil, errors.Wrapf(err, "feature %s", rfg.Feature.ID)
		}
		props := make(map[string]interface{}, len(rfg.Feature.Properties)+3)
		for k, v := range rfg.Feature.Properties {
			props[k] = v
		}
		props[feature.PropertyPlateID] = uint32(rfg.Feature.PlateID)
		props["RECON_TIME"] = r.Time()
		props["ANCHOR"] = uint32(r.Anchor())
		out = append(out, geom.GeoJSONFeature{Geometry: g, ID: rfg.Feature.ID, Properties: props})
	}
	return out, nil
}

// ReconstructGeometry rotates every point of a present day geometry by the plate's rotation.
func ReconstructGeometry(g spatialmath.Geometry, rotation *spatialmath.FiniteRotation) spatialmath.Geometry {
	return g.Rotate(rotation)
}

// ReconstructFeatures reconstructs every feature of the collections with the rotations in tree.
// Features whose plate is absent from the tree, that are not valid at the tree's time or that
// carry no geometry are recorded as excluded.
func ReconstructFeatures(
	tree *referenceframe.ReconstructionTree,
	collections []*feature.FeatureCollection,
	epsilon float64,
) *Reconstruction {
	if epsilon <= 0 {
		epsilon = utils.DefaultTimeEpsilon
	}
	r := &Reconstruction{tree: tree}
	for _, fc := range collections {
		for _, f := range fc.Features {
			if !f.ValidTime.IsValidAt(tree.Time(), epsilon) {
				r.excluded = append(r.excluded, ExcludedFeature{Feature: f, Reason: NotValidAtTime})
				continue
			}
			if len(f.Geometries) == 0 {
				r.excluded = append(r.excluded, ExcludedFeature{Feature: f, Reason: NoGeometry})
				continue
			}
			rot, ok := tree.Rotation(f.PlateID)
			if !ok {
				r.excluded = append(r.excluded, ExcludedFeature{Feature: f, Reason: PlateNotResolvable, Err: tree.Reason(f.PlateID)})
				continue
			}
			for _, g := range f.Geometries {
				r.geometries = append(r.geometries, &ReconstructedFeatureGeometry{
					Feature:    f,
					PresentDay: g,
					Geometry:   ReconstructGeometry(g, rot),
					Rotation:   rot,
				})
			}
		}
	}
	return r
}
