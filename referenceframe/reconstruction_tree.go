package referenceframe

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/tectonics/platerecon/spatialmath"
)

// ReconstructionTree maps each resolved plate to its rotation relative to the anchor plate at one
// reconstruction time. Plates that could not be resolved are recorded along with the reason. A
// tree is immutable once built and safe to share between goroutines.
type ReconstructionTree struct {
	anchor       PlateID
	time         float64
	rotations    map[PlateID]*spatialmath.FiniteRotation
	unresolvable map[PlateID]error
	generation   uint64
	// complete trees were asked for every plate with a rotation history.
	complete bool
}

// Anchor returns the plate every rotation in the tree is relative to.
func (tree *ReconstructionTree) Anchor() PlateID {
	return tree.anchor
}

// Time returns the reconstruction time in Ma.
func (tree *ReconstructionTree) Time() float64 {
	return tree.time
}

// Generation returns the rotation context generation the tree was built from.
func (tree *ReconstructionTree) Generation() uint64 {
	return tree.generation
}

// Rotation returns the rotation of plate relative to the anchor.
func (tree *ReconstructionTree) Rotation(plate PlateID) (*spatialmath.FiniteRotation, bool) {
	rot, ok := tree.rotations[plate]
	return rot, ok
}

// PlateIDs returns every resolved plate, sorted. The anchor is always included.
func (tree *ReconstructionTree) PlateIDs() []PlateID {
	return SortPlateIDs(lo.Keys(tree.rotations))
}

// Len returns the number of resolved plates.
func (tree *ReconstructionTree) Len() int {
	return len(tree.rotations)
}

// Unresolvable returns the plates found unresolvable while the tree was built, sorted.
func (tree *ReconstructionTree) Unresolvable() []PlateID {
	return SortPlateIDs(lo.Keys(tree.unresolvable))
}

// Reason returns why plate has no rotation in the tree, or nil if it has one. A tree built for
// every plate of the rotation context knows that any other plate has no rotation history; a tree
// built for chosen plates reports ErrPlateNotInTree for plates it was never asked about.
func (tree *ReconstructionTree) Reason(plate PlateID) error {
	if _, ok := tree.rotations[plate]; ok {
		return nil
	}
	if err, ok := tree.unresolvable[plate]; ok {
		return err
	}
	if tree.complete {
		return &UnresolvablePlateError{Plate: plate, Time: tree.time, Reason: ErrNoRotationHistory}
	}
	return errors.Wrapf(ErrPlateNotInTree, "plate %d", plate)
}

// Reanchor returns a tree relative to newAnchor, which must be resolved in this tree. Each
// rotation becomes R(newAnchor)^-1 * R(plate). Unresolvable plates stay unresolvable.
func (tree *ReconstructionTree) Reanchor(newAnchor PlateID) (*ReconstructionTree, error) {
	if newAnchor == tree.anchor {
		return tree, nil
	}
	anchorRot, ok := tree.rotations[newAnchor]
	if !ok {
		return nil, errors.Wrapf(ErrPlateNotInTree, "cannot reanchor to plate %d", newAnchor)
	}
	out := &ReconstructionTree{
		anchor:       newAnchor,
		time:         tree.time,
		generation:   tree.generation,
		complete:     tree.complete,
		rotations:    make(map[PlateID]*spatialmath.FiniteRotation, len(tree.rotations)),
		unresolvable: lo.Assign(tree.unresolvable),
	}
	for p, rot := range tree.rotations {
		if p == newAnchor {
			out.rotations[p] = spatialmath.NewIdentityRotation()
			continue
		}
		out.rotations[p] = spatialmath.Reanchor(anchorRot, rot)
	}
	return out, nil
}

// String renders the tree as a table of plates and Euler poles.
func (tree *ReconstructionTree) String() string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("reconstruction tree at %g Ma, anchor %d", tree.time, tree.anchor))
	t.AppendHeader(table.Row{"plate", "pole lat", "pole lon", "angle", "status"})
	for _, p := range tree.PlateIDs() {
		lat, lon, angle := tree.rotations[p].EulerPole()
		t.AppendRow(table.Row{
			p,
			fmt.Sprintf("%.4f", lat),
			fmt.Sprintf("%.4f", lon),
			fmt.Sprintf("%.4f", angle),
			"resolved",
		})
	}
	for _, p := range tree.Unresolvable() {
		t.AppendRow(table.Row{p, "", "", "", tree.unresolvable[p].Error()})
	}
	return t.Render()
}
