// Package referenceframe resolves plate circuits: per-plate rotation histories are chained up
// their fixed plates until the anchor plate is reached, producing a ReconstructionTree of
// composed rotations for one reconstruction time and anchor.
package referenceframe

import (
	"sort"
	"strconv"
)

// PlateID identifies a rigid plate.
type PlateID uint32

// GlobePlateID is the root of most plate circuits. Its rotation is the identity whenever it is the
// anchor.
const GlobePlateID PlateID = 0

func (id PlateID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// SortPlateIDs sorts plate ids in ascending order, in place, and returns them.
func SortPlateIDs(ids []PlateID) []PlateID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
