package referenceframe

import (
	"sort"
)

// RotationHistory is every rotation sequence of one moving plate, ordered by the youngest time of
// each sequence. Consecutive sequences with different fixed plates describe crossovers.
type RotationHistory struct {
	movingPlate PlateID
	sequences   []*RotationSequence
}

// NewRotationHistory builds a history from sequences that all share the same moving plate.
func NewRotationHistory(moving PlateID, sequences ...*RotationSequence) *RotationHistory {
	h := &RotationHistory{movingPlate: moving}
	return h.with(sequences...)
}

// with returns a new history holding this history's sequences plus the given ones.
func (h *RotationHistory) with(sequences ...*RotationSequence) *RotationHistory {
	all := append(append([]*RotationSequence{}, h.sequences...), sequences...)
	sort.SliceStable(all, func(i, j int) bool {
		yi, _, _ := all[i].TimeWindow()
		yj, _, _ := all[j].TimeWindow()
		return yi < yj
	})
	return &RotationHistory{movingPlate: h.movingPlate, sequences: all}
}

// MovingPlate returns the plate this history rotates.
func (h *RotationHistory) MovingPlate() PlateID {
	return h.movingPlate
}

// Sequences returns the sequences ordered by their youngest time.
func (h *RotationHistory) Sequences() []*RotationSequence {
	return append([]*RotationSequence{}, h.sequences...)
}

// IsDefinedAtTime reports whether any sequence covers t.
func (h *RotationHistory) IsDefinedAtTime(t float64) bool {
	_, ok := h.AtTime(t)
	return ok
}

// AtTime returns the sequence covering t. Where sequences meet at a crossover time, the one with
// the younger window wins.
func (h *RotationHistory) AtTime(t float64) (*RotationSequence, bool) {
	for _, seq := range h.sequences {
		if seq.IsDefinedAtTime(t) {
			return seq, true
		}
	}
	return nil, false
}
