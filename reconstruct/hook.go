package reconstruct

import (
	"github.com/tectonics/platerecon/feature"
	"github.com/tectonics/platerecon/referenceframe"
)

// EndReconstructionEvent is passed to hooks once a reconstruction is assembled.
type EndReconstructionEvent struct {
	Reconstruction             *Reconstruction
	Time                       float64
	Anchor                     referenceframe.PlateID
	ReconstructableCollections []*feature.FeatureCollection
	RotationCollections        []*feature.RotationCollection
	// Topology is the auxiliary topology resolution object set with WithTopology, if any.
	Topology interface{}
}

// A Hook is invoked around every reconstruct pass, letting downstream layers piggyback on it.
// Hooks run in registration order on the goroutine performing the reconstruction. Begin runs only
// once the pass has its inputs; a pass canceled after Begin ends without EndReconstruction. During
// Begin the orchestrator's Time and Anchor still report the last successful reconstruct.
type Hook interface {
	BeginReconstruction(o *Orchestrator, time float64, anchor referenceframe.PlateID)
	EndReconstruction(o *Orchestrator, event *EndReconstructionEvent)
}

// HookFuncs adapts plain functions to a Hook. Nil functions are skipped.
type HookFuncs struct {
	Begin func(o *Orchestrator, time float64, anchor referenceframe.PlateID)
	End   func(o *Orchestrator, event *EndReconstructionEvent)
}

// BeginReconstruction calls Begin.
func (h HookFuncs) BeginReconstruction(o *Orchestrator, time float64, anchor referenceframe.PlateID) {
	if h.Begin != nil {
		h.Begin(o, time, anchor)
	}
}

// EndReconstruction calls End.
func (h HookFuncs) EndReconstruction(o *Orchestrator, event *EndReconstructionEvent) {
	if h.End != nil {
		h.End(o, event)
	}
}

// ReconstructedListener is notified after every successful reconstruct pass with whether the
// reconstruction time and the anchor plate changed.
type ReconstructedListener func(r *Reconstruction, timeChanged, anchorChanged bool)
