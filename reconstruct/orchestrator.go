package reconstruct

import (
	"context"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/tectonics/platerecon/feature"
	"github.com/tectonics/platerecon/logging"
	"github.com/tectonics/platerecon/referenceframe"
	"github.com/tectonics/platerecon/utils"
)

var (
	// ErrNoReconstructableFeatures is returned when no active feature collection has a feature.
	ErrNoReconstructableFeatures = errors.New("no reconstructable features loaded")
	// ErrNoRotationFeatures is returned when no active rotation collection has a sequence.
	ErrNoRotationFeatures = errors.New("no rotation features loaded")
)

// State is the phase of the orchestrator's reconstruct pass.
type State int

// The orchestrator phases.
const (
	Idle State = iota
	BuildingTree
	ReconstructingGeometries
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case BuildingTree:
		return "building tree"
	case ReconstructingGeometries:
		return "reconstructing geometries"
	case Done:
		return "done"
	}
	return "unknown"
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeEpsilon sets the tolerance used to compare reconstruction times.
func WithTimeEpsilon(epsilon float64) Option {
	return func(o *Orchestrator) {
		if epsilon > 0 {
			o.epsilon = epsilon
		}
	}
}

// WithTreeCacheSize sets how many reconstruction trees are kept.
func WithTreeCacheSize(size int) Option {
	return func(o *Orchestrator) {
		o.cacheSize = size
	}
}

// WithInitialTime sets the reconstruction time before the first reconstruct.
func WithInitialTime(t float64) Option {
	return func(o *Orchestrator) {
		o.time = t
	}
}

// WithAnchor sets the anchor plate before the first reconstruct.
func WithAnchor(anchor referenceframe.PlateID) Option {
	return func(o *Orchestrator) {
		o.anchor = anchor
	}
}

// WithTopology sets the auxiliary topology resolution object handed to hooks.
func WithTopology(topology interface{}) Option {
	return func(o *Orchestrator) {
		o.topology = topology
	}
}

// Orchestrator drives reconstructions of the active collections of a FileState. Reconstruct passes
// are serialized: each runs to completion before the next one starts. Hooks and listeners may call
// the orchestrator's accessors but must not start another pass.
type Orchestrator struct {
	fileState *feature.FileState
	logger    logging.Logger
	epsilon   float64
	cacheSize int
	topology  interface{}

	rotations *referenceframe.RotationContext
	trees     *referenceframe.TreeCache

	passMu         sync.Mutex
	loadedRotation []*feature.RotationCollection

	mu        sync.Mutex
	time      float64
	anchor    referenceframe.PlateID
	state     State
	current   *Reconstruction
	hooks     []Hook
	listeners []ReconstructedListener
}

// NewOrchestrator returns an idle orchestrator over the given file state. A nil logger logs to the
// global logger.
func NewOrchestrator(fileState *feature.FileState, logger logging.Logger, opts ...Option) *Orchestrator {
	if fileState == nil {
		panic("reconstruct: nil file state")
	}
	if logger == nil {
		logger = logging.Global().Sublogger("reconstruct")
	}
	o := &Orchestrator{
		fileState: fileState,
		logger:    logger,
		epsilon:   utils.DefaultTimeEpsilon,
		cacheSize: referenceframe.DefaultTreeCacheSize,
		rotations: referenceframe.NewRotationContext(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.trees = referenceframe.NewTreeCache(o.rotations, o.cacheSize, o.epsilon, logger.Sublogger("trees"))
	return o
}

// AddHook registers a hook. Hooks run in registration order.
func (o *Orchestrator) AddHook(h Hook) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hooks = append(o.hooks, h)
}

// OnReconstructed registers a listener notified after every successful reconstruct.
func (o *Orchestrator) OnReconstructed(l ReconstructedListener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, l)
}

// Time returns the current reconstruction time.
func (o *Orchestrator) Time() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.time
}

// Anchor returns the current anchor plate.
func (o *Orchestrator) Anchor() referenceframe.PlateID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.anchor
}

// State returns the phase of the current or last reconstruct pass.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Reconstruction returns the last successful reconstruction, or nil if there is none.
func (o *Orchestrator) Reconstruction() *Reconstruction {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// RotationContext returns the rotation histories loaded from the active rotation collections.
func (o *Orchestrator) RotationContext() *referenceframe.RotationContext {
	return o.rotations
}

// TreeCache returns the cache of reconstruction trees.
func (o *Orchestrator) TreeCache() *referenceframe.TreeCache {
	return o.trees
}

// FileState returns the file state the orchestrator reconstructs.
func (o *Orchestrator) FileState() *feature.FileState {
	return o.fileState
}

// ReconstructToTime reconstructs at t. The reconstruction always runs; listeners are told whether
// t differs from the time of the last successful reconstruct. The time is kept only if the pass
// succeeds.
func (o *Orchestrator) ReconstructToTime(ctx context.Context, t float64) (*Reconstruction, error) {
	o.passMu.Lock()
	defer o.passMu.Unlock()
	return o.reconstruct(ctx, t, o.Anchor())
}

// ReconstructWithAnchor reconstructs relative to anchor. The reconstruction always runs; listeners
// are told whether the anchor differs from the one of the last successful reconstruct. The anchor
// is kept only if the pass succeeds.
func (o *Orchestrator) ReconstructWithAnchor(ctx context.Context, anchor referenceframe.PlateID) (*Reconstruction, error) {
	o.passMu.Lock()
	defer o.passMu.Unlock()
	return o.reconstruct(ctx, o.Time(), anchor)
}

// Reconstruct reconstructs at the current time and anchor.
func (o *Orchestrator) Reconstruct(ctx context.Context) (*Reconstruction, error) {
	o.passMu.Lock()
	defer o.passMu.Unlock()
	return o.reconstruct(ctx, o.Time(), o.Anchor())
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// reconstruct runs one pass at t relative to anchor. A pass refused for missing input or an already
// done ctx runs no hooks. On failure the previous reconstruction, time and anchor are kept. Callers
// hold passMu.
func (o *Orchestrator) reconstruct(ctx context.Context, t float64, anchor referenceframe.PlateID) (*Reconstruction, error) {
	reconstructable := o.fileState.ActiveReconstructableCollections()
	rotations := o.fileState.ActiveRotationCollections()
	if !anyFeatures(reconstructable) {
		o.setState(Idle)
		return nil, ErrNoReconstructableFeatures
	}
	if !anySequences(rotations) {
		o.setState(Idle)
		return nil, ErrNoRotationFeatures
	}
	if err := ctx.Err(); err != nil {
		o.setState(Idle)
		return nil, err
	}

	o.mu.Lock()
	timeChanged := !utils.RealEqual(t, o.time, o.epsilon)
	anchorChanged := anchor != o.anchor
	hooks := slices.Clone(o.hooks)
	listeners := slices.Clone(o.listeners)
	o.state = BuildingTree
	o.mu.Unlock()

	for _, h := range hooks {
		h.BeginReconstruction(o, t, anchor)
	}

	o.syncRotations(rotations)
	if err := ctx.Err(); err != nil {
		o.setState(Idle)
		return nil, err
	}

	tree := o.trees.Get(t, anchor)
	o.setState(ReconstructingGeometries)
	if err := ctx.Err(); err != nil {
		o.setState(Idle)
		return nil, err
	}
	r := ReconstructFeatures(tree, reconstructable, o.epsilon)

	o.mu.Lock()
	o.current = r
	o.time = t
	o.anchor = anchor
	o.state = Done
	o.mu.Unlock()

	if len(r.excluded) > 0 {
		o.logger.CDebugw(ctx, "features excluded from reconstruction", "time", t, "anchor", anchor, "excluded", len(r.excluded))
	}
	o.logger.Infow("reconstructed",
		"time", t,
		"anchor", anchor,
		"features", len(r.geometries),
		"excluded", len(r.excluded),
		"plates", tree.Len(),
	)

	event := &EndReconstructionEvent{
		Reconstruction:             r,
		Time:                       t,
		Anchor:                     anchor,
		ReconstructableCollections: reconstructable,
		RotationCollections:        rotations,
		Topology:                   o.topology,
	}
	for _, h := range hooks {
		h.EndReconstruction(o, event)
	}
	for _, l := range listeners {
		l(r, timeChanged, anchorChanged)
	}
	return r, nil
}

// SyncRotations loads the active rotation collections into the rotation context if they changed
// since the last reconstruct.
func (o *Orchestrator) SyncRotations() {
	o.passMu.Lock()
	defer o.passMu.Unlock()
	o.syncRotations(o.fileState.ActiveRotationCollections())
}

func (o *Orchestrator) syncRotations(active []*feature.RotationCollection) {
	if slices.Equal(active, o.loadedRotation) {
		return
	}
	var sequences []*referenceframe.RotationSequence
	for _, rc := range active {
		sequences = append(sequences, rc.Sequences...)
	}
	o.rotations.ReplaceSequences(sequences...)
	o.trees.Invalidate()
	o.loadedRotation = active
	o.logger.Debugw("loaded rotation collections", "collections", len(active), "sequences", len(sequences), "plates", o.rotations.Len())
}

func anyFeatures(collections []*feature.FeatureCollection) bool {
	return lo.SomeBy(collections, func(fc *feature.FeatureCollection) bool { return len(fc.Features) > 0 })
}

func anySequences(collections []*feature.RotationCollection) bool {
	return lo.SomeBy(collections, func(rc *feature.RotationCollection) bool { return len(rc.Sequences) > 0 })
}
