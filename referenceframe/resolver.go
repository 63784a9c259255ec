package referenceframe

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/tectonics/platerecon/logging"
	"github.com/tectonics/platerecon/spatialmath"
)

// Resolver composes the rotation of plates relative to an anchor plate at one reconstruction time.
// Its caches of resolved and unresolvable plates live for one resolve pass: a Resolver must not be
// reused for another time or anchor, nor shared between goroutines.
//
// Plates are resolved relative to a base plate: the root of the anchor's own fixed plate chain
// when that chain reaches one at the resolver's time, otherwise the anchor itself. Rotations are
// then expressed relative to the anchor as R(anchor)^-1 * R(plate), so plates above and beside the
// anchor resolve as well as those below it.
type Resolver struct {
	snap   snapshot
	time   float64
	anchor PlateID
	logger logging.Logger

	base PlateID
	// anchorFromBase is the anchor's rotation relative to base; nil when base is the anchor.
	anchorFromBase *spatialmath.FiniteRotation

	// resolved holds rotations relative to base.
	resolved     map[PlateID]*spatialmath.FiniteRotation
	unresolvable map[PlateID]error
}

// NewResolver starts a resolve pass over a frozen view of the rotation context. Later mutations of
// the context do not affect this resolver.
func NewResolver(rc *RotationContext, t float64, anchor PlateID, logger logging.Logger) *Resolver {
	if rc == nil {
		panic("referenceframe: nil rotation context")
	}
	r := &Resolver{
		snap:   rc.snapshot(),
		time:   t,
		anchor: anchor,
		logger: logger,
	}
	r.reset(anchor)
	root, ok := r.anchorRoot()
	if !ok || root == anchor {
		return r
	}
	r.reset(root)
	anchorFromBase, err := r.resolveFromBase(anchor)
	if err != nil {
		r.reset(anchor)
		return r
	}
	r.anchorFromBase = anchorFromBase
	logger.Debugw("resolving relative to the root of the anchor plate", "anchor", anchor, "root", root, "time", t)
	return r
}

func (r *Resolver) reset(base PlateID) {
	r.base = base
	r.anchorFromBase = nil
	r.resolved = map[PlateID]*spatialmath.FiniteRotation{base: spatialmath.NewIdentityRotation()}
	r.unresolvable = map[PlateID]error{}
}

// anchorRoot follows the anchor's fixed plates up to a plate with no rotation history. It fails if
// the chain is undefined at the resolver's time or loops.
func (r *Resolver) anchorRoot() (PlateID, bool) {
	seen := map[PlateID]bool{}
	cur := r.anchor
	for {
		if seen[cur] {
			return 0, false
		}
		seen[cur] = true
		history, ok := r.snap.histories[cur]
		if !ok {
			return cur, true
		}
		seq, ok := history.AtTime(r.time)
		if !ok {
			return 0, false
		}
		cur = seq.FixedPlate()
	}
}

// relativeToAnchor converts a rotation relative to base into one relative to the anchor.
func (r *Resolver) relativeToAnchor(plate PlateID, fromBase *spatialmath.FiniteRotation) *spatialmath.FiniteRotation {
	if plate == r.anchor {
		return spatialmath.NewIdentityRotation()
	}
	if r.anchorFromBase == nil {
		return fromBase
	}
	return spatialmath.Reanchor(r.anchorFromBase, fromBase)
}

// pendingPlate is a plate whose local rotation is known but whose fixed plate is still being resolved.
type pendingPlate struct {
	plate PlateID
	local *spatialmath.FiniteRotation
}

// Resolve returns the rotation of plate relative to the anchor. On failure the returned error is an
// *UnresolvablePlateError whose reason is ErrNoRotationHistory, ErrNotDefinedAtTime,
// ErrUnresolvableAncestor or a *RotationCycleError.
//
// The fixed plate chain is walked with an explicit stack. A plate met again while it is still on
// the stack closes a cycle; every plate on the stack is then marked unresolvable.
func (r *Resolver) Resolve(plate PlateID) (*spatialmath.FiniteRotation, error) {
	fromBase, err := r.resolveFromBase(plate)
	if err != nil {
		return nil, err
	}
	return r.relativeToAnchor(plate, fromBase), nil
}

// resolveFromBase returns the rotation of plate relative to the base plate.
func (r *Resolver) resolveFromBase(plate PlateID) (*spatialmath.FiniteRotation, error) {
	var (
		stack    []pendingPlate
		visiting = map[PlateID]int{}
		parent   *spatialmath.FiniteRotation
		failure  error
		failedAt PlateID
		cur      = plate
	)
	for {
		if rot, ok := r.resolved[cur]; ok {
			parent = rot
			break
		}
		if err, ok := r.unresolvable[cur]; ok {
			failure, failedAt = err, cur
			break
		}
		if idx, ok := visiting[cur]; ok {
			cycle := make([]PlateID, 0, len(stack)-idx)
			for _, p := range stack[idx:] {
				cycle = append(cycle, p.plate)
			}
			failure, failedAt = r.markUnresolvable(cur, &RotationCycleError{Plates: cycle}), cur
			r.logger.Warnw("rotation cycle never reaches the anchor plate",
				"cycle", cycle, "time", r.time, "anchor", r.anchor)
			break
		}
		history, ok := r.snap.histories[cur]
		if !ok {
			failure, failedAt = r.markUnresolvable(cur, ErrNoRotationHistory), cur
			break
		}
		seq, ok := history.AtTime(r.time)
		if !ok {
			failure, failedAt = r.markUnresolvable(cur, ErrNotDefinedAtTime), cur
			break
		}
		local, err := seq.FiniteRotationAtTime(r.time)
		if err != nil {
			failure, failedAt = r.markUnresolvable(cur, err), cur
			break
		}
		visiting[cur] = len(stack)
		stack = append(stack, pendingPlate{plate: cur, local: local})
		cur = seq.FixedPlate()
	}

	if failure != nil {
		var cycle *RotationCycleError
		isCycle := errors.As(failure, &cycle)
		fixed := failedAt
		for i := len(stack) - 1; i >= 0; i-- {
			p := stack[i].plate
			if _, done := r.unresolvable[p]; !done {
				if isCycle && slices.Contains(cycle.Plates, p) {
					r.markUnresolvable(p, cycle)
				} else {
					r.markUnresolvable(p, NewUnresolvableAncestorError(fixed, failure))
				}
			}
			fixed = p
		}
		return nil, r.unresolvable[plate]
	}

	for i := len(stack) - 1; i >= 0; i-- {
		parent = spatialmath.Compose(parent, stack[i].local)
		r.resolved[stack[i].plate] = parent
	}
	return r.resolved[plate], nil
}

func (r *Resolver) markUnresolvable(plate PlateID, reason error) error {
	err := &UnresolvablePlateError{Plate: plate, Time: r.time, Reason: reason}
	r.unresolvable[plate] = err
	r.logger.Debugw("plate cannot be rotated", "plate", plate, "time", r.time, "anchor", r.anchor, "reason", reason.Error())
	return err
}

// ResolveAll resolves each plate in turn, sharing the caches so common ancestors are composed once.
func (r *Resolver) ResolveAll(plates []PlateID) {
	for _, p := range plates {
		_, _ = r.Resolve(p)
	}
}

// Tree returns an immutable tree of every plate resolved so far, plus the reasons recorded for
// every plate found unresolvable.
func (r *Resolver) Tree() *ReconstructionTree {
	tree := &ReconstructionTree{
		anchor:       r.anchor,
		time:         r.time,
		generation:   r.snap.generation,
		rotations:    make(map[PlateID]*spatialmath.FiniteRotation, len(r.resolved)),
		unresolvable: make(map[PlateID]error, len(r.unresolvable)),
	}
	for p, rot := range r.resolved {
		tree.rotations[p] = r.relativeToAnchor(p, rot)
	}
	for p, err := range r.unresolvable {
		tree.unresolvable[p] = err
	}
	return tree
}

// BuildReconstructionTree runs one resolve pass over the given plates. A nil plates slice resolves
// every moving plate in the context.
func BuildReconstructionTree(
	rc *RotationContext,
	t float64,
	anchor PlateID,
	plates []PlateID,
	logger logging.Logger,
) *ReconstructionTree {
	resolver := NewResolver(rc, t, anchor, logger)
	complete := plates == nil
	if complete {
		plates = SortPlateIDs(lo.Keys(resolver.snap.histories))
	}
	resolver.ResolveAll(plates)
	tree := resolver.Tree()
	tree.complete = complete
	logger.Debugw("built reconstruction tree",
		"time", t, "anchor", anchor, "resolved", len(tree.rotations), "unresolvable", len(tree.unresolvable))
	return tree
}
