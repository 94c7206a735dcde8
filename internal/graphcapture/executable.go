package graphcapture

import "github.com/zecapture/graph/pkg/collections"

// ExecutableGraph is the materialized result of instantiating a captured
// Graph (C6): one or more physical command lists holding the replayed
// closures, ready to submit and re-submit without re-recording.
type ExecutableGraph struct {
	source        *Graph
	settings      GraphInstantiateSettings
	physicalLists []CommandList
	// schedule is the ordered-commands replay schedule (SPEC_FULL.md
	// §4.5 step 3 / §4.6): one entry per physical list, in the order the
	// segment that first needed it was recorded. Execute walks this at
	// replay time instead of anything being cascaded together at
	// Instantiate time.
	schedule  []scheduleEntry
	callbacks []callbackBinding
}

// scheduleEntry is one submission point in the replay schedule: the
// physical list to submit and the first captured command id it carries
// (mirroring the original's executeSegment(segmentStart) lookup).
type scheduleEntry struct {
	list         CommandList
	segmentStart CapturedCommandID
}

// callbackBinding pairs an external-callback event with the in-order
// state it had the moment its signaling closure was instantiated, so
// Execute can re-attach it once replay actually runs (SPEC_FULL.md §12.3).
type callbackBinding struct {
	event Event
	state EventInOrderState
}

// Instantiate materializes root into an ExecutableGraph. root must be
// closed with no unjoined forks (ValidForInstantiation); any segment
// whose closure tag has no replay handling fails the whole instantiation.
func Instantiate(root *Graph, settings GraphInstantiateSettings, factory CommandListFactory) (*ExecutableGraph, error) {
	if root == nil {
		return nil, newInvalidArgument("graph is nil")
	}
	if !root.ValidForInstantiation() {
		return nil, newInvalidGraph("graph is not closed or still has unjoined forks")
	}

	var (
		lists []CommandList
		plan  []OrderedCommandsExecutableSegment
		err   error
	)
	switch settings.ForkPolicy {
	case MonolithicLevels:
		lists, plan, err = planMonolithic(root, factory)
	case SplitLevels:
		lists, plan, err = planSplit(root, factory)
	default:
		return nil, newInvalidArgument("unknown fork policy")
	}
	if err != nil {
		return nil, err
	}

	eg := &ExecutableGraph{
		source:        root,
		settings:      settings,
		physicalLists: lists,
		schedule:      make([]scheduleEntry, 0, len(plan)),
	}

	for _, seg := range plan {
		for i := range seg.Closures {
			if err := seg.Closures[i].instantiateTo(seg.TargetList, seg.Owner.storage); err != nil {
				return nil, err
			}
			if sig := seg.Closures[i].Signal; sig != nil && sig.IsExternalCallback() {
				eg.callbacks = append(eg.callbacks, callbackBinding{event: sig, state: sig.CaptureInOrderState()})
			}
		}
		if n := len(eg.schedule); n == 0 || eg.schedule[n-1].list != seg.TargetList {
			eg.schedule = append(eg.schedule, scheduleEntry{list: seg.TargetList, segmentStart: seg.SegmentStart})
		}
	}

	return eg, nil
}

// RootList returns the first physical command list in the replay
// schedule: under MonolithicLevels this is the whole family; under
// SplitLevels it is just the first segment's list.
func (eg *ExecutableGraph) RootList() CommandList {
	if len(eg.physicalLists) == 0 {
		return nil
	}
	return eg.physicalLists[0]
}

// PhysicalLists returns every physical command list the planner created,
// in creation order.
func (eg *ExecutableGraph) PhysicalLists() []CommandList {
	return eg.physicalLists
}

// listForSegmentStart looks up the physical list registered for the
// given segment's first captured command id, mirroring the original's
// executeSegment lookup into myOrderedSegments: a segmentStart with no
// entry means that command was absorbed into a preceding segment's list.
func (eg *ExecutableGraph) listForSegmentStart(segmentStart CapturedCommandID) (CommandList, bool) {
	for _, e := range eg.schedule {
		if e.segmentStart == segmentStart {
			return e.list, true
		}
	}
	return nil, false
}

// Source returns the graph this executable graph was instantiated from.
func (eg *ExecutableGraph) Source() *Graph {
	return eg.source
}

// Empty reports whether the source graph recorded no commands at all
// (root and every subgraph), matching the empty-graph replay shortcut in
// SPEC_FULL.md §4.6.
func (eg *ExecutableGraph) Empty() bool {
	return eg.source.Empty()
}

// ExecutionTarget returns the command list the source graph was originally
// captured from, used as the default replay target when Execute is not
// given one explicitly.
func (eg *ExecutableGraph) ExecutionTarget() CommandList {
	return eg.source.captureSrc
}

// RebindCallbackEvents re-attaches every external-callback event's
// in-order execution state captured during instantiation, so that
// waiters outside the graph resolve to the physical submission this
// replay produced (SPEC_FULL.md §12.3).
func (eg *ExecutableGraph) RebindCallbackEvents() {
	for _, b := range eg.callbacks {
		b.event.ReattachInOrderState(b.state)
	}
}

// Destroy releases every external-storage-owned kernel clone across the
// whole family, including subgraphs forked from other subgraphs, not
// just the root's direct children. Safe to call once replay is done with
// the executable graph; the source Graph's recorded closures are left
// untouched so a fresh Instantiate can still be run from it.
func (eg *ExecutableGraph) Destroy() {
	pending := collections.NewStack[*Graph](4)
	pending.Push(eg.source)
	for {
		g, ok := pending.Pop()
		if !ok {
			break
		}
		g.storage.Release()
		for _, sg := range g.GetSubgraphs() {
			pending.Push(sg)
		}
	}
}
