package graphcapture

import "fmt"

// ForkPolicy selects how the instantiation planner (C7) lays out a
// captured graph's subgraphs onto physical command lists.
type ForkPolicy int

const (
	// MonolithicLevels flattens the whole fork/join family into a single
	// physical command list, in global capture order.
	// Simplest to submit, but forked work loses the ability to run
	// concurrently with its parent.
	MonolithicLevels ForkPolicy = iota
	// SplitLevels cuts a fresh physical command list at every segment
	// boundary, regardless of which graph in the family owns the
	// segment, and replays each as a separate submission (C8). This is
	// what lets a single-queue device interleave a forked subgraph's
	// submission with its parent's instead of deadlocking: a
	// Monolithic-style list spanning a fork point would embed a wait on
	// an event the child hasn't been submitted to signal yet.
	SplitLevels
)

func (p ForkPolicy) String() string {
	switch p {
	case MonolithicLevels:
		return "MonolithicLevels"
	case SplitLevels:
		return "SplitLevels"
	default:
		return fmt.Sprintf("ForkPolicy(%d)", int(p))
	}
}

// GraphInstantiateSettings controls how Instantiate materializes a
// captured Graph into replayable physical command lists.
type GraphInstantiateSettings struct {
	ForkPolicy ForkPolicy
	// DisablePatchingPreamble skips the SetPatchingPreamble bracketing C8
	// puts around every schedule entry's AppendCommandLists call at
	// replay time. Exposed as a debug override (SPEC_FULL.md §12); leave
	// false in production.
	DisablePatchingPreamble bool
}

// CommandListFactory creates a fresh physical command list to replay
// captured commands into, scoped to ctx.
type CommandListFactory func(ctx Context) (CommandList, error)

// OrderedCommandsExecutableSegment pairs a run of closures with the
// physical command list they must be replayed onto.
type OrderedCommandsExecutableSegment struct {
	Owner        *Graph
	Closures     []Closure
	TargetList   CommandList
	SegmentStart CapturedCommandID
}

func closuresOf(owner *Graph, seg OrderedCommandsSegment) []Closure {
	return owner.commands[seg.FirstLocalIndex : seg.FirstLocalIndex+seg.Count]
}

// planMonolithic builds a single physical list covering every segment in
// the family, in global capture order.
func planMonolithic(root *Graph, factory CommandListFactory) ([]CommandList, []OrderedCommandsExecutableSegment, error) {
	target, err := factory(root.GetContext())
	if err != nil {
		return nil, nil, err
	}

	segs := root.orderedCommands.Segments()
	plan := make([]OrderedCommandsExecutableSegment, 0, len(segs))
	for _, seg := range segs {
		plan = append(plan, OrderedCommandsExecutableSegment{
			Owner:        seg.Owner,
			Closures:     closuresOf(seg.Owner, seg),
			TargetList:   target,
			SegmentStart: seg.FirstGlobalID,
		})
	}
	return []CommandList{target}, plan, nil
}

// planSplit cuts a fresh physical list at every segment boundary: unlike
// planMonolithic, a segment never continues into the list a previous
// segment (even one owned by the same graph) was writing into. This is
// what produces the ordered-commands schedule C8 needs to submit a
// forked subgraph's work as its own entry, interleaved with its
// parent's, instead of nesting it inside the parent's list.
func planSplit(root *Graph, factory CommandListFactory) ([]CommandList, []OrderedCommandsExecutableSegment, error) {
	segs := root.orderedCommands.Segments()

	lists := make([]CommandList, 0, len(segs))
	plan := make([]OrderedCommandsExecutableSegment, 0, len(segs))

	for _, seg := range segs {
		target, err := factory(seg.Owner.GetContext())
		if err != nil {
			return nil, nil, err
		}
		lists = append(lists, target)
		plan = append(plan, OrderedCommandsExecutableSegment{
			Owner:        seg.Owner,
			Closures:     closuresOf(seg.Owner, seg),
			TargetList:   target,
			SegmentStart: seg.FirstGlobalID,
		})
	}
	return lists, plan, nil
}
