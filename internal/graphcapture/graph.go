package graphcapture

import "github.com/zecapture/graph/pkg/collections"

// ForkInfo records, from the forking (parent) graph's point of view, the
// local command index of the signal that caused a fork and the event
// used to trigger it.
type ForkInfo struct {
	ForkCommandIndex int
	ForkEvent        Event
}

// ForkJoinInfo is a join candidate recorded against a fork. At most one
// candidate is kept per fork command index: a later candidate for the
// same fork overwrites an earlier one (see SPEC_FULL.md §9 for why the
// unjoined-fork sweep does not need to consider more than one).
type ForkJoinInfo struct {
	ForkCommandIndex int
	JoinCommandIndex int
	ForkEvent        Event
	JoinEvent        Event
}

// Graph is the virtual recording target (C4). Commands appended to a
// CommandList capturing into a Graph are frozen into Closures rather than
// submitted. A Graph may have subgraphs, discovered purely from
// fork/join event traffic (see dispatch.go).
type Graph struct {
	ctx           Context
	preallocated  bool
	captureSrc    CommandList
	executionTarget CommandList
	isSub         bool
	parent        *Graph

	commands []Closure
	storage  *ExternalStorage

	// segments are the OrderedCommandsSegment ranges this graph itself
	// has registered into orderedCommands.
	segments []OrderedCommandsSegment

	subGraphs []*Graph

	// recordedSignals maps an event to the local command index that last
	// signaled it, so ForkTo can resolve which command a fork event came
	// from.
	recordedSignals map[EventID]int
	// unjoinedForks maps a forked child's capture-target command-list id
	// to the fork that produced it.
	unjoinedForks map[CommandListID]ForkInfo
	// potentialJoins maps a fork's local command index to the most
	// recently observed join candidate for it.
	potentialJoins map[int]ForkJoinInfo

	orderedCommands *OrderedSegmentsRegistry

	wasCapturingStopped bool
}

// NewGraph creates a root graph. If preallocated is true the graph exists
// before any capture begins (zeGraphCreateExp semantics); otherwise it is
// allocated at BeginCapture time.
func NewGraph(ctx Context, preallocated bool) *Graph {
	return &Graph{
		ctx:             ctx,
		preallocated:    preallocated,
		storage:         NewExternalStorage(),
		recordedSignals: make(map[EventID]int),
		unjoinedForks:   make(map[CommandListID]ForkInfo),
		potentialJoins:  make(map[int]ForkJoinInfo),
		orderedCommands: NewOrderedSegmentsRegistry(),
	}
}

// newSubGraph creates a child graph sharing the parent's ordered-segments
// registry, exactly as a fork does in the original (orderedCommands is a
// "weakly shared" reference, not a fresh registry).
func newSubGraph(parent *Graph) *Graph {
	return &Graph{
		ctx:             parent.ctx,
		preallocated:    false,
		isSub:           true,
		parent:          parent,
		storage:         NewExternalStorage(),
		recordedSignals: make(map[EventID]int),
		unjoinedForks:   make(map[CommandListID]ForkInfo),
		potentialJoins:  make(map[int]ForkJoinInfo),
		orderedCommands: parent.orderedCommands,
	}
}

// Parent returns the graph that forked this subgraph, or nil for a root
// graph.
func (g *Graph) Parent() *Graph {
	return g.parent
}

// StartCapturingFrom begins recording appends made to cl into this graph.
func (g *Graph) StartCapturingFrom(cl CommandList, isSubGraph bool) {
	g.captureSrc = cl
	g.isSub = isSubGraph
	if isSubGraph {
		g.executionTarget = cl
	}
}

// IsSubGraph reports whether this graph was created by a fork rather than
// directly by BeginCapture/Create.
func (g *Graph) IsSubGraph() bool {
	return g.isSub
}

// WasPreallocated reports whether the graph existed before capture began.
func (g *Graph) WasPreallocated() bool {
	return g.preallocated
}

// Empty reports whether the graph (and, transitively, its subgraphs)
// recorded no commands at all.
func (g *Graph) Empty() bool {
	if len(g.commands) > 0 {
		return false
	}
	for _, sg := range g.subGraphs {
		if !sg.Empty() {
			return false
		}
	}
	return true
}

// Closed reports whether StopCapturing has run.
func (g *Graph) Closed() bool {
	return g.wasCapturingStopped
}

// HasUnjoinedForks reports whether this graph has forks with no matching
// join recorded yet.
func (g *Graph) HasUnjoinedForks() bool {
	return len(g.unjoinedForks) > 0
}

// Valid reports the weaker validity check: ignores closed-ness, just
// requires that neither this graph nor any subgraph has unjoined forks.
func (g *Graph) Valid() bool {
	if g.HasUnjoinedForks() {
		return false
	}
	for _, sg := range g.subGraphs {
		if !sg.Valid() {
			return false
		}
	}
	return true
}

// ValidForInstantiation reports whether the graph is closed, has no
// unjoined forks, and every subgraph is likewise instantiation-ready.
func (g *Graph) ValidForInstantiation() bool {
	if !g.Closed() || g.HasUnjoinedForks() {
		return false
	}
	for _, sg := range g.subGraphs {
		if !sg.ValidForInstantiation() {
			return false
		}
	}
	return true
}

// GetSubgraphs returns the graph's direct children.
func (g *Graph) GetSubgraphs() []*Graph {
	return g.subGraphs
}

// SubgraphCount returns the number of subgraphs forked from g, at any
// nesting depth — unlike len(GetSubgraphs()), which only counts direct
// children. Traversal is level-order over a queue rather than recursive,
// so a long chain of forks-of-forks cannot exhaust the goroutine stack.
func (g *Graph) SubgraphCount() int {
	pending := collections.NewQueue[*Graph](4)
	for _, sg := range g.subGraphs {
		pending.Enqueue(sg)
	}

	count := 0
	for {
		sg, ok := pending.Dequeue()
		if !ok {
			break
		}
		count++
		for _, nested := range sg.subGraphs {
			pending.Enqueue(nested)
		}
	}
	return count
}

// GetCapturedCommands returns the graph's own recorded commands (not
// including subgraphs).
func (g *Graph) GetCapturedCommands() []Closure {
	return g.commands
}

// GetExternalStorage returns the side table backing this graph's
// closures.
func (g *Graph) GetExternalStorage() *ExternalStorage {
	return g.storage
}

// GetOrderedCommands returns the segments registry shared by this graph
// and its whole fork/join family.
func (g *Graph) GetOrderedCommands() *OrderedSegmentsRegistry {
	return g.orderedCommands
}

// GetContext returns the allocation/execution context the graph was
// created with.
func (g *Graph) GetContext() Context {
	return g.ctx
}

// GetExecutionTarget returns the command list a subgraph executes
// against, or nil for a root graph.
func (g *Graph) GetExecutionTarget() CommandList {
	return g.executionTarget
}

// isLastCommandIndex reports whether idx is this graph's most recently
// recorded local command index.
func (g *Graph) isLastCommandIndex(idx int) bool {
	return idx == len(g.commands)-1
}

// subgraphByCaptureTargetID finds the direct child whose capture source
// is the command list identified by id.
func (g *Graph) subgraphByCaptureTargetID(id CommandListID) *Graph {
	for _, sg := range g.subGraphs {
		if sg.captureSrc != nil && sg.captureSrc.ID() == id {
			return sg
		}
	}
	return nil
}

// recordClosure appends a closure, acquiring the next global command id
// from the shared registry and extending this graph's current segment
// (or opening a new one if this is the first command, or the previous
// command belonged to a different, now-interrupted, run).
func (g *Graph) recordClosure(c Closure) CapturedCommandID {
	globalID := g.orderedCommands.AcquireNextCommandID()
	localIdx := len(g.commands)
	g.commands = append(g.commands, c)

	if len(g.segments) > 0 {
		last := &g.segments[len(g.segments)-1]
		expectedNext := last.FirstGlobalID + CapturedCommandID(last.Count)
		expectedLocal := last.FirstLocalIndex + last.Count
		if expectedNext == globalID && expectedLocal == localIdx {
			last.Count++
			return globalID
		}
	}

	g.segments = append(g.segments, OrderedCommandsSegment{
		Owner:           g,
		FirstGlobalID:   globalID,
		FirstLocalIndex: localIdx,
		Count:           1,
	})
	return globalID
}

// registerSignallingEventFromPreviousCommand records that ev was
// signaled by the command just recorded (the back-pointer lets other
// graphs discover a fork/join from the event alone).
func (g *Graph) registerSignallingEventFromPreviousCommand(ev Event) {
	if ev == nil {
		return
	}
	ev.SetRecordedSignalFrom(g)
	g.recordedSignals[ev.ID()] = len(g.commands) - 1
}

// unregisterSignallingEvents is called from StopCapturing and does
// nothing. Graph keeps only event ids in recordedSignals, not the Event
// values, so the back-pointers set by
// registerSignallingEventFromPreviousCommand are not cleared and stay set
// on their events after capture stops.
func (g *Graph) unregisterSignallingEvents() {
}

// ForkTo allocates a new child subgraph capturing from childCmdList,
// triggered by forkEvent having been signaled by a command this graph
// already recorded.
func (g *Graph) ForkTo(childCmdList CommandList, forkEvent Event) *Graph {
	child := newSubGraph(g)
	child.StartCapturingFrom(childCmdList, true)
	childCmdList.SetCaptureTarget(child)
	g.subGraphs = append(g.subGraphs, child)

	forkIdx := g.recordedSignals[forkEvent.ID()]
	g.unjoinedForks[childCmdList.ID()] = ForkInfo{
		ForkCommandIndex: forkIdx,
		ForkEvent:        forkEvent,
	}
	return child
}

// TryJoinOnNextCommand records a join candidate: the next command this
// graph records is a candidate join point for the fork that produced
// childCmdListID, triggered by seeing joinEvent as a wait dependency.
func (g *Graph) TryJoinOnNextCommand(childCmdListID CommandListID, joinEvent Event) {
	fi, ok := g.unjoinedForks[childCmdListID]
	if !ok {
		return
	}
	g.potentialJoins[fi.ForkCommandIndex] = ForkJoinInfo{
		ForkCommandIndex: fi.ForkCommandIndex,
		JoinCommandIndex: len(g.commands),
		ForkEvent:        fi.ForkEvent,
		JoinEvent:        joinEvent,
	}
}

// StopCapturing closes the graph to further recording: it sweeps
// unjoined forks (promoting those whose join candidate's event was the
// last thing the forked subgraph signaled), registers this graph's own
// segments into the shared registry, and recursively stops capturing on
// every subgraph. The registry itself is only closed once, by the root.
func (g *Graph) StopCapturing() {
	g.wasCapturingStopped = true
	g.unregisterSignallingEvents()

	if g.captureSrc != nil {
		g.captureSrc.SetCaptureTarget(nil)
	}

	g.sweepUnjoinedForks()

	for _, seg := range g.segments {
		g.orderedCommands.RegisterSegment(seg)
	}

	for _, sg := range g.subGraphs {
		sg.StopCapturing()
	}

	// Close only after every subgraph has had a chance to register its own
	// segments (they all share this root's registry): closing here first
	// would make a subgraph's own RegisterSegment panic.
	if !g.isSub {
		g.orderedCommands.Close()
	}
}

// sweepUnjoinedForks implements the Open Question resolution documented
// in SPEC_FULL.md §9: a fork is promoted from unjoined to joined only if
// it has a recorded join candidate AND that candidate's join event was
// the last command signaled by the forked subgraph.
func (g *Graph) sweepUnjoinedForks() {
	if len(g.unjoinedForks) == 0 {
		return
	}

	remaining := make(map[CommandListID]ForkInfo, len(g.unjoinedForks))
	for childID, fi := range g.unjoinedForks {
		if g.forkIsJoined(childID, fi) {
			continue
		}
		remaining[childID] = fi
	}
	g.unjoinedForks = remaining
}

func (g *Graph) forkIsJoined(childID CommandListID, fi ForkInfo) bool {
	candidate, ok := g.potentialJoins[fi.ForkCommandIndex]
	if !ok || candidate.JoinEvent == nil {
		return false
	}

	child := g.subgraphByCaptureTargetID(childID)
	if child == nil {
		return false
	}

	signalIdx, hasSignal := child.recordedSignals[candidate.JoinEvent.ID()]
	if !hasSignal {
		return false
	}
	return child.isLastCommandIndex(signalIdx)
}

// GetUnjoinedForks returns the forks that remain unjoined after the last
// StopCapturing sweep.
func (g *Graph) GetUnjoinedForks() map[CommandListID]ForkInfo {
	return g.unjoinedForks
}

// GetJoinedForkTarget returns the child subgraph for a fork that has been
// joined (i.e. is no longer present in unjoinedForks), or nil.
func (g *Graph) GetJoinedForkTarget(childID CommandListID) *Graph {
	if _, stillUnjoined := g.unjoinedForks[childID]; stillUnjoined {
		return nil
	}
	return g.subgraphByCaptureTargetID(childID)
}
