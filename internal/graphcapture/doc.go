// Package graphcapture records command-list API calls into a replayable
// DAG and materializes that DAG into physical command lists.
//
// A Graph is a virtual recording target: CommandList.AppendX calls made
// while a graph is capturing are frozen into Closures instead of being
// submitted. Fork and join points are discovered purely from event
// signal/wait traffic, never from an explicit graph-shape API: a command
// list with no capture target that waits on an event another graph
// signaled forks a new child subgraph; a capture target that waits on an
// event one of its forked children signaled records a join candidate.
//
// Instantiate walks a closed graph in capture order and builds one or
// more physical command lists (an ExecutableGraph) according to a
// GraphInstantiateSettings.ForkPolicy. Execute replays an ExecutableGraph,
// honoring the caller's wait-event prelude and signal-event postlude.
package graphcapture

// CapturedCommandID identifies a command within a single graph's capture
// order. It is assigned from the OrderedSegmentsRegistry shared by a root
// graph and all of its subgraphs, so ids are unique across the whole
// fork/join family, not just within one Graph.
type CapturedCommandID uint32

// CommandListID identifies a CommandList collaborator.
type CommandListID uint64

// EventID identifies an Event collaborator.
type EventID uint64

// WaitListID is a stable index into ExternalStorage's wait-event table.
// InvalidWaitListID means "no wait events".
type WaitListID int32

// KernelStateID is a stable index into ExternalStorage's kernel-clone
// table. InvalidKernelStateID means "no kernel state".
type KernelStateID int32

const (
	// InvalidWaitListID is the sentinel for "this closure has no wait events".
	InvalidWaitListID WaitListID = -1
	// InvalidKernelStateID is the sentinel for "this closure cloned no kernel".
	InvalidKernelStateID KernelStateID = -1
)
