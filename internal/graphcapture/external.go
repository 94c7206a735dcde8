package graphcapture

// This file declares the opaque collaborator interfaces the engine
// captures against: CommandList, Event, Kernel, Context and Device. Their
// internals (queue submission, hardware event state, kernel argument
// layout) are out of scope; the engine only needs the surface below.

// Context is an opaque allocation/execution context. The engine never
// looks inside it.
type Context interface {
	ID() uint64
}

// Device is an opaque compute device handle.
type Device interface {
	ID() uint64
}

// Kernel is an opaque dispatchable kernel. The only operation the capture
// engine needs is producing an independent, frozen clone suitable for
// replay after the original Kernel's arguments may have changed.
type Kernel interface {
	ID() uint64
	// MakeDependentClone produces a clone whose argument state is frozen
	// at the time of the call. The clone outlives the original.
	MakeDependentClone() (KernelState, error)
}

// KernelState is a frozen kernel clone stored in ExternalStorage and
// handed back to the CommandList at replay time.
type KernelState interface {
	ID() uint64
	Release()
}

// EventInOrderState is an opaque snapshot of an event's in-order execution
// state, captured at instantiation time and re-attached at replay time so
// that external waiters resolve to the physical submission that produced
// it rather than a stale one from a previous instantiation.
type EventInOrderState interface{}

// Event is an opaque synchronization primitive. The engine tracks which
// graph, if any, last recorded a signal from this event (the
// "recorded-signal-from" back-pointer) purely to drive fork/join
// detection; it never touches the event's hardware state directly except
// through CaptureInOrderState/ReattachInOrderState for external-callback
// events that participate in replay.
type Event interface {
	ID() EventID
	// IsExternalCallback reports whether this event is visible to code
	// outside the graph (so its bookkeeping must survive instantiation).
	IsExternalCallback() bool
	// RecordedSignalFrom returns the graph that last recorded a signal
	// from this event, or nil.
	RecordedSignalFrom() *Graph
	// SetRecordedSignalFrom updates the back-pointer.
	SetRecordedSignalFrom(g *Graph)
	// CaptureInOrderState snapshots this event's current in-order
	// execution state. Called at instantiation time for external-callback
	// events only.
	CaptureInOrderState() EventInOrderState
	// ReattachInOrderState restores a previously captured snapshot,
	// re-pointing external waiters at the physical submission that
	// produced it. Called at replay time.
	ReattachInOrderState(state EventInOrderState)
}

// CommandList is the capture target: a sequence of append operations that
// may be intercepted into a Graph instead of submitted directly.
type CommandList interface {
	ID() CommandListID
	// Immediate reports whether this is an immediate-mode command list.
	Immediate() bool
	// Synchronous reports whether appends block until completion.
	Synchronous() bool
	// CaptureTarget returns the graph currently recording this command
	// list's appends, or nil if none.
	CaptureTarget() *Graph
	SetCaptureTarget(g *Graph)
	Context() Context
	Device() Device
	// SetPatchingPreamble brackets AppendCommandLists at replay time.
	SetPatchingPreamble(enabled bool)

	// AppendCommandLists submits a set of physical command lists,
	// optionally gated by a wait-event prelude and a signal-event
	// postlude (mirrors the real driver's single combined append+signal+
	// wait call). Used both to cascade a forked subgraph's physical list
	// into its parent at instantiation time (waitEvents/signal nil) and
	// as the replay driver's dispatch primitive (§4.6).
	AppendCommandLists(lists []CommandList, waitEvents []Event, signal Event) error
	AppendWaitOnEvents(events []Event) error
	AppendSignalEvent(event Event) error
	AppendEventReset(event Event) error

	AppendMemoryCopy(args MemoryCopyArgs) error
	AppendBarrier(args BarrierArgs) error
	AppendWriteGlobalTimestamp(args WriteGlobalTimestampArgs) error
	AppendMemoryFill(args MemoryFillArgs, pattern []byte) error
	AppendMemoryCopyRegion(args MemoryCopyRegionArgs) error
	AppendMemoryPrefetch(args MemoryPrefetchArgs) error
	AppendMemAdvise(args MemAdviseArgs) error
	AppendQueryKernelTimestamps(args QueryKernelTimestampsArgs, events []EventID, offsets []uint64) error
	AppendLaunchKernel(args LaunchKernelArgs, state KernelState) error
	AppendLaunchKernelIndirect(args LaunchKernelIndirectArgs, state KernelState) error
	AppendLaunchCooperativeKernel(args LaunchCooperativeKernelArgs, state KernelState) error
	AppendSignalExternalSemaphore(args SignalExternalSemaphoreArgs) error
	AppendWaitExternalSemaphore(args WaitExternalSemaphoreArgs) error
}
