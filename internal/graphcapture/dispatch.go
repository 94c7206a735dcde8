package graphcapture

// This file is the capture dispatcher (C5): the layer a CommandList
// implementation calls into on every Append* call to decide whether the
// call should be frozen into a Graph instead of submitted, and to detect
// forks and joins purely from wait/signal event traffic (no explicit
// fork/join API — see SPEC_FULL.md §2).

// captureGate implements SPEC_FULL.md §4.4 steps 1 and 3: graph capture
// must be enabled process-wide, and capturing is only allowed on command
// lists that are immediate-mode and not synchronous. A command list that
// fails the mode check may still be the target of a fork (some other
// still-open graph's signal is in waitEvents): that case is reported as
// InvalidCommandListType rather than NotAvailable, so a caller can tell
// "no capture in play" apart from "a fork was implied but disallowed".
func captureGate(cl CommandList, waitEvents []Event) error {
	if !GraphsEnabled() {
		return newNotAvailable("graph capture is disabled")
	}
	if cl.CaptureTarget() != nil {
		// Already capturing: the mode check passed when capture began.
		return nil
	}
	if cl.Immediate() && !cl.Synchronous() {
		return nil
	}
	if impliesFork(waitEvents) {
		return newInvalidCommandListType("command list does not support graph capture")
	}
	return newNotAvailable("command list is not part of any graph capture")
}

// impliesFork reports whether any wait event was last signaled by a
// still-open graph, i.e. whether this call would otherwise have forked.
func impliesFork(waitEvents []Event) bool {
	for _, ev := range waitEvents {
		if signaller := ev.RecordedSignalFrom(); signaller != nil && !signaller.Closed() {
			return true
		}
	}
	return false
}

// resolveCaptureTarget decides which graph, if any, should record the
// next command appended to cl given the events it waits on.
//
// Three cases:
//  1. cl is already capturing into a graph g: check whether any wait
//     event was signaled by one of g's children, promoting a join
//     candidate, then return g.
//  2. cl is not capturing, but one of the wait events was signaled by a
//     still-open graph: that graph forks a new subgraph capturing cl,
//     which becomes the target.
//  3. cl is not capturing and none of its wait events came from an open
//     graph: no capture target exists (SPEC_FULL.md §4.4 step 5); returns
//     NotAvailable so the caller knows to perform the command normally
//     instead of treating this as a hard failure.
func resolveCaptureTarget(cl CommandList, waitEvents []Event) (*Graph, error) {
	if err := captureGate(cl, waitEvents); err != nil {
		return nil, err
	}
	if g := cl.CaptureTarget(); g != nil {
		handleJoinDetection(g, waitEvents)
		return g, nil
	}
	if g := handleForkDetection(cl, waitEvents); g != nil {
		return g, nil
	}
	return nil, newNotAvailable("command list is not part of any graph capture")
}

// handleJoinDetection looks for wait events signaled by one of parent's
// children and, for each, records a join candidate against the fork that
// produced that child.
func handleJoinDetection(parent *Graph, waitEvents []Event) {
	if !parent.HasUnjoinedForks() {
		return
	}
	for _, ev := range waitEvents {
		signaller := ev.RecordedSignalFrom()
		if signaller == nil || signaller == parent {
			continue
		}
		childID := signaller.captureSourceID()
		parent.TryJoinOnNextCommand(childID, ev)
	}
}

// handleForkDetection looks for a wait event signaled by a still-open
// graph and, if found, forks that graph onto cl.
func handleForkDetection(cl CommandList, waitEvents []Event) *Graph {
	for _, ev := range waitEvents {
		signaller := ev.RecordedSignalFrom()
		if signaller == nil || signaller.Closed() {
			continue
		}
		return signaller.ForkTo(cl, ev)
	}
	return nil
}

// captureSourceID returns the id of the command list this graph is
// capturing from, or zero if it has none (root graphs created via
// Create/BeginCaptureInto before any append).
func (g *Graph) captureSourceID() CommandListID {
	if g.captureSrc == nil {
		return 0
	}
	return g.captureSrc.ID()
}

// record builds a Closure of the given tag, resolves its wait list and
// signal bookkeeping against g's storage, and appends it to g.
func record(g *Graph, tag ApiTag, waitEvents []Event, signal Event, fill func(*Closure)) {
	c := Closure{Tag: tag}
	fill(&c)
	c.WaitList = g.storage.RegisterWaitEvents(waitEvents)
	c.Signal = signal
	g.recordClosure(c)
	if signal != nil {
		g.registerSignallingEventFromPreviousCommand(signal)
	}
}

// CaptureMemoryCopy freezes a memory copy append. Returns the graph it
// was recorded into, or nil if cl is not part of any capture.
func CaptureMemoryCopy(cl CommandList, args MemoryCopyArgs, waitEvents []Event, signal Event) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, waitEvents)
	if g == nil {
		return nil, err
	}
	record(g, ApiMemoryCopy, waitEvents, signal, func(c *Closure) { c.MemoryCopy = args })
	return g, nil
}

// CaptureBarrier freezes a barrier append.
func CaptureBarrier(cl CommandList, args BarrierArgs, waitEvents []Event, signal Event) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, waitEvents)
	if g == nil {
		return nil, err
	}
	record(g, ApiBarrier, waitEvents, signal, func(c *Closure) { c.Barrier = args })
	return g, nil
}

// CaptureWaitOnEvents freezes a bare wait-on-events append (no signal,
// no payload of its own).
func CaptureWaitOnEvents(cl CommandList, waitEvents []Event) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, waitEvents)
	if g == nil {
		return nil, err
	}
	record(g, ApiWaitOnEvents, waitEvents, nil, func(*Closure) {})
	return g, nil
}

// CaptureWriteGlobalTimestamp freezes a timestamp-write append.
func CaptureWriteGlobalTimestamp(cl CommandList, args WriteGlobalTimestampArgs, waitEvents []Event, signal Event) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, waitEvents)
	if g == nil {
		return nil, err
	}
	record(g, ApiWriteGlobalTimestamp, waitEvents, signal, func(c *Closure) { c.WriteGlobalTimestamp = args })
	return g, nil
}

// CaptureMemoryFill freezes a memory fill append, deep-copying pattern.
func CaptureMemoryFill(cl CommandList, args MemoryFillArgs, pattern []byte, waitEvents []Event, signal Event) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, waitEvents)
	if g == nil {
		return nil, err
	}
	frozen := make([]byte, len(pattern))
	copy(frozen, pattern)
	record(g, ApiMemoryFill, waitEvents, signal, func(c *Closure) {
		c.MemoryFill = args
		c.MemoryFillIndirect = MemoryFillIndirectArgs{Pattern: frozen}
	})
	return g, nil
}

// CaptureMemoryCopyRegion freezes a strided region copy append.
func CaptureMemoryCopyRegion(cl CommandList, args MemoryCopyRegionArgs, waitEvents []Event, signal Event) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, waitEvents)
	if g == nil {
		return nil, err
	}
	record(g, ApiMemoryCopyRegion, waitEvents, signal, func(c *Closure) { c.MemoryCopyRegion = args })
	return g, nil
}

// CaptureSignalEvent freezes a bare signal-event append.
func CaptureSignalEvent(cl CommandList, event Event) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, nil)
	if g == nil {
		return nil, err
	}
	record(g, ApiSignalEvent, nil, event, func(c *Closure) {
		if event != nil {
			c.SignalEvent = SignalEventArgs{Event: event.ID()}
		}
	})
	return g, nil
}

// CaptureEventReset freezes an event-reset append.
func CaptureEventReset(cl CommandList, event Event) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, nil)
	if g == nil {
		return nil, err
	}
	record(g, ApiEventReset, nil, nil, func(c *Closure) {
		if event != nil {
			c.EventReset = EventResetArgs{Event: event.ID()}
			c.Signal = event
		}
	})
	return g, nil
}

// CaptureMemoryPrefetch freezes a prefetch hint append (no wait list or
// signal in the original API surface).
func CaptureMemoryPrefetch(cl CommandList, args MemoryPrefetchArgs) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, nil)
	if g == nil {
		return nil, err
	}
	record(g, ApiMemoryPrefetch, nil, nil, func(c *Closure) { c.MemoryPrefetch = args })
	return g, nil
}

// CaptureMemAdvise freezes a memory-advise hint append.
func CaptureMemAdvise(cl CommandList, args MemAdviseArgs) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, nil)
	if g == nil {
		return nil, err
	}
	record(g, ApiMemAdvise, nil, nil, func(c *Closure) { c.MemAdvise = args })
	return g, nil
}

// CaptureQueryKernelTimestamps freezes a timestamp query append,
// deep-copying the events and offsets arrays.
func CaptureQueryKernelTimestamps(cl CommandList, args QueryKernelTimestampsArgs, events []EventID, offsets []uint64, waitEvents []Event, signal Event) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, waitEvents)
	if g == nil {
		return nil, err
	}
	frozenEvents := make([]EventID, len(events))
	copy(frozenEvents, events)
	frozenOffsets := make([]uint64, len(offsets))
	copy(frozenOffsets, offsets)
	record(g, ApiQueryKernelTimestamps, waitEvents, signal, func(c *Closure) {
		c.QueryKernelTimestamps = args
		c.QueryTimestampIndirect = QueryKernelTimestampsIndirectArgs{Events: frozenEvents, Offsets: frozenOffsets}
	})
	return g, nil
}

// CaptureLaunchKernel freezes a kernel launch, cloning the kernel's
// argument state so later mutation of the live kernel object doesn't
// affect replay.
func CaptureLaunchKernel(cl CommandList, args LaunchKernelArgs, kernel Kernel, waitEvents []Event, signal Event) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, waitEvents)
	if g == nil {
		return nil, err
	}
	stateID, err := cloneKernelInto(g, kernel)
	if err != nil {
		return nil, err
	}
	record(g, ApiLaunchKernel, waitEvents, signal, func(c *Closure) {
		c.LaunchKernel = args
		c.KernelState = stateID
	})
	return g, nil
}

// CaptureLaunchKernelIndirect freezes an indirect-dispatch kernel launch.
func CaptureLaunchKernelIndirect(cl CommandList, args LaunchKernelIndirectArgs, kernel Kernel, waitEvents []Event, signal Event) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, waitEvents)
	if g == nil {
		return nil, err
	}
	stateID, err := cloneKernelInto(g, kernel)
	if err != nil {
		return nil, err
	}
	record(g, ApiLaunchKernelIndirect, waitEvents, signal, func(c *Closure) {
		c.LaunchKernelIndirect = args
		c.KernelState = stateID
	})
	return g, nil
}

// CaptureLaunchCooperativeKernel freezes a cooperative kernel launch.
func CaptureLaunchCooperativeKernel(cl CommandList, args LaunchCooperativeKernelArgs, kernel Kernel, waitEvents []Event, signal Event) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, waitEvents)
	if g == nil {
		return nil, err
	}
	stateID, err := cloneKernelInto(g, kernel)
	if err != nil {
		return nil, err
	}
	record(g, ApiLaunchCooperativeKernel, waitEvents, signal, func(c *Closure) {
		c.LaunchCooperative = args
		c.KernelState = stateID
	})
	return g, nil
}

// CaptureSignalExternalSemaphore freezes an external-semaphore signal.
func CaptureSignalExternalSemaphore(cl CommandList, args SignalExternalSemaphoreArgs, waitEvents []Event) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, waitEvents)
	if g == nil {
		return nil, err
	}
	record(g, ApiSignalExternalSemaphore, waitEvents, nil, func(c *Closure) { c.SignalSemaphore = args })
	return g, nil
}

// CaptureWaitExternalSemaphore freezes an external-semaphore wait.
func CaptureWaitExternalSemaphore(cl CommandList, args WaitExternalSemaphoreArgs) (*Graph, error) {
	g, err := resolveCaptureTarget(cl, nil)
	if g == nil {
		return nil, err
	}
	record(g, ApiWaitExternalSemaphore, nil, nil, func(c *Closure) { c.WaitSemaphore = args })
	return g, nil
}

func cloneKernelInto(g *Graph, kernel Kernel) (KernelStateID, error) {
	if kernel == nil {
		return InvalidKernelStateID, nil
	}
	state, err := kernel.MakeDependentClone()
	if err != nil {
		return InvalidKernelStateID, err
	}
	return g.storage.RegisterKernelState(state), nil
}
