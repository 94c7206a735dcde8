package testutil

import "github.com/zecapture/graph/internal/graphcapture"

// FakeContext is a minimal graphcapture.Context for tests.
type FakeContext struct{ IDValue uint64 }

func (c *FakeContext) ID() uint64 { return c.IDValue }

// FakeDevice is a minimal graphcapture.Device for tests.
type FakeDevice struct{ IDValue uint64 }

func (d *FakeDevice) ID() uint64 { return d.IDValue }

// FakeKernelState is a minimal graphcapture.KernelState for tests.
type FakeKernelState struct {
	IDValue   uint64
	Released  bool
}

func (s *FakeKernelState) ID() uint64 { return s.IDValue }
func (s *FakeKernelState) Release()   { s.Released = true }

// FakeKernel is a minimal graphcapture.Kernel for tests: each clone call
// returns a distinct FakeKernelState so tests can assert on release
// order/count.
type FakeKernel struct {
	IDValue    uint64
	CloneErr   error
	clonesMade int
}

func (k *FakeKernel) ID() uint64 { return k.IDValue }

func (k *FakeKernel) MakeDependentClone() (graphcapture.KernelState, error) {
	if k.CloneErr != nil {
		return nil, k.CloneErr
	}
	k.clonesMade++
	return &FakeKernelState{IDValue: k.IDValue*1000 + uint64(k.clonesMade)}, nil
}

// FakeEvent is a minimal graphcapture.Event for tests.
type FakeEvent struct {
	IDValue        graphcapture.EventID
	ExternalFlag   bool
	signalledBy    *graphcapture.Graph
	RebindCount    int
	LastBoundState graphcapture.EventInOrderState
}

func NewFakeEvent(id graphcapture.EventID) *FakeEvent { return &FakeEvent{IDValue: id} }

func (e *FakeEvent) ID() graphcapture.EventID                    { return e.IDValue }
func (e *FakeEvent) IsExternalCallback() bool                    { return e.ExternalFlag }
func (e *FakeEvent) RecordedSignalFrom() *graphcapture.Graph     { return e.signalledBy }
func (e *FakeEvent) SetRecordedSignalFrom(g *graphcapture.Graph) { e.signalledBy = g }

// CaptureInOrderState returns the event's id as a stand-in opaque state
// token; tests only need to observe that rebind happened, not decode it.
func (e *FakeEvent) CaptureInOrderState() graphcapture.EventInOrderState {
	return e.IDValue
}

func (e *FakeEvent) ReattachInOrderState(state graphcapture.EventInOrderState) {
	e.RebindCount++
	e.LastBoundState = state
}

// FakeCommandList is a minimal graphcapture.CommandList for tests. It
// records every Append* call it receives in Appended, in order, so tests
// can assert on replay shape without a real driver binding.
type FakeCommandList struct {
	IDValue        graphcapture.CommandListID
	ImmediateFlag  bool
	SynchronousFlag bool
	ctx            graphcapture.Context
	dev            graphcapture.Device
	captureTarget  *graphcapture.Graph
	patchPreamble  bool

	Appended []string
}

func NewFakeCommandList(id graphcapture.CommandListID, ctx graphcapture.Context, dev graphcapture.Device) *FakeCommandList {
	return &FakeCommandList{IDValue: id, ctx: ctx, dev: dev}
}

func (cl *FakeCommandList) ID() graphcapture.CommandListID        { return cl.IDValue }
func (cl *FakeCommandList) Immediate() bool                       { return cl.ImmediateFlag }
func (cl *FakeCommandList) Synchronous() bool                     { return cl.SynchronousFlag }
func (cl *FakeCommandList) CaptureTarget() *graphcapture.Graph    { return cl.captureTarget }
func (cl *FakeCommandList) SetCaptureTarget(g *graphcapture.Graph) { cl.captureTarget = g }
func (cl *FakeCommandList) Context() graphcapture.Context         { return cl.ctx }
func (cl *FakeCommandList) Device() graphcapture.Device           { return cl.dev }
func (cl *FakeCommandList) SetPatchingPreamble(enabled bool)      { cl.patchPreamble = enabled }
func (cl *FakeCommandList) PatchingPreambleEnabled() bool         { return cl.patchPreamble }

func (cl *FakeCommandList) AppendCommandLists(lists []graphcapture.CommandList, waitEvents []graphcapture.Event, signal graphcapture.Event) error {
	cl.Appended = append(cl.Appended, "AppendCommandLists")
	return nil
}
func (cl *FakeCommandList) AppendWaitOnEvents(events []graphcapture.Event) error {
	cl.Appended = append(cl.Appended, "AppendWaitOnEvents")
	return nil
}
func (cl *FakeCommandList) AppendSignalEvent(event graphcapture.Event) error {
	cl.Appended = append(cl.Appended, "AppendSignalEvent")
	return nil
}
func (cl *FakeCommandList) AppendEventReset(event graphcapture.Event) error {
	cl.Appended = append(cl.Appended, "AppendEventReset")
	return nil
}
func (cl *FakeCommandList) AppendMemoryCopy(args graphcapture.MemoryCopyArgs) error {
	cl.Appended = append(cl.Appended, "AppendMemoryCopy")
	return nil
}
func (cl *FakeCommandList) AppendBarrier(args graphcapture.BarrierArgs) error {
	cl.Appended = append(cl.Appended, "AppendBarrier")
	return nil
}
func (cl *FakeCommandList) AppendWriteGlobalTimestamp(args graphcapture.WriteGlobalTimestampArgs) error {
	cl.Appended = append(cl.Appended, "AppendWriteGlobalTimestamp")
	return nil
}
func (cl *FakeCommandList) AppendMemoryFill(args graphcapture.MemoryFillArgs, pattern []byte) error {
	cl.Appended = append(cl.Appended, "AppendMemoryFill")
	return nil
}
func (cl *FakeCommandList) AppendMemoryCopyRegion(args graphcapture.MemoryCopyRegionArgs) error {
	cl.Appended = append(cl.Appended, "AppendMemoryCopyRegion")
	return nil
}
func (cl *FakeCommandList) AppendMemoryPrefetch(args graphcapture.MemoryPrefetchArgs) error {
	cl.Appended = append(cl.Appended, "AppendMemoryPrefetch")
	return nil
}
func (cl *FakeCommandList) AppendMemAdvise(args graphcapture.MemAdviseArgs) error {
	cl.Appended = append(cl.Appended, "AppendMemAdvise")
	return nil
}
func (cl *FakeCommandList) AppendQueryKernelTimestamps(args graphcapture.QueryKernelTimestampsArgs, events []graphcapture.EventID, offsets []uint64) error {
	cl.Appended = append(cl.Appended, "AppendQueryKernelTimestamps")
	return nil
}
func (cl *FakeCommandList) AppendLaunchKernel(args graphcapture.LaunchKernelArgs, state graphcapture.KernelState) error {
	cl.Appended = append(cl.Appended, "AppendLaunchKernel")
	return nil
}
func (cl *FakeCommandList) AppendLaunchKernelIndirect(args graphcapture.LaunchKernelIndirectArgs, state graphcapture.KernelState) error {
	cl.Appended = append(cl.Appended, "AppendLaunchKernelIndirect")
	return nil
}
func (cl *FakeCommandList) AppendLaunchCooperativeKernel(args graphcapture.LaunchCooperativeKernelArgs, state graphcapture.KernelState) error {
	cl.Appended = append(cl.Appended, "AppendLaunchCooperativeKernel")
	return nil
}
func (cl *FakeCommandList) AppendSignalExternalSemaphore(args graphcapture.SignalExternalSemaphoreArgs) error {
	cl.Appended = append(cl.Appended, "AppendSignalExternalSemaphore")
	return nil
}
func (cl *FakeCommandList) AppendWaitExternalSemaphore(args graphcapture.WaitExternalSemaphoreArgs) error {
	cl.Appended = append(cl.Appended, "AppendWaitExternalSemaphore")
	return nil
}
