// Package refdriver is a minimal in-memory implementation of the
// graphcapture boundary interfaces (Context, Device, CommandList, Event,
// Kernel). There is no real accelerator binding behind this module; the
// CLI uses refdriver to drive the capture/instantiate/execute pipeline
// end to end and show what the engine actually recorded and replayed.
package refdriver

import (
	"fmt"
	"sync/atomic"

	"github.com/zecapture/graph/internal/graphcapture"
)

var idSeq atomic.Uint64

func nextID() uint64 { return idSeq.Add(1) }

// Context is a trivial graphcapture.Context.
type Context struct{ id uint64 }

// NewContext allocates a Context with a fresh id.
func NewContext() *Context { return &Context{id: nextID()} }

// ID implements graphcapture.Context.
func (c *Context) ID() uint64 { return c.id }

// Device is a trivial graphcapture.Device.
type Device struct{ id uint64 }

// NewDevice allocates a Device with a fresh id.
func NewDevice() *Device { return &Device{id: nextID()} }

// ID implements graphcapture.Device.
func (d *Device) ID() uint64 { return d.id }

// KernelState is a no-op frozen kernel clone.
type KernelState struct{ id uint64 }

// ID implements graphcapture.KernelState.
func (k *KernelState) ID() uint64 { return k.id }

// Release implements graphcapture.KernelState.
func (k *KernelState) Release() {}

// Kernel is a named, dispatchable compute kernel.
type Kernel struct {
	id   uint64
	Name string
}

// NewKernel allocates a Kernel identified by name.
func NewKernel(name string) *Kernel { return &Kernel{id: nextID(), Name: name} }

// ID implements graphcapture.Kernel.
func (k *Kernel) ID() uint64 { return k.id }

// MakeDependentClone implements graphcapture.Kernel.
func (k *Kernel) MakeDependentClone() (graphcapture.KernelState, error) {
	return &KernelState{id: nextID()}, nil
}

// Event is a trivial graphcapture.Event; it carries no real hardware
// signal/wait state, only the bookkeeping the engine needs.
type Event struct {
	id          graphcapture.EventID
	external    bool
	signalledBy *graphcapture.Graph
}

// NewEvent allocates an Event. external marks it as visible to code
// outside the owning graph (SPEC_FULL.md's external-callback events).
func NewEvent(external bool) *Event {
	return &Event{id: graphcapture.EventID(nextID()), external: external}
}

// ID implements graphcapture.Event.
func (e *Event) ID() graphcapture.EventID { return e.id }

// IsExternalCallback implements graphcapture.Event.
func (e *Event) IsExternalCallback() bool { return e.external }

// RecordedSignalFrom implements graphcapture.Event.
func (e *Event) RecordedSignalFrom() *graphcapture.Graph { return e.signalledBy }

// SetRecordedSignalFrom implements graphcapture.Event.
func (e *Event) SetRecordedSignalFrom(g *graphcapture.Graph) { e.signalledBy = g }

// CaptureInOrderState implements graphcapture.Event, using the event's
// own id as an opaque snapshot token.
func (e *Event) CaptureInOrderState() graphcapture.EventInOrderState { return e.id }

// ReattachInOrderState implements graphcapture.Event. There is no real
// hardware waiter to re-point, so this is a no-op.
func (e *Event) ReattachInOrderState(graphcapture.EventInOrderState) {}

// CommandList is a graphcapture.CommandList that records every append it
// receives, in order, instead of submitting to real hardware.
type CommandList struct {
	id            graphcapture.CommandListID
	immediate     bool
	synchronous   bool
	ctx           graphcapture.Context
	dev           graphcapture.Device
	captureTarget *graphcapture.Graph
	patchPreamble bool

	Log []string
}

// NewCommandList allocates a non-synchronous CommandList scoped to
// ctx/dev, immediate-mode only when immediate is true. With immediate
// false it is the shape a physical replay-target list normally takes.
// Use NewImmediateCommandList for a list capable of implying a fork.
func NewCommandList(ctx graphcapture.Context, dev graphcapture.Device, immediate bool) *CommandList {
	return &CommandList{
		id:          graphcapture.CommandListID(nextID()),
		ctx:         ctx,
		dev:         dev,
		immediate:   immediate,
		synchronous: false,
	}
}

// NewImmediateCommandList allocates an immediate-mode, asynchronous
// CommandList: the only shape captureGate lets join a capture through a
// fork when the list has no capture target yet (SPEC_FULL.md §4.4 step 3).
// BeginCapture itself does not check the list's mode.
func NewImmediateCommandList(ctx graphcapture.Context, dev graphcapture.Device) *CommandList {
	return &CommandList{
		id:          graphcapture.CommandListID(nextID()),
		ctx:         ctx,
		dev:         dev,
		immediate:   true,
		synchronous: false,
	}
}

func (cl *CommandList) ID() graphcapture.CommandListID        { return cl.id }
func (cl *CommandList) Immediate() bool                       { return cl.immediate }
func (cl *CommandList) Synchronous() bool                     { return cl.synchronous }
func (cl *CommandList) CaptureTarget() *graphcapture.Graph    { return cl.captureTarget }
func (cl *CommandList) SetCaptureTarget(g *graphcapture.Graph) { cl.captureTarget = g }
func (cl *CommandList) Context() graphcapture.Context         { return cl.ctx }
func (cl *CommandList) Device() graphcapture.Device           { return cl.dev }
func (cl *CommandList) SetPatchingPreamble(enabled bool)      { cl.patchPreamble = enabled }

func (cl *CommandList) append(op string) { cl.Log = append(cl.Log, op) }

func (cl *CommandList) AppendCommandLists(lists []graphcapture.CommandList, waitEvents []graphcapture.Event, signal graphcapture.Event) error {
	cl.append(fmt.Sprintf("AppendCommandLists(lists=%d, waits=%d, signal=%v)", len(lists), len(waitEvents), signal != nil))
	return nil
}

func (cl *CommandList) AppendWaitOnEvents(events []graphcapture.Event) error {
	cl.append(fmt.Sprintf("AppendWaitOnEvents(%d)", len(events)))
	return nil
}

func (cl *CommandList) AppendSignalEvent(event graphcapture.Event) error {
	cl.append(fmt.Sprintf("AppendSignalEvent(%d)", event.ID()))
	return nil
}

func (cl *CommandList) AppendEventReset(event graphcapture.Event) error {
	cl.append(fmt.Sprintf("AppendEventReset(%d)", event.ID()))
	return nil
}

func (cl *CommandList) AppendMemoryCopy(args graphcapture.MemoryCopyArgs) error {
	cl.append(fmt.Sprintf("AppendMemoryCopy(size=%d)", args.Size))
	return nil
}

func (cl *CommandList) AppendBarrier(graphcapture.BarrierArgs) error {
	cl.append("AppendBarrier")
	return nil
}

func (cl *CommandList) AppendWriteGlobalTimestamp(graphcapture.WriteGlobalTimestampArgs) error {
	cl.append("AppendWriteGlobalTimestamp")
	return nil
}

func (cl *CommandList) AppendMemoryFill(args graphcapture.MemoryFillArgs, pattern []byte) error {
	cl.append(fmt.Sprintf("AppendMemoryFill(size=%d, pattern=%dB)", args.Size, len(pattern)))
	return nil
}

func (cl *CommandList) AppendMemoryCopyRegion(graphcapture.MemoryCopyRegionArgs) error {
	cl.append("AppendMemoryCopyRegion")
	return nil
}

func (cl *CommandList) AppendMemoryPrefetch(graphcapture.MemoryPrefetchArgs) error {
	cl.append("AppendMemoryPrefetch")
	return nil
}

func (cl *CommandList) AppendMemAdvise(graphcapture.MemAdviseArgs) error {
	cl.append("AppendMemAdvise")
	return nil
}

func (cl *CommandList) AppendQueryKernelTimestamps(args graphcapture.QueryKernelTimestampsArgs, events []graphcapture.EventID, offsets []uint64) error {
	cl.append(fmt.Sprintf("AppendQueryKernelTimestamps(%d events)", len(events)))
	return nil
}

func (cl *CommandList) AppendLaunchKernel(args graphcapture.LaunchKernelArgs, state graphcapture.KernelState) error {
	cl.append(fmt.Sprintf("AppendLaunchKernel(kernel=%d)", args.KernelID))
	return nil
}

func (cl *CommandList) AppendLaunchKernelIndirect(args graphcapture.LaunchKernelIndirectArgs, state graphcapture.KernelState) error {
	cl.append(fmt.Sprintf("AppendLaunchKernelIndirect(kernel=%d)", args.KernelID))
	return nil
}

func (cl *CommandList) AppendLaunchCooperativeKernel(args graphcapture.LaunchCooperativeKernelArgs, state graphcapture.KernelState) error {
	cl.append(fmt.Sprintf("AppendLaunchCooperativeKernel(kernel=%d)", args.KernelID))
	return nil
}

func (cl *CommandList) AppendSignalExternalSemaphore(args graphcapture.SignalExternalSemaphoreArgs) error {
	cl.append(fmt.Sprintf("AppendSignalExternalSemaphore(%d)", args.SemaphoreID))
	return nil
}

func (cl *CommandList) AppendWaitExternalSemaphore(args graphcapture.WaitExternalSemaphoreArgs) error {
	cl.append(fmt.Sprintf("AppendWaitExternalSemaphore(%d)", args.SemaphoreID))
	return nil
}

// Factory returns a graphcapture.CommandListFactory that creates fresh
// non-immediate CommandLists sharing one context/device, suitable as the
// instantiation planner's replay-target factory.
func Factory(ctx graphcapture.Context, dev graphcapture.Device) graphcapture.CommandListFactory {
	return func(graphcapture.Context) (graphcapture.CommandList, error) {
		return NewCommandList(ctx, dev, false), nil
	}
}
