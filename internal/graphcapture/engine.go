package graphcapture

import "sync/atomic"

// graphsEnabled is the process-wide capture kill switch (SPEC_FULL.md
// §4.4 step 1 / §12.4's "ForceGraphForkPolicy"-style debug overrides):
// every Capture<Tag> call consults it before doing anything else. Off by
// default would make the whole engine inert, so it starts enabled.
var graphsEnabled atomic.Bool

func init() {
	graphsEnabled.Store(true)
}

// GraphsEnabled reports whether graph capture is currently enabled
// process-wide.
func GraphsEnabled() bool {
	return graphsEnabled.Load()
}

// SetGraphsEnabled toggles the process-wide capture kill switch. Intended
// for the Engine config's debug override, not for per-request use.
func SetGraphsEnabled(enabled bool) {
	graphsEnabled.Store(enabled)
}

// Engine is the boundary API surface (SPEC_FULL.md §12): the handful of
// operations a command-list implementation or a higher-level service
// calls to drive capture, instantiation, and replay. It holds no capture
// state itself beyond the physical-list factory; all state lives on the
// Graph/ExecutableGraph values it hands back.
type Engine struct {
	factory CommandListFactory
}

// NewEngine creates an Engine that materializes replay command lists
// using factory.
func NewEngine(factory CommandListFactory) *Engine {
	return &Engine{factory: factory}
}

// Create preallocates a graph that is not yet capturing anything.
// Capture is later attached to it with BeginCaptureInto.
func (e *Engine) Create(ctx Context) *Graph {
	return NewGraph(ctx, true)
}

// BeginCapture allocates a fresh graph and starts capturing cl's appends
// into it.
func (e *Engine) BeginCapture(cl CommandList) (*Graph, error) {
	if cl == nil {
		return nil, newInvalidArgument("command list is nil")
	}
	if !GraphsEnabled() {
		return nil, newNotAvailable("graph capture is disabled")
	}
	if cl.CaptureTarget() != nil {
		return nil, newInvalidCommandListType("command list is already capturing")
	}
	g := NewGraph(cl.Context(), false)
	g.StartCapturingFrom(cl, false)
	cl.SetCaptureTarget(g)
	return g, nil
}

// BeginCaptureInto starts capturing cl's appends into a graph previously
// returned by Create.
func (e *Engine) BeginCaptureInto(cl CommandList, g *Graph) error {
	if cl == nil || g == nil {
		return newInvalidArgument("command list or graph is nil")
	}
	if !GraphsEnabled() {
		return newNotAvailable("graph capture is disabled")
	}
	if cl.CaptureTarget() != nil {
		return newInvalidCommandListType("command list is already capturing")
	}
	if !g.WasPreallocated() {
		return newInvalidArgument("graph was not created via Create")
	}
	g.StartCapturingFrom(cl, false)
	cl.SetCaptureTarget(g)
	return nil
}

// EndCapture stops capturing on cl and closes its graph (and, through
// StopCapturing's recursion, every subgraph it forked). cl must be a
// root capture target, not a command list a fork attached a subgraph to
// directly: only the root that began the capture can end it.
func (e *Engine) EndCapture(cl CommandList) (*Graph, error) {
	if cl == nil {
		return nil, newInvalidArgument("command list is nil")
	}
	g := cl.CaptureTarget()
	if g == nil {
		return nil, newNotAvailable("command list is not currently capturing")
	}
	if g.IsSubGraph() {
		return nil, newInvalidCommandListType("cannot end capture on a forked command list directly")
	}
	g.StopCapturing()
	return g, nil
}

// IsCaptureEnabled reports whether cl is currently being captured into a
// graph.
func (e *Engine) IsCaptureEnabled(cl CommandList) bool {
	return cl != nil && cl.CaptureTarget() != nil
}

// IsEmpty reports whether g (and every subgraph it forked) recorded no
// commands.
func (e *Engine) IsEmpty(g *Graph) bool {
	return g == nil || g.Empty()
}

// Instantiate materializes g into replayable physical command lists.
func (e *Engine) Instantiate(g *Graph, settings GraphInstantiateSettings) (*ExecutableGraph, error) {
	return Instantiate(g, settings, e.factory)
}

// Execute replays eg against target (or eg's original capture source if
// target is nil), honoring waitEvents as a prelude and signal as a
// postlude, then hands the result to submit.
func (e *Engine) Execute(eg *ExecutableGraph, target CommandList, waitEvents []Event, signal Event, submit Submitter) error {
	return Execute(eg, target, waitEvents, signal, submit)
}

// Destroy releases an executable graph's resources (kernel clones held
// in external storage). The source Graph's recorded commands are
// untouched, so a fresh Instantiate can still run from it.
func (e *Engine) Destroy(eg *ExecutableGraph) {
	if eg != nil {
		eg.Destroy()
	}
}
