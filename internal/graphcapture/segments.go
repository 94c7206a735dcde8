package graphcapture

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/zecapture/graph/pkg/collections"
)

// OrderedCommandsSegment is a contiguous run of commands recorded by one
// subgraph, registered into the OrderedSegmentsRegistry shared by a root
// graph and all of its descendants. Segments interleave across subgraphs
// in the order they were closed off, which is what lets the instantiation
// planner (C7) rebuild a single global replay order from many per-graph
// command vectors.
type OrderedCommandsSegment struct {
	// Owner identifies which Graph recorded this segment (by pointer
	// identity; the registry never dereferences it).
	Owner *Graph
	// FirstGlobalID is the first CapturedCommandID in this segment.
	FirstGlobalID CapturedCommandID
	// FirstLocalIndex is the index into Owner's local commands slice
	// where this segment begins.
	FirstLocalIndex int
	// Count is the number of commands in this segment.
	Count int
}

// Empty reports whether the segment carries no commands.
func (s OrderedCommandsSegment) Empty() bool {
	return s.Count == 0
}

// OrderedSegmentsRegistry hands out globally unique CapturedCommandIDs
// and tracks the order in which segments across a fork/join family were
// closed. The fast path (acquiring the next id) is lock-free; the mutex
// is only taken when a segment is registered or the registry is closed,
// matching the original's atomic-fetch-add-plus-mutex design (C3 / §5).
type OrderedSegmentsRegistry struct {
	nextID atomic.Uint32

	mu       sync.Mutex
	segments []OrderedCommandsSegment
	closed   bool
	// claimed tracks which CapturedCommandIDs have already been covered
	// by a registered segment, catching a planner/dispatcher bug that
	// double-registers or overlaps a range before it corrupts replay
	// order silently.
	claimed *collections.VersionedBitset
}

// NewOrderedSegmentsRegistry creates an open, empty registry.
func NewOrderedSegmentsRegistry() *OrderedSegmentsRegistry {
	return &OrderedSegmentsRegistry{claimed: collections.NewVersionedBitset(64)}
}

// AcquireNextCommandID atomically reserves the next global command id.
func (r *OrderedSegmentsRegistry) AcquireNextCommandID() CapturedCommandID {
	return CapturedCommandID(r.nextID.Add(1) - 1)
}

// RegisterSegment inserts a segment into the registry at the position
// that keeps the segment list sorted by FirstGlobalID. Registration order
// is not the same as global order: StopCapturing registers a graph's own
// segments before recursing into its subgraphs (see graph.go), so a
// child's segment — spanning global ids that fall strictly between two
// of its parent's already-registered segments — routinely arrives after
// segments that begin later. Panics if the registry is already closed, the
// segment is zero-length, or its range exceeds commands actually issued so
// far (mirrors the original's UNRECOVERABLE_IF invariant checks).
func (r *OrderedSegmentsRegistry) RegisterSegment(seg OrderedCommandsSegment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		panic("graphcapture: RegisterSegment called on a closed registry")
	}
	if seg.Count == 0 {
		panic("graphcapture: RegisterSegment called with a zero-length segment")
	}
	if seg.FirstGlobalID+CapturedCommandID(seg.Count) > CapturedCommandID(r.nextID.Load()) {
		panic("graphcapture: segment exceeds commands issued so far")
	}
	for i := 0; i < seg.Count; i++ {
		id := int(seg.FirstGlobalID) + i
		if r.claimed.Test(id) {
			panic("graphcapture: segment overlaps a previously registered command id")
		}
		r.claimed.Set(id)
	}

	idx := sort.Search(len(r.segments), func(i int) bool {
		return r.segments[i].FirstGlobalID >= seg.FirstGlobalID
	})
	r.segments = append(r.segments, OrderedCommandsSegment{})
	copy(r.segments[idx+1:], r.segments[idx:])
	r.segments[idx] = seg
}

// Close freezes the registry; no further segments may be registered.
func (r *OrderedSegmentsRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// Closed reports whether the registry has been closed.
func (r *OrderedSegmentsRegistry) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Empty reports whether the registry holds no segments.
func (r *OrderedSegmentsRegistry) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.segments) == 0
}

// Segments returns a snapshot of the registered segments in ascending
// FirstGlobalID (capture) order. Only safe to call once the registry is
// closed.
func (r *OrderedSegmentsRegistry) Segments() []OrderedCommandsSegment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OrderedCommandsSegment, len(r.segments))
	copy(out, r.segments)
	return out
}
