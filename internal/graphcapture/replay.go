package graphcapture

// This file is the replay driver (C8). It walks the ordered-commands
// schedule C7 built at Instantiate time (one entry per physical list, in
// capture order) and dispatches each entry as its own
// target.AppendCommandLists submission, exactly as SPEC_FULL.md §4.6
// describes. Nothing is cascaded together ahead of time: under
// SplitLevels this is what actually lets a forked subgraph's list be
// submitted and start executing before the parent's post-join segment is
// even dispatched, which is the whole point of the policy (see the
// SplitLevels doc comment in planner.go).

// Submitter hands target off for execution however the owning runtime
// chooses to (queued, synchronous, whatever), once per replay-schedule
// entry dispatched. The graph-capture engine never calls it when the
// graph is empty (SPEC_FULL.md §4.6 item 2), and calls it exactly once
// for a single-entry schedule, or once per entry (first/middle/last) for
// a multi-entry one.
type Submitter func(cl CommandList) error

func dispatchSchedule(target CommandList, list CommandList, disablePatchingPreamble bool, wait []Event, signal Event) error {
	if !disablePatchingPreamble {
		list.SetPatchingPreamble(true)
	}
	err := target.AppendCommandLists([]CommandList{list}, wait, signal)
	if !disablePatchingPreamble {
		list.SetPatchingPreamble(false)
	}
	return err
}

// Execute replays eg against target, honoring a wait-events prelude and a
// signal-event postlude exactly as SPEC_FULL.md §4.6 describes:
//
//   - target defaults to eg's original capture source if nil.
//   - an empty graph never dispatches anything: it only emits the
//     wait-on-events barrier and/or signal-event directly onto target.
//   - if the schedule has exactly one entry, it is dispatched with the
//     caller's wait-events prelude and signal-event postlude.
//   - otherwise, monolithicMode = the schedule touches only one physical
//     command list; splitMode = otherwise. The first entry carries the
//     wait-events prelude and is signaled only under monolithicMode; every
//     middle entry carries neither; the last entry carries no wait events
//     and is signaled only under splitMode.
//
// Each dispatch brackets its physical list with SetPatchingPreamble,
// toggled off again once submitted (DisablePatchingPreamble skips this).
// submit is invoked with target after every dispatch, once per schedule
// entry; external-callback events are rebound once, after the last
// dispatch. Safe to call more than once: nothing
// about an ExecutableGraph is consumed by submission.
func Execute(eg *ExecutableGraph, target CommandList, waitEvents []Event, signal Event, submit Submitter) error {
	if eg == nil {
		return newInvalidArgument("executable graph is nil")
	}
	if target == nil {
		target = eg.ExecutionTarget()
	}
	if target == nil {
		return newInvalidArgument("no execution target for replay")
	}

	if eg.Empty() {
		if len(waitEvents) > 0 {
			if err := target.AppendWaitOnEvents(waitEvents); err != nil {
				return err
			}
		}
		if signal != nil {
			return target.AppendSignalEvent(signal)
		}
		return nil
	}

	schedule := eg.schedule
	if len(schedule) == 0 {
		return newInvalidGraph("executable graph has no replay schedule")
	}

	disablePreamble := eg.settings.DisablePatchingPreamble
	submitOne := func(list CommandList, wait []Event, sig Event) error {
		if err := dispatchSchedule(target, list, disablePreamble, wait, sig); err != nil {
			return err
		}
		if submit == nil {
			return nil
		}
		return submit(target)
	}

	if len(schedule) == 1 {
		if err := submitOne(schedule[0].list, waitEvents, signal); err != nil {
			return err
		}
		eg.RebindCallbackEvents()
		return nil
	}

	monolithicMode := len(eg.physicalLists) == 1
	splitMode := !monolithicMode

	first := schedule[0]
	firstSignal := signal
	if !monolithicMode {
		firstSignal = nil
	}
	if err := submitOne(first.list, waitEvents, firstSignal); err != nil {
		return err
	}

	for _, entry := range schedule[1 : len(schedule)-1] {
		if err := submitOne(entry.list, nil, nil); err != nil {
			return err
		}
	}

	last := schedule[len(schedule)-1]
	lastSignal := signal
	if !splitMode {
		lastSignal = nil
	}
	if err := submitOne(last.list, nil, lastSignal); err != nil {
		return err
	}

	eg.RebindCallbackEvents()
	return nil
}

// ExecuteSegment replays only the physical list registered for
// segmentStart, without touching the rest of the family, mirroring the
// original's executeSegment(segmentStart) (SPEC_FULL.md §4.6). Returns
// success without submitting anything if segmentStart was absorbed into
// a preceding segment's list. Intended for callers that manage their own
// scheduling across forked subgraphs instead of relying on Execute's
// built-in first/middle/last walk (for example a scheduler that wants to
// run independent forks on different queues).
func ExecuteSegment(eg *ExecutableGraph, segmentStart CapturedCommandID, submit Submitter) error {
	if eg == nil {
		return newInvalidArgument("executable graph is nil")
	}
	list, ok := eg.listForSegmentStart(segmentStart)
	if !ok {
		return nil
	}
	return submit(list)
}
