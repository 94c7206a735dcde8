package graphcapture_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/zecapture/graph/pkg/errors"

	"github.com/zecapture/graph/internal/graphcapture"
	"github.com/zecapture/graph/internal/testutil"
)

func TestEngine_LinearCapture_RecordsCommandsInOrder(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	cl := testutil.NewFakeCommandList(1, ctx, dev)

	engine := graphcapture.NewEngine(func(ctx graphcapture.Context) (graphcapture.CommandList, error) {
		return testutil.NewFakeCommandList(99, ctx, dev), nil
	})

	g, err := engine.BeginCapture(cl)
	require.NoError(t, err)
	require.True(t, engine.IsCaptureEnabled(cl))

	graphcapture.CaptureMemoryCopy(cl, graphcapture.MemoryCopyArgs{Size: 64}, nil, nil)
	graphcapture.CaptureBarrier(cl, graphcapture.BarrierArgs{}, nil, nil)

	stopped, err := engine.EndCapture(cl)
	require.NoError(t, err)
	require.Same(t, g, stopped)
	require.False(t, engine.IsCaptureEnabled(cl))
	require.True(t, g.Closed())
	require.False(t, g.Empty())
	require.Len(t, g.GetCapturedCommands(), 2)
	require.Equal(t, graphcapture.ApiMemoryCopy, g.GetCapturedCommands()[0].Tag)
	require.Equal(t, graphcapture.ApiBarrier, g.GetCapturedCommands()[1].Tag)
}

func TestEngine_EmptyCapture_IsEmpty(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	cl := testutil.NewFakeCommandList(1, ctx, dev)

	engine := graphcapture.NewEngine(nil)
	g, err := engine.BeginCapture(cl)
	require.NoError(t, err)

	_, err = engine.EndCapture(cl)
	require.NoError(t, err)
	require.True(t, engine.IsEmpty(g))
}

func TestEngine_BeginCapture_RejectsAlreadyCapturing(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	cl := testutil.NewFakeCommandList(1, ctx, dev)

	engine := graphcapture.NewEngine(nil)
	_, err := engine.BeginCapture(cl)
	require.NoError(t, err)

	_, err = engine.BeginCapture(cl)
	require.Error(t, err)
}

func TestForkJoin_PromotedWhenJoinEventIsLastSignalOfChild(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	parentList := testutil.NewFakeCommandList(1, ctx, dev)
	childList := testutil.NewFakeCommandList(2, ctx, dev)

	root := graphcapture.NewGraph(ctx, false)
	root.StartCapturingFrom(parentList, false)
	parentList.SetCaptureTarget(root)

	forkEvent := testutil.NewFakeEvent(10)
	graphcapture.CaptureSignalEvent(parentList, forkEvent)
	require.True(t, root.GetCapturedCommands()[0].Signal != nil)

	// childList waits on forkEvent with no capture target yet: this forks
	// root into a new subgraph capturing childList.
	child := root.ForkTo(childList, forkEvent)
	require.True(t, child.IsSubGraph())
	require.True(t, root.HasUnjoinedForks())

	joinEvent := testutil.NewFakeEvent(20)
	graphcapture.CaptureSignalEvent(childList, joinEvent)

	// The parent's next command waits on joinEvent: the dispatcher
	// should detect, purely from that wait list, that joinEvent was
	// signaled by its forked child and record a join candidate.
	graphcapture.CaptureBarrier(parentList, graphcapture.BarrierArgs{}, []graphcapture.Event{joinEvent}, nil)

	root.StopCapturing()
	require.False(t, root.HasUnjoinedForks(), "fork should be joined: join event was the last command signaled by the child")
}

func TestForkJoin_StaysUnjoinedWhenCandidateIsNotLastChildCommand(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	parentList := testutil.NewFakeCommandList(1, ctx, dev)
	childList := testutil.NewFakeCommandList(2, ctx, dev)

	root := graphcapture.NewGraph(ctx, false)
	root.StartCapturingFrom(parentList, false)
	parentList.SetCaptureTarget(root)

	forkEvent := testutil.NewFakeEvent(10)
	graphcapture.CaptureSignalEvent(parentList, forkEvent)
	root.ForkTo(childList, forkEvent)

	joinEvent := testutil.NewFakeEvent(20)
	graphcapture.CaptureSignalEvent(childList, joinEvent)
	// The child records one more command after signaling joinEvent, so
	// joinEvent is no longer the last thing the child signaled.
	graphcapture.CaptureBarrier(childList, graphcapture.BarrierArgs{}, nil, nil)

	graphcapture.CaptureBarrier(parentList, graphcapture.BarrierArgs{}, []graphcapture.Event{joinEvent}, nil)

	root.StopCapturing()
	require.True(t, root.HasUnjoinedForks(), "fork should remain unjoined: join candidate was not the child's last command")
}

func TestSubgraphCount_CountsNestedForksNotJustDirectChildren(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	parentList := testutil.NewFakeCommandList(1, ctx, dev)
	childList := testutil.NewFakeCommandList(2, ctx, dev)
	grandchildList := testutil.NewFakeCommandList(3, ctx, dev)

	root := graphcapture.NewGraph(ctx, false)
	root.StartCapturingFrom(parentList, false)
	parentList.SetCaptureTarget(root)

	forkEvent := testutil.NewFakeEvent(10)
	graphcapture.CaptureSignalEvent(parentList, forkEvent)
	child := root.ForkTo(childList, forkEvent)

	nestedForkEvent := testutil.NewFakeEvent(11)
	graphcapture.CaptureSignalEvent(childList, nestedForkEvent)
	child.ForkTo(grandchildList, nestedForkEvent)

	require.Len(t, root.GetSubgraphs(), 1, "only the direct child is attached to root")
	require.Equal(t, 2, root.SubgraphCount(), "SubgraphCount must also see the fork-of-a-fork")
}

func TestInstantiate_RejectsGraphWithUnjoinedForks(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	parentList := testutil.NewFakeCommandList(1, ctx, dev)
	childList := testutil.NewFakeCommandList(2, ctx, dev)

	root := graphcapture.NewGraph(ctx, false)
	root.StartCapturingFrom(parentList, false)
	parentList.SetCaptureTarget(root)

	forkEvent := testutil.NewFakeEvent(10)
	graphcapture.CaptureSignalEvent(parentList, forkEvent)
	root.ForkTo(childList, forkEvent)
	root.StopCapturing()

	require.True(t, root.HasUnjoinedForks())

	_, err := graphcapture.Instantiate(root, graphcapture.GraphInstantiateSettings{}, func(ctx graphcapture.Context) (graphcapture.CommandList, error) {
		return testutil.NewFakeCommandList(99, ctx, dev), nil
	})
	require.Error(t, err)
}

func TestInstantiate_MonolithicProducesSingleList(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	cl := testutil.NewFakeCommandList(1, ctx, dev)

	root := graphcapture.NewGraph(ctx, false)
	root.StartCapturingFrom(cl, false)
	cl.SetCaptureTarget(root)
	graphcapture.CaptureMemoryCopy(cl, graphcapture.MemoryCopyArgs{Size: 8}, nil, nil)
	root.StopCapturing()

	eg, err := graphcapture.Instantiate(root, graphcapture.GraphInstantiateSettings{ForkPolicy: graphcapture.MonolithicLevels},
		func(ctx graphcapture.Context) (graphcapture.CommandList, error) {
			return testutil.NewFakeCommandList(99, ctx, dev), nil
		})
	require.NoError(t, err)
	require.Len(t, eg.PhysicalLists(), 1)

	executed := false
	err = graphcapture.Execute(eg, cl, nil, nil, func(l graphcapture.CommandList) error {
		executed = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, executed)
}

func TestInstantiate_MonolithicMergesForkedSubgraphIntoOneList(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	parentList := testutil.NewFakeCommandList(1, ctx, dev)
	childList := testutil.NewFakeCommandList(2, ctx, dev)

	root := forkJoinGraph(ctx, parentList, childList)
	require.False(t, root.HasUnjoinedForks())

	eg, err := graphcapture.Instantiate(root, graphcapture.GraphInstantiateSettings{ForkPolicy: graphcapture.MonolithicLevels},
		func(ctx graphcapture.Context) (graphcapture.CommandList, error) {
			return testutil.NewFakeCommandList(99, ctx, dev), nil
		})
	require.NoError(t, err)

	// Matches spec.md's S6 worked example exactly: a single-queue device
	// defaulting to MonolithicLevels instantiates S2's fork/join into one
	// physical list, with the join command appended to that same list.
	require.Len(t, eg.PhysicalLists(), 1)
}

func TestExecute_EmptyGraph_EmitsWaitAndSignalWithoutDispatch(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	cl := testutil.NewFakeCommandList(1, ctx, dev)

	root := graphcapture.NewGraph(ctx, false)
	root.StartCapturingFrom(cl, false)
	cl.SetCaptureTarget(root)
	root.StopCapturing()
	require.True(t, root.Empty())

	eg, err := graphcapture.Instantiate(root, graphcapture.GraphInstantiateSettings{},
		func(ctx graphcapture.Context) (graphcapture.CommandList, error) {
			return testutil.NewFakeCommandList(99, ctx, dev), nil
		})
	require.NoError(t, err)
	require.True(t, eg.Empty())

	wait := testutil.NewFakeEvent(1)
	signal := testutil.NewFakeEvent(2)
	submitted := false
	err = graphcapture.Execute(eg, cl, []graphcapture.Event{wait}, signal, func(l graphcapture.CommandList) error {
		submitted = true
		return nil
	})
	require.NoError(t, err)
	require.False(t, submitted, "an empty graph must not dispatch anything")
	require.Contains(t, cl.Appended, "AppendWaitOnEvents")
	require.Contains(t, cl.Appended, "AppendSignalEvent")
}

func TestExecute_NoOpWhenEmptyAndNoSignalOrWait(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	cl := testutil.NewFakeCommandList(1, ctx, dev)

	root := graphcapture.NewGraph(ctx, false)
	root.StartCapturingFrom(cl, false)
	cl.SetCaptureTarget(root)
	root.StopCapturing()

	eg, err := graphcapture.Instantiate(root, graphcapture.GraphInstantiateSettings{},
		func(ctx graphcapture.Context) (graphcapture.CommandList, error) {
			return testutil.NewFakeCommandList(99, ctx, dev), nil
		})
	require.NoError(t, err)

	err = graphcapture.Execute(eg, cl, nil, nil, nil)
	require.NoError(t, err)
	require.Empty(t, cl.Appended)
}

// forkJoinGraph captures the spec's S2 scenario (fork, then join) on
// freshly provided command lists and returns the now-closed root graph.
func forkJoinGraph(ctx *testutil.FakeContext, parentList, childList *testutil.FakeCommandList) *graphcapture.Graph {
	root := graphcapture.NewGraph(ctx, false)
	root.StartCapturingFrom(parentList, false)
	parentList.SetCaptureTarget(root)
	graphcapture.CaptureMemoryCopy(parentList, graphcapture.MemoryCopyArgs{Size: 8}, nil, nil)

	forkEvent := testutil.NewFakeEvent(10)
	graphcapture.CaptureSignalEvent(parentList, forkEvent)
	root.ForkTo(childList, forkEvent)

	joinEvent := testutil.NewFakeEvent(20)
	graphcapture.CaptureSignalEvent(childList, joinEvent)
	graphcapture.CaptureBarrier(parentList, graphcapture.BarrierArgs{}, []graphcapture.Event{joinEvent}, nil)

	root.StopCapturing()
	return root
}

func TestInstantiate_SplitCutsAtEverySegmentBoundary(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	parentList := testutil.NewFakeCommandList(1, ctx, dev)
	childList := testutil.NewFakeCommandList(2, ctx, dev)

	root := forkJoinGraph(ctx, parentList, childList)
	require.False(t, root.HasUnjoinedForks())

	var created []*testutil.FakeCommandList
	eg, err := graphcapture.Instantiate(root, graphcapture.GraphInstantiateSettings{ForkPolicy: graphcapture.SplitLevels},
		func(ctx graphcapture.Context) (graphcapture.CommandList, error) {
			fcl := testutil.NewFakeCommandList(graphcapture.CommandListID(100+len(created)), ctx, dev)
			created = append(created, fcl)
			return fcl, nil
		})
	require.NoError(t, err)

	// root's pre-fork segment, the forked child's segment, and root's
	// post-join segment each get their own physical list: three total,
	// none of them linked together via AppendCommandLists at instantiate
	// time (that would reintroduce the single-HW-queue deadlock
	// SplitLevels exists to avoid).
	require.Len(t, eg.PhysicalLists(), 3)
	for _, fcl := range created {
		require.NotContains(t, fcl.Appended, "AppendCommandLists", "no physical list should be linked into another at instantiate time")
	}
}

func TestExecute_SplitDispatchesEachSegmentSeparately(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	parentList := testutil.NewFakeCommandList(1, ctx, dev)
	childList := testutil.NewFakeCommandList(2, ctx, dev)

	root := forkJoinGraph(ctx, parentList, childList)
	require.False(t, root.HasUnjoinedForks())

	var created []*testutil.FakeCommandList
	eg, err := graphcapture.Instantiate(root, graphcapture.GraphInstantiateSettings{ForkPolicy: graphcapture.SplitLevels},
		func(ctx graphcapture.Context) (graphcapture.CommandList, error) {
			fcl := testutil.NewFakeCommandList(graphcapture.CommandListID(100+len(created)), ctx, dev)
			created = append(created, fcl)
			return fcl, nil
		})
	require.NoError(t, err)
	require.Len(t, created, 3)

	target := testutil.NewFakeCommandList(3, ctx, dev)
	wait := testutil.NewFakeEvent(1)
	signal := testutil.NewFakeEvent(2)
	var submitted int
	err = graphcapture.Execute(eg, target, []graphcapture.Event{wait}, signal, func(l graphcapture.CommandList) error {
		submitted++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, submitted, "Execute must dispatch every schedule entry as its own submission")

	require.Equal(t, []string{"AppendCommandLists", "AppendCommandLists", "AppendCommandLists"}, target.Appended)
	for _, fcl := range created {
		require.False(t, fcl.PatchingPreambleEnabled(), "preamble toggle must be restored to false after each dispatch")
	}
}

func TestCaptureGate_RejectsNonImmediateListWithNoForkImplied(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	cl := testutil.NewFakeCommandList(1, ctx, dev)

	g, err := graphcapture.CaptureBarrier(cl, graphcapture.BarrierArgs{}, nil, nil)
	require.Nil(t, g)
	require.Error(t, err)
	require.Equal(t, apperrors.CodeNotAvailable, apperrors.GetErrorCode(err))
}

func TestCaptureGate_RejectsNonImmediateListWhenForkImplied(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	parentList := testutil.NewFakeCommandList(1, ctx, dev)
	childList := testutil.NewFakeCommandList(2, ctx, dev)

	root := graphcapture.NewGraph(ctx, false)
	root.StartCapturingFrom(parentList, false)
	parentList.SetCaptureTarget(root)

	forkEvent := testutil.NewFakeEvent(10)
	_, err := graphcapture.CaptureSignalEvent(parentList, forkEvent)
	require.NoError(t, err)

	// childList has no capture target and is not immediate/non-synchronous,
	// but it waits on forkEvent, which root (still open) last signaled:
	// the gate must distinguish this from "no capture in play" and report
	// InvalidCommandListType instead of NotAvailable.
	g, err := graphcapture.CaptureBarrier(childList, graphcapture.BarrierArgs{}, []graphcapture.Event{forkEvent}, nil)
	require.Nil(t, g)
	require.Error(t, err)
	require.Equal(t, apperrors.CodeInvalidCommandListType, apperrors.GetErrorCode(err))
}

func TestCaptureGate_ForksThroughDispatchWhenListIsImmediate(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	parentList := testutil.NewFakeCommandList(1, ctx, dev)
	childList := testutil.NewFakeCommandList(2, ctx, dev)
	childList.ImmediateFlag = true

	root := graphcapture.NewGraph(ctx, false)
	root.StartCapturingFrom(parentList, false)
	parentList.SetCaptureTarget(root)

	forkEvent := testutil.NewFakeEvent(10)
	_, err := graphcapture.CaptureSignalEvent(parentList, forkEvent)
	require.NoError(t, err)

	child, err := graphcapture.CaptureBarrier(childList, graphcapture.BarrierArgs{}, []graphcapture.Event{forkEvent}, nil)
	require.NoError(t, err)
	require.NotNil(t, child)
	require.True(t, child.IsSubGraph())
	require.True(t, root.HasUnjoinedForks())
	require.Same(t, child, childList.CaptureTarget())
}

func TestCaptureGate_DisabledGlobally(t *testing.T) {
	ctx := &testutil.FakeContext{IDValue: 1}
	dev := &testutil.FakeDevice{IDValue: 1}
	cl := testutil.NewFakeCommandList(1, ctx, dev)
	cl.ImmediateFlag = true

	graphcapture.SetGraphsEnabled(false)
	defer graphcapture.SetGraphsEnabled(true)

	engine := graphcapture.NewEngine(nil)
	_, err := engine.BeginCapture(cl)
	require.Error(t, err)
	require.Equal(t, apperrors.CodeNotAvailable, apperrors.GetErrorCode(err))

	g, err := graphcapture.CaptureBarrier(cl, graphcapture.BarrierArgs{}, nil, nil)
	require.Nil(t, g)
	require.Error(t, err)
	require.Equal(t, apperrors.CodeNotAvailable, apperrors.GetErrorCode(err))
}
