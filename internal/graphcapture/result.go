package graphcapture

import (
	"fmt"

	apperrors "github.com/zecapture/graph/pkg/errors"
)

// newUnsupportedFeature reports that a closure's tag has no replay
// handling wired up. Reachable in practice only if a future ApiTag is
// added to the enum without a matching case in instantiateTo.
func newUnsupportedFeature(tag ApiTag) error {
	return apperrors.Wrap(apperrors.CodeUnsupportedFeature, fmt.Sprintf("unsupported captured api %s", tag), nil)
}

// newInvalidGraph reports that a graph is not in a state the caller
// requested of it (e.g. instantiating a graph with unjoined forks).
func newInvalidGraph(reason string) error {
	return apperrors.Wrap(apperrors.CodeInvalidGraph, reason, nil)
}

// newInvalidCommandListType reports that the given command list cannot
// participate in graph capture (e.g. it is already capturing, or it is
// not an immediate asynchronous list but its wait-event traffic implies a
// fork).
func newInvalidCommandListType(reason string) error {
	return apperrors.Wrap(apperrors.CodeInvalidCommandListType, reason, nil)
}

// newNotAvailable reports that the requested operation has no captured
// state to act on (e.g. EndCapture on a command list that is not
// capturing).
func newNotAvailable(reason string) error {
	return apperrors.Wrap(apperrors.CodeNotAvailable, reason, nil)
}

// newInvalidArgument reports a caller-supplied argument that fails a
// precondition (nil command list, nil graph, unknown fork policy, and so
// on).
func newInvalidArgument(reason string) error {
	return apperrors.Wrap(apperrors.CodeInvalidArgument, reason, nil)
}
