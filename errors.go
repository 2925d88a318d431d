package treeture

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying the category of a violated invariant. All
// three name programming errors: none is returned through the ordinary
// error-return channel, because none of them is a condition a caller can
// recover from mid-run. Instead they are wrapped (%w) into the panic value
// invariant() raises, so a recovering caller — a test, or a harness that
// wants to tell "the state machine is broken" apart from "a task body
// failed" — can identify the violation with errors.As/errors.Is on the
// recovered value.
var (
	// ErrIllegalTransition indicates a task's state field was asked to
	// move to a state its current state cannot reach directly.
	ErrIllegalTransition = errors.New("treeture: illegal state transition")
	// ErrOrphanReference indicates a TaskReference was built from a task
	// that has never been adopted into a family.
	ErrOrphanReference = errors.New("treeture: cannot reference a task with no family")
	// ErrUnreleasedTask indicates an UnreleasedTreeture was consumed a
	// second time: released twice, or released after already being
	// embedded as another task's child.
	ErrUnreleasedTask = errors.New("treeture: task already released or adopted elsewhere")
)

// BodyPanicError wraps a panic recovered from a leaf task body. Surfacing
// body errors through the value channel is a compatible extension the core
// spec explicitly allows rather than requires.
type BodyPanicError struct {
	TaskID TaskID
	Value  any
}

func (e BodyPanicError) Error() string {
	return fmt.Sprintf("treeture: panic in task %s: %v", e.TaskID, e.Value)
}

// invariant panics with a fmt.Errorf-wrapped error on a violated
// state-machine or lifetime invariant. These are programming errors: the
// core has no recoverable notion of "the state machine did something
// illegal partway through a run".
func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf(format, args...))
	}
}

// invariantWrap behaves like invariant but wraps sentinel into the panic
// value with %w, so the violation can additionally be identified by kind.
func invariantWrap(cond bool, sentinel error, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf(format+": %w", append(args, sentinel)...))
	}
}
