package treeture

import "sync/atomic"

// familyIDCounter allocates monotonic family ids with a single
// package-level atomic counter.
var familyIDCounter atomic.Uint64

func nextFamilyID() uint64 {
	return familyIDCounter.Add(1)
}

// TaskFamily groups every task descended from a single released root task
// and owns the dependencyManager that resolves path-scoped dependencies
// against that tree. Every root-level release allocates a fresh family;
// internal subtasks join it via adoption when they split or are combined.
type TaskFamily struct {
	id   uint64
	deps *dependencyManager
}

// newTaskFamily allocates a family with a dependency manager bound to
// depth. depth <= 0 uses defaultDependencyDepth.
func newTaskFamily(depth int) *TaskFamily {
	return &TaskFamily{
		id:   nextFamilyID(),
		deps: newDependencyManager(depth),
	}
}

// ID returns the family's unique, monotonically increasing identifier.
func (f *TaskFamily) ID() uint64 {
	if f == nil {
		return 0
	}
	return f.id
}

// IsComplete reports whether path has completed within this family.
func (f *TaskFamily) IsComplete(path TaskPath) bool {
	if f == nil {
		return true
	}
	return f.deps.isComplete(path)
}

// addDependency registers waiter as blocked on path completing within this
// family.
func (f *TaskFamily) addDependency(w *Worker, waiter dependencyWaiter, path TaskPath) {
	f.deps.addDependency(w, waiter, path)
}

// markDone marks path as complete within this family, signalling any
// waiters registered on it or an ancestor of it.
func (f *TaskFamily) markDone(w *Worker, path TaskPath) {
	f.deps.markComplete(w, path)
}
