package treeture

// TaskReference is a family/path handle to a task that can be waited on or
// depended upon without knowing the value type it produces. It is what
// Treeture[T].Reference() erases to, and what After() accepts to build a
// Dependencies set for a new task.
type TaskReference struct {
	family *TaskFamily
	path   TaskPath
}

// referenceOf builds a TaskReference from a task's core. The task must
// already belong to a family: referencing an orphan task is a lifetime
// violation, since nothing durable exists yet to reference.
func referenceOf(core *taskCore) TaskReference {
	invariantWrap(core.family != nil, ErrOrphanReference, "treeture: cannot reference a task with no family")
	return TaskReference{family: core.family, path: core.path}
}

// IsDone reports whether the referenced task has completed.
func (r TaskReference) IsDone() bool {
	if r.family == nil {
		return true
	}
	return r.family.IsComplete(r.path)
}

// Wait blocks the calling worker, keeping it productive, until the
// referenced task completes.
func (r TaskReference) Wait(w *Worker) {
	for !r.IsDone() {
		w.scheduleStep()
	}
}

// GetLeft returns a reference to the referenced task's left child path.
// The dependency manager marks every descendant path complete once an
// ancestor completes (within its tracked depth), so this resolves as soon
// as the referenced task itself completes even if it never actually
// splits — there is no way to wait specifically for a split that may not
// happen.
func (r TaskReference) GetLeft() TaskReference {
	return TaskReference{family: r.family, path: r.path.DescendLeft()}
}

// GetRight returns a reference to the referenced task's right child path.
func (r TaskReference) GetRight() TaskReference {
	return TaskReference{family: r.family, path: r.path.DescendRight()}
}

// Dependencies is an opaque set of task references a new task should block
// on before it may run. Build one with After.
type Dependencies struct {
	refs []TaskReference
}

// After builds a Dependencies set from zero or more task references. A
// reference may belong to any family, including one released independently
// of the task it is attached to: dependency resolution is keyed on the
// reference's own family and path, not on the family the new task will
// join.
func After(refs ...TaskReference) Dependencies {
	return Dependencies{refs: refs}
}
