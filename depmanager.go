package treeture

import "sync/atomic"

// defaultDependencyDepth is the depth D bound of a family's dependency
// manager: paths deeper than this share their nearest ancestor's cell.
const defaultDependencyDepth = 6

// dependencyWaiter is anything that can be notified that a path it is
// waiting on has completed. taskCore implements it. The *Worker parameter
// is the worker executing the notification chain, threaded explicitly in
// place of a thread-local "current worker" pointer.
type dependencyWaiter interface {
	dependencyDone(w *Worker)
}

// waiterNode is one entry of the intrusive, singly-linked, CAS-built waiter
// list attached to a dependencyManager cell. The list is only ever walked
// once, by the markComplete call that transitions the cell to done.
type waiterNode struct {
	next   *waiterNode
	waiter dependencyWaiter
}

// doneSentinel is a distinguished, never-dereferenced-for-content pointer
// value used to tag a cell as complete. Comparing a loaded cell pointer
// against this address is the entire "is this path done" check, mirroring
// the reference implementation's 0x1-tagged Entry* sentinel.
var doneSentinel = &waiterNode{}

// dependencyManager is a path-indexed completion table for one task family:
// a perfect binary tree of depth D, one cell per node, each cell holding
// either a linked list of waiters or the done sentinel.
type dependencyManager struct {
	depth int
	cells []atomic.Pointer[waiterNode]
}

func newDependencyManager(depth int) *dependencyManager {
	if depth <= 0 {
		depth = defaultDependencyDepth
	}
	return &dependencyManager{
		depth: depth,
		cells: make([]atomic.Pointer[waiterNode], 1<<(uint(depth)+1)),
	}
}

// position folds a path into a cell index, starting at 1 (the root cell)
// and doubling-plus-bit per level, root to leaf. A path longer than the
// manager's depth clamps to the last valid ancestor cell it can still
// address, so callers must not rely on registering dependencies deeper
// than the manager was built for.
func (m *dependencyManager) position(p TaskPath) int {
	pos := 1
	n := len(m.cells)
	for i := 0; i < p.Length(); i++ {
		pos = pos*2 + int(p.bit(i))
		if pos >= n {
			return pos / 2
		}
	}
	return pos
}

func isDone(n *waiterNode) bool {
	return n == doneSentinel
}

// addDependency registers waiter as blocked on path completing. If path is
// already complete, waiter is signalled immediately without allocating a
// waiter cell.
func (m *dependencyManager) addDependency(w *Worker, waiter dependencyWaiter, path TaskPath) {
	pos := m.position(path)
	cell := &m.cells[pos]

	head := cell.Load()
	if isDone(head) {
		waiter.dependencyDone(w)
		return
	}

	entry := &waiterNode{waiter: waiter, next: head}
	for !cell.CompareAndSwap(entry.next, entry) {
		entry.next = cell.Load()
		if isDone(entry.next) {
			waiter.dependencyDone(w)
			return
		}
	}
}

// markComplete transitions the cell at path to done, signalling every
// waiter registered on it exactly once, then propagates completion to the
// left and right child cells within the manager's bound so a dependency on
// any descendant path is automatically satisfied. Paths longer than the
// manager's depth are silently ignored. Calling markComplete twice on the
// same path is safe: the second call observes the cell already done and
// does nothing.
func (m *dependencyManager) markComplete(w *Worker, path TaskPath) {
	if path.Length() > m.depth {
		return
	}

	pos := m.position(path)
	cell := &m.cells[pos]
	head := cell.Swap(doneSentinel)
	if isDone(head) {
		return
	}

	for cur := head; cur != nil; cur = cur.next {
		cur.waiter.dependencyDone(w)
	}

	if pos >= len(m.cells)/2 {
		return
	}
	m.markComplete(w, path.DescendLeft())
	m.markComplete(w, path.DescendRight())
}

// isComplete reports whether path has been marked (directly or via an
// ancestor's completion) as done.
func (m *dependencyManager) isComplete(path TaskPath) bool {
	return isDone(m.cells[m.position(path)].Load())
}
