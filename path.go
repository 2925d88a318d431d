package treeture

import "strings"

// maxPathLength bounds how deep a TaskPath may descend. It exists only to
// keep the bit-path packed into a uint64; the DependencyManager's own cutoff
// (its depth D) is a separate, much shallower bound.
const maxPathLength = 62

// TaskPath is an ordered binary sequence (0 = left, 1 = right) from a task
// family's root to one of its nodes. It is a plain value type: equality is
// structural and a zero TaskPath is the root path.
type TaskPath struct {
	bits uint64
	len  uint8
}

// RootPath returns the path addressing a family's root node.
func RootPath() TaskPath {
	return TaskPath{}
}

// Length reports the number of bits (the depth) of the path.
func (p TaskPath) Length() int {
	return int(p.len)
}

// DescendLeft returns the path of the left child of p.
func (p TaskPath) DescendLeft() TaskPath {
	return p.descend(0)
}

// DescendRight returns the path of the right child of p.
func (p TaskPath) DescendRight() TaskPath {
	return p.descend(1)
}

func (p TaskPath) descend(bit uint64) TaskPath {
	if p.len >= maxPathLength {
		panic("treeture: task path exceeds maximum supported depth")
	}
	return TaskPath{bits: p.bits<<1 | bit, len: p.len + 1}
}

// bit returns the i-th bit of the path in root-to-leaf order (0-indexed).
func (p TaskPath) bit(i int) uint64 {
	return (p.bits >> (uint(p.len) - 1 - uint(i))) & 1
}

// asInt returns the path's bits as an integer in [0, 2^Length()).
func (p TaskPath) asInt() uint64 {
	return p.bits
}

// String renders the path as a sequence of L/R characters, root first.
func (p TaskPath) String() string {
	if p.len == 0 {
		return "root"
	}
	var b strings.Builder
	for i := 0; i < int(p.len); i++ {
		if p.bit(i) == 0 {
			b.WriteByte('L')
		} else {
			b.WriteByte('R')
		}
	}
	return b.String()
}
