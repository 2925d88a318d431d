// Package treeture implements a recursive, work-stealing task runtime for
// divide-and-conquer parallelism. Computations are expressed as treetures —
// handles to tasks that may split themselves into two child subtasks
// organised as a binary tree. A fixed pool of workers executes the resulting
// forest with per-worker queues, randomised work stealing, and speculative
// splitting driven by measured runtime prediction.
package treeture
