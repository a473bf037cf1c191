package gosched

import "container/heap"

// taskQueue is a binary min-heap of *task, backed by a growable slice, ordered
// by the task.less relation. Both the ready queue and the pending queue are
// instances of this same structure; only the meaning of sortIndex differs
// (expirationTime for ready, startTime for pending) — the heap itself is
// agnostic to that, exactly as spec.md §4.1 describes.
//
// Arbitrary-position removal is intentionally unsupported: cancellation is
// implemented by nulling a task's callback and skipping it lazily when it
// is popped to the head (see Scheduler.advanceTimers and Scheduler.workLoop).
// This keeps the heap array-packed and branch-predictable, at the cost of
// tasks needing to be polled out rather than excised directly.
type taskQueue struct {
	items []*task
}

// Len, Less, Swap, Push, Pop implement container/heap.Interface.

func (q *taskQueue) Len() int { return len(q.items) }

func (q *taskQueue) Less(i, j int) bool { return q.items[i].less(q.items[j]) }

func (q *taskQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].heapIndex = i
	q.items[j].heapIndex = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.heapIndex = len(q.items)
	q.items = append(q.items, t)
}

func (q *taskQueue) Pop() any {
	old := q.items
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.heapIndex = -1
	q.items = old[:n-1]
	return t
}

// push inserts t, maintaining the heap invariant in O(log n).
func (q *taskQueue) push(t *task) { heap.Push(q, t) }

// peek returns the head (minimum) task without removing it, or nil if
// the queue is empty. The head of the queue always satisfies the
// ordering relation with respect to the rest (spec.md §3 invariant 3).
func (q *taskQueue) peek() *task {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// pop removes and returns the head task, or nil if the queue is empty.
func (q *taskQueue) pop() *task {
	if len(q.items) == 0 {
		return nil
	}
	return heap.Pop(q).(*task)
}

func (q *taskQueue) len() int { return len(q.items) }
