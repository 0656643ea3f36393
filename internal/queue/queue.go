// Package queue provides the mutex-guarded FIFO shared between the UI
// goroutine and thumbnail workers.
package queue

import "sync"

// Queue is a FIFO safe for concurrent use. Consumers never wait on it:
// TryPop gives up immediately when another goroutine holds the lock, so the
// producer side (the UI loop) cannot stall behind a worker.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends v to the back of the queue.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
}

// TryPop removes the front element. It returns false when the queue is empty
// or when the lock is currently held elsewhere; callers retry later.
func (q *Queue[T]) TryPop() (T, bool) {
	var zero T
	if !q.mu.TryLock() {
		return zero, false
	}
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return v, true
}

// Empty reports whether the queue had no elements at the time of the call.
// The answer is advisory only.
func (q *Queue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Prioritize moves every element matching pred to the front. Relative order
// among matches and among non-matches is preserved.
func (q *Queue[T]) Prioritize(pred func(T) bool) {
	if pred == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) < 2 {
		return
	}
	matched := make([]T, 0, len(q.items))
	rest := make([]T, 0, len(q.items))
	for _, v := range q.items {
		if pred(v) {
			matched = append(matched, v)
		} else {
			rest = append(rest, v)
		}
	}
	if len(matched) == 0 {
		return
	}
	q.items = append(matched, rest...)
}

// Drain removes and returns every queued element in FIFO order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Snapshot returns a copy of the queued elements without removing them.
func (q *Queue[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}
