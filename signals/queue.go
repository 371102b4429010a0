package signals

import "sync"

// queueDepth bounds the number of distinct pending signals. One slot per
// signal number is enough because duplicates coalesce.
const queueDepth = 64

// ExitSignal is the sentinel that tells the dispatcher to return. It is not
// a valid OS signal number.
const ExitSignal = 0

// Queue carries signal numbers from OS signal handlers to the dispatcher
// thread. Enqueue never blocks: a signal already pending is coalesced with
// the earlier arrival, preserving FIFO order of first arrivals.
type Queue struct {
	mu      sync.Mutex
	pending map[int]bool
	ch      chan int
}

// NewQueue returns an empty signal queue.
func NewQueue() *Queue {
	return &Queue{
		pending: make(map[int]bool),
		ch:      make(chan int, queueDepth),
	}
}

// Enqueue posts a signal number. Safe to call concurrently from multiple
// handlers. Reports whether the signal was queued (false means it coalesced
// with a pending duplicate or the queue was full).
func (q *Queue) Enqueue(sig int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending[sig] {
		return false
	}
	select {
	case q.ch <- sig:
		q.pending[sig] = true
		return true
	default:
		return false
	}
}

// Wait blocks until a signal is available and returns it.
func (q *Queue) Wait() int {
	sig := <-q.ch
	q.mu.Lock()
	delete(q.pending, sig)
	q.mu.Unlock()
	return sig
}
