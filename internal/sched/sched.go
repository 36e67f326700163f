// Package sched runs deferred tasks one at a time.
//
// Restore work mutates a live tree that assumes a single writer, so every
// task of every pass goes through one goroutine in due order.
package sched

import (
	"container/heap"
	"sync"
	"time"
)

// Scheduler runs fn once, d after the call.
type Scheduler interface {
	After(d time.Duration, fn func())
}

type task struct {
	due time.Time
	seq uint64
	fn  func()
}

type taskHeap []task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)   { *h = append(*h, x.(task)) }
func (h *taskHeap) Pop() any {
	old := *h
	t := old[len(old)-1]
	*h = old[:len(old)-1]
	return t
}

// Queue is a Scheduler backed by one worker goroutine. Tasks with the same
// due time run in submission order.
type Queue struct {
	mu     sync.Mutex
	tasks  taskHeap
	seq    uint64
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

// NewQueue starts the worker. Close stops it.
func NewQueue() *Queue {
	q := &Queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

// After implements Scheduler. Tasks submitted after Close are dropped.
func (q *Queue) After(d time.Duration, fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.seq++
	heap.Push(&q.tasks, task{due: time.Now().Add(d), seq: q.seq, fn: fn})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Close stops the worker; pending tasks never run.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.done)
}

func (q *Queue) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		q.mu.Lock()
		var fn func()
		wait := time.Hour
		if len(q.tasks) > 0 {
			if d := time.Until(q.tasks[0].due); d <= 0 {
				fn = heap.Pop(&q.tasks).(task).fn
			} else {
				wait = d
			}
		}
		q.mu.Unlock()

		if fn != nil {
			fn()
			continue
		}

		timer.Reset(wait)
		select {
		case <-q.done:
			return
		case <-q.wake:
		case <-timer.C:
		}
	}
}

// Manual is a Scheduler driven by Advance, for tests. It is not safe for
// concurrent use.
type Manual struct {
	now   time.Duration
	seq   uint64
	tasks []manualTask
}

type manualTask struct {
	due time.Duration
	seq uint64
	fn  func()
}

// After implements Scheduler.
func (m *Manual) After(d time.Duration, fn func()) {
	m.seq++
	m.tasks = append(m.tasks, manualTask{due: m.now + d, seq: m.seq, fn: fn})
}

// Advance moves the clock forward by d and runs every task that falls due,
// including tasks scheduled by tasks, in due order.
func (m *Manual) Advance(d time.Duration) {
	target := m.now + d
	for {
		i := m.next()
		if i < 0 || m.tasks[i].due > target {
			break
		}
		t := m.tasks[i]
		m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
		if t.due > m.now {
			m.now = t.due
		}
		t.fn()
	}
	m.now = target
}

// Pending returns the number of tasks not yet run.
func (m *Manual) Pending() int { return len(m.tasks) }

func (m *Manual) next() int {
	best := -1
	for i, t := range m.tasks {
		if best < 0 || t.due < m.tasks[best].due || (t.due == m.tasks[best].due && t.seq < m.tasks[best].seq) {
			best = i
		}
	}
	return best
}
