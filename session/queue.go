// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package session

import "sync"

// eventQueue is an unbounded FIFO feeding the Events channel. Pushes
// never block, so events can be enqueued while holding the session
// mutex without risking a deadlock against a consumer that calls back
// into the session.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Event
	closed bool

	out chan Event
}

func newEventQueue() *eventQueue {
	q := &eventQueue{out: make(chan Event)}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// push enqueues an event. No-op after close.
func (q *eventQueue) push(event Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, event)
	q.cond.Signal()
}

// close stops the queue after draining what is already enqueued.
func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Signal()
}

func (q *eventQueue) run() {
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 {
			q.mu.Unlock()
			close(q.out)
			return
		}
		event := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		q.out <- event
	}
}
