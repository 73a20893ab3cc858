package engine

import (
	"sync"

	"github.com/roach88/agenda/internal/docstore"
)

// eventKind distinguishes the things the coordinator loop reacts to.
type eventKind int

const (
	// eventAgendaSnapshot carries the full day-document collection.
	eventAgendaSnapshot eventKind = iota + 1
	// eventSpecialSnapshot carries the special-dates document.
	eventSpecialSnapshot
	// eventLedgerSnapshot carries the full finances collection.
	eventLedgerSnapshot
	// eventSubscriptionError reports a listener failure.
	eventSubscriptionError
	// eventCommand is a user mutation or query to run on the loop.
	eventCommand
	// eventSweep is a scheduled special-date prune.
	eventSweep
)

// event is one unit of work for the coordinator loop.
type event struct {
	kind   eventKind
	source string // subscription the event came from

	docs   []docstore.Document
	doc    docstore.Document
	exists bool
	err    error

	cmd *command
}

// eventQueue is the coordinator's FIFO inbox. Store callbacks, the cron
// sweep and command callers enqueue from their own goroutines; only the loop
// dequeues.
//
// It is unbounded so store callbacks never block: a snapshot arriving while a
// command is being applied simply waits its turn. The loop selects on Wait
// together with ctx.Done, so cancellation is noticed even when idle.
type eventQueue struct {
	mu     sync.Mutex
	events []event
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends e. It reports false once the queue is closed, in which
// case the event is dropped.
func (q *eventQueue) Enqueue(e event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Buffer of one: repeated signals coalesce.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue pops the front event without blocking.
func (q *eventQueue) TryDequeue() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return event{}, false
	}

	e := q.events[0]

	// Nil out the slot so snapshot payloads can be collected.
	q.events[0] = event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that receives when events may be available and is
// closed by Close.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close rejects further events and wakes the loop. Events already queued
// stay available to TryDequeue so drain can answer pending commands.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
