package libevents

import (
	"sync"
)

const (
	opSubscribe   = "subscribe"
	opUnsubscribe = "unsubscribe"
	opEmit        = "emit"
)

type operation struct {
	kind string
	run  func()
	next *operation
}

// operationQueue serializes the mutating operations of one emitter. It is an intrusive
// FIFO list: whoever enqueues into an idle queue becomes the drainer and runs operations,
// including the ones enqueued by the operations it runs, until the list is empty.
// Everybody else only appends and returns.
type operationQueue struct {
	mu      sync.Mutex
	head    *operation
	tail    *operation
	running bool
}

// enqueue appends op at the tail. When no operation is running it is executed right away
// on the calling goroutine. onDequeue is invoked for every operation taken off the list,
// onPanic for every operation that panicked; the drain continues in both cases.
func (q *operationQueue) enqueue(op *operation, onDequeue func(*operation), onPanic func(*operation, any)) {
	q.mu.Lock()
	if q.tail == nil {
		q.head = op
	} else {
		q.tail.next = op
	}
	q.tail = op

	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	q.drain(onDequeue, onPanic)
}

func (q *operationQueue) drain(onDequeue func(*operation), onPanic func(*operation, any)) {
	for {
		q.mu.Lock()
		op := q.head
		if op == nil {
			q.running = false
			q.mu.Unlock()
			return
		}
		q.head = op.next
		if q.head == nil {
			q.tail = nil
		}
		q.mu.Unlock()

		op.next = nil
		onDequeue(op)
		q.runOne(op, onPanic)
	}
}

func (q *operationQueue) runOne(op *operation, onPanic func(*operation, any)) {
	defer func() {
		if r := recover(); r != nil {
			onPanic(op, r)
		}
	}()

	op.run()
}

// pending counts the operations waiting behind the running one.
func (q *operationQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for op := q.head; op != nil; op = op.next {
		n++
	}
	return n
}
