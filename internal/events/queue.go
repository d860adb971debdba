package events

// DefaultCapacity is the per-window queue bound.
const DefaultCapacity = 256

type entry struct {
	ev   Event
	prev *entry
	next *entry
}

// Queue is a bounded FIFO of events for one window. Entries live on a
// doubly linked list so coalescing can cut from the middle; cut entries
// go to a free list and are reused.
//
// Queue is not safe for concurrent use.
type Queue struct {
	head *entry
	tail *entry
	free *entry

	count     int
	capacity  int
	overflows uint64
}

// NewQueue returns a queue holding at most capacity events. A capacity
// below 1 uses DefaultCapacity.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Queue{capacity: capacity}
}

// Len returns the number of queued events.
func (q *Queue) Len() int { return q.count }

// Overflows returns how many events were discarded because the queue was
// full.
func (q *Queue) Overflows() uint64 { return q.overflows }

// Push appends ev. A REDRAW or RESIZE replaces any queued event of the
// same type, the new one going to the tail. When the queue is full the
// oldest REDRAW or RESIZE is evicted, or failing that the oldest event;
// Push reports whether that happened.
func (q *Queue) Push(ev Event) (overflowed bool) {
	if coalesces(ev.Type()) {
		if e := q.find(ev.Type()); e != nil {
			q.cut(e)
		}
	}

	if q.count >= q.capacity {
		victim := q.head
		for e := q.head; e != nil; e = e.next {
			if coalesces(e.ev.Type()) {
				victim = e
				break
			}
		}
		q.cut(victim)
		q.overflows++
		overflowed = true
	}

	q.append(ev)
	return overflowed
}

// Pop removes and returns the oldest event.
func (q *Queue) Pop() (Event, bool) {
	if q.head == nil {
		return nil, false
	}
	ev := q.head.ev
	q.cut(q.head)
	return ev, true
}

// Peek returns the oldest event without removing it.
func (q *Queue) Peek() (Event, bool) {
	if q.head == nil {
		return nil, false
	}
	return q.head.ev, true
}

// Clear discards every queued event.
func (q *Queue) Clear() {
	for q.head != nil {
		q.cut(q.head)
	}
}

func coalesces(t Type) bool {
	return t == TypeRedraw || t == TypeResize
}

func (q *Queue) find(t Type) *entry {
	for e := q.head; e != nil; e = e.next {
		if e.ev.Type() == t {
			return e
		}
	}
	return nil
}

func (q *Queue) append(ev Event) {
	var e *entry
	if q.free == nil {
		e = &entry{}
	} else {
		e = q.free
		q.free = e.next
	}
	e.ev = ev
	e.next = nil
	e.prev = q.tail

	if q.tail != nil {
		q.tail.next = e
	} else {
		if q.head != nil {
			panic("invalid queue state, head exists without tail")
		}
		q.head = e
	}
	q.tail = e
	q.count++
}

func (q *Queue) cut(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		q.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		q.tail = e.prev
	}
	e.ev = nil
	e.prev = nil
	e.next = q.free
	q.free = e
	q.count--
}
