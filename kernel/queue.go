package kernel

// Queue is an intrusive FIFO of *Task. The original kernel embeds a
// generic circular doubly-linked list header (QUEUE) in every waitable
// object; every wait set in this kernel ever holds tasks and nothing
// else, so the list is specialized directly over *Task rather than
// reintroduced as a generic container. A task belongs to at most one
// Queue at a time (see Task.onQueue); that invariant is what makes
// Remove and Rotate both O(1) regardless of where in the queue the
// task sits.
type Queue struct {
	head, tail *Task
	name       string // reported by Task.QueueName; diagnostics only
}

// NewQueue returns an empty queue. name is reported by Task.QueueName
// and has no effect on queue behaviour.
func NewQueue(name string) *Queue {
	return &Queue{name: name}
}

// Empty reports whether the queue holds no tasks.
func (q *Queue) Empty() bool {
	return q.head == nil
}

// Front returns the head of the queue, or nil if empty.
func (q *Queue) Front() *Task {
	return q.head
}

// PushBack links t onto the tail of q. t must not already be linked
// into any queue.
func (q *Queue) PushBack(t *Task) {
	if debugAssertions && t.onQueue != nil {
		panic("kernel: task already linked into a queue")
	}
	t.qprev = q.tail
	t.qnext = nil
	if q.tail != nil {
		q.tail.qnext = t
	} else {
		q.head = t
	}
	q.tail = t
	t.onQueue = q
}

// Remove unlinks t from q. It is a no-op if t is not linked into q.
func (q *Queue) Remove(t *Task) {
	if t.onQueue != q {
		return
	}
	if t.qprev != nil {
		t.qprev.qnext = t.qnext
	} else {
		q.head = t.qnext
	}
	if t.qnext != nil {
		t.qnext.qprev = t.qprev
	} else {
		q.tail = t.qprev
	}
	t.qnext, t.qprev, t.onQueue = nil, nil, nil
}

// Rotate makes t the new tail of q, used by the scheduler to advance
// round-robin fairness: the task that is about to run is moved behind
// every other runnable task in a single O(1) step.
func (q *Queue) Rotate(t *Task) {
	if t.onQueue != q || q.tail == t {
		return
	}
	q.Remove(t)
	q.PushBack(t)
}

// Each calls fn for every task in the queue, head to tail. fn may
// remove the task it was called with (including relinking it onto a
// different queue) without corrupting iteration, because the next
// pointer is captured before fn runs.
func (q *Queue) Each(fn func(*Task)) {
	t := q.head
	for t != nil {
		next := t.qnext
		fn(t)
		t = next
	}
}

// Len reports the number of tasks currently linked into q. It is O(n)
// and intended for tests and diagnostics, not hot paths.
func (q *Queue) Len() int {
	n := 0
	q.Each(func(*Task) { n++ })
	return n
}
