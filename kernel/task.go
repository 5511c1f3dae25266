package kernel

import "time"

// TaskFunc is the entry point of a task. It receives the Task's own
// handle, which stands in for task_current() within the task's own
// body (Go has no implicit per-goroutine slot to hang that on, so the
// handle is threaded explicitly instead of recovered from a global).
type TaskFunc func(t *Task)

// State mirrors where a Task currently sits: exactly one of these is
// true at any observable instant, matching the single-queue invariant
// of the original design (a task is on the runnable, suspended, or
// sleeping queue, or on a user wait-queue such as a mutex's waiters;
// StateWaiting covers all of those).
type State int

const (
	// StateRunnable: linked into the scheduler's runnable queue.
	StateRunnable State = iota
	// StateRunning: currently dispatched; still linked into the runnable
	// queue, at its tail.
	StateRunning
	// StateSleeping: linked into the sleeping queue, sleepTicks counting down.
	StateSleeping
	// StateWaiting: linked into the suspended queue or a user wait-queue.
	StateWaiting
	// StateDead: entry function returned. Terminal; never rescheduled.
	StateDead
)

func (s State) String() string {
	switch s {
	case StateRunnable:
		return "runnable"
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateWaiting:
		return "waiting"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Task is the control block for one cooperative task: the entry
// function, its saved "where to resume" (a rendezvous channel
// standing in for a saved stack pointer), the sleep countdown, and
// the intrusive queue link fields consumed by Queue.
type Task struct {
	id    int
	name  string
	fn    TaskFunc
	sched *Scheduler

	state      State
	sleepTicks uint32

	// resume is sent on by the scheduler to dispatch this task, and
	// received on by the task's own goroutine when it blocks. This is
	// the channel analogue of "restore stack pointer, pop registers,
	// return": the goroutine that wakes from this receive resumes
	// exactly where it last yielded, with its local state (the Go
	// runtime's equivalent of the saved register file) intact.
	resume chan struct{}
	// yielded is sent on once, by the task's own goroutine, every time
	// it parks (via yield/sleep/suspend) or exits. The scheduler sends
	// on resume and then receives on yielded before picking another
	// task, so at most one task goroutine is ever actually executing
	// user code at a time.
	yielded chan struct{}

	// Queue link fields (see Queue). onQueue names the single queue t
	// is currently linked into. A dispatched task is not unlinked from
	// the runnable queue, only rotated to its tail, so onQueue is nil
	// only for a task that has not been spawned onto any queue yet
	// (there is no such observable state) or has exited.
	qnext, qprev *Task
	onQueue      *Queue
}

// ID returns the task's stable identifier, assigned in spawn order.
func (t *Task) ID() int { return t.id }

// Name returns the task's diagnostic name (defaults to "task-<id>").
func (t *Task) Name() string { return t.name }

// State returns the task's current scheduling state.
func (t *Task) State() State {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	return t.state
}

// Yield cooperatively gives up the CPU. The task is moved to the tail
// of the runnable queue and will run again after every other task that
// was runnable at the time has had a turn.
func (t *Task) Yield() {
	t.sched.yield(t)
}

// Sleep blocks the calling task for at least d, rounded down to tick
// granularity. Sleep(0) is equivalent to Yield, matching the original's
// task_sleep(0) special case.
func (t *Task) Sleep(d time.Duration) {
	t.sched.sleep(t, d)
}

// Suspend moves the task onto q (or the scheduler's default suspended
// queue when q is nil) and yields. It does not return until some other
// goroutine calls Scheduler.Wakeup on this task.
func (t *Task) Suspend(q *Queue) {
	t.sched.suspend(t, q)
}

// QueueName reports the name of the queue t is currently linked into
// ("runnable", "suspended", "sleeping", a user queue's own name such
// as "mutex-waiters"), or "" if t is not linked into any queue (it is
// StateDead). A StateRunning task reports "runnable", since dispatch
// leaves it on the runnable queue. Intended for tests that check the
// single-queue invariant, not for scheduling decisions.
func (t *Task) QueueName() string {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	if t.onQueue == nil {
		return ""
	}
	return t.onQueue.name
}
