package kernel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler holds the three wait queues, the current-task pointer, and
// the monotonic tick counters that the original kernel kept as
// free-floating globals. Design Notes ("Global mutable state") ask for
// exactly this: one object with an explicit lifecycle (New, Run)
// instead of package-level variables, so more than one kernel instance
// can exist in a test binary without trampling another's state.
//
// Scheduler.mu is the Go stand-in for "disable interrupts": every
// field below it, plus every Task's queue-link fields and state, is
// only ever touched while mu is held. That single lock is what makes
// Wakeup safe to call from any goroutine, the same way the original's
// task_wakeup is safe to call from an ISR.
type Scheduler struct {
	cfg Config
	log zerolog.Logger

	mu   sync.Mutex
	cond *sync.Cond

	runnable, suspended, sleeping *Queue
	current                       *Task
	tasks                         []*Task
	nextID                        int

	ticksElapsed uint64
	stopped      bool
}

// New builds a Scheduler. It does not start the tick or run any tasks;
// call Run to do that, mirroring the original's task_init() followed
// later by task_start().
func New(cfg Config) *Scheduler {
	cfg = cfg.withDefaults()
	s := &Scheduler{
		cfg:       cfg,
		log:       *cfg.Logger,
		runnable:  NewQueue("runnable"),
		suspended: NewQueue("suspended"),
		sleeping:  NewQueue("sleeping"),
		tasks:     make([]*Task, 0, cfg.MaxTasks),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Spawn allocates a Task for fn and places it on the runnable queue.
// name is used only for logging/diagnostics; an empty name is replaced
// with "task-<id>". The task's goroutine is started immediately but
// will not execute a single instruction of fn until the scheduler
// dispatches it: the Go analogue of forging a first-run stack with fn
// as the return address.
func (s *Scheduler) Spawn(name string, fn TaskFunc) *Task {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	t := &Task{
		id:      id,
		name:    name,
		fn:      fn,
		sched:   s,
		resume:  make(chan struct{}),
		yielded: make(chan struct{}),
	}
	if t.name == "" {
		t.name = fmt.Sprintf("task-%d", id)
	}
	t.state = StateRunnable
	s.runnable.PushBack(t)
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()

	s.log.Info().Str("task", t.name).Int("id", id).Msg("task spawned")
	go t.run()
	s.cond.Broadcast()
	return t
}

// Current returns the task presently dispatched, or nil if the
// scheduler is idle (e.g. called from outside Run, or while every task
// is asleep or suspended).
func (s *Scheduler) Current() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Tasks returns every task spawned on this scheduler, in spawn order.
// It is intended for diagnostics and tests (e.g. checking the
// single-queue invariant across the whole population), not hot paths.
func (s *Scheduler) Tasks() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// RunnableLen, SuspendedLen, and SleepingLen report the current length
// of each wait queue. They exist so tests can check queue invariants
// from the outside (e.g. confirming a woken task actually left the
// sleeping queue), not for use by scheduling logic itself.
func (s *Scheduler) RunnableLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runnable.Len()
}

func (s *Scheduler) SuspendedLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended.Len()
}

func (s *Scheduler) SleepingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sleeping.Len()
}

// Millis returns the monotonic millisecond counter.
func (s *Scheduler) Millis() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticksElapsed * uint64(s.cfg.TickInterval/time.Millisecond)
}

// Micros returns the monotonic microsecond counter. It only advances
// at tick boundaries (it is non-decreasing within a tick, same as the
// original's hardware-counter-augmented task_us()), it just does not
// interpolate between ticks since there is no hardware counter to
// sample.
func (s *Scheduler) Micros() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticksElapsed * uint64(s.cfg.TickInterval/time.Microsecond)
}

// Seconds returns the monotonic second counter. The original gated
// this behind TASK_COUNT_SEC; this port keeps it unconditionally since
// it costs nothing on a hosted OS.
func (s *Scheduler) Seconds() uint64 {
	return s.Millis() / 1000
}

// schedule picks the next task to run, round-robin: the head of the
// runnable queue is rotated to the tail (so the following task is
// preferred on the next call) and returned. An empty runnable queue
// returns nil.
func (s *Scheduler) schedule() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.runnable.Front()
	if t == nil {
		s.current = nil
		return nil
	}
	s.runnable.Rotate(t)
	t.state = StateRunning
	s.current = t
	return t
}

// Run dispatches tasks until ctx is cancelled. Exactly one task's
// entry function executes at a time; Run itself is the only goroutine
// that dispatches tasks and sets Scheduler.current (retire clears it,
// under mu, when a task exits). When the runnable queue
// is empty, Run parks (the analogue of sleep_cpu()) until a tick or a
// Wakeup repopulates it.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().Str("tick", s.cfg.TickInterval.String()).Msg("scheduler starting")

	tickCtx, stopTick := context.WithCancel(context.Background())
	defer stopTick()
	go s.tickLoop(tickCtx)

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.cond.Broadcast()
	}()

	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			s.log.Info().Msg("scheduler stopped")
			return ctx.Err()
		}
		s.mu.Unlock()

		next := s.schedule()
		if next == nil {
			if !s.parkUntilRunnable() {
				s.log.Info().Msg("scheduler stopped")
				return ctx.Err()
			}
			continue
		}

		s.log.Debug().Str("task", next.name).Msg("dispatch")
		next.resume <- struct{}{}
		<-next.yielded
	}
}

// parkUntilRunnable blocks until the runnable queue is non-empty or
// the scheduler has been asked to stop. It reports whether there is
// now runnable work.
func (s *Scheduler) parkUntilRunnable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.runnable.Empty() && !s.stopped {
		s.cond.Wait()
	}
	return !s.runnable.Empty()
}

// run is the body of every task goroutine. It blocks on resume before
// touching fn, matching a fresh task's forged first-run context: a
// goroutine parked at its entry, waiting to be dispatched.
func (t *Task) run() {
	<-t.resume
	t.fn(t)
	t.sched.retire(t)
}

// park is the Task-side half of the resume/yielded rendezvous used by
// yield, sleep, and suspend: tell the scheduler this task has stopped
// running, then block until redispatched.
func (t *Task) park() {
	t.yielded <- struct{}{}
	<-t.resume
}

// retire runs once, when a task's entry function returns. The task is
// unlinked from whatever queue it was on (ordinarily the runnable
// queue, where a dispatched task stays) and marked StateDead; it is
// never rescheduled.
// Task lifetimes are the program's lifetime, so there is deliberately
// no mechanism to reclaim or respawn a dead Task.
func (s *Scheduler) retire(t *Task) {
	s.mu.Lock()
	if t.onQueue != nil {
		t.onQueue.Remove(t)
	}
	t.state = StateDead
	if s.current == t {
		s.current = nil
	}
	s.mu.Unlock()
	s.log.Info().Str("task", t.name).Msg("task exited")
	t.yielded <- struct{}{}
}

// yield unlinks t from wherever it sits, appends it to the runnable
// queue, and parks it.
func (s *Scheduler) yield(t *Task) {
	s.mu.Lock()
	if t.onQueue != nil {
		t.onQueue.Remove(t)
	}
	s.runnable.PushBack(t)
	t.state = StateRunnable
	s.mu.Unlock()
	t.park()
}

// sleep parks t on the sleeping queue for at least d, rounded down to
// whole ticks (a zero or sub-tick duration is exactly task_sleep(0),
// which behaves like Yield).
func (s *Scheduler) sleep(t *Task, d time.Duration) {
	if d <= 0 {
		s.yield(t)
		return
	}
	ticks := uint32(d / s.cfg.TickInterval)
	if ticks == 0 {
		s.yield(t)
		return
	}

	s.mu.Lock()
	if t.onQueue != nil {
		t.onQueue.Remove(t)
	}
	t.sleepTicks = ticks
	s.sleeping.PushBack(t)
	t.state = StateSleeping
	s.mu.Unlock()
	t.park()
}

// suspendLocked requires the caller to already hold s.mu; it performs
// the unlink/enqueue step of a suspend atomically with whatever state
// the caller just published (e.g. a mutex's waiters queue membership),
// releases the lock, and parks. This split is what lets Mutex.Lock and
// Cond.Wait fold their own state change into the same critical section
// as the suspend, which is the "suspend-atomic with respect to the
// condition" contract: nothing can run between "this task is now
// discoverable by a waker" and "this task has actually stopped
// running."
func (s *Scheduler) suspendLocked(t *Task, q *Queue) {
	if q == nil {
		q = s.suspended
	}
	if t.onQueue != nil {
		t.onQueue.Remove(t)
	}
	q.PushBack(t)
	t.state = StateWaiting
	s.mu.Unlock()
	t.park()
}

// suspend acquires s.mu and delegates to suspendLocked.
func (s *Scheduler) suspend(t *Task, q *Queue) {
	s.mu.Lock()
	s.suspendLocked(t, q)
}

// wakeupLocked requires the caller to already hold s.mu. It unlinks t
// from its current queue and appends it to the runnable queue. It does
// not wake Run() from an idle park; callers that might need that
// (anything not already inside a critical section Run will itself
// re-enter) should follow up with cond.Broadcast, which is exactly
// what the exported Wakeup does.
func (s *Scheduler) wakeupLocked(t *Task) {
	if t.onQueue != nil {
		t.onQueue.Remove(t)
	}
	s.runnable.PushBack(t)
	t.state = StateRunnable
}

// Wakeup moves t onto the runnable queue regardless of where it
// currently sits. It is safe to call from any goroutine (a task, the
// tick loop, or application code standing in for an ISR), which is the
// one ISR-safety guarantee the original kernel makes for task_wakeup.
// Waking a task that is already runnable is a harmless no-op: it is
// unlinked and relinked onto the same queue's tail.
func (s *Scheduler) Wakeup(t *Task) {
	s.mu.Lock()
	s.wakeupLocked(t)
	s.mu.Unlock()
	s.cond.Broadcast()
}

// tickLoop drives the periodic tick that stands in for the hardware
// timer interrupt. It is a plain ticker goroutine rather than a true
// interrupt: unlike the original, it cannot forcibly interrupt a task
// goroutine that never calls Yield/Sleep/Suspend/a blocking kernel
// call, since Go offers no safe way to suspend arbitrary running code
// from the outside. Well-behaved tasks reach a suspension point on
// their own; a task that doesn't will simply not be preempted by the
// tick the way it would be on real hardware.
func (s *Scheduler) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-ctx.Done():
			return
		}
	}
}

// tick is the tick handler proper: advance the monotonic counters,
// then walk the sleeping queue moving any task whose countdown
// reaches zero onto the runnable queue.
func (s *Scheduler) tick() {
	s.mu.Lock()
	s.ticksElapsed++

	var woken []*Task
	s.sleeping.Each(func(t *Task) {
		if t.sleepTicks > 0 {
			t.sleepTicks--
		}
		if t.sleepTicks == 0 {
			woken = append(woken, t)
		}
	})
	for _, t := range woken {
		s.sleeping.Remove(t)
		s.runnable.PushBack(t)
		t.state = StateRunnable
	}
	s.mu.Unlock()

	if len(woken) > 0 {
		s.cond.Broadcast()
	}
}
