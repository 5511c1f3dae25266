package kernel

// Cond is a FIFO condition variable. It has no owning mutex field:
// Wait takes the mutex as an explicit argument, so in principle one
// Cond could be used with different mutexes across calls, though
// nothing here exercises that.
type Cond struct {
	s       *Scheduler
	waiters *Queue
}

// NewCond returns a condition variable whose waiters are scheduled
// by s.
func NewCond(s *Scheduler) *Cond {
	return &Cond{s: s, waiters: NewQueue("cond-waiters")}
}

// Wait atomically unlocks m and suspends t onto the condition's wait
// queue, then re-acquires m before returning. "Atomically" here means:
// the unlock and the enqueue happen under the same critical section,
// so a concurrent Signal/Broadcast can never observe m unlocked with
// t not yet discoverable on the wait queue: the exact race that would
// otherwise let a signal go out before the waiter is registered for
// it.
//
// As with any condition variable, a woken Wait does not guarantee the
// predicate the caller is waiting for now holds; callers must
// re-check it in a loop.
func (c *Cond) Wait(t *Task, m *Mutex) {
	c.s.mu.Lock()
	// Inline the unlock: must happen in the same critical section as
	// the suspend below, not via a separate call to m.Unlock (which
	// would re-acquire s.mu after this one is released).
	if m.waiters.Empty() {
		m.locked = false
	} else {
		next := m.waiters.Front()
		m.waiters.Remove(next)
		c.s.wakeupLocked(next)
	}

	// suspendLocked releases s.mu and parks t; control returns here
	// only once some other actor has called Signal or Broadcast.
	c.s.suspendLocked(t, c.waiters)

	m.Lock(t)
}

// Signal wakes the longest-waiting task blocked in Wait, if any. It is
// a no-op on a condition variable with no waiters. Callers typically
// hold the associated mutex when calling Signal, but nothing enforces
// that.
func (c *Cond) Signal() {
	c.s.mu.Lock()
	if c.waiters.Empty() {
		c.s.mu.Unlock()
		return
	}
	next := c.waiters.Front()
	c.waiters.Remove(next)
	c.s.wakeupLocked(next)
	c.s.mu.Unlock()
	c.s.cond.Broadcast()
}

// Broadcast wakes every task currently blocked in Wait, in FIFO order.
// Each woken task still has to acquire the mutex for itself once
// rescheduled, exactly as if each had been woken individually.
func (c *Cond) Broadcast() {
	c.s.mu.Lock()
	any := false
	for !c.waiters.Empty() {
		next := c.waiters.Front()
		c.waiters.Remove(next)
		c.s.wakeupLocked(next)
		any = true
	}
	c.s.mu.Unlock()
	if any {
		c.s.cond.Broadcast()
	}
}
