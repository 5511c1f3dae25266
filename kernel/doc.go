// Package kernel is a Go port of pietern/avr-tasks, a minimal
// cooperative multitasking kernel originally written for an 8-bit AVR
// microcontroller. A Task stands in for the original's stack-based TCB;
// a Scheduler holds the runnable/suspended/sleeping queues and drives
// a tick-based clock in place of the hardware timer interrupt. Mutex
// and Cond are built entirely on top of Scheduler's suspend/wakeup
// primitives, the same way mutex.c and cond.c were layered on task.c
// in the original.
package kernel
