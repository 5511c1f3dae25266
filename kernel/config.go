package kernel

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultTickInterval matches the original's MS_PER_TICK (2ms), the
// period of the timer interrupt that drives the tick handler.
const DefaultTickInterval = 2 * time.Millisecond

// Config holds the scheduler's compile-time-equivalent knobs. Every
// field has a usable zero value.
type Config struct {
	// TickInterval is the period of the simulated timer tick. Zero
	// selects DefaultTickInterval.
	TickInterval time.Duration

	// MaxTasks is a capacity hint used to preallocate the task
	// registry; it is not an enforced ceiling. Zero uses a small
	// default (8), which is simply resized if exceeded.
	MaxTasks int

	// Logger receives structured scheduler events. Nil (the zero
	// value) selects a disabled logger, so a Scheduler built from a
	// zero Config logs nothing.
	Logger *zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.MaxTasks <= 0 {
		c.MaxTasks = 8
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	return c
}
