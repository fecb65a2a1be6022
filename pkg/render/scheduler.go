package render

import (
	"context"
	"sync/atomic"
	"time"
)

// FrameInterval is the tick of Run, roughly one display refresh.
const FrameInterval = 16 * time.Millisecond

// Scheduler coalesces redraw requests. Any number of Request calls between
// two ticks produce a single draw.
type Scheduler struct {
	draw     func()
	interval time.Duration
	pending  atomic.Bool
	frames   atomic.Uint64
}

// NewScheduler creates a scheduler calling draw. A non-positive interval
// uses FrameInterval.
func NewScheduler(draw func(), interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = FrameInterval
	}
	return &Scheduler{draw: draw, interval: interval}
}

// Request marks a frame as pending. It never blocks.
func (s *Scheduler) Request() {
	s.pending.Store(true)
}

// Pending reports whether a frame is waiting to be drawn.
func (s *Scheduler) Pending() bool {
	return s.pending.Load()
}

// Flush draws now if a frame is pending and reports whether it drew.
func (s *Scheduler) Flush() bool {
	if !s.pending.CompareAndSwap(true, false) {
		return false
	}
	s.draw()
	s.frames.Add(1)
	return true
}

// Frames is the number of frames drawn so far.
func (s *Scheduler) Frames() uint64 {
	return s.frames.Load()
}

// Run flushes on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Flush()
		}
	}
}
