// Package clock is the time source used by the stream simulator. Readers and
// streams never call time.Now or time.Sleep directly, so tests can swap in a
// Fake and make deadlines deterministic.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock reports the current time and sleeps.
type Clock interface {
	Now() time.Time

	// Sleep pauses for d or until ctx is done. It returns ctx.Err() when the
	// sleep was cut short.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the wall clock.
type Real struct{}

var _ Clock = Real{}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Or returns c, or the wall clock if c is nil.
func Or(c Clock) Clock {
	if c == nil {
		return Real{}
	}
	return c
}

// Fake is a manually driven clock. Sleep does not block: it advances the
// fake time by the requested duration and returns immediately.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
	onTick []func(time.Time)
}

var _ Clock = (*Fake)(nil)

// NewFake creates a fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.sleeps++
	f.mu.Unlock()
	f.Advance(d)
	return nil
}

// Advance moves the fake time forward and runs the registered tick hooks
// with the new time.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	if d > 0 {
		f.now = f.now.Add(d)
	}
	now := f.now
	hooks := append([]func(time.Time){}, f.onTick...)
	f.mu.Unlock()

	for _, hook := range hooks {
		hook(now)
	}
}

// OnTick registers fn to run after every Advance (including the ones caused
// by Sleep). Tests use it to inject input at a given fake moment.
func (f *Fake) OnTick(fn func(now time.Time)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onTick = append(f.onTick, fn)
}

// Sleeps returns how many times Sleep was called.
func (f *Fake) Sleeps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sleeps
}
