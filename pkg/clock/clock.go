package clock

import "time"

// Clock abstracts wall-clock reads and delays so code with fixed
// waits stays testable.
type Clock interface {
	// Now returns the current time
	Now() time.Time

	// Sleep blocks for the given duration
	Sleep(d time.Duration)
}

// Real is the system clock.
type Real struct{}

// Now returns time.Now()
func (Real) Now() time.Time {
	return time.Now()
}

// Sleep calls time.Sleep
func (Real) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Fake is a manually advanced clock for tests. Sleep advances the
// fake time instead of blocking and records each requested duration.
type Fake struct {
	Current time.Time
	Slept   []time.Duration
}

// NewFake creates a fake clock starting at the given time
func NewFake(start time.Time) *Fake {
	return &Fake{Current: start}
}

// Now returns the fake current time
func (f *Fake) Now() time.Time {
	return f.Current
}

// Sleep advances the fake time without blocking
func (f *Fake) Sleep(d time.Duration) {
	f.Current = f.Current.Add(d)
	f.Slept = append(f.Slept, d)
}

// Advance moves the fake time forward
func (f *Fake) Advance(d time.Duration) {
	f.Current = f.Current.Add(d)
}
