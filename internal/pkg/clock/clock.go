package clock

import "time"

// Clocker abstracts time so callers can replace real time in tests.
type Clocker interface {
	Now() time.Time
}

// TimeClocker reads the system clock, including its monotonic reading.
type TimeClocker struct{}

// New returns a TimeClocker.
func New() *TimeClocker {
	return &TimeClocker{}
}

func (*TimeClocker) Now() time.Time {
	return time.Now()
}

// ElapsedMillis returns whole milliseconds between start and c.Now(). A clock
// that moves backwards yields 0, never a negative value.
func ElapsedMillis(c Clocker, start time.Time) int64 {
	d := c.Now().Sub(start)
	if d < 0 {
		return 0
	}

	return d.Milliseconds()
}
