package engine

import "time"

// Clock abstracts time.Now() so that "today" can be pinned in tests and in
// the --once preview.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock in a fixed location.
// A nil Location means time.Local.
type RealClock struct {
	Location *time.Location
}

// Now returns the current time in the clock's location.
func (c RealClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the pinned instant.
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}

// Today is the day-granular reference used by every date computation.
func Today(c Clock) time.Time {
	return StartOfDay(c.Now())
}
