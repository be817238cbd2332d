package service

import "time"

// Clock returns the current time. Use cases read time only through it.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() Clock {
	return func() time.Time { return time.Now().UTC() }
}
