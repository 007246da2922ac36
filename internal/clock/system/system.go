// Package system provides a wall-clock implementation of the Clock interface.
package system

import "time"

// Clock returns the current system time.
type Clock struct{}

// New constructs a system Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (c *Clock) Now() time.Time {
	return time.Now().UTC()
}
