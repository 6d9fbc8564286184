// Package clock provides a testable clock interface for TTL handling.
package clock

import "time"

// Clock is an interface for getting the current time.
type Clock interface {
	Now() time.Time
}

// Real is the production clock backed by system time.
type Real struct{}

// Now returns the current system time.
func (Real) Now() time.Time { return time.Now() }

// Mock is a controllable clock for tests.
type Mock struct {
	current time.Time
}

// NewMock creates a Mock clock set to t, or to a fixed baseline when t
// is the zero time.
func NewMock(t time.Time) *Mock {
	if t.IsZero() {
		t = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &Mock{current: t}
}

// Now returns the mock clock's current time.
func (m *Mock) Now() time.Time { return m.current }

// Set moves the mock clock to an absolute time.
func (m *Mock) Set(t time.Time) { m.current = t }

// Advance moves the clock forward by d.
func (m *Mock) Advance(d time.Duration) { m.current = m.current.Add(d) }
