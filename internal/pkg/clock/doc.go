// Package clock provides a tiny time abstraction.
//
// Code that measures durations depends on Clocker instead of calling
// time.Now() directly, so tests can drive time deterministically.
package clock
