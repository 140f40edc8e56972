// Package guard provides a one-shot resolution flag for callbacks that may fire more than once
package guard

import "sync/atomic"

// Guard lets exactly one caller resolve an outcome; the zero value is ready to use
type Guard struct {
	done atomic.Bool
}

// TryResolve returns true for the first caller only. It never blocks.
func (g *Guard) TryResolve() bool {
	return g.done.CompareAndSwap(false, true)
}

// Resolved reports whether some caller already won
func (g *Guard) Resolved() bool {
	return g.done.Load()
}
