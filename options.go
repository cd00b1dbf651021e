// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rcu

import (
	"time"

	"github.com/joeycumines/logiface"
)

// Default configuration values used by New.
const (
	// DefaultMaxPending is the default pending-update queue capacity.
	DefaultMaxPending = 128
	// DefaultReclaimInterval is the default maximum idle time between
	// reclaimer scans.
	DefaultReclaimInterval = time.Millisecond
	// DefaultRetiredHint is the default initial reservation of each
	// retirement bag.
	DefaultRetiredHint = 64
)

// Builder creates RCU instances with fluent configuration.
//
// Example:
//
//	r := rcu.New(&Config{Port: 8080}).
//		Destructor(releaseConfig).
//		MaxPending(256).
//		ReclaimInterval(5 * time.Millisecond).
//		Build()
type Builder[T any] struct {
	initial     *T
	destructor  Destructor[T]
	logger      *logiface.Logger[logiface.Event]
	maxPending  int
	interval    time.Duration
	retiredHint int
}

// New creates an RCU builder publishing initial as the first snapshot.
// Ownership of initial transfers to the instance; the caller must not
// mutate it after Build.
//
// Panics if initial is nil — the published cell is never nil while the
// instance is active.
func New[T any](initial *T) *Builder[T] {
	if initial == nil {
		panic("rcu: initial value must not be nil")
	}
	return &Builder[T]{
		initial:     initial,
		maxPending:  DefaultMaxPending,
		interval:    DefaultReclaimInterval,
		retiredHint: DefaultRetiredHint,
	}
}

// Destructor sets the function invoked exactly once per retired
// snapshot. A nil destructor leaves retired values to the garbage
// collector.
func (b *Builder[T]) Destructor(fn Destructor[T]) *Builder[T] {
	b.destructor = fn
	return b
}

// MaxPending sets the pending-update queue capacity.
//
// Capacity rounds up to the next power of 2. One slot of slack is
// reserved to distinguish full from empty, so producers observe the
// queue as full at capacity minus one.
//
// Panics if n < 2.
func (b *Builder[T]) MaxPending(n int) *Builder[T] {
	if n < 2 {
		panic("rcu: max pending must be >= 2")
	}
	b.maxPending = n
	return b
}

// ReclaimInterval sets the maximum idle time between reclaimer scans.
// The reclaimer wakes earlier when updates are submitted; the interval
// is a periodic scan heuristic, not a latency bound.
//
// Panics if d <= 0.
func (b *Builder[T]) ReclaimInterval(d time.Duration) *Builder[T] {
	if d <= 0 {
		panic("rcu: reclaim interval must be positive")
	}
	b.interval = d
	return b
}

// RetiredHint sets the initial reservation of each retirement bag.
// Bags grow past the hint as needed.
//
// Panics if n < 0.
func (b *Builder[T]) RetiredHint(n int) *Builder[T] {
	if n < 0 {
		panic("rcu: retired hint must be >= 0")
	}
	b.retiredHint = n
	return b
}

// Logger sets the logger used by the reclaimer, primarily to report
// update functions that fail. A nil logger (the default) disables
// logging; logiface loggers are nil-safe.
func (b *Builder[T]) Logger(l *logiface.Logger[logiface.Event]) *Builder[T] {
	b.logger = l
	return b
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
