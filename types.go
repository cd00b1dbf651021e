// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rcu

// UpdateFunc derives the next snapshot from the current one.
//
// The function receives a read-only view of the currently published
// value and returns a newly allocated successor. It must not retain or
// mutate current, and must not return current itself — the engine
// retires the displaced value after the swap, and a value must never be
// both published and retired.
//
// Update functions execute serially on the reclaimer goroutine. They
// must be short and must not block indefinitely; a stalled update
// function stalls every pending update and all reclamation.
//
// Returning an error skips the update: the published snapshot is
// unchanged and subsequent queued updates still run. Returning a nil
// value with a nil error is treated the same way, since the published
// cell is never nil while the instance is active.
type UpdateFunc[T any] func(current *T) (*T, error)

// Destructor destroys a retired snapshot.
//
// The engine invokes the destructor exactly once per value across the
// instance's lifetime: either after the value's grace period has
// elapsed, or during Close for values still pending at teardown
// (including the final published value). A nil destructor is valid;
// retired values are then simply released to the garbage collector.
//
// The destructor runs on the reclaimer goroutine. It must not call
// back into the RCU instance.
type Destructor[T any] func(*T)

// Diagnostics is a snapshot of the instance's monotonic counters.
//
// Counters only ever increase while the instance is alive. Each is a
// separate atomic counter, so they are not mutually consistent:
// a snapshot taken during concurrent activity may observe a read that
// has been counted but an epoch advance that has not.
type Diagnostics struct {
	// Reads is the number of successful Read calls.
	Reads uint64
	// Updates is the number of successfully enqueued Update calls.
	Updates uint64
	// Reclamations is the number of destroyed snapshots.
	Reclamations uint64
	// EpochAdvances is the number of successful global epoch advances.
	EpochAdvances uint64
}
