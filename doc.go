// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rcu provides a generic read-copy-update container.
//
// An RCU[T] publishes a single immutable snapshot of a value of type T.
// Any number of goroutines read the current snapshot with wait-free
// progress; writers propose replacements asynchronously. Displaced
// snapshots are destroyed only after a grace period during which no
// reader can still hold them, using epoch-based reclamation with three
// rotating retirement bags.
//
// # Quick Start
//
//	r := rcu.New(&Config{Port: 8080}).
//		Destructor(func(c *Config) { c.Close() }).
//		Build()
//	defer r.Close()
//
//	// Reader
//	g, err := r.Read()
//	if err != nil {
//		return err
//	}
//	port := g.Get().Port
//	g.Release()
//
//	// Writer
//	err = r.Update(func(cur *Config) (*Config, error) {
//		next := *cur
//		next.Port = 9090
//		return &next, nil
//	})
//
// # Reading
//
// Read returns a Guard bracketing a read critical section. Get loads
// the currently published snapshot; the returned pointer must not be
// used after Release. Snapshots are immutable by contract — readers
// must never write through the pointer returned by Get.
//
//	g, err := r.Read()
//	if err != nil {
//		// instance not active
//	}
//	snapshot := g.Get()
//	// ... use snapshot ...
//	g.Release()
//
// Guards are cheap: once the per-P participant cache warms up,
// acquisition does not allocate and does not take locks.
//
// # Updating
//
// Update enqueues a function that derives the next snapshot from the
// current one. The function runs later, on the reclaimer goroutine, so
// there is no synchronous guarantee that a subsequent Read observes the
// new value. Updates submitted within one drain cycle are applied in
// FIFO order, each seeing the effect of its predecessors.
//
//	err := r.Update(func(cur *Table) (*Table, error) {
//		next := cur.Clone()
//		next.Add(route)
//		return next, nil
//	})
//	if rcu.IsWouldBlock(err) {
//		// pending-update queue is full - retry with backoff
//	}
//
// Update functions must be short and must not block indefinitely; they
// all execute serially on the single reclaimer goroutine. An update
// function that returns an error is logged and skipped — the published
// snapshot is unchanged and later queued updates still run.
//
// Backpressure follows the same pattern as the lfq queues:
//
//	backoff := iox.Backoff{}
//	for {
//		err := r.Update(fn)
//		if err == nil {
//			break
//		}
//		if !rcu.IsWouldBlock(err) {
//			return err
//		}
//		backoff.Wait()
//	}
//
// # Reclamation
//
// The reclaimer goroutine drains pending updates, swaps each produced
// snapshot into the published cell, and retires the displaced value
// into the bag indexed by the current epoch. The global epoch may
// advance only when every participant inside a read critical section
// has observed it; on advance, the bag two epochs behind is destroyed.
// The destructor supplied at construction runs exactly once per value
// across the instance's lifetime.
//
// Close shuts the instance down: it stops new reads and updates, drains
// the pending-update queue, runs final reclamation passes, destroys
// whatever remains (including the currently published value), and
// returns after the reclaimer goroutine has exited. Callers must
// release all guards before calling Close.
//
// # Error Handling
//
// Operations return [ErrWouldBlock] when the pending-update queue is
// full and [ErrNotActive] before Build completes or after Close begins.
// ErrWouldBlock is a control-flow signal sourced from
// [code.hybscloud.com/iox] for ecosystem consistency; classify with
// IsWouldBlock, IsSemantic, IsNonFailure.
//
// # Diagnostics
//
// Diagnostics returns a snapshot of monotonic counters (reads, updates,
// reclamations, epoch advances). Internal invariant assertions — such
// as the epoch tag of a reclaimed entry matching its bag index — are
// compiled in only under the rcudebug build tag.
//
// # Race Detection
//
// Go's race detector cannot observe happens-before relationships
// established through atomic memory orderings on separate variables.
// The reader fast path publishes its local epoch through a subsequent
// release store of the active flag; the detector may report false
// positives for this pairing. Tests incompatible with race detection
// skip themselves when RaceEnabled is true; the runnable examples are
// excluded via //go:build !race.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives
// with explicit memory ordering, [code.hybscloud.com/iox] for semantic
// errors, [code.hybscloud.com/spin] for CPU pause instructions, and
// [github.com/joeycumines/logiface] as the logging facade for the
// reclaimer.
package rcu
