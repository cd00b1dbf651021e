// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rcu

import (
	"sync"
	"sync/atomic"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/joeycumines/logiface"
)

// Instance lifecycle states. The zero value is stateInitializing so a
// partially constructed instance rejects Read and Update.
const (
	stateInitializing uint64 = iota
	stateActive
	stateShuttingDown
	stateTerminated
)

// RCU is a read-copy-update container publishing snapshots of T.
//
// Readers acquire a Guard, load the current snapshot through it, and
// release. Writers submit update functions that the single reclaimer
// goroutine applies asynchronously. Instances must be created with
// New(...).Build() and shut down with Close.
type RCU[T any] struct {
	_ pad
	// epoch is the global reclamation era. It increases monotonically
	// and never wraps within a realistic lifetime.
	epoch atomix.Uint64
	_     padShort
	state atomix.Uint64
	_     padShort
	// cell holds the currently published snapshot. Written only by the
	// reclaimer via Swap; non-nil for the entire active phase.
	cell atomic.Pointer[T]

	mods *modQueue[T]
	reg  registry
	bags bags[T]

	// pool caches inactive participant records per P, standing in for
	// the per-thread slot of the classic design. Records evicted by the
	// pool stay registered and permanently inactive.
	pool sync.Pool

	wake chan struct{}
	done chan struct{}

	destructor Destructor[T]
	interval   time.Duration
	log        *logiface.Logger[logiface.Event]

	stats struct {
		reads         atomix.Uint64
		updates       atomix.Uint64
		reclamations  atomix.Uint64
		epochAdvances atomix.Uint64
	}
}

// Build constructs the RCU instance, publishes the initial snapshot,
// starts the reclaimer goroutine, and transitions to the active state.
func (b *Builder[T]) Build() *RCU[T] {
	r := &RCU[T]{
		mods:       newModQueue[T](b.maxPending),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		destructor: b.destructor,
		interval:   b.interval,
		log:        b.logger,
	}
	r.bags.init(b.retiredHint)
	r.pool.New = func() any {
		p := &participant{id: r.reg.nextID.AddAcqRel(1)}
		r.reg.insert(p)
		return p
	}
	r.cell.Store(b.initial)
	r.state.StoreRelease(stateActive)
	go r.run()
	return r
}

// Read opens a read critical section and returns a Guard for it.
// Returns ErrNotActive once shutdown has begun.
//
// The fast path takes no locks and does not allocate once the
// participant cache is warm. The guard must be released; the snapshot
// obtained from Guard.Get is only protected while the guard is live.
func (r *RCU[T]) Read() (Guard[T], error) {
	if r.state.LoadAcquire() != stateActive {
		return Guard[T]{}, ErrNotActive
	}
	p := r.pool.Get().(*participant)
	// The relaxed local epoch store is published to the reclaimer by
	// the release store of the active flag; the reclaimer's scan loads
	// active with acquire before reading the local epoch.
	e := r.epoch.LoadAcquire()
	p.localEpoch.StoreRelaxed(e)
	p.active.StoreRelease(true)
	r.stats.reads.AddAcqRel(1)
	return Guard[T]{r: r, p: p}, nil
}

// Update enqueues fn to be applied by the reclaimer.
//
// Returns ErrWouldBlock when the pending-update queue is full and
// ErrNotActive once shutdown has begun. A nil error means the update is
// pending, not applied; readers observe it only after the reclaimer has
// swapped the produced snapshot in.
//
// Panics if fn is nil.
func (r *RCU[T]) Update(fn UpdateFunc[T]) error {
	if fn == nil {
		panic("rcu: update function must not be nil")
	}
	if r.state.LoadAcquire() != stateActive {
		return ErrNotActive
	}
	if err := r.mods.enqueue(fn); err != nil {
		return err
	}
	r.stats.updates.AddAcqRel(1)
	r.wakeReclaimer()
	return nil
}

// Close shuts the instance down and blocks until the reclaimer has
// exited. Pending updates are drained and applied, then every retired
// value and the final published snapshot are destroyed.
//
// Only the first call transitions the state; concurrent or repeated
// calls return immediately without waiting. Callers must release all
// guards before calling Close.
func (r *RCU[T]) Close() {
	if !r.state.CompareAndSwapAcqRel(stateActive, stateShuttingDown) {
		return
	}
	r.wakeReclaimer()
	<-r.done
}

// Diagnostics returns a snapshot of the instance's monotonic counters.
func (r *RCU[T]) Diagnostics() Diagnostics {
	return Diagnostics{
		Reads:         r.stats.reads.LoadAcquire(),
		Updates:       r.stats.updates.LoadAcquire(),
		Reclamations:  r.stats.reclamations.LoadAcquire(),
		EpochAdvances: r.stats.epochAdvances.LoadAcquire(),
	}
}

// Cap returns the pending-update queue capacity.
func (r *RCU[T]) Cap() int {
	return r.mods.cap()
}

// wakeReclaimer nudges the reclaimer without blocking. The channel has
// one buffered slot; a pending wakeup coalesces further signals.
func (r *RCU[T]) wakeReclaimer() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}
