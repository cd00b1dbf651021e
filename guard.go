// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rcu

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// participant is the per-reader record the reclaimer scans to detect
// grace periods. Records are created lazily, cached in the instance's
// participant pool between guards, and live until the instance is
// torn down; a record evicted from the pool stays registered and
// permanently inactive, which the scan tolerates.
type participant struct {
	_ pad
	// active is true while a guard holds this record. Set with release
	// ordering by the reader, read with acquire ordering by the scan.
	active atomix.Bool
	_      padShort
	// localEpoch is the global epoch the reader observed at guard
	// acquisition. Published by the subsequent active release store.
	localEpoch atomix.Uint64
	_          padShort

	// id is informational, for diagnostics only.
	id uint64
	// next is immutable once the record is published via the registry
	// head; the head store is what makes the record visible to scans.
	next *participant
}

// registry is the set of all participant records ever created by an
// instance. Linkage is append-only for the instance's lifetime:
// insertion at head is serialised by a short-held mutex, traversal is
// lock-free. A record inserted concurrently with a scan either becomes
// visible during that scan or in the next one; both are safe because
// new records start inactive.
type registry struct {
	mu     sync.Mutex
	head   atomic.Pointer[participant]
	nextID atomix.Uint64
}

func (reg *registry) insert(p *participant) {
	reg.mu.Lock()
	p.next = reg.head.Load()
	reg.head.Store(p)
	reg.mu.Unlock()
}

// forEach visits every registered record. Stops early when visit
// returns false. Called only by the reclaimer.
func (reg *registry) forEach(visit func(*participant) bool) {
	for p := reg.head.Load(); p != nil; p = p.next {
		if !visit(p) {
			return
		}
	}
}

// Guard brackets a read critical section.
//
// A guard is obtained from RCU.Read and must be released exactly once
// when the read is finished. The snapshot pointer returned by Get is
// only protected from reclamation while the guard is live.
//
// A guard must not be copied after first use and must be released on
// the goroutine that acquired it.
type Guard[T any] struct {
	r *RCU[T]
	p *participant
}

// Get returns the currently published snapshot.
//
// The returned pointer is valid until Release. Repeated calls on the
// same guard may observe successive snapshots if the reclaimer
// publishes between them; each returned pointer remains valid for the
// guard's lifetime. The snapshot is immutable by contract and must not
// be written through.
//
// Calling Get after Release is a bug; the guard no longer protects
// anything.
func (g *Guard[T]) Get() *T {
	return g.r.cell.Load()
}

// Release closes the read critical section. After Release the
// reclaimer may reclaim any snapshot the guard was holding.
//
// Release on an already released guard is a no-op.
func (g *Guard[T]) Release() {
	p := g.p
	if p == nil {
		return
	}
	g.p = nil
	p.active.StoreRelease(false)
	g.r.pool.Put(p)
	g.r = nil
}
