// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rcu

import "time"

// run is the reclaimer goroutine: the sole consumer of the pending-
// update queue, the only writer of the published cell, and the only
// goroutine that advances the global epoch.
//
// Each cycle applies pending updates, tries one epoch advance with
// reclamation, then waits for a wakeup or the scan interval. After the
// state leaves active, a final drain plus three advance passes free
// every value whose grace period can still elapse; finalize destroys
// the rest.
func (r *RCU[T]) run() {
	defer close(r.done)

	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for r.state.LoadAcquire() == stateActive {
		r.applyMods()
		r.tryAdvance()

		timer.Reset(r.interval)
		select {
		case <-r.wake:
		case <-timer.C:
		}
	}

	// Shutdown drain: apply whatever was queued before the state
	// changed, then rotate through all three bags. With no remaining
	// readers every pass advances, so three passes visit every bag.
	r.applyMods()
	for range epochBags {
		r.tryAdvance()
	}
	r.finalize()
}

// applyMods pops pending updates until the queue is empty. Each update
// sees the snapshot published by its predecessor within the same
// drain. Failed updates are logged and skipped; the published cell is
// left unchanged so later updates still run.
func (r *RCU[T]) applyMods() {
	for {
		fn, err := r.mods.dequeue()
		if err != nil {
			return
		}

		cur := r.cell.Load()
		next, err := fn(cur)
		if err != nil {
			r.log.Err().Err(err).Log("rcu: update function failed, skipping")
			continue
		}
		if next == nil {
			r.log.Err().Log("rcu: update function returned nil snapshot, skipping")
			continue
		}

		old := r.cell.Swap(next)
		r.bags.retire(old, r.epoch.LoadAcquire())
	}
}

// tryAdvance performs one grace-period check and, when it passes,
// advances the global epoch and reclaims the bag two epochs behind.
//
// The epoch may advance iff every active participant has observed the
// current epoch. Inactive participants are ignored; a reader that
// acquires a guard during the scan either becomes visible now (and
// blocks the advance) or holds an epoch at least as recent as the one
// being advanced past.
func (r *RCU[T]) tryAdvance() {
	e := r.epoch.LoadAcquire()

	blocked := false
	r.reg.forEach(func(p *participant) bool {
		if p.active.LoadAcquire() && p.localEpoch.LoadRelaxed() < e {
			blocked = true
			return false
		}
		return true
	})
	if blocked {
		return
	}

	if !r.epoch.CompareAndSwapAcqRel(e, e+1) {
		return
	}
	r.stats.epochAdvances.AddAcqRel(1)

	// Values retired at epoch E-1 have now survived two advances; no
	// guard acquired since their retirement can reference them.
	if e+1 >= 2 {
		r.reclaimBag(int((e - 1) % epochBags))
	}
}

// reclaimBag destroys every entry parked in bag i.
func (r *RCU[T]) reclaimBag(i int) {
	entries := r.bags.take(i)
	if entries == nil {
		return
	}
	for k := range entries {
		if DebugEnabled && entries[k].epoch%epochBags != uint64(i) {
			panic("rcu: retirement bag epoch mismatch")
		}
		r.destroy(entries[k].val)
	}
	r.stats.reclamations.AddAcqRel(uint64(len(entries)))
}

// finalize destroys everything still owned by the instance: any bag
// entries whose grace period never elapsed and the final published
// snapshot. Runs after the shutdown drain, when no reader may hold a
// guard.
func (r *RCU[T]) finalize() {
	for i := range epochBags {
		r.reclaimBag(i)
	}
	if v := r.cell.Swap(nil); v != nil {
		r.destroy(v)
		r.stats.reclamations.AddAcqRel(1)
	}
	r.state.StoreRelease(stateTerminated)
	r.log.Debug().
		Field("reclamations", r.stats.reclamations.LoadAcquire()).
		Field("epoch", r.epoch.LoadAcquire()).
		Log("rcu: instance terminated")
}

func (r *RCU[T]) destroy(v *T) {
	if r.destructor != nil {
		r.destructor(v)
	}
}
