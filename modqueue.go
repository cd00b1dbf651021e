// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rcu

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// modQueue is the bounded multi-producer single-consumer ring of
// pending update functions.
//
// Producers use CAS to claim slots; the reclaimer is the sole consumer
// and reads sequentially. Per-slot sequence numbers protect the
// non-atomic function field. One slot of slack is reserved so full and
// empty are distinguishable without an extra counter: producers observe
// the queue as full at capacity minus one.
type modQueue[T any] struct {
	_        pad
	head     atomix.Uint64 // Consumer reads from here
	_        pad
	tail     atomix.Uint64 // Producers CAS here
	_        pad
	buffer   []modSlot[T]
	mask     uint64
	capacity uint64
}

type modSlot[T any] struct {
	seq atomix.Uint64
	fn  UpdateFunc[T]
	_   padShort // Padding against false sharing between slots
}

// newModQueue creates a pending-update queue.
// Capacity rounds up to the next power of 2.
func newModQueue[T any](capacity int) *modQueue[T] {
	if capacity < 2 {
		panic("rcu: max pending must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	q := &modQueue[T]{
		buffer:   make([]modSlot[T], n),
		mask:     n - 1,
		capacity: n,
	}

	for i := uint64(0); i < n; i++ {
		q.buffer[i].seq.StoreRelaxed(i)
	}

	return q
}

// enqueue adds a pending update (multiple producers safe).
// Returns ErrWouldBlock when only the slack slot remains.
func (q *modQueue[T]) enqueue(fn UpdateFunc[T]) error {
	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		head := q.head.LoadAcquire()

		// One free slot always remains reserved.
		if tail+1 >= head+q.capacity {
			return ErrWouldBlock
		}

		slot := &q.buffer[tail&q.mask]
		seq := slot.seq.LoadAcquire()

		if seq == tail {
			if q.tail.CompareAndSwapAcqRel(tail, tail+1) {
				slot.fn = fn
				slot.seq.StoreRelease(tail + 1)
				return nil
			}
		} else if seq < tail {
			return ErrWouldBlock
		}
		sw.Once()
	}
}

// dequeue removes and returns the oldest pending update (reclaimer
// only). Returns ErrWouldBlock when the queue is empty.
func (q *modQueue[T]) dequeue() (UpdateFunc[T], error) {
	head := q.head.LoadRelaxed()
	slot := &q.buffer[head&q.mask]
	seq := slot.seq.LoadAcquire()

	if seq != head+1 {
		return nil, ErrWouldBlock
	}

	fn := slot.fn
	slot.fn = nil
	slot.seq.StoreRelease(head + q.capacity)
	q.head.StoreRelease(head + 1)

	return fn, nil
}

// cap returns the queue capacity including the reserved slack slot.
func (q *modQueue[T]) cap() int {
	return int(q.capacity)
}
