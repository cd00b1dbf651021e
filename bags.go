// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rcu

import "sync"

// epochBags is the number of rotating retirement bags. Three bags
// tolerate the relaxed ordering between a reader's epoch load and its
// active-flag publication; two would require a stricter reader path.
const epochBags = 3

// retired is a displaced snapshot awaiting reclamation. The epoch tag
// is carried for debug assertions: entries in bag i must satisfy
// epoch mod 3 == i.
type retired[T any] struct {
	val   *T
	epoch uint64
}

// bags holds displaced snapshots until their grace period elapses,
// bucketed by retirement epoch mod 3. A short-held mutex serialises
// access because the reclaimer may retire and reclaim in overlapping
// critical sections.
type bags[T any] struct {
	mu   sync.Mutex
	hint int
	b    [epochBags][]retired[T]
}

func (bg *bags[T]) init(hint int) {
	bg.hint = hint
	for i := range bg.b {
		bg.b[i] = make([]retired[T], 0, hint)
	}
}

// retire parks val in the bag for epoch. The value must already be
// unpublished; ownership transfers to the bag slot.
func (bg *bags[T]) retire(val *T, epoch uint64) {
	bg.mu.Lock()
	i := epoch % epochBags
	bg.b[i] = append(bg.b[i], retired[T]{val: val, epoch: epoch})
	bg.mu.Unlock()
}

// take removes and returns the contents of bag i, leaving an empty
// bag with the initial reservation. Destructors run on the returned
// slice outside the lock.
func (bg *bags[T]) take(i int) []retired[T] {
	bg.mu.Lock()
	entries := bg.b[i]
	if len(entries) == 0 {
		bg.mu.Unlock()
		return nil
	}
	bg.b[i] = make([]retired[T], 0, bg.hint)
	bg.mu.Unlock()
	return entries
}
