// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rcu

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the pending-update queue is full.
//
// Update keeps one slot of slack, so producers observe the queue as
// full at capacity minus one. ErrWouldBlock is a control flow signal,
// not a failure: the caller should retry later (with backoff or yield)
// rather than propagating the error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//		err := r.Update(fn)
//		if err == nil {
//			break
//		}
//		if rcu.IsWouldBlock(err) {
//			backoff.Wait() // Adaptive backpressure
//			continue
//		}
//		return err // Unexpected error
//	}
var ErrWouldBlock = iox.ErrWouldBlock

// ErrNotActive indicates the operation was attempted before the
// instance became active or after shutdown began.
//
// Read and Update return ErrNotActive once Close has been entered.
// The condition is permanent for a given instance; retrying does not
// help.
var ErrNotActive = errors.New("rcu: instance not active")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsNotActive reports whether err indicates the instance is not active.
func IsNotActive(err error) bool {
	return errors.Is(err, ErrNotActive)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil or ErrWouldBlock.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
