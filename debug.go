// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build rcudebug

package rcu

// DebugEnabled is true when internal invariant assertions are compiled
// in (build tag rcudebug). Assertion failure indicates a bug in this
// package, not a runtime condition, and panics.
const DebugEnabled = true
