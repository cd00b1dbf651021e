// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !rcudebug

package rcu

// DebugEnabled is false in default builds; invariant assertions are
// compiled out.
const DebugEnabled = false
