// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rcu_test

import (
	"testing"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/rcu"
)

// =============================================================================
// Read Path
// =============================================================================

func BenchmarkRead(b *testing.B) {
	r := rcu.New(&Config{Port: 8080}).Build()
	defer r.Close()

	b.ResetTimer()
	for range b.N {
		g, err := r.Read()
		if err != nil {
			b.Fatal(err)
		}
		_ = g.Get().Port
		g.Release()
	}
}

func BenchmarkReadParallel(b *testing.B) {
	r := rcu.New(&Config{Port: 8080}).Build()
	defer r.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			g, err := r.Read()
			if err != nil {
				b.Fatal(err)
			}
			_ = g.Get().Port
			g.Release()
		}
	})
}

// =============================================================================
// Update Path
// =============================================================================

func BenchmarkUpdate(b *testing.B) {
	r := rcu.New(&Config{Port: 0}).MaxPending(1024).Build()
	defer r.Close()

	backoff := iox.Backoff{}
	b.ResetTimer()
	for range b.N {
		for {
			err := r.Update(incrementPort)
			if err == nil {
				backoff.Reset()
				break
			}
			backoff.Wait()
		}
	}
}

func BenchmarkReadWhileWriting(b *testing.B) {
	r := rcu.New(&Config{Port: 0}).MaxPending(1024).Build()
	defer r.Close()

	stop := make(chan struct{})
	go func() {
		backoff := iox.Backoff{}
		for {
			select {
			case <-stop:
				return
			default:
			}
			if err := r.Update(incrementPort); err != nil {
				backoff.Wait()
			} else {
				backoff.Reset()
			}
		}
	}()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			g, err := r.Read()
			if err != nil {
				b.Fatal(err)
			}
			_ = g.Get().Port
			g.Release()
		}
	})
	close(stop)
}
