// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rcu_test

import (
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/rcu"
)

// =============================================================================
// Test Helpers
// =============================================================================

// Config is the sample immutable payload used across the test suite.
type Config struct {
	Port int
}

// retryWithTimeout retries f until it returns true or timeout expires.
// Reports failure with the given message if timeout is reached.
func retryWithTimeout(t *testing.T, timeout time.Duration, f func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	backoff := iox.Backoff{}
	for !f() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout after %v: %s", timeout, msg)
		}
		backoff.Wait()
	}
}

// readPort acquires a guard, reads the published port, and releases.
func readPort(t *testing.T, r *rcu.RCU[Config]) int {
	t.Helper()
	g, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	defer g.Release()
	return g.Get().Port
}

// mustUpdate submits fn, retrying on a full queue.
func mustUpdate(t *testing.T, r *rcu.RCU[Config], fn rcu.UpdateFunc[Config]) {
	t.Helper()
	backoff := iox.Backoff{}
	for {
		err := r.Update(fn)
		if err == nil {
			return
		}
		if !rcu.IsWouldBlock(err) {
			t.Fatalf("Update: %v", err)
		}
		backoff.Wait()
	}
}

// incrementPort returns an update function bumping the port by one.
func incrementPort(c *Config) (*Config, error) {
	next := *c
	next.Port++
	return &next, nil
}

// waitForPort retries reads until the published port equals want.
func waitForPort(t *testing.T, r *rcu.RCU[Config], want int) {
	t.Helper()
	retryWithTimeout(t, 5*time.Second, func() bool {
		return readPort(t, r) == want
	}, "published port did not converge")
}

// =============================================================================
// Lifecycle and Single-Threaded Reads
// =============================================================================

// TestInitAndSingleRead constructs an instance, performs one read, and
// shuts down. The initial snapshot must be destroyed exactly once.
func TestInitAndSingleRead(t *testing.T) {
	var frees atomix.Int64
	r := rcu.New(&Config{Port: 8080}).
		Destructor(func(*Config) { frees.Add(1) }).
		Build()

	g, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := g.Get().Port; got != 8080 {
		t.Fatalf("Get: got port %d, want 8080", got)
	}
	g.Release()

	r.Close()
	if got := frees.Load(); got != 1 {
		t.Fatalf("destructor calls: got %d, want 1", got)
	}
}

// TestSingleUpdatePropagates submits one update and waits for readers
// to observe it. Both snapshot versions must be destroyed exactly once.
func TestSingleUpdatePropagates(t *testing.T) {
	var frees atomix.Int64
	r := rcu.New(&Config{Port: 8080}).
		Destructor(func(*Config) { frees.Add(1) }).
		Build()

	mustUpdate(t, r, func(c *Config) (*Config, error) {
		next := *c
		next.Port = 9090
		return &next, nil
	})
	waitForPort(t, r, 9090)

	r.Close()
	if got := frees.Load(); got != 2 {
		t.Fatalf("destructor calls: got %d, want 2", got)
	}
}

// TestBatchOfUpdates submits ten increments and expects the published
// snapshot to converge on the sum, with eleven destructor calls total.
func TestBatchOfUpdates(t *testing.T) {
	var frees atomix.Int64
	r := rcu.New(&Config{Port: 8000}).
		Destructor(func(*Config) { frees.Add(1) }).
		Build()

	for range 10 {
		mustUpdate(t, r, incrementPort)
		time.Sleep(time.Millisecond)
	}
	waitForPort(t, r, 8010)

	r.Close()
	if got := frees.Load(); got != 11 {
		t.Fatalf("destructor calls: got %d, want 11", got)
	}
}

// TestOperationsAfterClose verifies the not-active error surface.
func TestOperationsAfterClose(t *testing.T) {
	r := rcu.New(&Config{Port: 1}).Build()
	r.Close()

	if _, err := r.Read(); !rcu.IsNotActive(err) {
		t.Fatalf("Read after Close: got %v, want ErrNotActive", err)
	}
	if err := r.Update(incrementPort); !rcu.IsNotActive(err) {
		t.Fatalf("Update after Close: got %v, want ErrNotActive", err)
	}

	// Repeated Close is a no-op.
	r.Close()
}

// TestGuardDoubleRelease verifies that releasing twice is harmless.
func TestGuardDoubleRelease(t *testing.T) {
	r := rcu.New(&Config{Port: 1}).Build()
	defer r.Close()

	g, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	g.Release()
	g.Release()
}

// TestGuardGetStableUnderNoWrites verifies repeated Get calls on one
// guard observe the same snapshot while no updates run.
func TestGuardGetStableUnderNoWrites(t *testing.T) {
	r := rcu.New(&Config{Port: 42}).Build()
	defer r.Close()

	g, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	defer g.Release()

	first := g.Get()
	for range 100 {
		if got := g.Get(); got != first {
			t.Fatalf("Get: snapshot changed without updates: %p != %p", got, first)
		}
	}
	if first.Port != 42 {
		t.Fatalf("Get: got port %d, want 42", first.Port)
	}
}

// =============================================================================
// Pending-Update Queue Boundary
// =============================================================================

// TestUpdateQueueFull fills the pending-update queue while the
// reclaimer is parked inside an update function. With capacity 8 and
// one slot of slack, exactly seven further updates fit.
func TestUpdateQueueFull(t *testing.T) {
	r := rcu.New(&Config{Port: 0}).MaxPending(8).Build()

	if got := r.Cap(); got != 8 {
		t.Fatalf("Cap: got %d, want 8", got)
	}

	gate := make(chan struct{})
	started := make(chan struct{})
	if err := r.Update(func(c *Config) (*Config, error) {
		close(started)
		<-gate
		return incrementPort(c)
	}); err != nil {
		t.Fatalf("Update(gate): %v", err)
	}
	<-started // reclaimer is now parked; the queue is empty

	for i := range 7 {
		if err := r.Update(incrementPort); err != nil {
			t.Fatalf("Update(%d): %v", i, err)
		}
	}
	if err := r.Update(incrementPort); !rcu.IsWouldBlock(err) {
		t.Fatalf("Update on full queue: got %v, want ErrWouldBlock", err)
	}

	close(gate)
	waitForPort(t, r, 8)
	r.Close()
}

// =============================================================================
// Error Classification
// =============================================================================

func TestErrorClassification(t *testing.T) {
	if !rcu.IsWouldBlock(rcu.ErrWouldBlock) {
		t.Fatal("IsWouldBlock(ErrWouldBlock) = false")
	}
	if !rcu.IsSemantic(rcu.ErrWouldBlock) {
		t.Fatal("IsSemantic(ErrWouldBlock) = false")
	}
	if !rcu.IsNonFailure(nil) {
		t.Fatal("IsNonFailure(nil) = false")
	}
	if !rcu.IsNonFailure(rcu.ErrWouldBlock) {
		t.Fatal("IsNonFailure(ErrWouldBlock) = false")
	}
	if !rcu.IsNotActive(rcu.ErrNotActive) {
		t.Fatal("IsNotActive(ErrNotActive) = false")
	}
	if rcu.IsWouldBlock(rcu.ErrNotActive) {
		t.Fatal("IsWouldBlock(ErrNotActive) = true")
	}
	if rcu.IsNotActive(rcu.ErrWouldBlock) {
		t.Fatal("IsNotActive(ErrWouldBlock) = true")
	}
}

// =============================================================================
// Diagnostics
// =============================================================================

// TestDiagnosticsCounters verifies the monotonic counters across a
// read/update/drain cycle.
func TestDiagnosticsCounters(t *testing.T) {
	var frees atomix.Int64
	r := rcu.New(&Config{Port: 0}).
		Destructor(func(*Config) { frees.Add(1) }).
		Build()

	for range 5 {
		g, err := r.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		g.Release()
	}
	mustUpdate(t, r, incrementPort)
	waitForPort(t, r, 1)

	d := r.Diagnostics()
	// waitForPort performs reads of its own; 5 is a floor.
	if d.Reads < 5 {
		t.Fatalf("Diagnostics.Reads: got %d, want >= 5", d.Reads)
	}
	if d.Updates != 1 {
		t.Fatalf("Diagnostics.Updates: got %d, want 1", d.Updates)
	}

	r.Close()
	d = r.Diagnostics()
	// The initial value (displaced by the update) and the final
	// published snapshot destroyed by Close.
	if d.Reclamations != 2 {
		t.Fatalf("Diagnostics.Reclamations: got %d, want 2", d.Reclamations)
	}
	if d.EpochAdvances == 0 {
		t.Fatal("Diagnostics.EpochAdvances: got 0, want > 0")
	}
	if got := frees.Load(); got != 2 {
		t.Fatalf("destructor calls: got %d, want 2", got)
	}
}
