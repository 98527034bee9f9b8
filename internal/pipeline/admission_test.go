package pipeline

import (
	"sync"
	"testing"
)

func TestAdmissionGate(t *testing.T) {
	t.Run("rejects above capacity without blocking", func(t *testing.T) {
		gate := NewAdmissionGate(1)

		if !gate.TryAcquire() {
			t.Fatal("first acquire should succeed")
		}
		if gate.TryAcquire() {
			t.Error("second acquire should be rejected, not queued")
		}
		if gate.InUse() != 1 {
			t.Errorf("InUse() = %d, want 1", gate.InUse())
		}

		gate.Release()
		if !gate.TryAcquire() {
			t.Error("acquire after release should succeed")
		}
	})

	t.Run("non-positive capacity coerced to one", func(t *testing.T) {
		gate := NewAdmissionGate(0)
		if gate.Capacity() != 1 {
			t.Errorf("Capacity() = %d, want 1", gate.Capacity())
		}
	})

	t.Run("extra release does not grow capacity", func(t *testing.T) {
		gate := NewAdmissionGate(1)
		gate.Release()
		if !gate.TryAcquire() {
			t.Fatal("acquire should succeed")
		}
		if gate.TryAcquire() {
			t.Error("capacity should still be one slot")
		}
	})

	t.Run("concurrent acquires admit exactly capacity", func(t *testing.T) {
		gate := NewAdmissionGate(2)

		var mu sync.Mutex
		admitted := 0
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if gate.TryAcquire() {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if admitted != 2 {
			t.Errorf("admitted %d, want 2", admitted)
		}
	})
}
