package lucidity

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestCatatoniaMembership(t *testing.T) {
	reg := NewCatatoniaRegistry(nil)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	reg.OnCatatoniaEntered("ash", at)
	if !reg.Contains("ash") {
		t.Fatal("ash should be a member")
	}
	if got, ok := reg.EnteredAt("ash"); !ok || !got.Equal(at) {
		t.Fatalf("entered at %s, want %s", got, at)
	}
	if reg.Len() != 1 {
		t.Fatalf("len = %d, want 1", reg.Len())
	}

	reg.OnCatatoniaCleared("ash")
	if reg.Contains("ash") {
		t.Fatal("ash should have been removed")
	}

	// Clearing a non-member is a no-op.
	reg.OnCatatoniaCleared("nobody")
	if reg.Len() != 0 {
		t.Fatalf("len = %d, want 0", reg.Len())
	}
}

func TestCatatoniaMembersSnapshot(t *testing.T) {
	reg := NewCatatoniaRegistry(nil)
	reg.OnCatatoniaEntered("ash", time.Now())
	snap := reg.Members()
	delete(snap, "ash")
	if !reg.Contains("ash") {
		t.Fatal("mutating the snapshot reached the registry")
	}
}

func TestFloorReachedInvokesFailover(t *testing.T) {
	var calls atomic.Int32
	reg := NewCatatoniaRegistry(func(actorID string, score int) error {
		if actorID != "ash" || score != -100 {
			t.Errorf("failover got %s/%d", actorID, score)
		}
		calls.Add(1)
		return nil
	})

	reg.OnFloorReached("ash", -100)
	reg.Wait()
	if calls.Load() != 1 {
		t.Fatalf("failover called %d times, want 1", calls.Load())
	}
}

func TestFloorReachedSwallowsFailoverErrors(t *testing.T) {
	reg := NewCatatoniaRegistry(func(string, int) error {
		return errors.New("relocation failed")
	})

	// Must not panic or propagate.
	reg.OnFloorReached("ash", -100)
	reg.Wait()
}

func TestFloorReachedSurvivesFailoverPanic(t *testing.T) {
	reg := NewCatatoniaRegistry(func(string, int) error {
		panic("relocation exploded")
	})

	reg.OnFloorReached("ash", -100)
	reg.Wait()
}

func TestFloorReachedWithoutFailover(t *testing.T) {
	reg := NewCatatoniaRegistry(nil)
	reg.OnFloorReached("ash", -100)
	reg.Wait()
}
