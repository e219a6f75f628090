package control

import (
	"sort"
	"testing"
	"time"
)

func TestPlane_Cancel(t *testing.T) {
	p := NewPlane("run-1")

	if p.IsCancelled() {
		t.Error("Should not be cancelled initially")
	}
	if err := p.CheckCancelled(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	p.Cancel()
	p.Cancel()

	if !p.IsCancelled() {
		t.Error("Should be cancelled after Cancel()")
	}
	if err := p.CheckCancelled(); err == nil {
		t.Error("Expected error after Cancel()")
	}
	select {
	case <-p.Cancelled():
	case <-time.After(100 * time.Millisecond):
		t.Error("Cancelled channel should be closed")
	}
}

func TestRegistry_AcquireIsExclusive(t *testing.T) {
	r := NewRegistry()

	p, ok := r.Acquire("run-1")
	if !ok {
		t.Fatal("first Acquire should succeed")
	}
	if _, ok := r.Acquire("run-1"); ok {
		t.Error("second Acquire for the same run should fail")
	}
	if _, ok := r.Acquire("run-2"); !ok {
		t.Error("Acquire for another run should succeed")
	}

	ids := r.Running()
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "run-1" || ids[1] != "run-2" {
		t.Errorf("Running() = %v", ids)
	}

	r.Release(p)
	if _, ok := r.Get("run-1"); ok {
		t.Error("run-1 should be released")
	}
	if _, ok := r.Acquire("run-1"); !ok {
		t.Error("Acquire after Release should succeed")
	}
}

func TestRegistry_CancelAndWait(t *testing.T) {
	r := NewRegistry()
	p, _ := r.Acquire("run-1")

	if r.Cancel("missing") {
		t.Error("Cancel of unknown run should report false")
	}
	if !r.Cancel("run-1") {
		t.Error("Cancel of running run should report true")
	}
	if !p.IsCancelled() {
		t.Error("plane should be cancelled")
	}

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("Wait returned before Release")
	case <-time.After(20 * time.Millisecond):
	}
	r.Release(p)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Release")
	}
}
