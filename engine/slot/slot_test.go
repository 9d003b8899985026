package slot

import (
	"errors"
	"testing"
)

func TestAcquireHandsOutLowestFree(t *testing.T) {
	a := NewAllocator(8)
	for want := uint32(0); want < 8; want++ {
		got, err := a.Acquire()
		if err != nil {
			t.Fatalf("acquire %d: %v", want, err)
		}
		if got != want {
			t.Fatalf("expected slot %d, got %d", want, got)
		}
	}
}

func TestAcquireExhaustion(t *testing.T) {
	a := NewAllocator(3)
	for i := 0; i < 3; i++ {
		if _, err := a.Acquire(); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	_, err := a.Acquire()
	if !errors.Is(err, ErrSlotsExhausted) {
		t.Fatalf("expected ErrSlotsExhausted, got %v", err)
	}
}

func TestReleaseAndReuse(t *testing.T) {
	a := NewAllocator(4)
	for i := 0; i < 4; i++ {
		a.Acquire()
	}

	if !a.Release(1) {
		t.Fatal("release of in-use slot must succeed")
	}
	if a.InUse(1) {
		t.Fatal("slot 1 should be free after release")
	}

	got, err := a.Acquire()
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected freed slot 1 to be reused, got %d", got)
	}
}

func TestReleaseRejectsInvalid(t *testing.T) {
	a := NewAllocator(4)
	if a.Release(0) {
		t.Fatal("release of never-acquired slot must fail")
	}
	if a.Release(99) {
		t.Fatal("release of out-of-range slot must fail")
	}

	s, _ := a.Acquire()
	if !a.Release(s) {
		t.Fatal("first release must succeed")
	}
	if a.Release(s) {
		t.Fatal("double release must fail")
	}
}

func TestNeverDoubleAllocates(t *testing.T) {
	a := NewAllocator(130) // spans three bitmap words
	seen := make(map[uint32]bool)
	for {
		s, err := a.Acquire()
		if err != nil {
			break
		}
		if seen[s] {
			t.Fatalf("slot %d handed out twice", s)
		}
		seen[s] = true
	}
	if len(seen) != 130 {
		t.Fatalf("expected 130 unique slots, got %d", len(seen))
	}
}

func TestCountAndCapacity(t *testing.T) {
	a := NewAllocator(65)
	if a.Capacity() != 65 {
		t.Fatalf("capacity: got %d, want 65", a.Capacity())
	}
	if a.Count() != 0 {
		t.Fatalf("fresh allocator count: got %d, want 0", a.Count())
	}

	s0, _ := a.Acquire()
	a.Acquire()
	if a.Count() != 2 {
		t.Fatalf("count after two acquires: got %d, want 2", a.Count())
	}

	a.Release(s0)
	if a.Count() != 1 {
		t.Fatalf("count after release: got %d, want 1", a.Count())
	}
}

func TestReset(t *testing.T) {
	a := NewAllocator(70)
	for i := 0; i < 70; i++ {
		a.Acquire()
	}
	a.Reset()

	if a.Count() != 0 {
		t.Fatalf("count after reset: got %d, want 0", a.Count())
	}
	s, err := a.Acquire()
	if err != nil || s != 0 {
		t.Fatalf("acquire after reset: got (%d, %v), want (0, nil)", s, err)
	}
}

func TestZeroCapacity(t *testing.T) {
	a := NewAllocator(0)
	if _, err := a.Acquire(); !errors.Is(err, ErrSlotsExhausted) {
		t.Fatalf("expected ErrSlotsExhausted from empty allocator, got %v", err)
	}
}
