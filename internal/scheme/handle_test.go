package scheme

import "testing"

func TestHandleAllocatorUniqueness(t *testing.T) {
	a := newHandleAllocator()
	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		id, err := a.alloc()
		if err != nil {
			t.Fatal(err)
		}
		if id == 0 {
			t.Fatal("alloc returned the reserved zero handle")
		}
		if seen[id] {
			t.Fatalf("alloc returned a duplicate id %d among live handles", id)
		}
		seen[id] = true
	}
}

func TestHandleAllocatorReusesReleasedIDs(t *testing.T) {
	a := newHandleAllocator()
	id1, _ := a.alloc()
	a.release(id1)
	id2, _ := a.alloc()
	if id2 != id1 {
		t.Errorf("alloc after release = %d, want reused id %d", id2, id1)
	}
}

func TestHandleAllocatorDoesNotCollideAcrossLiveHandles(t *testing.T) {
	a := newHandleAllocator()
	id1, _ := a.alloc()
	id2, _ := a.alloc()
	a.release(id1)
	id3, _ := a.alloc()
	if id3 == id2 {
		t.Errorf("reused id %d collides with still-live handle %d", id3, id2)
	}
}
