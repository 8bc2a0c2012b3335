package scheme

import (
	"fmt"
	"math"
	"sync"
)

// handleAllocator assigns non-zero handle ids (§4.5). It resolves §9's
// flagged handle-id-overflow bug: rather than reset the monotonic
// counter to 1 on overflow without checking for collisions against
// still-open ids, released ids are returned to a free-list and reused
// before the counter advances further, and the counter reports an
// error instead of silently wrapping once it would exceed math.MaxInt32
// (see SPEC_FULL.md §4 and the original wrap-to-1 policy in
// original_source/filesystem/apps/example/main.rs's ExampleScheme).
type handleAllocator struct {
	mu   sync.Mutex
	next uint64
	free []uint64
}

func newHandleAllocator() *handleAllocator {
	return &handleAllocator{next: 1}
}

// alloc returns a fresh or reused non-zero handle id.
func (a *handleAllocator) alloc() (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		return id, nil
	}
	if a.next > math.MaxInt32 {
		return 0, fmt.Errorf("scheme: handle id space exhausted")
	}
	id := a.next
	a.next++
	return id, nil
}

// release returns id to the free-list for reuse.
func (a *handleAllocator) release(id uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free = append(a.free, id)
}
