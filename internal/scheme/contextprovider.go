package scheme

import (
	"fmt"
	"sync"

	"github.com/redoxfs/redoxfs/internal/interrupt"
	"github.com/redoxfs/redoxfs/internal/resource"
)

// ProcessSnapshot reports the current process index and the total
// number of live processes. §9's design note models the original's
// global process_i/contexts_ptr state as this small read-only
// interface instead of reaching for globals directly.
type ProcessSnapshot interface {
	Snapshot() (index, total int)
}

// ContextProvider is the "context" scheme (§4.7): on open it captures
// the process snapshot under interrupts-disabled and returns a
// synthetic read-only resource over "Current: {i}\nTotal: {n}".
type ContextProvider struct {
	snap    ProcessSnapshot
	handles *handleAllocator

	mu    sync.Mutex
	table map[uint64]resource.Resource
}

// NewContextProvider constructs a ContextProvider backed by snap.
func NewContextProvider(snap ProcessSnapshot) *ContextProvider {
	return &ContextProvider{
		snap:    snap,
		handles: newHandleAllocator(),
		table:   make(map[uint64]resource.Resource),
	}
}

func (cp *ContextProvider) Open(path string, flags, mode uint64) (uint64, Errno) {
	var index, total int
	tok := interrupt.Disable()
	index, total = cp.snap.Snapshot()
	tok.Enable()

	body := fmt.Sprintf("Current: %d\nTotal: %d", index, total)
	r := resource.NewByteResource("context://", []byte(body))

	id, err := cp.handles.alloc()
	if err != nil {
		return 0, EBADF
	}
	cp.mu.Lock()
	cp.table[id] = r
	cp.mu.Unlock()
	return id, 0
}

// Unlink and Mkdir are unsupported: the context scheme has no
// writable namespace of its own.
func (cp *ContextProvider) Unlink(path string) Errno         { return ENOENT }
func (cp *ContextProvider) Mkdir(path string, mode uint64) Errno { return ENOENT }

func (cp *ContextProvider) get(handle uint64) (resource.Resource, bool) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	r, ok := cp.table[handle]
	return r, ok
}

func (cp *ContextProvider) Read(handle uint64, buf []byte) (int, Errno) {
	r, ok := cp.get(handle)
	if !ok {
		return 0, EBADF
	}
	n, _ := r.Read(buf)
	return n, 0
}

// Write is ignored on the context scheme, per §4.7.
func (cp *ContextProvider) Write(handle uint64, buf []byte) (int, Errno) {
	if _, ok := cp.get(handle); !ok {
		return 0, EBADF
	}
	return len(buf), 0
}

func (cp *ContextProvider) Seek(handle uint64, offset int64, whence resource.Whence) (int64, Errno) {
	r, ok := cp.get(handle)
	if !ok {
		return 0, EBADF
	}
	pos, err := r.Seek(offset, whence)
	if err != nil {
		return 0, EINVAL
	}
	return pos, 0
}

func (cp *ContextProvider) Sync(handle uint64) Errno {
	if _, ok := cp.get(handle); !ok {
		return EBADF
	}
	return 0
}

func (cp *ContextProvider) Truncate(handle uint64, size int64) Errno {
	if _, ok := cp.get(handle); !ok {
		return EBADF
	}
	return EINVAL
}

func (cp *ContextProvider) Close(handle uint64) Errno {
	if _, ok := cp.get(handle); !ok {
		return EBADF
	}
	cp.mu.Lock()
	delete(cp.table, handle)
	cp.mu.Unlock()
	cp.handles.release(handle)
	return 0
}
