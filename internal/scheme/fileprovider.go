package scheme

import (
	"strings"
	"sync"

	"github.com/redoxfs/redoxfs/internal/disk"
	"github.com/redoxfs/redoxfs/internal/fs"
	"github.com/redoxfs/redoxfs/internal/resource"
)

// FileProvider binds an internal/fs.FileSystem into the Provider
// contract (§4.5, §4.7's sibling "file" scheme): open resolves a path
// against the filesystem's node index or a directory listing, and
// every other op delegates to the resulting resource.Resource.
type FileProvider struct {
	fsys    *fs.FileSystem
	disk    disk.Disk
	handles *handleAllocator

	mu    sync.Mutex
	table map[uint64]resource.Resource
}

// NewFileProvider constructs a FileProvider over an already-mounted
// filesystem.
func NewFileProvider(fsys *fs.FileSystem) *FileProvider {
	return &FileProvider{
		fsys:    fsys,
		disk:    fsys.Disk,
		handles: newHandleAllocator(),
		table:   make(map[uint64]resource.Resource),
	}
}

// Open resolves path against the node index. An empty path or one
// ending in "/" requests a directory listing (§4.4): the matching
// entries are newline-joined into a synthetic read-only resource. A
// concrete file path is looked up and opened via resource.Open, which
// busy-polls the disk's Request/OnPoll completion path per §5's
// suspension-point rule. An unresolved path yields ENOENT and no handle
// is allocated; later operations on the returned handle 0 report EBADF.
func (fp *FileProvider) Open(path string, flags, mode uint64) (uint64, Errno) {
	if path == "" || strings.HasSuffix(path, "/") {
		entries := fp.fsys.List(path)
		r := resource.NewByteResource("file://"+path, []byte(strings.Join(entries, "\n")))
		return fp.store(r), 0
	}

	n, ok := fp.fsys.Lookup(path)
	if !ok {
		return 0, ENOENT
	}
	r, err := resource.Open(fp.disk, fp.fsys, n.Address, n.Name, n.Extents)
	if err != nil {
		return 0, ENOENT
	}
	return fp.store(r), 0
}

func (fp *FileProvider) store(r resource.Resource) uint64 {
	id, err := fp.handles.alloc()
	if err != nil {
		return 0
	}
	fp.mu.Lock()
	fp.table[id] = r
	fp.mu.Unlock()
	return id
}

func (fp *FileProvider) get(handle uint64) (resource.Resource, bool) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	r, ok := fp.table[handle]
	return r, ok
}

// Unlink is not supported: this filesystem never removes nodes (an
// explicit Non-goal), so every unlink reports not-found per §4.5's
// error table.
func (fp *FileProvider) Unlink(path string) Errno { return ENOENT }

// Mkdir is not supported for the same reason: there is no on-disk
// directory-creation operation in this spec.
func (fp *FileProvider) Mkdir(path string, mode uint64) Errno { return ENOENT }

func (fp *FileProvider) Read(handle uint64, buf []byte) (int, Errno) {
	r, ok := fp.get(handle)
	if !ok {
		return 0, EBADF
	}
	n, err := r.Read(buf)
	if err != nil {
		return 0, EBADF
	}
	return n, 0
}

func (fp *FileProvider) Write(handle uint64, buf []byte) (int, Errno) {
	r, ok := fp.get(handle)
	if !ok {
		return 0, EBADF
	}
	n, err := r.Write(buf)
	if err != nil {
		return 0, EBADF
	}
	return n, 0
}

func (fp *FileProvider) Seek(handle uint64, offset int64, whence resource.Whence) (int64, Errno) {
	r, ok := fp.get(handle)
	if !ok {
		return 0, EBADF
	}
	pos, err := r.Seek(offset, whence)
	if err != nil {
		return 0, EINVAL
	}
	return pos, 0
}

func (fp *FileProvider) Sync(handle uint64) Errno {
	r, ok := fp.get(handle)
	if !ok {
		return EBADF
	}
	if _, err := r.Sync(); err != nil {
		return EBADF
	}
	return 0
}

// Truncate is unsupported: growing or shrinking a node's extents is
// explicitly out of scope (no reallocation on growth, §3).
func (fp *FileProvider) Truncate(handle uint64, size int64) Errno {
	if _, ok := fp.get(handle); !ok {
		return EBADF
	}
	return EINVAL
}

func (fp *FileProvider) Close(handle uint64) Errno {
	r, ok := fp.get(handle)
	if !ok {
		return EBADF
	}
	err := r.Close()
	fp.mu.Lock()
	delete(fp.table, handle)
	fp.mu.Unlock()
	fp.handles.release(handle)
	if err != nil {
		return EBADF
	}
	return 0
}
