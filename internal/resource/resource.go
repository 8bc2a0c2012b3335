// Package resource implements the Resource operation set (§4.3, §4.5)
// shared by every kind of open handle: FileResource over filesystem
// nodes, ByteResource over a synthesized read-only buffer (used by the
// context provider), and NoneResource, on which every operation fails.
// All three are modeled
// as a small, flat interface rather than a class hierarchy, per §9's
// "ad-hoc polymorphism over resources" design note.
package resource

import (
	"bytes"
	"fmt"
	"runtime"

	"github.com/redoxfs/redoxfs/internal/diag"
	"github.com/redoxfs/redoxfs/internal/disk"
	"github.com/redoxfs/redoxfs/internal/extent"
	"github.com/redoxfs/redoxfs/internal/interrupt"
	"github.com/redoxfs/redoxfs/internal/layout"
)

// Whence mirrors the packet-level SET/CUR/END values from §4.5.
type Whence int

const (
	SeekStart Whence = iota
	SeekCurrent
	SeekEnd
)

// StatKind is the result of Stat; this module only ever returns File.
type StatKind int

const (
	KindFile StatKind = iota
)

// Resource is the uniform operation set every open handle exposes
// (§4.3, §4.5). Errors are plain Go errors here; the scheme layer
// translates them into packet errno words at the dispatch boundary.
type Resource interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	Seek(offset int64, whence Whence) (int64, error)
	Sync() (bool, error)
	Truncate(size int64) error
	Close() error
	Stat() StatKind
	URL() string
}

// buffer is the shared []byte + cursor storage used by both
// ByteResource and FileResource, matching §3's FileResource invariant
// definition directly instead of forcing it through a from-start
// reader such as orcaman/writerseeker (see DESIGN.md for why that
// library was dropped).
type buffer struct {
	data []byte
	seek int64
}

func (b *buffer) read(buf []byte) (int, error) {
	if b.seek >= int64(len(b.data)) {
		return 0, nil
	}
	n := copy(buf, b.data[b.seek:])
	b.seek += int64(n)
	return n, nil
}

func (b *buffer) write(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	n := 0
	for n < len(buf) && b.seek < int64(len(b.data)) {
		b.data[b.seek] = buf[n]
		b.seek++
		n++
	}
	if n < len(buf) {
		b.data = append(b.data, buf[n:]...)
		b.seek += int64(len(buf) - n)
		n = len(buf)
	}
	return n, nil
}

func (b *buffer) seekTo(offset int64, whence Whence) (int64, error) {
	switch whence {
	case SeekStart:
		b.seek = offset
	case SeekCurrent:
		b.seek += offset
	case SeekEnd:
		b.seek = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("resource: invalid whence %d", whence)
	}
	if b.seek < 0 {
		b.seek = 0
	}
	for int64(len(b.data)) < b.seek {
		b.data = append(b.data, 0)
	}
	return b.seek, nil
}

// ByteResource is a read-only (write is a silent no-op, per §4.7) fixed
// buffer resource, used by the context scheme provider's synthesized
// "Current: {i}\nTotal: {n}" contents.
type ByteResource struct {
	buf buffer
	url string
}

// NewByteResource wraps data as a read-only resource addressed by url.
func NewByteResource(url string, data []byte) *ByteResource {
	return &ByteResource{buf: buffer{data: data}, url: url}
}

func (r *ByteResource) Read(buf []byte) (int, error) { return r.buf.read(buf) }

// Write is ignored on a ByteResource (§4.7): it reports all bytes
// accepted without mutating the underlying buffer.
func (r *ByteResource) Write(buf []byte) (int, error) { return len(buf), nil }

func (r *ByteResource) Seek(offset int64, whence Whence) (int64, error) {
	return r.buf.seekTo(offset, whence)
}
func (r *ByteResource) Sync() (bool, error)      { return true, nil }
func (r *ByteResource) Truncate(size int64) error { return errUnsupported }
func (r *ByteResource) Close() error              { return nil }
func (r *ByteResource) Stat() StatKind            { return KindFile }
func (r *ByteResource) URL() string               { return r.url }

// NoneResource is a resource on which every operation fails. The
// providers in internal/scheme do not hand it out: a failed open there
// reports an errno and allocates no handle.
type NoneResource struct{}

var errNoneResource = fmt.Errorf("resource: operation on none-resource")
var errUnsupported = fmt.Errorf("resource: unsupported")

func (NoneResource) Read([]byte) (int, error)              { return 0, errNoneResource }
func (NoneResource) Write([]byte) (int, error)              { return 0, errNoneResource }
func (NoneResource) Seek(int64, Whence) (int64, error)       { return 0, errNoneResource }
func (NoneResource) Sync() (bool, error)                     { return false, errNoneResource }
func (NoneResource) Truncate(int64) error                    { return errNoneResource }
func (NoneResource) Close() error                            { return nil }
func (NoneResource) Stat() StatKind                          { return KindFile }
func (NoneResource) URL() string                             { return "" }

// node is the minimal view of a filesystem node FileResource needs: an
// address to flush the owning NodeData sector at (SPEC_FULL.md's
// node-table write-back decision) and the extents to walk on sync.
type node struct {
	Address uint64
	Name    string
	Extents [layout.NumExtents]extent.Extent
}

// NodeUpdater is implemented by internal/fs.FileSystem; FileResource
// uses it instead of a raw back-pointer to its owning scheme (§9's
// "cyclic back-reference" design note: the resource holds an explicit
// disk + index handle rather than a pointer back into its scheme).
type NodeUpdater interface {
	UpdateNode(address uint64, extents [layout.NumExtents]extent.Extent) bool
}

// FileResource is a per-open handle over a filesystem node: the node
// snapshot it was opened with, the materialized buffer of its entire
// contents, and the dirty flag controlling whether Sync has work to do
// (§3, §4.3).
type FileResource struct {
	disk    disk.Disk
	updater NodeUpdater
	node    node
	buf     buffer
	dirty   bool
}

// Open materializes a FileResource by reading every used extent of n
// in order and concatenating their contents, matching §3's "buffer is
// materialized on open" invariant.
func Open(d disk.Disk, updater NodeUpdater, address uint64, name string, extents [layout.NumExtents]extent.Extent) (*FileResource, error) {
	var data []byte
	for _, e := range extents {
		if !e.Used() {
			continue
		}
		chunk := make([]byte, e.Length)
		if err := readExtentPolling(d, e, chunk); err != nil {
			return nil, fmt.Errorf("resource: reading extent at block %d: %w", e.Block, err)
		}
		data = append(data, chunk...)
	}
	return &FileResource{
		disk:    d,
		updater: updater,
		node:    node{Address: address, Name: name, Extents: extents},
		buf:     buffer{data: data},
	}, nil
}

// readExtentPolling issues a Request and busy-polls its completion via
// OnPoll while yielding, per §5's suspension-point rule and
// SPEC_FULL.md's decision to keep the Request/OnPoll path live for an
// asynchronous Disk (a synchronous Disk marks Done immediately and the
// loop never actually yields). dst is e.Length bytes, which may be
// shorter than e.Sectors()*SectorSize (a file's final sector is often
// only partially used), so each chunk is requested into a full,
// sector-rounded scratch buffer and only the bytes dst has room for
// are copied out.
func readExtentPolling(d disk.Disk, e extent.Extent, dst []byte) error {
	for _, c := range extent.Chunks(e.Block, e.Sectors()) {
		scratch := make([]byte, int(c.SectorCount)*extent.SectorSize)
		req := &disk.Request{
			Extent: extent.Extent{Block: c.Block, Length: c.SectorCount * extent.SectorSize},
			Buf:    scratch,
			Dir:    disk.DirRead,
		}
		if err := d.Request(req); err != nil {
			return err
		}
		for !req.Done {
			d.OnPoll()
			runtime.Gosched()
		}
		end := c.BufOffset + len(scratch)
		if end > len(dst) {
			end = len(dst)
		}
		if end > c.BufOffset {
			copy(dst[c.BufOffset:end], scratch)
		}
	}
	return nil
}

func (r *FileResource) Read(buf []byte) (int, error) { return r.buf.read(buf) }

func (r *FileResource) Write(buf []byte) (int, error) {
	n, _ := r.buf.write(buf)
	if n > 0 {
		r.dirty = true
	}
	return n, nil
}

func (r *FileResource) Seek(offset int64, whence Whence) (int64, error) {
	return r.buf.seekTo(offset, whence)
}

// Sync flushes the buffer back to the node's extents in order, per
// §4.3: each used extent receives up to its current sector capacity's
// worth of bytes, chunked at extent.MaxSectorsPerIssue; if the written
// size differs from the extent's stored length the in-memory extent
// (and, per SPEC_FULL.md's node-table decision, the on-disk NodeData
// sector) is updated. Returns false if bytes remain after every extent
// is exhausted (reallocation is not implemented, an explicit
// Non-goal).
func (r *FileResource) Sync() (bool, error) {
	if !r.dirty {
		return true, nil
	}

	nodeDirty := false
	pos := 0
	remaining := len(r.buf.data)

	for i := range r.node.Extents {
		e := &r.node.Extents[i]
		if !e.Used() {
			continue
		}
		currentSectors := e.Sectors()
		maxSize := int(currentSectors) * extent.SectorSize

		size := remaining
		if size > maxSize {
			size = maxSize
		}
		sectors := (uint64(size) + extent.SectorSize - 1) / extent.SectorSize

		if uint64(size) != e.Length {
			e.Length = uint64(size)
			nodeDirty = true
		}

		tok := interrupt.Disable()
		err := disk.WriteExtent(r.disk, e.Block, sectors, r.buf.data[pos:pos+size])
		tok.Enable()
		if err != nil {
			return false, fmt.Errorf("resource: sync: %w", err)
		}

		pos += size
		remaining -= size
	}

	if nodeDirty {
		if r.updater != nil {
			r.updater.UpdateNode(r.node.Address, r.node.Extents)
		}
		if err := flushNodeData(r.disk, r.node.Address, r.node.Name, r.node.Extents); err != nil {
			return false, fmt.Errorf("resource: flushing node table: %w", err)
		}
		diag.Printf("resource: node %q changed size, rewrote its NodeData at sector %d", r.node.Name, r.node.Address)
	}

	r.dirty = false
	return remaining == 0, nil
}

func (r *FileResource) Truncate(size int64) error { return errUnsupported }

// Close flushes any dirty buffer and releases it, per §3's
// "FileResource... buffer memory released on close" lifecycle rule.
func (r *FileResource) Close() error {
	_, err := r.Sync()
	r.buf.data = nil
	return err
}

func (r *FileResource) Stat() StatKind { return KindFile }
func (r *FileResource) URL() string    { return "file:///" + r.node.Name }

// flushNodeData writes the owning NodeData sector back to disk,
// implementing SPEC_FULL.md's node-table write-back decision (§9's
// first Open Question): rather than leave the node table permanently
// stale, a node-dirty sync also rewrites its one NodeData sector.
func flushNodeData(d disk.Disk, address uint64, name string, extents [layout.NumExtents]extent.Extent) error {
	var nd layout.NodeData
	layout.PutName(nd.Name[:], name)
	nd.Extents = extents

	var buf bytes.Buffer
	if err := layout.WriteNodeData(&buf, nd); err != nil {
		return err
	}
	return d.Write(address, 1, buf.Bytes())
}
