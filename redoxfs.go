package redoxfs

import (
	"fmt"
	"io"

	"github.com/redoxfs/redoxfs/internal/disk"
	"github.com/redoxfs/redoxfs/internal/fs"
	"github.com/redoxfs/redoxfs/internal/scheme"
)

// FileSystem is the mounted volume: the in-memory header and node
// index loaded from a Disk (§4.2).
type FileSystem = fs.FileSystem

// Disk is the block device contract filesystem and scheme providers
// are built on (§4.1).
type Disk = disk.Disk

// Mount loads the header and node table from d, returning nil (and no
// error) if d does not hold a recognizable volume, matching §4.2's
// "mount -> FileSystem | None" contract translated to Go idiom: a nil
// return means "no filesystem here", not a failure worth propagating
// as an error on its own.
func Mount(d Disk) (*FileSystem, error) {
	return fs.Mount(d)
}

// NewFileProvider binds a mounted FileSystem into the "file" scheme
// provider contract (§4.7).
func NewFileProvider(fsys *FileSystem) *scheme.FileProvider {
	return scheme.NewFileProvider(fsys)
}

// NewContextProvider constructs the "context" scheme provider (§4.7)
// over a process snapshot source.
func NewContextProvider(snap scheme.ProcessSnapshot) *scheme.ContextProvider {
	return scheme.NewContextProvider(snap)
}

// Serve runs a provider's packet server loop (§4.6) over conn until
// the client closes its end or a fatal transport error occurs.
func Serve(conn io.ReadWriter, p scheme.Provider) error {
	return scheme.Serve(conn, p)
}

// OpenDisk opens path as a raw disk image file, the reference Disk
// implementation most callers reach for first; see internal/disk for
// the Linux loop-device alternative.
func OpenDisk(path string) (*disk.FileDisk, error) {
	d, err := disk.OpenFileDisk(path)
	if err != nil {
		return nil, fmt.Errorf("redoxfs: %w", err)
	}
	return d, nil
}
