// Package fs implements the in-memory FileSystem index: loading the
// volume Header and node table from a disk at mount time, and the
// lookup/listing operations the scheme layer builds on (§4.2).
package fs

import (
	"bytes"
	"strings"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/redoxfs/redoxfs/internal/disk"
	"github.com/redoxfs/redoxfs/internal/extent"
	"github.com/redoxfs/redoxfs/internal/layout"
)

// Node is the in-memory form of a file or directory entry (§3): the
// disk sector its NodeData record lives at, its name, and its extents.
type Node struct {
	Address uint64
	Name    string
	Extents [layout.NumExtents]extent.Extent
}

// FileSystem is the mounted, in-memory index over a Disk: the header
// and the ordered node list loaded once at mount (§3). Nodes are
// read-only after mount except for the in-place extent updates
// FileResource.sync makes through UpdateNode.
type FileSystem struct {
	Disk   disk.Disk
	Header layout.Header
	nodes  []*Node
}

// Mount reads the header at sector 1 and the node table(s) it points
// at, returning a FileSystem, or a nil FileSystem and no error if d
// does not hold a recognizable volume (§4.2 step 1-2: "mount ->
// FileSystem | None").
func Mount(d disk.Disk) (*FileSystem, error) {
	if !d.Identify() {
		return nil, nil
	}

	hdrBuf := make([]byte, layout.SectorSize)
	if err := d.Read(1, 1, hdrBuf); err != nil {
		return nil, xerrors.Errorf("fs: reading header: %w", err)
	}
	h, err := layout.ReadHeader(bytes.NewReader(hdrBuf))
	if err != nil {
		return nil, xerrors.Errorf("fs: decoding header: %w", err)
	}
	if !h.Valid() {
		return nil, nil
	}

	// The 16 header extents are independent reads; fetch them
	// concurrently and reassemble in header-extent order afterward, per
	// SPEC_FULL.md's concurrency note (§4.2 still requires "disk order
	// within each header extent, in header-extent order").
	perExtentNodes := make([][]*Node, layout.NumExtents)
	var eg errgroup.Group
	for i, ext := range h.Extents {
		i, ext := i, ext
		if !ext.Used() {
			continue
		}
		eg.Go(func() error {
			nodes, err := readNodeExtent(d, ext)
			if err != nil {
				return err
			}
			perExtentNodes[i] = nodes
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, xerrors.Errorf("fs: reading node table: %w", err)
	}

	var nodes []*Node
	for _, ns := range perExtentNodes {
		nodes = append(nodes, ns...)
	}

	return &FileSystem{Disk: d, Header: h, nodes: nodes}, nil
}

// readNodeExtent reads one header extent's worth of NodeData records
// and decodes them into Nodes, address = extent.block + i (§4.2 step 3).
func readNodeExtent(d disk.Disk, ext extent.Extent) ([]*Node, error) {
	buf := make([]byte, ext.Length)
	if err := disk.ReadExtent(d, ext.Block, ext.Sectors(), buf); err != nil {
		return nil, xerrors.Errorf("fs: reading node extent at block %d: %w", ext.Block, err)
	}
	records, err := layout.ReadNodeTable(buf)
	if err != nil {
		return nil, xerrors.Errorf("fs: decoding node table at block %d: %w", ext.Block, err)
	}
	nodes := make([]*Node, len(records))
	for i, nd := range records {
		nodes[i] = &Node{
			Address: ext.Block + uint64(i),
			Name:    layout.NameString(nd.Name[:]),
			Extents: nd.Extents,
		}
	}
	return nodes, nil
}

// Lookup returns the first node whose name equals name exactly (§4.2:
// "first match wins on lookup" since names need not be unique).
func (fsys *FileSystem) Lookup(name string) (*Node, bool) {
	for _, n := range fsys.nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// List implements §4.2's directory-listing contract: for every node
// whose name has prefix, emit name[len(prefix):], collapsing multiple
// entries that share a leading path component (up to and including the
// first '/' after the prefix) into one deduplicated directory entry,
// preserving first-occurrence order.
func (fsys *FileSystem) List(prefix string) []string {
	var entries []string
	for _, n := range fsys.nodes {
		if !strings.HasPrefix(n.Name, prefix) {
			continue
		}
		rest := n.Name[len(prefix):]
		if rest == "" {
			continue
		}
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i+1]
		}
		if !slices.Contains(entries, rest) {
			entries = append(entries, rest)
		}
	}
	return entries
}

// UpdateNode overwrites the in-memory extents for the node at address,
// used by FileResource.sync after a successful write-back (§3's "node
// extents are updated in-place on flush" lifecycle rule). It returns
// false if no node with that address exists.
func (fsys *FileSystem) UpdateNode(address uint64, extents [layout.NumExtents]extent.Extent) bool {
	for _, n := range fsys.nodes {
		if n.Address == address {
			n.Extents = extents
			return true
		}
	}
	return false
}
