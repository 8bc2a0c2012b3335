// Package layout defines the fixed, little-endian, 512-byte-aligned
// on-disk records described in spec §6: the volume Header (sector 1) and
// the per-file NodeData record that makes up the node table the header's
// extents point at.
package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/redoxfs/redoxfs/internal/extent"
)

// SectorSize is the on-disk record size for both Header and NodeData.
const SectorSize = extent.SectorSize

// Signature is the 8-byte magic every valid volume starts its header with.
var Signature = [8]byte{'R', 'E', 'D', 'O', 'X', 'F', 'S', 0}

// Version is the only header version this implementation accepts.
const Version uint32 = 0xFFFFFFFF

// NumExtents is how many extents the Header and each NodeData carry.
const NumExtents = 16

// Header is the 512-byte record at sector 1 of the disk (§6).
type Header struct {
	Signature [8]byte
	Version   uint32
	Name      [244]byte
	Extents   [NumExtents]extent.Extent
}

// NodeData is the 512-byte on-disk form of a Node (§6): exactly one per
// sector within a header extent.
type NodeData struct {
	Name    [256]byte
	Extents [NumExtents]extent.Extent
}

func init() {
	if binary.Size(Header{}) != SectorSize {
		panic(fmt.Sprintf("BUG: Header is %d bytes, want %d", binary.Size(Header{}), SectorSize))
	}
	if binary.Size(NodeData{}) != SectorSize {
		panic(fmt.Sprintf("BUG: NodeData is %d bytes, want %d", binary.Size(NodeData{}), SectorSize))
	}
}

// ReadHeader decodes a Header from exactly SectorSize bytes.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return Header{}, fmt.Errorf("reading header: %w", err)
	}
	return h, nil
}

// Valid reports whether h carries the expected signature and version.
func (h Header) Valid() bool {
	return h.Signature == Signature && h.Version == Version
}

// WriteHeader encodes h into exactly SectorSize bytes.
func WriteHeader(w io.Writer, h Header) error {
	return binary.Write(w, binary.LittleEndian, &h)
}

// ReadNodeTable decodes a header extent's raw bytes into NodeData records.
// buf's length must be a multiple of SectorSize.
func ReadNodeTable(buf []byte) ([]NodeData, error) {
	n := len(buf) / SectorSize
	nodes := make([]NodeData, n)
	r := bytes.NewReader(buf)
	for i := range nodes {
		if err := binary.Read(r, binary.LittleEndian, &nodes[i]); err != nil {
			return nil, fmt.Errorf("reading node table entry %d: %w", i, err)
		}
	}
	return nodes, nil
}

// WriteNodeData encodes a single NodeData record, for flushing one sector
// of the node table back to disk.
func WriteNodeData(w io.Writer, nd NodeData) error {
	return binary.Write(w, binary.LittleEndian, &nd)
}

// NameString trims a fixed-size raw-byte name field at its first NUL, per
// §3's "names are raw bytes with a trailing NUL as terminator" rule. No
// UTF-8 validation is performed (explicit Non-goal).
func NameString(raw []byte) string {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw)
}

// PutName copies name into dst, truncating to len(dst)-1 bytes and leaving
// the rest (including at least one NUL terminator byte) zeroed.
func PutName(dst []byte, name string) {
	for i := range dst {
		dst[i] = 0
	}
	n := len(name)
	if n > len(dst)-1 {
		n = len(dst) - 1
	}
	copy(dst, name[:n])
}
