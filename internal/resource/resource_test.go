package resource

import (
	"testing"

	"github.com/redoxfs/redoxfs/internal/disk"
	"github.com/redoxfs/redoxfs/internal/extent"
	"github.com/redoxfs/redoxfs/internal/layout"
)

// memDisk is a minimal in-memory disk.Disk fake, sector-addressed.
type memDisk struct {
	sectors map[uint64][]byte
}

func newMemDisk() *memDisk { return &memDisk{sectors: make(map[uint64][]byte)} }

func (d *memDisk) Identify() bool { return true }

func (d *memDisk) Read(block, sectorCount uint64, dst []byte) error {
	for i := uint64(0); i < sectorCount; i++ {
		s := d.sectors[block+i]
		if s == nil {
			s = make([]byte, layout.SectorSize)
		}
		copy(dst[i*layout.SectorSize:(i+1)*layout.SectorSize], s)
	}
	return nil
}

func (d *memDisk) Write(block, sectorCount uint64, src []byte) error {
	for i := uint64(0); i < sectorCount; i++ {
		sec := make([]byte, layout.SectorSize)
		copy(sec, src[i*layout.SectorSize:(i+1)*layout.SectorSize])
		d.sectors[block+i] = sec
	}
	return nil
}

func (d *memDisk) Request(req *disk.Request) error {
	var err error
	if req.Dir == disk.DirRead {
		err = d.Read(req.Extent.Block, req.Extent.Sectors(), req.Buf)
	} else {
		err = d.Write(req.Extent.Block, req.Extent.Sectors(), req.Buf)
	}
	req.Done = true
	return err
}

func (d *memDisk) OnPoll()     {}
func (d *memDisk) Irq() uint8 { return 0 }

type fakeUpdater struct {
	calledAddr uint64
	calledExts [layout.NumExtents]extent.Extent
	called     bool
}

func (u *fakeUpdater) UpdateNode(addr uint64, exts [layout.NumExtents]extent.Extent) bool {
	u.calledAddr = addr
	u.calledExts = exts
	u.called = true
	return true
}

func TestByteResourceReadWriteIgnored(t *testing.T) {
	r := NewByteResource("context://", []byte("Current: 1\nTotal: 4"))
	n, err := r.Write([]byte("ignored"))
	if err != nil || n != len("ignored") {
		t.Fatalf("Write = (%d, %v)", n, err)
	}
	buf := make([]byte, 64)
	n, _ = r.Read(buf)
	if string(buf[:n]) != "Current: 1\nTotal: 4" {
		t.Errorf("Read = %q", buf[:n])
	}
}

func TestNoneResourceFailsEverything(t *testing.T) {
	var r NoneResource
	if _, err := r.Read(nil); err == nil {
		t.Error("Read on NoneResource succeeded, want error")
	}
	if _, err := r.Write(nil); err == nil {
		t.Error("Write on NoneResource succeeded, want error")
	}
	if ok, err := r.Sync(); ok || err == nil {
		t.Error("Sync on NoneResource succeeded, want error")
	}
}

func TestFileResourceOpenRead(t *testing.T) {
	d := newMemDisk()
	var exts [layout.NumExtents]extent.Extent
	exts[0] = extent.Extent{Block: 10, Length: layout.SectorSize}
	sector := make([]byte, layout.SectorSize)
	copy(sector, []byte("world"))
	if err := d.Write(10, 1, sector); err != nil {
		t.Fatal(err)
	}

	r, err := Open(d, nil, 5, "hello", exts)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 5)
	n, _ := r.Read(buf)
	if n != 5 || string(buf) != "world" {
		t.Errorf("Read = %q (%d)", buf[:n], n)
	}
}

func TestFileResourceSeekPastEndExtendsWithZeros(t *testing.T) {
	d := newMemDisk()
	var exts [layout.NumExtents]extent.Extent // empty node, no extents
	r, err := Open(d, nil, 0, "empty", exts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Seek(4, SeekStart); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Write([]byte("X")); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Seek(0, SeekStart); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 5)
	n, _ := r.Read(buf)
	want := "\x00\x00\x00\x00X"
	if n != 5 || string(buf) != want {
		t.Errorf("Read = %q, want %q", buf[:n], want)
	}
}

func TestFileResourceSyncWriteBack(t *testing.T) {
	d := newMemDisk()
	var exts [layout.NumExtents]extent.Extent
	// A 3-byte file, so writing 5 bytes changes its stored length.
	exts[0] = extent.Extent{Block: 20, Length: 3}
	upd := &fakeUpdater{}

	r, err := Open(d, upd, 7, "f", exts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	ok, err := r.Sync()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("Sync() = false, want true")
	}
	if !upd.called {
		t.Error("NodeUpdater.UpdateNode was not called after a size-changing sync")
	}

	got := make([]byte, layout.SectorSize)
	if err := d.Read(20, 1, got); err != nil {
		t.Fatal(err)
	}
	if string(got[:5]) != "hello" {
		t.Errorf("disk contents = %q", got[:5])
	}
}

func TestFileResourceSyncWhenFullReturnsFalse(t *testing.T) {
	d := newMemDisk()
	var exts [layout.NumExtents]extent.Extent
	exts[0] = extent.Extent{Block: 30, Length: layout.SectorSize}

	r, err := Open(d, nil, 1, "full", exts)
	if err != nil {
		t.Fatal(err)
	}
	big := make([]byte, 600)
	for i := range big {
		big[i] = 'a'
	}
	if _, err := r.Write(big); err != nil {
		t.Fatal(err)
	}
	ok, err := r.Sync()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Sync() = true for an over-capacity write, want false")
	}
	if r.dirty {
		t.Error("dirty flag left set after partial sync, want cleared")
	}
}
