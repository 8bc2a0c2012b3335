package disk

import (
	"bytes"
	"os"
	"testing"

	"github.com/redoxfs/redoxfs/internal/extent"
)

func tempDisk(t *testing.T, sectors int) (*FileDisk, func()) {
	t.Helper()
	f, err := os.CreateTemp("", "redoxfs-disk-*.img")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(int64(sectors) * extent.SectorSize); err != nil {
		t.Fatal(err)
	}
	name := f.Name()
	f.Close()

	d, err := OpenFileDisk(name)
	if err != nil {
		os.Remove(name)
		t.Fatal(err)
	}
	return d, func() {
		d.Close()
		os.Remove(name)
	}
}

func TestFileDiskIdentify(t *testing.T) {
	d, cleanup := tempDisk(t, 4)
	defer cleanup()
	if !d.Identify() {
		t.Error("Identify() = false, want true")
	}
}

func TestFileDiskReadWriteRoundTrip(t *testing.T) {
	d, cleanup := tempDisk(t, 4)
	defer cleanup()

	want := bytes.Repeat([]byte("x"), extent.SectorSize)
	if err := d.Write(2, 1, want); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, extent.SectorSize)
	if err := d.Read(2, 1, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("read back mismatch")
	}
}

func TestFileDiskReadShortBuffer(t *testing.T) {
	d, cleanup := tempDisk(t, 4)
	defer cleanup()
	if err := d.Read(0, 1, make([]byte, 10)); err == nil {
		t.Error("Read with undersized buffer, want error")
	}
}

func TestReadExtentChunked(t *testing.T) {
	d, cleanup := tempDisk(t, 4)
	defer cleanup()

	want := bytes.Repeat([]byte("y"), 2*extent.SectorSize)
	if err := d.Write(0, 2, want); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 2*extent.SectorSize)
	if err := ReadExtent(d, 0, 2, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("ReadExtent mismatch")
	}
}

func TestRequestSynchronous(t *testing.T) {
	d, cleanup := tempDisk(t, 4)
	defer cleanup()

	buf := bytes.Repeat([]byte("z"), extent.SectorSize)
	req := &Request{
		Extent: extent.Extent{Block: 1, Length: extent.SectorSize},
		Buf:    buf,
		Dir:    DirWrite,
	}
	if err := d.Request(req); err != nil {
		t.Fatal(err)
	}
	if !req.Done {
		t.Error("Request did not mark Done")
	}
}
