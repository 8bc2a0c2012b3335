package scheme

import "testing"

type fakeSnapshot struct {
	index, total int
}

func (s fakeSnapshot) Snapshot() (int, int) { return s.index, s.total }

func TestContextProviderOpenReportsSnapshot(t *testing.T) {
	cp := NewContextProvider(fakeSnapshot{index: 2, total: 7})
	handle, errno := cp.Open("", 0, 0)
	if errno != 0 {
		t.Fatalf("Open: errno = %v", errno)
	}
	buf := make([]byte, 64)
	n, errno := cp.Read(handle, buf)
	if errno != 0 {
		t.Fatalf("Read: errno = %v", errno)
	}
	want := "Current: 2\nTotal: 7"
	if got := string(buf[:n]); got != want {
		t.Errorf("Read = %q, want %q", got, want)
	}
}

func TestContextProviderWriteIsIgnored(t *testing.T) {
	cp := NewContextProvider(fakeSnapshot{index: 0, total: 1})
	handle, _ := cp.Open("", 0, 0)
	n, errno := cp.Write(handle, []byte("ignored"))
	if errno != 0 || n != len("ignored") {
		t.Errorf("Write = (%d, %v)", n, errno)
	}
}

func TestContextProviderBadHandle(t *testing.T) {
	cp := NewContextProvider(fakeSnapshot{})
	if _, errno := cp.Read(42, nil); errno != EBADF {
		t.Errorf("Read(42) = %v, want EBADF", errno)
	}
}
