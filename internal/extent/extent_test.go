package extent

import "testing"

func TestUsed(t *testing.T) {
	cases := []struct {
		e    Extent
		want bool
	}{
		{Extent{Block: 0, Length: 0}, false},
		{Extent{Block: 0, Length: 512}, false},
		{Extent{Block: 2, Length: 0}, false},
		{Extent{Block: 2, Length: 512}, true},
	}
	for _, c := range cases {
		if got := c.e.Used(); got != c.want {
			t.Errorf("Extent(%+v).Used() = %v, want %v", c.e, got, c.want)
		}
	}
}

func TestSectors(t *testing.T) {
	cases := []struct {
		length uint64
		want   uint64
	}{
		{0, 0},
		{1, 1},
		{512, 1},
		{513, 2},
		{512 * 65535, 65535},
	}
	for _, c := range cases {
		e := Extent{Block: 1, Length: c.length}
		if got := e.Sectors(); got != c.want {
			t.Errorf("Extent{Length: %d}.Sectors() = %d, want %d", c.length, got, c.want)
		}
	}
}

func TestChunksSmall(t *testing.T) {
	chunks := Chunks(10, 3)
	want := []Chunk{{Block: 10, SectorCount: 3, BufOffset: 0}}
	if len(chunks) != len(want) || chunks[0] != want[0] {
		t.Errorf("Chunks(10, 3) = %+v, want %+v", chunks, want)
	}
}

func TestChunksExactlyMax(t *testing.T) {
	chunks := Chunks(0, MaxSectorsPerIssue)
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if chunks[0].SectorCount != MaxSectorsPerIssue {
		t.Errorf("SectorCount = %d, want %d", chunks[0].SectorCount, MaxSectorsPerIssue)
	}
}

func TestChunksSplitsAtBoundary(t *testing.T) {
	total := uint64(MaxSectorsPerIssue) + 100
	chunks := Chunks(1000, total)
	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}
	if chunks[0].Block != 1000 || chunks[0].SectorCount != MaxSectorsPerIssue || chunks[0].BufOffset != 0 {
		t.Errorf("chunks[0] = %+v", chunks[0])
	}
	wantBlock := uint64(1000) + MaxSectorsPerIssue
	wantOffset := int(MaxSectorsPerIssue * SectorSize)
	if chunks[1].Block != wantBlock || chunks[1].SectorCount != 100 || chunks[1].BufOffset != wantOffset {
		t.Errorf("chunks[1] = %+v", chunks[1])
	}
}

func TestChunksZero(t *testing.T) {
	if chunks := Chunks(5, 0); chunks != nil {
		t.Errorf("Chunks(5, 0) = %+v, want nil", chunks)
	}
}
