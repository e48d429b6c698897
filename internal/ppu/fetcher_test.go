package ppu

import "testing"

func TestFIFO(t *testing.T) {
	var q fifo
	if q.Len() != 0 {
		t.Fatal("new fifo not empty")
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("pop from empty should fail")
	}
	for i := 0; i < len(q.buf); i++ {
		if !q.Push(byte(i)) {
			t.Fatalf("push %d failed before capacity", i)
		}
	}
	if q.Push(0) {
		t.Fatal("push into a full fifo should fail")
	}
	for i := 0; i < len(q.buf); i++ {
		v, ok := q.Pop()
		if !ok {
			t.Fatalf("pop %d failed with entries remaining", i)
		}
		// values are masked to 2 bits on the way in
		if v != byte(i)&3 {
			t.Fatalf("pop %d got %d want %d", i, v, byte(i)&3)
		}
	}
	q.Push(1)
	q.Clear()
	if q.Len() != 0 {
		t.Fatal("clear left entries behind")
	}
}

type mockVRAM map[uint16]byte

func (m mockVRAM) Read(addr uint16) byte { return m[addr] }

// decodeRow computes the expected color indices for one 2bpp tile row.
func decodeRow(lo, hi byte) (out [8]byte) {
	for i := 0; i < 8; i++ {
		b := 7 - byte(i)
		out[i] = ((hi>>b)&1)<<1 | ((lo >> b) & 1)
	}
	return out
}

func TestBGFetcher_Unsigned8000(t *testing.T) {
	mem := mockVRAM{
		0x9800: 0x02, // map entry -> tile 2
		0x8020: 0x55, // tile 2, row 0
		0x8021: 0x33,
	}
	var q fifo
	f := newBGFetcher(mem, &q)
	f.Configure(0x9800, true, 0x9800, 0)
	f.Fetch()
	if q.Len() != 8 {
		t.Fatalf("fifo holds %d pixels, want 8", q.Len())
	}
	want := decodeRow(0x55, 0x33)
	for i := 0; i < 8; i++ {
		got, _ := q.Pop()
		if got != want[i] {
			t.Fatalf("px %d got %d want %d", i, got, want[i])
		}
	}
}

func TestBGFetcher_Signed8800(t *testing.T) {
	// Tile number 0xFF is -1 in signed addressing, so its data sits just
	// below the 0x9000 midpoint, at 0x8FF0.
	mem := mockVRAM{}
	mapBase := uint16(0x9C00)
	mem[mapBase] = 0xFF
	fineY := byte(5)
	rowAddr := uint16(0x8FF0) + uint16(fineY)*2
	mem[rowAddr] = 0xA5
	mem[rowAddr+1] = 0x5A

	var q fifo
	f := newBGFetcher(mem, &q)
	f.Configure(mapBase, false, mapBase, fineY)
	f.Fetch()
	if q.Len() != 8 {
		t.Fatalf("fifo holds %d pixels, want 8", q.Len())
	}
	want := decodeRow(0xA5, 0x5A)
	for i := 0; i < 8; i++ {
		got, _ := q.Pop()
		if got != want[i] {
			t.Fatalf("px %d got %d want %d", i, got, want[i])
		}
	}
}
