package ppu

// VRAMReader is the read-only view the fetcher and the sprite compositor
// consume. The live PPU hands in its raw VRAM; tests hand in a map.
type VRAMReader interface {
	Read(addr uint16) byte
}

// fifo queues 2-bit color indices between the fetcher and the pixel output.
// Capacity covers a few tiles, which is all the renderer ever buffers.
type fifo struct {
	buf  [32]byte
	head int
	tail int
	size int
}

func (q *fifo) Clear()   { q.head, q.tail, q.size = 0, 0, 0 }
func (q *fifo) Len() int { return q.size }

func (q *fifo) Push(ci byte) bool {
	if q.size == len(q.buf) {
		return false
	}
	q.buf[q.tail] = ci & 0x03
	q.tail = (q.tail + 1) % len(q.buf)
	q.size++
	return true
}

func (q *fifo) Pop() (byte, bool) {
	if q.size == 0 {
		return 0, false
	}
	v := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return v, true
}

// bgFetcher decodes one background/window tile row at a time into the FIFO.
type bgFetcher struct {
	mem           VRAMReader
	fifo          *fifo
	mapBase       uint16 // 0x9800 or 0x9C00
	tileData8000  bool   // true: 0x8000 unsigned addressing; false: 0x8800 signed
	tileIndexAddr uint16 // address of the tile number within the map
	fineY         byte   // row within the tile, 0..7
}

func newBGFetcher(mem VRAMReader, f *fifo) *bgFetcher { return &bgFetcher{mem: mem, fifo: f} }

// Configure points the fetcher at the next tile to decode.
func (fch *bgFetcher) Configure(mapBase uint16, tileData8000 bool, tileIndexAddr uint16, fineY byte) {
	fch.mapBase = mapBase
	fch.tileData8000 = tileData8000
	fch.tileIndexAddr = tileIndexAddr
	fch.fineY = fineY & 7
}

// Fetch reads the configured tile's number, resolves the tile data address
// for the current row and pushes its 8 color indices to the FIFO, leftmost
// pixel first (bit 7 of each plane byte).
func (fch *bgFetcher) Fetch() {
	tileNum := fch.mem.Read(fch.tileIndexAddr)
	var base uint16
	if fch.tileData8000 {
		base = 0x8000 + uint16(tileNum)*16
	} else {
		// signed addressing is centered on 0x9000
		base = 0x9000 + uint16(int8(tileNum))*16
	}
	base += uint16(fch.fineY) * 2
	lo := fch.mem.Read(base)
	hi := fch.mem.Read(base + 1)
	for px := 0; px < 8; px++ {
		bit := 7 - byte(px)
		_ = fch.fifo.Push(((hi>>bit)&1)<<1 | ((lo >> bit) & 1))
	}
}
