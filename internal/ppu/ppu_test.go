package ppu

import "testing"

func statMode(p *PPU) byte { return p.CPURead(0xFF41) & 0x03 }

// irqRecorder captures the interrupt bits a PPU raises, in order.
type irqRecorder struct{ bits []int }

func (r *irqRecorder) req(bit int) { r.bits = append(r.bits, bit) }

func (r *irqRecorder) count(bit int) int {
	n := 0
	for _, b := range r.bits {
		if b == bit {
			n++
		}
	}
	return n
}

func TestPPU_ModeSequenceOneLine(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x80)

	// 80 dots OAM scan, 172 drawing, hblank to dot 455, then the next line.
	if m := statMode(p); m != 2 {
		t.Fatalf("mode after LCD on got %d want 2", m)
	}
	p.Tick(80)
	if m := statMode(p); m != 3 {
		t.Fatalf("mode at dot 80 got %d want 3", m)
	}
	p.Tick(172)
	if m := statMode(p); m != 0 {
		t.Fatalf("mode at dot 252 got %d want 0", m)
	}
	p.Tick(456 - 252)
	if ly := p.CPURead(0xFF44); ly != 1 {
		t.Fatalf("LY after one full line got %d want 1", ly)
	}
	if m := statMode(p); m != 2 {
		t.Fatalf("mode at the start of line 1 got %d want 2", m)
	}
}

func TestPPU_VBlankInterrupts(t *testing.T) {
	var rec irqRecorder
	p := New(rec.req)
	p.CPUWrite(0xFF41, 1<<4) // STAT source: mode 1
	p.CPUWrite(0xFF40, 0x80)

	p.Tick(144 * 456) // to the start of LY=144
	if rec.count(0) == 0 {
		t.Fatalf("no vblank interrupt at LY=144")
	}
	if rec.count(1) == 0 {
		t.Fatalf("no STAT interrupt for the enabled mode-1 source")
	}
}

func TestPPU_STATHBlankAndLYCSources(t *testing.T) {
	var rec irqRecorder
	p := New(rec.req)
	p.CPUWrite(0xFF41, (1<<3)|(1<<5)|(1<<6)) // hblank, OAM, LYC sources
	p.CPUWrite(0xFF45, 2)
	p.CPUWrite(0xFF40, 0x80)

	p.Tick(80 + 172) // line 0 enters hblank
	if rec.count(1) == 0 {
		t.Fatalf("no STAT interrupt on hblank entry")
	}

	rec.bits = rec.bits[:0]
	p.Tick((456 - (80 + 172)) + 456 + 1) // finish line 0, line 1, into line 2
	if rec.count(1) == 0 {
		t.Fatalf("no STAT interrupt for LY=LYC at line 2")
	}
	if p.CPURead(0xFF41)&(1<<2) == 0 {
		t.Fatalf("coincidence flag not set with LY=LYC")
	}
}
