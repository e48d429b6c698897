package ppu

import "testing"

// advanceLines ticks the PPU forward by n full lines (456 dots each).
func advanceLines(p *PPU, n int) { p.Tick(456 * n) }

func TestWindowLineCounter(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x80|0x20|0x01) // LCD, window, BG on
	p.CPUWrite(0xFF4A, 10)             // WY
	p.CPUWrite(0xFF4B, 7)              // WX=7, window starts at column 0

	// LCD-on starts at LY=0; run to the first window line and into mode 3
	// so the line registers are latched.
	advanceLines(p, 10)
	if ly := p.CPURead(0xFF44); ly != 10 {
		t.Fatalf("LY got %d want 10", ly)
	}
	p.Tick(80)
	if wl := p.LineRegs(10).WinLine; wl != 0 {
		t.Fatalf("WinLine on the first window line got %d want 0", wl)
	}

	// Each later line the window is drawn on advances the counter by one.
	advanceLines(p, 1)
	p.Tick(80)
	if wl := p.LineRegs(11).WinLine; wl != 1 {
		t.Fatalf("WinLine one line later got %d want 1", wl)
	}
}

func TestWindowCounterHoldsWhenWXOffscreen(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x80|0x20|0x01)
	p.CPUWrite(0xFF4A, 5)
	p.CPUWrite(0xFF4B, 200) // WX past 166: window never becomes visible

	advanceLines(p, 8)
	for y := 5; y <= 12; y++ {
		if wl := p.LineRegs(y).WinLine; wl != 0 {
			t.Fatalf("WinLine at y=%d got %d want 0 with WX offscreen", y, wl)
		}
	}
}
