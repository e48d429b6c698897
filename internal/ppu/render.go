package ppu

// vramView adapts the PPU's VRAM to the VRAMReader the fetcher and sprite
// compositor consume. Rendering always sees raw VRAM, never the CPU-side
// mode blocking.
type vramView struct{ p *PPU }

func (v vramView) Read(addr uint16) byte { return v.p.RawVRAM(addr) }

// renderScanline draws one visible line into the working framebuffer from
// the registers latched at mode-3 entry: BG via the fetcher, window overlay,
// then sprite composition, then DMG palette mapping to shades 0..3.
func (p *PPU) renderScanline(y int) {
	lr := p.lineRegs[y]
	mem := vramView{p}
	row := p.work[y*ScreenW : (y+1)*ScreenW]

	var bgci [ScreenW]byte
	tileData8000 := lr.LCDC&0x10 != 0
	if lr.LCDC&0x01 != 0 {
		mapBase := uint16(0x9800)
		if lr.LCDC&0x08 != 0 {
			mapBase = 0x9C00
		}
		bgci = renderBGScanlineUsingFetcher(mem, mapBase, tileData8000, lr.SCX, lr.SCY, byte(y))

		if lr.LCDC&0x20 != 0 && byte(y) >= lr.WY && lr.WX <= 166 {
			winMap := uint16(0x9800)
			if lr.LCDC&0x40 != 0 {
				winMap = 0x9C00
			}
			rowBase := winMap + uint16(lr.WinLine>>3)*32
			winXStart := int(lr.WX) - 7
			win := RenderWindowScanlineUsingFetcher(mem, rowBase, tileData8000, winXStart, lr.WinLine&7)
			if winXStart < 0 {
				winXStart = 0
			}
			copy(bgci[winXStart:], win[winXStart:])
		}
	}

	var spci, sppal [ScreenW]byte
	if lr.LCDC&0x02 != 0 {
		sprite16 := lr.LCDC&0x04 != 0
		sprites := p.collectSprites(y, sprite16)
		if len(sprites) > 0 {
			spci, sppal = ComposeSpriteLineExt(mem, sprites, y, bgci, sprite16)
		}
	}

	for x := 0; x < ScreenW; x++ {
		if spci[x] != 0 {
			pal := lr.OBP0
			if sppal[x] == 1 {
				pal = lr.OBP1
			}
			row[x] = (pal >> (spci[x] * 2)) & 0x03
		} else {
			row[x] = (lr.BGP >> (bgci[x] * 2)) & 0x03
		}
	}
}
