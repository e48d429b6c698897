package ppu

// Sprite is one OAM entry translated to screen coordinates
// (X = OAM X - 8, Y = OAM Y - 16; both may be negative for clipped sprites).
type Sprite struct {
	X, Y     int
	Tile     byte
	Attr     byte
	OAMIndex int
}

const (
	attrPalette  = 1 << 4
	attrXFlip    = 1 << 5
	attrYFlip    = 1 << 6
	attrBehindBG = 1 << 7
)

// collectSprites scans OAM in index order and returns the first up-to-10
// sprites covering scanline y, matching the hardware's per-line OAM scan.
func (p *PPU) collectSprites(y int, sprite16 bool) []Sprite {
	h := 8
	if sprite16 {
		h = 16
	}
	var out []Sprite
	for i := 0; i < 40 && len(out) < 10; i++ {
		sy := int(p.oam[i*4]) - 16
		if y < sy || y >= sy+h {
			continue
		}
		out = append(out, Sprite{
			X:        int(p.oam[i*4+1]) - 8,
			Y:        sy,
			Tile:     p.oam[i*4+2],
			Attr:     p.oam[i*4+3],
			OAMIndex: i,
		})
	}
	return out
}

// spritePixel returns the raw color index (0 = transparent) the sprite
// contributes at screen position (x, y), honoring flips and 8x16 mode.
func spritePixel(mem VRAMReader, s Sprite, x, y int, sprite16 bool) byte {
	col := x - s.X
	if col < 0 || col > 7 {
		return 0
	}
	h := 8
	tile := s.Tile
	if sprite16 {
		h = 16
		tile &= 0xFE
	}
	row := y - s.Y
	if row < 0 || row >= h {
		return 0
	}
	if s.Attr&attrYFlip != 0 {
		row = h - 1 - row
	}
	if s.Attr&attrXFlip != 0 {
		col = 7 - col
	}
	base := 0x8000 + uint16(tile)*16 + uint16(row)*2
	lo := mem.Read(base)
	hi := mem.Read(base + 1)
	bit := 7 - byte(col)
	return ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
}

// ComposeSpriteLine overlays the selected sprites onto one scanline and
// returns raw sprite color indices (0 where no sprite pixel lands). Draw
// priority: lowest screen X wins, ties broken by lowest OAM index. A winning
// pixel with the behind-BG attribute is dropped where the BG index is nonzero.
func ComposeSpriteLine(mem VRAMReader, sprites []Sprite, y int, bgci [160]byte, sprite16 bool) [160]byte {
	ci, _ := ComposeSpriteLineExt(mem, sprites, y, bgci, sprite16)
	return ci
}

// ComposeSpriteLineExt is ComposeSpriteLine plus a parallel array holding the
// winning sprite's palette select (0 = OBP0, 1 = OBP1) per pixel.
func ComposeSpriteLineExt(mem VRAMReader, sprites []Sprite, y int, bgci [160]byte, sprite16 bool) (ci, pal [160]byte) {
	for x := 0; x < 160; x++ {
		best := -1
		var bestPix byte
		for i, s := range sprites {
			pix := spritePixel(mem, s, x, y, sprite16)
			if pix == 0 {
				continue
			}
			if best < 0 || s.X < sprites[best].X ||
				(s.X == sprites[best].X && s.OAMIndex < sprites[best].OAMIndex) {
				best = i
				bestPix = pix
			}
		}
		if best < 0 {
			continue
		}
		w := sprites[best]
		if w.Attr&attrBehindBG != 0 && bgci[x] != 0 {
			continue
		}
		ci[x] = bestPix
		if w.Attr&attrPalette != 0 {
			pal[x] = 1
		}
	}
	return ci, pal
}
