package ppu

import "testing"

func TestComposeSpriteLine_PriorityAndTransparency(t *testing.T) {
	// Tile 0 row 0 has a single opaque pixel (ci=1) in its leftmost column.
	mem := mockVRAM{0x8000: 0x80, 0x8001: 0x00}
	sprites := []Sprite{{X: 10, Y: 5}}
	var bgci [160]byte

	out := ComposeSpriteLine(mem, sprites, 5, bgci, false)
	if out[10] != 1 {
		t.Fatalf("sprite pixel at x=10 got %d want 1", out[10])
	}
	if out[11] != 0 {
		t.Fatalf("transparent column leaked: out[11]=%d", out[11])
	}

	// Behind-BG attribute drops the pixel wherever the BG index is nonzero.
	sprites[0].Attr = attrBehindBG
	bgci[10] = 1
	out = ComposeSpriteLine(mem, sprites, 5, bgci, false)
	if out[10] != 0 {
		t.Fatalf("behind-BG sprite drew over nonzero BG")
	}

	// Over BG color 0 it shows through again.
	bgci[10] = 0
	out = ComposeSpriteLine(mem, sprites, 5, bgci, false)
	if out[10] != 1 {
		t.Fatalf("behind-BG sprite hidden over BG color 0")
	}
}

func TestComposeSpriteLine_LeftmostXWins(t *testing.T) {
	// Full opaque row; two sprites overlap at x=20 with different X origins.
	// The left one carries OBP1 so the winner is visible in the pal array.
	mem := mockVRAM{0x8000: 0xFF, 0x8001: 0x00}
	left := Sprite{X: 19, Attr: attrPalette, OAMIndex: 5}
	right := Sprite{X: 20, OAMIndex: 3}
	var bgci [160]byte

	// The lower OAM index belongs to the sprite further right; screen X still
	// decides, so the left sprite owns the overlap.
	ci, pal := ComposeSpriteLineExt(mem, []Sprite{left, right}, 0, bgci, false)
	if ci[20] != 1 || pal[20] != 1 {
		t.Fatalf("overlap pixel got ci=%d pal=%d, want the left sprite's", ci[20], pal[20])
	}
	if ci[19] != 1 || ci[27] != 1 {
		t.Fatalf("coverage wrong at row edges: %d %d", ci[19], ci[27])
	}
}

func TestComposeSpriteLine_PaletteFollowsWinner(t *testing.T) {
	mem := mockVRAM{0x8000: 0x80, 0x8001: 0x00}
	var bgci [160]byte

	// Leftmost X decides between an OBP0 sprite and an OBP1 sprite sitting
	// one pixel further right.
	s0 := Sprite{X: 10, OAMIndex: 2}
	s1 := Sprite{X: 11, Attr: attrPalette, OAMIndex: 1}
	ci, pal := ComposeSpriteLineExt(mem, []Sprite{s0, s1}, 0, bgci, false)
	if ci[10] == 0 || pal[10] != 0 {
		t.Fatalf("x=10 got ci=%d pal=%d, want opaque OBP0", ci[10], pal[10])
	}

	// Same X: the lower OAM index wins and carries its palette.
	s0 = Sprite{X: 12, OAMIndex: 5}
	s1 = Sprite{X: 12, Attr: attrPalette, OAMIndex: 3}
	ci, pal = ComposeSpriteLineExt(mem, []Sprite{s0, s1}, 0, bgci, false)
	if ci[12] == 0 || pal[12] != 1 {
		t.Fatalf("x=12 got ci=%d pal=%d, want opaque OBP1", ci[12], pal[12])
	}
}
