package cart

import (
	"encoding/binary"
	"testing"
)

// buildROM assembles a synthetic ROM of the given size with a consistent
// header: logo, title, type/size codes and both checksums filled in.
func buildROM(title string, cartType, romSizeCode, ramSizeCode byte, size int) []byte {
	rom := make([]byte, size)

	copy(rom[0x0104:], nintendoLogo[:])

	tbytes := []byte(title)
	if len(tbytes) > 16 {
		tbytes = tbytes[:16]
	}
	copy(rom[0x0134:0x0144], tbytes)

	rom[0x0144], rom[0x0145] = '0', '1' // new licensee "01"
	rom[0x0147] = cartType
	rom[0x0148] = romSizeCode
	rom[0x0149] = ramSizeCode
	rom[0x014B] = 0x33 // old licensee: defer to new
	rom[0x014C] = 0x01 // mask ROM version

	var hsum byte
	for addr := 0x0134; addr <= 0x014C; addr++ {
		hsum = hsum - rom[addr] - 1
	}
	rom[0x014D] = hsum

	// global checksum sums every byte except its own two
	var gsum uint16
	for i, b := range rom {
		if i == 0x014E || i == 0x014F {
			continue
		}
		gsum += uint16(b)
	}
	binary.BigEndian.PutUint16(rom[0x014E:0x0150], gsum)

	return rom
}

func TestParseHeader_Basic(t *testing.T) {
	rom := buildROM("TEST", 0x01, 0x01, 0x02, 64*1024) // MBC1, 64KiB ROM, 8KiB RAM

	h, err := ParseHeader(rom)
	if err != nil {
		t.Fatalf("ParseHeader error: %v", err)
	}
	if h.Title != "TEST" {
		t.Fatalf("Title got %q want %q", h.Title, "TEST")
	}
	if h.CartType != 0x01 || h.CartTypeStr != "MBC1 (variants)" {
		t.Fatalf("CartType got %#02x / %s", h.CartType, h.CartTypeStr)
	}
	if h.ROMSizeBytes != 64*1024 || h.ROMBanks != 4 {
		t.Fatalf("ROM size decode got %d bytes / %d banks", h.ROMSizeBytes, h.ROMBanks)
	}
	if h.RAMSizeBytes != 8*1024 {
		t.Fatalf("RAM size decode got %d", h.RAMSizeBytes)
	}
	if h.HasBattery || h.HasRTC {
		t.Fatalf("plain MBC1 decoded battery=%v rtc=%v", h.HasBattery, h.HasRTC)
	}
	if !HeaderChecksumOK(rom) || !LogoOK(rom) {
		t.Fatalf("built ROM fails its own checks: checksum=%v logo=%v",
			HeaderChecksumOK(rom), LogoOK(rom))
	}
	if h.GlobalChecksum != binary.BigEndian.Uint16(rom[0x014E:0x0150]) {
		t.Fatalf("GlobalChecksum got %#04x", h.GlobalChecksum)
	}
}

func TestParseHeader_BatteryAndRTCFlags(t *testing.T) {
	cases := []struct {
		cartType     byte
		battery, rtc bool
	}{
		{0x00, false, false}, // ROM only
		{0x03, true, false},  // MBC1+RAM+BATTERY
		{0x10, true, true},   // MBC3+TIMER+RAM+BATTERY
		{0x13, true, false},  // MBC3+RAM+BATTERY
		{0x1B, true, false},  // MBC5+RAM+BATTERY
	}
	for _, tc := range cases {
		rom := buildROM("T", tc.cartType, 0x00, 0x02, 32*1024)
		h, err := ParseHeader(rom)
		if err != nil {
			t.Fatalf("type %#02x: %v", tc.cartType, err)
		}
		if h.HasBattery != tc.battery || h.HasRTC != tc.rtc {
			t.Fatalf("type %#02x decoded battery=%v rtc=%v, want %v/%v",
				tc.cartType, h.HasBattery, h.HasRTC, tc.battery, tc.rtc)
		}
	}
}

func TestHeaderChecksum_Bad(t *testing.T) {
	rom := buildROM("TEST", 0x00, 0x00, 0x00, 32*1024)
	rom[0x0134] ^= 0xFF
	if HeaderChecksumOK(rom) {
		t.Fatalf("HeaderChecksumOK = true after corrupting the title")
	}
}

func TestParseHeader_ShortROM(t *testing.T) {
	short := make([]byte, 0x140) // header runs through 0x014F
	if _, err := ParseHeader(short); err == nil {
		t.Fatalf("expected error on too-small ROM, got nil")
	}
}
