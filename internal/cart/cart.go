package cart

import (
	"errors"
	"fmt"
)

var (
	// ErrROMTooSmall is returned when the image cannot contain a header.
	ErrROMTooSmall = errors.New("cart: ROM image too small for header")
	// ErrUnsupportedMBC is returned for cartridge type bytes this core does not implement.
	ErrUnsupportedMBC = errors.New("cart: unsupported cartridge type")
)

// Cartridge defines the interface the Bus needs for ROM/RAM banking.
// Implementations can be ROM-only or MBC variants. Addresses are CPU addresses.
type Cartridge interface {
	// Read returns a byte for ROM (0x0000–0x7FFF) and external RAM (0xA000–0xBFFF).
	Read(addr uint16) byte
	// Write handles MBC control writes (0x0000–0x7FFF) and external RAM writes (0xA000–0xBFFF).
	Write(addr uint16, value byte)
}

// BatteryBacked is an optional interface for cartridges whose external RAM
// (and RTC state, where present) is persisted across sessions.
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}

// New picks an implementation based on the ROM header. Unlike a permissive
// loader there is no silent fallback: a truncated image or a cartridge type
// byte outside the supported set is a load error the caller must surface.
func New(rom []byte) (Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}
	switch h.CartType {
	case 0x00, 0x08, 0x09: // ROM only, ROM+RAM, ROM+RAM+BATTERY
		return NewROMOnly(rom, h.RAMSizeBytes), nil
	case 0x01, 0x02, 0x03: // MBC1 variants (RAM, RAM+BAT are transparent here)
		return NewMBC1(rom, h.RAMSizeBytes), nil
	case 0x0F, 0x10: // MBC3 with RTC
		return NewMBC3RTC(rom, h.RAMSizeBytes), nil
	case 0x11, 0x12, 0x13: // MBC3 without RTC
		return NewMBC3(rom, h.RAMSizeBytes), nil
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E: // MBC5 variants
		return NewMBC5(rom, h.RAMSizeBytes), nil
	default:
		return nil, fmt.Errorf("%w: %#02x (%s)", ErrUnsupportedMBC, h.CartType, h.CartTypeStr)
	}
}

// bankCount returns how many 16KB ROM banks the image actually holds.
// Effective bank indices are reduced modulo this count everywhere.
func bankCount(rom []byte) int {
	n := len(rom) / 0x4000
	if n == 0 {
		return 1
	}
	return n
}

// ramBankCount returns how many 8KB RAM banks fit in the allocated RAM.
func ramBankCount(ram []byte) int {
	n := len(ram) / 0x2000
	if n == 0 {
		return 1
	}
	return n
}
