package bus

import (
	"io"

	"dotmatrix/internal/cart"
	"dotmatrix/internal/ppu"
	"dotmatrix/internal/timer"
)

// Joypad button bits for SetJoypadState. Low nibble is the direction pad,
// high nibble the action buttons; a set bit means pressed.
const (
	JoypRight  byte = 1 << 0
	JoypLeft   byte = 1 << 1
	JoypUp     byte = 1 << 2
	JoypDown   byte = 1 << 3
	JoypA      byte = 1 << 4
	JoypB      byte = 1 << 5
	JoypSelect byte = 1 << 6
	JoypStart  byte = 1 << 7
)

// Interrupt source bits in IF/IE.
const (
	IntVBlank = 0
	IntSTAT   = 1
	IntTimer  = 2
	IntSerial = 3
	IntJoypad = 4
)

// Bus is the 16-bit address-space dispatcher. It owns work RAM, high RAM,
// the interrupt flag/enable pair, the joypad and serial registers, and OAM
// DMA, and routes cartridge, video and timer ranges to their owners.
type Bus struct {
	cart  cart.Cartridge
	ppu   *ppu.PPU
	timer *timer.Timer

	wram [0x2000]byte // 0xC000–0xDFFF, echoed at 0xE000–0xFDFF
	hram [0x7F]byte   // 0xFF80–0xFFFE

	ifReg byte // FF0F, low 5 bits
	ieReg byte // FFFF

	joypSelect byte // FF00 bits 4-5 as written (active low)
	joypState  byte // pressed-button mask, see Joyp* constants

	sb, sc  byte // FF01/FF02
	serialW io.Writer

	dmaReg byte

	// OAM DMA bus-stall accounting, drained by the orchestrator when the
	// fidelity knob is enabled.
	dmaStallEnabled bool
	dmaStall        int
}

func New(c cart.Cartridge, p *ppu.PPU, t *timer.Timer) *Bus {
	return &Bus{
		cart:       c,
		ppu:        p,
		timer:      t,
		joypSelect: 0x30, // neither group selected
	}
}

// Cart returns the attached cartridge.
func (b *Bus) Cart() cart.Cartridge { return b.cart }

// PPU returns the attached pixel processing unit.
func (b *Bus) PPU() *ppu.PPU { return b.ppu }

// RequestInterrupt sets the given IF bit (0:VBlank 1:STAT 2:Timer 3:Serial 4:Joypad).
func (b *Bus) RequestInterrupt(bit int) {
	if bit >= 0 && bit < 5 {
		b.ifReg |= 1 << bit
	}
}

// SetSerialWriter streams completed serial transfers to w.
func (b *Bus) SetSerialWriter(w io.Writer) { b.serialW = w }

// SetJoypadState replaces the pressed-button mask. A newly pressed button
// raises the joypad interrupt.
func (b *Bus) SetJoypadState(mask byte) {
	pressed := mask &^ b.joypState
	b.joypState = mask
	if pressed != 0 {
		b.RequestInterrupt(IntJoypad)
	}
}

// EnableDMAStall turns on CPU stall accounting for OAM DMA transfers.
func (b *Bus) EnableDMAStall(on bool) { b.dmaStallEnabled = on }

// TakeDMAStall returns and clears accumulated DMA stall cycles.
func (b *Bus) TakeDMAStall() int {
	n := b.dmaStall
	b.dmaStall = 0
	return n
}

func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000: // cartridge ROM
		return b.cart.Read(addr)
	case addr < 0xA000: // VRAM (mode-blocked by the PPU)
		return b.ppu.CPURead(addr)
	case addr < 0xC000: // cartridge RAM
		return b.cart.Read(addr)
	case addr < 0xE000: // work RAM
		return b.wram[addr-0xC000]
	case addr < 0xFE00: // echo RAM mirrors 0xC000–0xDDFF
		return b.wram[addr-0xE000]
	case addr < 0xFEA0: // OAM (mode-blocked by the PPU)
		return b.ppu.CPURead(addr)
	case addr < 0xFF00: // unusable strip
		return 0xFF
	case addr == 0xFF00:
		return b.readJoypad()
	case addr == 0xFF01:
		return b.sb
	case addr == 0xFF02:
		return 0x7E | (b.sc & 0x81)
	case addr >= 0xFF04 && addr <= 0xFF07:
		return b.timer.Read(addr)
	case addr == 0xFF0F:
		return 0xE0 | (b.ifReg & 0x1F)
	case addr == 0xFF46:
		return b.dmaReg
	case addr >= 0xFF40 && addr <= 0xFF4B:
		return b.ppu.CPURead(addr)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	case addr == 0xFFFF:
		return b.ieReg
	default:
		return 0xFF
	}
}

func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000: // MBC control
		b.cart.Write(addr, value)
	case addr < 0xA000:
		b.ppu.CPUWrite(addr, value)
	case addr < 0xC000:
		b.cart.Write(addr, value)
	case addr < 0xE000:
		b.wram[addr-0xC000] = value
	case addr < 0xFE00:
		b.wram[addr-0xE000] = value
	case addr < 0xFEA0:
		b.ppu.CPUWrite(addr, value)
	case addr < 0xFF00:
		// unusable strip: writes dropped
	case addr == 0xFF00:
		b.joypSelect = value & 0x30
	case addr == 0xFF01:
		b.sb = value
	case addr == 0xFF02:
		b.writeSerialControl(value)
	case addr >= 0xFF04 && addr <= 0xFF07:
		b.timer.Write(addr, value)
	case addr == 0xFF0F:
		b.ifReg = value & 0x1F
	case addr == 0xFF46:
		b.startOAMDMA(value)
	case addr >= 0xFF40 && addr <= 0xFF4B:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
	case addr == 0xFFFF:
		b.ieReg = value
	}
}

// readJoypad merges the selected button group(s) into the low nibble,
// active low. Bits 6-7 are unconnected and read high.
func (b *Bus) readJoypad() byte {
	nibble := byte(0x0F)
	if b.joypSelect&0x10 == 0 { // P14 low: direction pad
		nibble &^= b.joypState & 0x0F
	}
	if b.joypSelect&0x20 == 0 { // P15 low: action buttons
		nibble &^= (b.joypState >> 4) & 0x0F
	}
	return 0xC0 | b.joypSelect | nibble
}

// writeSerialControl performs the whole transfer immediately: the data byte
// goes to the attached writer, the start bit clears and the serial interrupt
// is requested. There is no remote peer, so the shift register reads back as
// driven by this side.
func (b *Bus) writeSerialControl(value byte) {
	if value&0x80 == 0 {
		b.sc = value
		return
	}
	if b.serialW != nil {
		_, _ = b.serialW.Write([]byte{b.sb})
	}
	b.sc = value &^ 0x80
	b.RequestInterrupt(IntSerial)
}

// startOAMDMA copies 160 bytes from value<<8 into OAM in one shot, reading
// the source through the raw paths so PPU mode blocking never applies.
func (b *Bus) startOAMDMA(value byte) {
	b.dmaReg = value
	src := uint16(value) << 8
	for i := uint16(0); i < 0xA0; i++ {
		b.ppu.WriteOAMRaw(0xFE00+i, b.dmaRead(src+i))
	}
	if b.dmaStallEnabled {
		// 160 machine cycles on hardware
		b.dmaStall += 640
	}
}

func (b *Bus) dmaRead(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return b.cart.Read(addr)
	case addr < 0xA000:
		return b.ppu.RawVRAM(addr)
	case addr < 0xC000:
		return b.cart.Read(addr)
	case addr < 0xE000:
		return b.wram[addr-0xC000]
	case addr < 0xFE00:
		return b.wram[addr-0xE000]
	default:
		return 0xFF
	}
}
