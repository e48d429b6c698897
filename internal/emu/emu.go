package emu

import (
	"io"

	log "github.com/sirupsen/logrus"

	"dotmatrix/internal/bus"
	"dotmatrix/internal/cart"
	"dotmatrix/internal/cpu"
	"dotmatrix/internal/ppu"
	"dotmatrix/internal/timer"
)

// frameCycles is one full LCD refresh: 154 lines of 456 dots.
const frameCycles = 70224

// Buttons is the host-side view of the joypad.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

// Machine wires the SM83 core, bus, timer, PPU and cartridge together and
// drives them in lockstep: each CPU step yields a T-cycle count that the
// timer and PPU are then advanced by.
type Machine struct {
	cfg Config

	cpu   *cpu.CPU
	bus   *bus.Bus
	ppu   *ppu.PPU
	timer *timer.Timer
	cart  cart.Cartridge
	hdr   *cart.Header
}

func New(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// LoadCartridge parses the ROM header, builds the matching memory bank
// controller and assembles a fresh machine around it. The CPU starts in the
// DMG post-boot state; there is no boot ROM.
func (m *Machine) LoadCartridge(rom []byte) error {
	h, err := cart.ParseHeader(rom)
	if err != nil {
		return err
	}
	c, err := cart.New(rom)
	if err != nil {
		return err
	}

	// The PPU and timer report interrupts into the bus, which doesn't exist
	// until they do; the closures bind late, before the first tick.
	var b *bus.Bus
	p := ppu.New(func(bit int) { b.RequestInterrupt(bit) })
	tm := timer.New(func() { b.RequestInterrupt(bus.IntTimer) })
	b = bus.New(c, p, tm)
	b.EnableDMAStall(m.cfg.DMAStall)

	cp := cpu.New(b)
	cp.Reset()

	m.cpu, m.bus, m.ppu, m.timer, m.cart = cp, b, p, tm, c
	m.hdr = h
	m.applyPostBootIO()

	log.WithFields(log.Fields{
		"title":    h.Title,
		"type":     h.CartTypeStr,
		"romBanks": h.ROMBanks,
		"ramBytes": h.RAMSizeBytes,
		"battery":  h.HasBattery,
	}).Info("cartridge loaded")
	if !cart.HeaderChecksumOK(rom) {
		log.Warn("header checksum mismatch")
	}
	return nil
}

// Header returns the parsed cartridge header, or nil before a load.
func (m *Machine) Header() *cart.Header { return m.hdr }

// applyPostBootIO sets the IO registers to their DMG post-boot values so
// games starting at 0x0100 find the LCD enabled and palettes in place.
func (m *Machine) applyPostBootIO() {
	b := m.bus
	b.Write(0xFF00, 0xCF) // JOYP: nothing selected
	b.Write(0xFF05, 0x00) // TIMA
	b.Write(0xFF06, 0x00) // TMA
	b.Write(0xFF07, 0x00) // TAC
	b.Write(0xFF40, 0x91) // LCDC: LCD+BG on, tile data 8000
	b.Write(0xFF42, 0x00) // SCY
	b.Write(0xFF43, 0x00) // SCX
	b.Write(0xFF45, 0x00) // LYC
	b.Write(0xFF47, 0xFC) // BGP
	b.Write(0xFF48, 0xFF) // OBP0
	b.Write(0xFF49, 0xFF) // OBP1
	b.Write(0xFF4A, 0x00) // WY
	b.Write(0xFF4B, 0x00) // WX
	b.Write(0xFFFF, 0x00) // IE
}

// Reset returns the CPU and IO registers to the post-boot state while
// keeping the loaded cartridge (and its RAM) intact.
func (m *Machine) Reset() {
	if m.cpu == nil {
		return
	}
	m.cpu.Reset()
	m.applyPostBootIO()
}

// Step executes one instruction (or interrupt dispatch) and advances the
// timer and PPU by the cycles it took. Returns the T-cycle count.
func (m *Machine) Step() int {
	if m.cfg.Trace && log.IsLevelEnabled(log.TraceLevel) {
		c := m.cpu
		log.Tracef("PC=%04X op=%02X AF=%04X BC=%04X DE=%04X HL=%04X SP=%04X IME=%v",
			c.PC, m.bus.Read(c.PC), c.GetAF(), c.GetBC(), c.GetDE(), c.GetHL(), c.SP, c.IME)
	}
	cycles := m.cpu.Step()
	if m.cfg.DMAStall {
		cycles += m.bus.TakeDMAStall()
	}
	m.timer.Advance(cycles)
	m.ppu.Tick(cycles)
	return cycles
}

// StepFrame runs until the PPU publishes the next frame. With the LCD off no
// frame ever completes, so a cycle budget keeps the call bounded.
func (m *Machine) StepFrame() {
	target := m.ppu.FrameCount() + 1
	spent := 0
	for m.ppu.FrameCount() < target && spent < 2*frameCycles {
		spent += m.Step()
	}
}

// Framebuffer returns the last published frame as 160x144 shades (0..3,
// 0 lightest).
func (m *Machine) Framebuffer() []byte { return m.ppu.Framebuffer() }

// FrameCount returns the number of frames published so far.
func (m *Machine) FrameCount() uint64 { return m.ppu.FrameCount() }

// ReadMemory and WriteMemory give harnesses direct bus access.
func (m *Machine) ReadMemory(addr uint16) byte         { return m.bus.Read(addr) }
func (m *Machine) WriteMemory(addr uint16, value byte) { m.bus.Write(addr, value) }

// SetButtons replaces the joypad state.
func (m *Machine) SetButtons(btn Buttons) {
	if m.bus == nil {
		return
	}
	var mask byte
	if btn.Right {
		mask |= bus.JoypRight
	}
	if btn.Left {
		mask |= bus.JoypLeft
	}
	if btn.Up {
		mask |= bus.JoypUp
	}
	if btn.Down {
		mask |= bus.JoypDown
	}
	if btn.A {
		mask |= bus.JoypA
	}
	if btn.B {
		mask |= bus.JoypB
	}
	if btn.Select {
		mask |= bus.JoypSelect
	}
	if btn.Start {
		mask |= bus.JoypStart
	}
	m.bus.SetJoypadState(mask)
}

// SetSerialWriter streams serial port output to w. Useful for test ROMs
// that report results over the link port.
func (m *Machine) SetSerialWriter(w io.Writer) {
	if m.bus != nil {
		m.bus.SetSerialWriter(w)
	}
}

// SaveBattery returns the cartridge's battery-backed payload, or nil/false
// when the cartridge has nothing to persist.
func (m *Machine) SaveBattery() ([]byte, bool) {
	if m.cart == nil {
		return nil, false
	}
	bb, ok := m.cart.(cart.BatteryBacked)
	if !ok {
		return nil, false
	}
	data := bb.SaveRAM()
	if len(data) == 0 {
		return nil, false
	}
	return data, true
}

// LoadBattery restores a previously saved battery payload.
func (m *Machine) LoadBattery(data []byte) bool {
	if m.cart == nil {
		return false
	}
	bb, ok := m.cart.(cart.BatteryBacked)
	if !ok {
		return false
	}
	bb.LoadRAM(data)
	return true
}
