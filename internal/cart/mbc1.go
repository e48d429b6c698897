package cart

// MBC1 implements MBC1 ROM/RAM banking: a 5-bit primary ROM selector, a
// 2-bit secondary selector, and a mode flag that decides whether the
// secondary bits steer high ROM bits or the RAM bank.
type MBC1 struct {
	rom []byte
	ram []byte

	romBankLow5 byte // lower 5 bits of ROM bank number (0 remapped to 1)
	bankHigh2   byte // secondary 2-bit register
	ramEnabled  bool
	modeSelect  byte // 0: ROM banking (default), 1: RAM banking
}

func NewMBC1(rom []byte, ramSize int) *MBC1 {
	m := &MBC1{rom: rom}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	// switchable area starts at bank 1
	m.romBankLow5 = 1
	return m
}

func (m *MBC1) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		// Fixed window: bank 0 in mode 0; mode 1 maps the secondary bits in.
		bank := 0
		if m.modeSelect == 1 {
			bank = int(m.bankHigh2&0x03) << 5
		}
		bank %= bankCount(m.rom)
		return m.rom[bank*0x4000+int(addr)]
	case addr < 0x8000:
		// Switchable window: the secondary bits extend the bank only in ROM
		// banking mode; in RAM banking mode they steer RAM instead.
		bank := int(m.romBankLow5)
		if m.modeSelect == 0 {
			bank |= int(m.bankHigh2) << 5
		}
		bank %= bankCount(m.rom)
		return m.rom[bank*0x4000+int(addr-0x4000)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		return m.ram[m.ramOffset(addr)]
	default:
		return 0xFF
	}
}

func (m *MBC1) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		// RAM enable: low 4 bits must be 0x0A
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		// ROM bank low 5 bits (0 maps to 1)
		m.romBankLow5 = value & 0x1F
		if m.romBankLow5 == 0 {
			m.romBankLow5 = 1
		}
	case addr < 0x6000:
		m.bankHigh2 = value & 0x03
	case addr < 0x8000:
		m.modeSelect = value & 0x01
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		m.ram[m.ramOffset(addr)] = value
	}
}

func (m *MBC1) ramOffset(addr uint16) int {
	bank := 0
	if m.modeSelect == 1 {
		bank = int(m.bankHigh2&0x03) % ramBankCount(m.ram)
	}
	return bank*0x2000 + int(addr-0xA000)
}

func (m *MBC1) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC1) LoadRAM(data []byte) {
	if len(m.ram) == 0 || len(data) == 0 {
		return
	}
	copy(m.ram, data)
}
