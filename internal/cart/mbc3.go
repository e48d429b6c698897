package cart

import (
	"encoding/binary"
	"time"
)

// nowUnix is the wall clock used by the RTC; tests swap it out.
var nowUnix = func() int64 { return time.Now().Unix() }

// MBC3 implements ROM/RAM banking plus the optional real-time clock.
// Banking behavior:
// - 0000-1FFF: RAM/RTC enable (0x0A in low nibble)
// - 2000-3FFF: ROM bank low 7 bits (0 maps to 1)
// - 4000-5FFF: RAM bank (0-3) or RTC register select (08-0C)
// - 6000-7FFF: latch clock on a 0 -> 1 write sequence
// - A000-BFFF: external RAM or the selected latched RTC register
// ROM: bank 0 fixed at 0000-3FFF; switchable 4000-7FFF uses bank (1..127)
type MBC3 struct {
	rom []byte
	ram []byte

	ramEnabled bool
	romBank    byte // 7 bits (1..127)
	ramSelect  byte // 0..3 RAM bank, or 0x08..0x0C RTC register

	hasRTC bool

	// live clock registers; advanced lazily from the wall clock
	rtcSec, rtcMin, rtcHour byte
	rtcDay                  uint16 // 9 bits
	rtcHalt, rtcCarry       bool
	lastRTCWallSec          int64

	// latched snapshot, the only thing RTC reads ever see
	latSec, latMin, latHour, latDayLo, latDayHi byte
	latchPrev                                   byte
}

func NewMBC3(rom []byte, ramSize int) *MBC3 {
	m := &MBC3{rom: rom}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	m.romBank = 1
	return m
}

func NewMBC3RTC(rom []byte, ramSize int) *MBC3 {
	m := NewMBC3(rom, ramSize)
	m.hasRTC = true
	m.lastRTCWallSec = nowUnix()
	return m
}

func (m *MBC3) Read(addr uint16) byte {
	m.updateRTC()
	switch {
	case addr < 0x4000:
		bank := 0 % bankCount(m.rom)
		return m.rom[bank*0x4000+int(addr)]
	case addr < 0x8000:
		bank := int(m.romBank&0x7F) % bankCount(m.rom)
		return m.rom[bank*0x4000+int(addr-0x4000)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		if m.hasRTC && m.ramSelect >= 0x08 {
			return m.readRTCLatched()
		}
		if len(m.ram) == 0 {
			return 0xFF
		}
		rb := int(m.ramSelect&0x03) % ramBankCount(m.ram)
		return m.ram[rb*0x2000+int(addr-0xA000)]
	default:
		return 0xFF
	}
}

func (m *MBC3) Write(addr uint16, value byte) {
	m.updateRTC()
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		v := value & 0x7F
		if v == 0 {
			v = 1
		}
		m.romBank = v
	case addr < 0x6000:
		m.ramSelect = value
	case addr < 0x8000:
		// Latch on 0 -> 1: freeze the live clock into the snapshot.
		if m.latchPrev == 0x00 && value == 0x01 {
			m.latch()
		}
		m.latchPrev = value
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		if m.hasRTC && m.ramSelect >= 0x08 {
			m.writeRTC(value)
			return
		}
		if len(m.ram) == 0 {
			return
		}
		rb := int(m.ramSelect&0x03) % ramBankCount(m.ram)
		m.ram[rb*0x2000+int(addr-0xA000)] = value
	}
}

// updateRTC folds wall-clock time elapsed since the last access into the
// live registers. While halted the reference point is kept current so no
// time accrues.
func (m *MBC3) updateRTC() {
	if !m.hasRTC {
		return
	}
	now := nowUnix()
	elapsed := now - m.lastRTCWallSec
	m.lastRTCWallSec = now
	if m.rtcHalt || elapsed <= 0 {
		return
	}
	m.advanceRTC(elapsed)
}

func (m *MBC3) advanceRTC(secs int64) {
	total := int64(m.rtcSec) + secs
	m.rtcSec = byte(total % 60)
	total = int64(m.rtcMin) + total/60
	m.rtcMin = byte(total % 60)
	total = int64(m.rtcHour) + total/60
	m.rtcHour = byte(total % 24)
	days := int64(m.rtcDay) + total/24
	if days > 0x1FF {
		m.rtcCarry = true
		days &= 0x1FF
	}
	m.rtcDay = uint16(days)
}

func (m *MBC3) latch() {
	m.latSec = m.rtcSec
	m.latMin = m.rtcMin
	m.latHour = m.rtcHour
	m.latDayLo = byte(m.rtcDay)
	dh := byte(m.rtcDay>>8) & 0x01
	if m.rtcHalt {
		dh |= 0x40
	}
	if m.rtcCarry {
		dh |= 0x80
	}
	m.latDayHi = dh
}

func (m *MBC3) readRTCLatched() byte {
	switch m.ramSelect {
	case 0x08:
		return m.latSec
	case 0x09:
		return m.latMin
	case 0x0A:
		return m.latHour
	case 0x0B:
		return m.latDayLo
	case 0x0C:
		return m.latDayHi
	default:
		return 0xFF
	}
}

func (m *MBC3) writeRTC(value byte) {
	switch m.ramSelect {
	case 0x08:
		m.rtcSec = value & 0x3F
	case 0x09:
		m.rtcMin = value & 0x3F
	case 0x0A:
		m.rtcHour = value & 0x1F
	case 0x0B:
		m.rtcDay = (m.rtcDay & 0x100) | uint16(value)
	case 0x0C:
		m.rtcDay = (m.rtcDay & 0xFF) | (uint16(value&0x01) << 8)
		m.rtcHalt = value&0x40 != 0
		m.rtcCarry = value&0x80 != 0
	}
}

// rtcTotalSeconds flattens the live registers to a plain seconds count.
func (m *MBC3) rtcTotalSeconds() int64 {
	return ((int64(m.rtcDay)*24+int64(m.rtcHour))*60+int64(m.rtcMin))*60 + int64(m.rtcSec)
}

// SaveRAM returns the RAM image; RTC carts append an 8-byte big-endian
// timestamp reference (wall clock minus the clock's seconds count), so a
// later load reconstructs the registers and folds in time spent offline.
func (m *MBC3) SaveRAM() []byte {
	m.updateRTC()
	out := make([]byte, len(m.ram), len(m.ram)+8)
	copy(out, m.ram)
	if m.hasRTC {
		var stamp [8]byte
		binary.BigEndian.PutUint64(stamp[:], uint64(nowUnix()-m.rtcTotalSeconds()))
		out = append(out, stamp[:]...)
	}
	return out
}

func (m *MBC3) LoadRAM(data []byte) {
	if len(data) >= len(m.ram) {
		copy(m.ram, data[:len(m.ram)])
	} else {
		copy(m.ram, data)
	}
	if !m.hasRTC || len(data) < len(m.ram)+8 {
		return
	}
	ref := int64(binary.BigEndian.Uint64(data[len(m.ram) : len(m.ram)+8]))
	total := nowUnix() - ref
	if total < 0 {
		total = 0
	}
	m.rtcSec = byte(total % 60)
	m.rtcMin = byte((total / 60) % 60)
	m.rtcHour = byte((total / 3600) % 24)
	days := total / 86400
	if days > 0x1FF {
		m.rtcCarry = true
		days &= 0x1FF
	}
	m.rtcDay = uint16(days)
	m.lastRTCWallSec = nowUnix()
}
