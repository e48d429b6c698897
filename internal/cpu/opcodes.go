package cpu

import "fmt"

// handler executes one decoded instruction and returns its T-cycle cost.
type handler func(*CPU) int

// ops and cbOps are the two decode tables: every opcode byte maps to exactly
// one handler. The eleven unassigned SM83 encodings get a handler that
// panics; executing one means the machine has run off the rails and there is
// no meaningful way to continue.
var (
	ops   [256]handler
	cbOps [256]handler
)

var illegalOpcodes = []byte{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD}

// cond evaluates a condition-code field: 0:NZ 1:Z 2:NC 3:C.
func (c *CPU) cond(idx byte) bool {
	switch idx {
	case 0:
		return !c.flagSet(flagZ)
	case 1:
		return c.flagSet(flagZ)
	case 2:
		return !c.flagSet(flagC)
	default:
		return c.flagSet(flagC)
	}
}

// getPair/setPair follow the rr encoding: 0:BC 1:DE 2:HL 3:SP.
func (c *CPU) getPair(idx byte) uint16 {
	switch idx {
	case 0:
		return c.GetBC()
	case 1:
		return c.GetDE()
	case 2:
		return c.GetHL()
	default:
		return c.SP
	}
}

func (c *CPU) setPair(idx byte, v uint16) {
	switch idx {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		c.SetHL(v)
	default:
		c.SP = v
	}
}

// getStackPair/setStackPair are the PUSH/POP variant where 3 means AF.
func (c *CPU) getStackPair(idx byte) uint16 {
	if idx == 3 {
		return c.GetAF()
	}
	return c.getPair(idx)
}

func (c *CPU) setStackPair(idx byte, v uint16) {
	if idx == 3 {
		c.SetAF(v)
		return
	}
	c.setPair(idx, v)
}

func init() {
	buildBaseTable()
	buildCBTable()
	for i := 0; i < 256; i++ {
		if ops[i] == nil || cbOps[i] == nil {
			panic(fmt.Sprintf("cpu: opcode table hole at 0x%02X", i))
		}
	}
}

func buildBaseTable() {
	for _, op := range illegalOpcodes {
		op := op
		ops[op] = func(c *CPU) int {
			panic(fmt.Sprintf("cpu: illegal opcode 0x%02X at PC=0x%04X", op, c.opPC))
		}
	}

	ops[0x00] = func(c *CPU) int { return 4 } // NOP
	ops[0x10] = func(c *CPU) int {            // STOP: consume the padding byte
		c.fetch8()
		return 4
	}

	// 16-bit register pair families: LD rr,d16 / INC rr / DEC rr / ADD HL,rr
	for i := byte(0); i < 4; i++ {
		i := i
		ops[0x01+i*0x10] = func(c *CPU) int { c.setPair(i, c.fetch16()); return 12 }
		ops[0x03+i*0x10] = func(c *CPU) int { c.setPair(i, c.getPair(i)+1); return 8 }
		ops[0x0B+i*0x10] = func(c *CPU) int { c.setPair(i, c.getPair(i)-1); return 8 }
		ops[0x09+i*0x10] = func(c *CPU) int {
			hl, v := c.GetHL(), c.getPair(i)
			r := uint32(hl) + uint32(v)
			h := (hl&0x0FFF)+(v&0x0FFF) > 0x0FFF
			c.SetHL(uint16(r))
			c.setZNHC(c.flagSet(flagZ), false, h, r > 0xFFFF) // Z unchanged
			return 8
		}
	}

	// INC r / DEC r / LD r,d8 for every register slot including (HL)
	for idx := byte(0); idx < 8; idx++ {
		idx := idx
		incDecCycles, ldCycles := 4, 8
		if idx == 6 {
			incDecCycles, ldCycles = 12, 12
		}
		ops[0x04+idx*8] = func(c *CPU) int {
			old := c.getReg(idx)
			v := old + 1
			c.setReg(idx, v)
			c.setZNHC(v == 0, false, (old&0x0F) == 0x0F, c.flagSet(flagC))
			return incDecCycles
		}
		ops[0x05+idx*8] = func(c *CPU) int {
			old := c.getReg(idx)
			v := old - 1
			c.setReg(idx, v)
			c.setZNHC(v == 0, true, (old&0x0F) == 0x00, c.flagSet(flagC))
			return incDecCycles
		}
		ops[0x06+idx*8] = func(c *CPU) int { c.setReg(idx, c.fetch8()); return ldCycles }
	}

	// LD r,r' block; 0x76 is HALT
	for op := 0x40; op <= 0x7F; op++ {
		if op == 0x76 {
			continue
		}
		d := byte(op>>3) & 7
		s := byte(op) & 7
		cycles := 4
		if d == 6 || s == 6 {
			cycles = 8
		}
		ops[op] = func(c *CPU) int { c.setReg(d, c.getReg(s)); return cycles }
	}
	ops[0x76] = func(c *CPU) int { c.halted = true; return 4 }

	// 8-bit ALU: register block 0x80-0xBF and the d8 column 0xC6..0xFE
	aluFns := [8]func(c *CPU, v byte){
		func(c *CPU, v byte) { r, z, n, h, cy := c.add8(c.A, v); c.A = r; c.setZNHC(z, n, h, cy) },
		func(c *CPU, v byte) {
			r, z, n, h, cy := c.adc8(c.A, v, c.flagSet(flagC))
			c.A = r
			c.setZNHC(z, n, h, cy)
		},
		func(c *CPU, v byte) { r, z, n, h, cy := c.sub8(c.A, v); c.A = r; c.setZNHC(z, n, h, cy) },
		func(c *CPU, v byte) {
			r, z, n, h, cy := c.sbc8(c.A, v, c.flagSet(flagC))
			c.A = r
			c.setZNHC(z, n, h, cy)
		},
		func(c *CPU, v byte) { r, z, n, h, cy := c.and8(c.A, v); c.A = r; c.setZNHC(z, n, h, cy) },
		func(c *CPU, v byte) { r, z, n, h, cy := c.xor8(c.A, v); c.A = r; c.setZNHC(z, n, h, cy) },
		func(c *CPU, v byte) { r, z, n, h, cy := c.or8(c.A, v); c.A = r; c.setZNHC(z, n, h, cy) },
		func(c *CPU, v byte) { z, n, h, cy := c.cp8(c.A, v); c.setZNHC(z, n, h, cy) },
	}
	for op := 0x80; op <= 0xBF; op++ {
		fn := aluFns[(op>>3)&7]
		s := byte(op) & 7
		cycles := 4
		if s == 6 {
			cycles = 8
		}
		ops[op] = func(c *CPU) int { fn(c, c.getReg(s)); return cycles }
	}
	for k := byte(0); k < 8; k++ {
		fn := aluFns[k]
		ops[0xC6+k*8] = func(c *CPU) int { fn(c, c.fetch8()); return 8 }
	}

	// Accumulator loads through pairs and HL post-inc/dec
	ops[0x02] = func(c *CPU) int { c.write8(c.GetBC(), c.A); return 8 }
	ops[0x12] = func(c *CPU) int { c.write8(c.GetDE(), c.A); return 8 }
	ops[0x0A] = func(c *CPU) int { c.A = c.read8(c.GetBC()); return 8 }
	ops[0x1A] = func(c *CPU) int { c.A = c.read8(c.GetDE()); return 8 }
	ops[0x22] = func(c *CPU) int {
		hl := c.GetHL()
		c.write8(hl, c.A)
		c.SetHL(hl + 1)
		return 8
	}
	ops[0x2A] = func(c *CPU) int {
		hl := c.GetHL()
		c.A = c.read8(hl)
		c.SetHL(hl + 1)
		return 8
	}
	ops[0x32] = func(c *CPU) int {
		hl := c.GetHL()
		c.write8(hl, c.A)
		c.SetHL(hl - 1)
		return 8
	}
	ops[0x3A] = func(c *CPU) int {
		hl := c.GetHL()
		c.A = c.read8(hl)
		c.SetHL(hl - 1)
		return 8
	}
	ops[0x08] = func(c *CPU) int { c.write16(c.fetch16(), c.SP); return 20 }

	// Accumulator rotates (short forms always clear Z)
	ops[0x07] = func(c *CPU) int { // RLCA
		cy := c.A>>7 == 1
		c.A = c.A<<1 | c.A>>7
		c.setZNHC(false, false, false, cy)
		return 4
	}
	ops[0x0F] = func(c *CPU) int { // RRCA
		cy := c.A&1 == 1
		c.A = c.A>>1 | c.A<<7
		c.setZNHC(false, false, false, cy)
		return 4
	}
	ops[0x17] = func(c *CPU) int { // RLA
		ci := byte(0)
		if c.flagSet(flagC) {
			ci = 1
		}
		cy := c.A>>7 == 1
		c.A = c.A<<1 | ci
		c.setZNHC(false, false, false, cy)
		return 4
	}
	ops[0x1F] = func(c *CPU) int { // RRA
		ci := byte(0)
		if c.flagSet(flagC) {
			ci = 0x80
		}
		cy := c.A&1 == 1
		c.A = c.A>>1 | ci
		c.setZNHC(false, false, false, cy)
		return 4
	}

	ops[0x27] = func(c *CPU) int { // DAA
		a := c.A
		cf := c.flagSet(flagC)
		if !c.flagSet(flagN) { // after addition
			if cf || a > 0x99 {
				a += 0x60
				cf = true
			}
			if c.flagSet(flagH) || (a&0x0F) > 9 {
				a += 0x06
			}
		} else { // after subtraction
			if cf {
				a -= 0x60
			}
			if c.flagSet(flagH) {
				a -= 0x06
			}
		}
		c.A = a
		c.setZNHC(a == 0, c.flagSet(flagN), false, cf)
		return 4
	}
	ops[0x2F] = func(c *CPU) int { // CPL
		c.A = ^c.A
		c.F = (c.F & (flagZ | flagC)) | flagN | flagH
		return 4
	}
	ops[0x37] = func(c *CPU) int { // SCF
		c.F = (c.F & flagZ) | flagC
		return 4
	}
	ops[0x3F] = func(c *CPU) int { // CCF
		c.F = (c.F & (flagZ | flagC)) ^ flagC
		return 4
	}

	// Relative jumps
	ops[0x18] = func(c *CPU) int {
		off := int8(c.fetch8())
		c.PC = uint16(int32(c.PC) + int32(off))
		return 12
	}
	for i := byte(0); i < 4; i++ {
		i := i
		ops[0x20+i*8] = func(c *CPU) int {
			off := int8(c.fetch8())
			if c.cond(i) {
				c.PC = uint16(int32(c.PC) + int32(off))
				return 12
			}
			return 8
		}
	}

	// Absolute jumps, calls, returns
	ops[0xC3] = func(c *CPU) int { c.PC = c.fetch16(); return 16 }
	ops[0xE9] = func(c *CPU) int { c.PC = c.GetHL(); return 4 }
	ops[0xCD] = func(c *CPU) int {
		addr := c.fetch16()
		c.push16(c.PC)
		c.PC = addr
		return 24
	}
	ops[0xC9] = func(c *CPU) int { c.PC = c.pop16(); return 16 }
	ops[0xD9] = func(c *CPU) int { // RETI: IME restored immediately
		c.PC = c.pop16()
		c.IME = true
		return 16
	}
	for i := byte(0); i < 4; i++ {
		i := i
		ops[0xC2+i*8] = func(c *CPU) int {
			addr := c.fetch16()
			if c.cond(i) {
				c.PC = addr
				return 16
			}
			return 12
		}
		ops[0xC4+i*8] = func(c *CPU) int {
			addr := c.fetch16()
			if c.cond(i) {
				c.push16(c.PC)
				c.PC = addr
				return 24
			}
			return 12
		}
		ops[0xC0+i*8] = func(c *CPU) int {
			if c.cond(i) {
				c.PC = c.pop16()
				return 20
			}
			return 8
		}
	}
	for i := byte(0); i < 8; i++ {
		target := uint16(i) * 8
		ops[0xC7+i*8] = func(c *CPU) int { // RST
			c.push16(c.PC)
			c.PC = target
			return 16
		}
	}

	// Stack pair push/pop (index 3 is AF)
	for i := byte(0); i < 4; i++ {
		i := i
		ops[0xC1+i*0x10] = func(c *CPU) int { c.setStackPair(i, c.pop16()); return 12 }
		ops[0xC5+i*0x10] = func(c *CPU) int { c.push16(c.getStackPair(i)); return 16 }
	}

	// High-page and absolute accumulator loads
	ops[0xE0] = func(c *CPU) int { c.write8(0xFF00+uint16(c.fetch8()), c.A); return 12 }
	ops[0xF0] = func(c *CPU) int { c.A = c.read8(0xFF00 + uint16(c.fetch8())); return 12 }
	ops[0xE2] = func(c *CPU) int { c.write8(0xFF00+uint16(c.C), c.A); return 8 }
	ops[0xF2] = func(c *CPU) int { c.A = c.read8(0xFF00 + uint16(c.C)); return 8 }
	ops[0xEA] = func(c *CPU) int { c.write8(c.fetch16(), c.A); return 16 }
	ops[0xFA] = func(c *CPU) int { c.A = c.read8(c.fetch16()); return 16 }

	// SP arithmetic: both use unsigned byte carries on the low byte
	ops[0xE8] = func(c *CPU) int { // ADD SP,r8
		c.SP = c.addSPRel()
		return 16
	}
	ops[0xF8] = func(c *CPU) int { // LD HL,SP+r8
		c.SetHL(c.addSPRel())
		return 12
	}
	ops[0xF9] = func(c *CPU) int { c.SP = c.GetHL(); return 8 }

	// Interrupt master enable control
	ops[0xF3] = func(c *CPU) int { // DI takes effect immediately
		c.IME = false
		c.eiPending = false
		return 4
	}
	ops[0xFB] = func(c *CPU) int { // EI lands at the start of the next step
		c.eiPending = true
		return 4
	}

	// The CB prefix is intercepted in Step; keep the slot total anyway.
	ops[0xCB] = func(c *CPU) int { return cbOps[c.fetch8()](c) }
}

// addSPRel computes SP plus a signed immediate with the documented
// low-byte half-carry/carry flag rule.
func (c *CPU) addSPRel() uint16 {
	off := c.fetch8()
	res := c.SP + uint16(int8(off))
	h := (c.SP&0x0F)+(uint16(off)&0x0F) > 0x0F
	cy := (c.SP&0xFF)+(uint16(off)&0xFF) > 0xFF
	c.setZNHC(false, false, h, cy)
	return res
}

func buildCBTable() {
	// Rotate/shift row: RLC RRC RL RR SLA SRA SWAP SRL, each over all 8 slots
	shiftFns := [8]func(c *CPU, v byte) (byte, bool){
		func(c *CPU, v byte) (byte, bool) { return v<<1 | v>>7, v>>7 == 1 },         // RLC
		func(c *CPU, v byte) (byte, bool) { return v>>1 | v<<7, v&1 == 1 },          // RRC
		func(c *CPU, v byte) (byte, bool) { // RL
			ci := byte(0)
			if c.flagSet(flagC) {
				ci = 1
			}
			return v<<1 | ci, v>>7 == 1
		},
		func(c *CPU, v byte) (byte, bool) { // RR
			ci := byte(0)
			if c.flagSet(flagC) {
				ci = 0x80
			}
			return v>>1 | ci, v&1 == 1
		},
		func(c *CPU, v byte) (byte, bool) { return v << 1, v>>7 == 1 },              // SLA
		func(c *CPU, v byte) (byte, bool) { return v>>1 | (v & 0x80), v&1 == 1 },    // SRA
		func(c *CPU, v byte) (byte, bool) { return v<<4 | v>>4, false },             // SWAP
		func(c *CPU, v byte) (byte, bool) { return v >> 1, v&1 == 1 },               // SRL
	}
	for k := 0; k < 8; k++ {
		fn := shiftFns[k]
		for idx := byte(0); idx < 8; idx++ {
			idx := idx
			cycles := 8
			if idx == 6 {
				cycles = 16
			}
			cbOps[k*8+int(idx)] = func(c *CPU) int {
				v, cy := fn(c, c.getReg(idx))
				c.setReg(idx, v)
				c.setZNHC(v == 0, false, false, cy)
				return cycles
			}
		}
	}

	// BIT / RES / SET
	for b := byte(0); b < 8; b++ {
		for idx := byte(0); idx < 8; idx++ {
			b, idx := b, idx
			bitCycles, rwCycles := 8, 8
			if idx == 6 {
				bitCycles, rwCycles = 12, 16
			}
			cbOps[0x40+int(b)*8+int(idx)] = func(c *CPU) int {
				v := c.getReg(idx)
				c.setZNHC(v&(1<<b) == 0, false, true, c.flagSet(flagC))
				return bitCycles
			}
			cbOps[0x80+int(b)*8+int(idx)] = func(c *CPU) int {
				c.setReg(idx, c.getReg(idx)&^(1<<b))
				return rwCycles
			}
			cbOps[0xC0+int(b)*8+int(idx)] = func(c *CPU) int {
				c.setReg(idx, c.getReg(idx)|1<<b)
				return rwCycles
			}
		}
	}
}
