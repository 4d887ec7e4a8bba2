package zxcore

// ED-prefixed (extended) opcode table: IN/OUT (C), 16-bit load/store,
// ADC/SBC HL,rr, NEG, RETN/RETI, interrupt mode select, I/R transfer,
// RRD/RLD, and the sixteen block instructions (LDxx/CPxx/INxx/OUTxx).
// Undefined ED opcodes behave as an 8 T-state NOP, matching real
// hardware.

func (c *CPU) initEDOps() {
	for i := range c.edOps {
		c.edOps[i] = func(cpu *CPU) { cpu.tick(8) }
	}

	regCodes := [8]uint8{0, 1, 2, 3, 4, 5, 6, 7} // 6 is the flags-only IN/OUT (C) slot
	for i := uint8(0); i < 8; i++ {
		reg := regCodes[i]
		inOp := 0x40 + i*8
		outOp := 0x41 + i*8
		c.edOps[inOp] = func(cpu *CPU) { cpu.opEDInC(reg) }
		c.edOps[outOp] = func(cpu *CPU) { cpu.opEDOutC(reg) }
	}

	rpOps := []struct {
		sbc, adc, ld, st uint8
		get              func(*CPU) uint16
		set              func(*CPU, uint16)
	}{
		{0x42, 0x4A, 0x4B, 0x43, (*CPU).BC, (*CPU).SetBC},
		{0x52, 0x5A, 0x5B, 0x53, (*CPU).DE, (*CPU).SetDE},
		{0x62, 0x6A, 0x6B, 0x63, (*CPU).HL, (*CPU).SetHL},
		{0x72, 0x7A, 0x7B, 0x73, func(cpu *CPU) uint16 { return cpu.SP }, func(cpu *CPU, v uint16) { cpu.SP = v }},
	}
	for _, rp := range rpOps {
		get, set := rp.get, rp.set
		c.edOps[rp.sbc] = func(cpu *CPU) { cpu.SetHL(cpu.sbcHL(get(cpu))); cpu.tick(15) }
		c.edOps[rp.adc] = func(cpu *CPU) { cpu.SetHL(cpu.adcHL(get(cpu))); cpu.tick(15) }
		c.edOps[rp.ld] = func(cpu *CPU) {
			addr := cpu.fetchWord()
			lo := cpu.read(addr)
			hi := cpu.read(addr + 1)
			set(cpu, uint16(hi)<<8|uint16(lo))
			cpu.WZ = addr + 1
			cpu.tick(20)
		}
		c.edOps[rp.st] = func(cpu *CPU) {
			addr := cpu.fetchWord()
			v := get(cpu)
			cpu.write(addr, uint8(v))
			cpu.write(addr+1, uint8(v>>8))
			cpu.WZ = addr + 1
			cpu.tick(20)
		}
	}

	c.edOps[0x44] = (*CPU).opNEG
	c.edOps[0x4C] = (*CPU).opNEG
	c.edOps[0x54] = (*CPU).opNEG
	c.edOps[0x5C] = (*CPU).opNEG
	c.edOps[0x64] = (*CPU).opNEG
	c.edOps[0x6C] = (*CPU).opNEG
	c.edOps[0x74] = (*CPU).opNEG
	c.edOps[0x7C] = (*CPU).opNEG

	c.edOps[0x45] = (*CPU).opRETN
	c.edOps[0x4D] = (*CPU).opRETN // RETI: identical effect on IFF1/IFF2 as RETN
	c.edOps[0x55] = (*CPU).opRETN
	c.edOps[0x5D] = (*CPU).opRETN
	c.edOps[0x65] = (*CPU).opRETN
	c.edOps[0x6D] = (*CPU).opRETN
	c.edOps[0x75] = (*CPU).opRETN
	c.edOps[0x7D] = (*CPU).opRETN

	c.edOps[0x46] = func(cpu *CPU) { cpu.IM = 0; cpu.tick(8) }
	c.edOps[0x4E] = func(cpu *CPU) { cpu.IM = 0; cpu.tick(8) }
	c.edOps[0x56] = func(cpu *CPU) { cpu.IM = 1; cpu.tick(8) }
	c.edOps[0x5E] = func(cpu *CPU) { cpu.IM = 2; cpu.tick(8) }
	c.edOps[0x66] = func(cpu *CPU) { cpu.IM = 0; cpu.tick(8) }
	c.edOps[0x6E] = func(cpu *CPU) { cpu.IM = 0; cpu.tick(8) }
	c.edOps[0x76] = func(cpu *CPU) { cpu.IM = 1; cpu.tick(8) }
	c.edOps[0x7E] = func(cpu *CPU) { cpu.IM = 2; cpu.tick(8) }

	c.edOps[0x47] = func(cpu *CPU) { cpu.I = cpu.A; cpu.bus.NomreqContention(cpu.IR(), 1); cpu.tick(9) }
	c.edOps[0x4F] = func(cpu *CPU) { cpu.R = cpu.A; cpu.bus.NomreqContention(cpu.IR(), 1); cpu.tick(9) }
	c.edOps[0x57] = func(cpu *CPU) { cpu.opLDAIR(cpu.I); cpu.bus.NomreqContention(cpu.IR(), 1); cpu.tick(9) }
	c.edOps[0x5F] = func(cpu *CPU) { cpu.opLDAIR(cpu.R); cpu.bus.NomreqContention(cpu.IR(), 1); cpu.tick(9) }

	c.edOps[0x67] = (*CPU).opRRD
	c.edOps[0x6F] = (*CPU).opRLD

	c.edOps[0xA0] = func(cpu *CPU) { cpu.blockLoad(1) }
	c.edOps[0xA8] = func(cpu *CPU) { cpu.blockLoad(-1) }
	c.edOps[0xB0] = func(cpu *CPU) { cpu.blockLoadRepeat(1) }
	c.edOps[0xB8] = func(cpu *CPU) { cpu.blockLoadRepeat(-1) }

	c.edOps[0xA1] = func(cpu *CPU) { cpu.blockCompare(1) }
	c.edOps[0xA9] = func(cpu *CPU) { cpu.blockCompare(-1) }
	c.edOps[0xB1] = func(cpu *CPU) { cpu.blockCompareRepeat(1) }
	c.edOps[0xB9] = func(cpu *CPU) { cpu.blockCompareRepeat(-1) }

	c.edOps[0xA2] = func(cpu *CPU) { cpu.blockIn(1) }
	c.edOps[0xAA] = func(cpu *CPU) { cpu.blockIn(-1) }
	c.edOps[0xB2] = func(cpu *CPU) { cpu.blockInRepeat(1) }
	c.edOps[0xBA] = func(cpu *CPU) { cpu.blockInRepeat(-1) }

	c.edOps[0xA3] = func(cpu *CPU) { cpu.blockOut(1) }
	c.edOps[0xAB] = func(cpu *CPU) { cpu.blockOut(-1) }
	c.edOps[0xB3] = func(cpu *CPU) { cpu.blockOutRepeat(1) }
	c.edOps[0xBB] = func(cpu *CPU) { cpu.blockOutRepeat(-1) }
}

// opEDOutC implements OUT (C),r. On NMOS the flags-only form (reg==6)
// writes 0; on CMOS it writes 0xFF, per the documented difference.
func (c *CPU) opEDOutC(reg uint8) {
	var v uint8
	if reg == 6 {
		if c.Kind == CMOS {
			v = 0xFF
		}
	} else {
		v = c.readReg8(reg)
	}
	c.out(c.BC(), v)
	c.WZ = c.BC() + 1
	c.tick(12)
}

func (c *CPU) opEDInC(reg uint8) {
	v := c.in(c.BC())
	c.F = (c.F & FlagC) | sz53pTable[v]
	if reg != 6 {
		c.writeReg8(reg, v)
	}
	c.WZ = c.BC() + 1
	c.tick(12)
}

func (c *CPU) opNEG() {
	v := c.A
	c.A = 0
	c.aluSub(v)
	c.tick(8)
}

// opRETN restores IFF1 from IFF2, as both RETN and RETI do.
func (c *CPU) opRETN() {
	addr := c.popWord()
	c.PC = addr
	c.WZ = addr
	c.IFF1 = c.IFF2
	c.tick(14)
}

// opLDAIR implements LD A,I and LD A,R: sets the ldAIorR race latch
// consulted by serviceInterrupts, which clears P/V on NMOS when it
// accepts a maskable interrupt right after this instruction.
func (c *CPU) opLDAIR(src uint8) {
	c.A = src
	c.F = (c.F & FlagC) | sz53Table[c.A]
	if c.IFF2 {
		c.F |= FlagP
	}
	c.ldAIorR = true
}

func (c *CPU) opRRD() {
	addr := c.HL()
	v := c.read(addr)
	low := v & 0x0F
	new := (v >> 4) | (c.A << 4)
	c.A = (c.A & 0xF0) | low
	c.write(addr, new)
	c.F = (c.F & FlagC) | sz53pTable[c.A]
	c.WZ = addr + 1
	c.bus.NomreqContention(addr, 1)
	c.bus.NomreqContention(addr, 1)
	c.bus.NomreqContention(addr, 1)
	c.bus.NomreqContention(addr, 1)
	c.tick(18)
}

func (c *CPU) opRLD() {
	addr := c.HL()
	v := c.read(addr)
	high := v >> 4
	new := (v << 4) | (c.A & 0x0F)
	c.A = (c.A & 0xF0) | high
	c.write(addr, new)
	c.F = (c.F & FlagC) | sz53pTable[c.A]
	c.WZ = addr + 1
	c.bus.NomreqContention(addr, 1)
	c.bus.NomreqContention(addr, 1)
	c.bus.NomreqContention(addr, 1)
	c.bus.NomreqContention(addr, 1)
	c.tick(18)
}

func (c *CPU) blockLoad(step int16) {
	hl, de, bc := c.HL(), c.DE(), c.BC()
	v := c.read(hl)
	c.write(de, v)
	c.bus.NomreqContention(de, 1)
	c.bus.NomreqContention(de, 1)
	c.SetHL(uint16(int32(hl) + int32(step)))
	c.SetDE(uint16(int32(de) + int32(step)))
	bc--
	c.SetBC(bc)
	n := v + c.A
	c.F = (c.F & (FlagS | FlagZ | FlagC)) | bsel(bc != 0, FlagV, 0) | (n & Flag3) | bsel(n&0x02 != 0, Flag5, 0)
	c.tick(16)
}

func (c *CPU) blockLoadRepeat(step int16) {
	c.blockLoad(step)
	if c.BC() != 0 {
		c.PC -= 2
		c.WZ = c.PC + 1
		for i := 0; i < 5; i++ {
			c.bus.NomreqContention(c.DE()-uint16(step), 1)
		}
		c.tick(5)
	}
}

func (c *CPU) blockCompare(step int16) {
	hl := c.HL()
	v := c.read(hl)
	result := c.A - v
	for i := 0; i < 5; i++ {
		c.bus.NomreqContention(hl, 1)
	}
	c.SetHL(uint16(int32(hl) + int32(step)))
	bc := c.BC() - 1
	c.SetBC(bc)
	halfcarry := (c.A & 0x0F) < (v & 0x0F)
	n := result
	if halfcarry {
		n--
	}
	c.F = (c.F & FlagC) | FlagN | bsel(result == 0, FlagZ, 0) | bsel(result&0x80 != 0, FlagS, 0) |
		bsel(halfcarry, FlagH, 0) | (n & Flag3) | bsel(n&0x02 != 0, Flag5, 0) | bsel(bc != 0, FlagV, 0)
	c.WZ += uint16(step)
	c.tick(16)
}

func (c *CPU) blockCompareRepeat(step int16) {
	c.blockCompare(step)
	if c.BC() != 0 && !c.Flag(FlagZ) {
		c.PC -= 2
		c.WZ = c.PC + 1
		for i := 0; i < 5; i++ {
			c.bus.NomreqContention(c.HL()-uint16(step), 1)
		}
		c.tick(5)
	}
}

func (c *CPU) blockIn(step int16) {
	bc := c.BC()
	v := c.in(bc)
	c.write(c.HL(), v)
	c.WZ = bc + uint16(step)
	c.SetHL(c.HL() + uint16(step))
	b := c.B - 1
	c.B = b
	temp := uint16(c.C+uint8(step)) + uint16(v)
	c.F = sz53Table[b] | bsel(v&0x80 != 0, FlagN, 0) | bsel(temp > 255, FlagH|FlagC, 0) | parityTable[uint8(temp&7)^b]
	c.tick(16)
}

func (c *CPU) blockInRepeat(step int16) {
	c.blockIn(step)
	if c.B != 0 {
		c.PC -= 2
		for i := 0; i < 5; i++ {
			c.bus.NomreqContention(c.HL()-uint16(step), 1)
		}
		c.tick(5)
	}
}

func (c *CPU) blockOut(step int16) {
	hl := c.HL()
	v := c.read(hl)
	c.B--
	c.out(c.BC(), v)
	newHL := hl + uint16(step)
	c.SetHL(newHL)
	c.WZ = c.BC() + uint16(step)
	temp := uint16(uint8(newHL)) + uint16(v)
	c.F = sz53Table[c.B] | bsel(v&0x80 != 0, FlagN, 0) | bsel(temp > 255, FlagH|FlagC, 0) | parityTable[uint8(temp&7)^c.B]
	c.tick(16)
}

func (c *CPU) blockOutRepeat(step int16) {
	c.blockOut(step)
	if c.B != 0 {
		c.PC -= 2
		for i := 0; i < 5; i++ {
			c.bus.NomreqContention(c.BC(), 1)
		}
		c.tick(5)
	}
}
