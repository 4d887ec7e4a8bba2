package zxcore

// Main opcode table construction. Follows the teacher's initBaseOps
// idiom in cpu_z80.go: default-fill with an unimplemented stub, then
// mechanical for-loops build the regular groups (LD r,r'; ALU a,r),
// and the remaining irregular opcodes are assigned explicitly.

type aluKind int

const (
	aluAdd aluKind = iota
	aluAdc
	aluSub
	aluSbc
	aluAnd
	aluXor
	aluOr
	aluCp
)

func (c *CPU) applyALU(kind aluKind, v uint8) {
	switch kind {
	case aluAdd:
		c.aluAdd(v)
	case aluAdc:
		c.aluAdc(v)
	case aluSub:
		c.aluSub(v)
	case aluSbc:
		c.aluSbc(v)
	case aluAnd:
		c.aluAnd(v)
	case aluXor:
		c.aluXor(v)
	case aluOr:
		c.aluOr(v)
	case aluCp:
		c.aluCp(v)
	}
}

func (c *CPU) opUnimplemented() { c.tick(4) }
func (c *CPU) opNOP()           { c.tick(4) }

func (c *CPU) initBaseOps() {
	for i := range c.baseOps {
		c.baseOps[i] = (*CPU).opUnimplemented
	}

	// LD r,r' / LD r,(HL) / LD (HL),r / HALT (0x76 is the hole where
	// LD (HL),(HL) would be).
	for op := 0x40; op <= 0x7F; op++ {
		opcode := uint8(op)
		if opcode == 0x76 {
			c.baseOps[opcode] = (*CPU).opHALT
			continue
		}
		dest := (opcode >> 3) & 0x07
		src := opcode & 0x07
		c.baseOps[opcode] = func(cpu *CPU) { cpu.opLDRegReg(dest, src) }
	}

	// ALU A,r for 0x80-0xBF.
	kinds := [8]aluKind{aluAdd, aluAdc, aluSub, aluSbc, aluAnd, aluXor, aluOr, aluCp}
	for op := 0x80; op <= 0xBF; op++ {
		opcode := uint8(op)
		kind := kinds[(opcode>>3)&0x07]
		src := opcode & 0x07
		c.baseOps[opcode] = func(cpu *CPU) { cpu.opALUReg(kind, src) }
	}

	// LD r,n immediate: opcodes 0x06,0x0E,0x16,...,0x3E.
	for i := uint8(0); i < 8; i++ {
		dest := i
		opcode := 0x06 + i*8
		c.baseOps[opcode] = func(cpu *CPU) { cpu.opLDRegImm(dest) }
	}

	// ALU A,n immediate: 0xC6,0xCE,...,0xFE.
	for i := uint8(0); i < 8; i++ {
		kind := kinds[i]
		opcode := 0xC6 + i*8
		c.baseOps[opcode] = func(cpu *CPU) { cpu.opALUImm(kind) }
	}

	// INC/DEC r for the six plain registers plus (HL), plus INC/DEC A.
	regOps := []uint8{0x04, 0x0C, 0x14, 0x1C, 0x24, 0x2C, 0x3C}
	regCodes := []uint8{0, 1, 2, 3, 4, 5, 7}
	for i, opcode := range regOps {
		code := regCodes[i]
		c.baseOps[opcode] = func(cpu *CPU) { cpu.writeReg8(code, cpu.inc8(cpu.readReg8(code))); cpu.tick(4) }
	}
	decOps := []uint8{0x05, 0x0D, 0x15, 0x1D, 0x25, 0x2D, 0x3D}
	for i, opcode := range decOps {
		code := regCodes[i]
		c.baseOps[opcode] = func(cpu *CPU) { cpu.writeReg8(code, cpu.dec8(cpu.readReg8(code))); cpu.tick(4) }
	}
	c.baseOps[0x34] = func(cpu *CPU) {
		addr := cpu.HL()
		cpu.write(addr, cpu.inc8(cpu.read(addr)))
		cpu.tick(11)
	}
	c.baseOps[0x35] = func(cpu *CPU) {
		addr := cpu.HL()
		cpu.write(addr, cpu.dec8(cpu.read(addr)))
		cpu.tick(11)
	}

	c.baseOps[0x00] = (*CPU).opNOP
	c.baseOps[0x76] = (*CPU).opHALT

	// 16-bit immediate loads.
	c.baseOps[0x01] = func(cpu *CPU) { cpu.SetBC(cpu.fetchWord()); cpu.tick(10) }
	c.baseOps[0x11] = func(cpu *CPU) { cpu.SetDE(cpu.fetchWord()); cpu.tick(10) }
	c.baseOps[0x21] = func(cpu *CPU) { cpu.SetHL(cpu.fetchWord()); cpu.tick(10) }
	c.baseOps[0x31] = func(cpu *CPU) { cpu.SP = cpu.fetchWord(); cpu.tick(10) }

	c.baseOps[0x09] = func(cpu *CPU) { cpu.SetHL(cpu.addHL(cpu.BC())); cpu.tick(11) }
	c.baseOps[0x19] = func(cpu *CPU) { cpu.SetHL(cpu.addHL(cpu.DE())); cpu.tick(11) }
	c.baseOps[0x29] = func(cpu *CPU) { cpu.SetHL(cpu.addHL(cpu.HL())); cpu.tick(11) }
	c.baseOps[0x39] = func(cpu *CPU) { cpu.SetHL(cpu.addHL(cpu.SP)); cpu.tick(11) }

	c.baseOps[0x03] = func(cpu *CPU) { cpu.SetBC(cpu.BC() + 1); cpu.tick(6) }
	c.baseOps[0x13] = func(cpu *CPU) { cpu.SetDE(cpu.DE() + 1); cpu.tick(6) }
	c.baseOps[0x23] = func(cpu *CPU) { cpu.SetHL(cpu.HL() + 1); cpu.tick(6) }
	c.baseOps[0x33] = func(cpu *CPU) { cpu.SP++; cpu.tick(6) }
	c.baseOps[0x0B] = func(cpu *CPU) { cpu.SetBC(cpu.BC() - 1); cpu.tick(6) }
	c.baseOps[0x1B] = func(cpu *CPU) { cpu.SetDE(cpu.DE() - 1); cpu.tick(6) }
	c.baseOps[0x2B] = func(cpu *CPU) { cpu.SetHL(cpu.HL() - 1); cpu.tick(6) }
	c.baseOps[0x3B] = func(cpu *CPU) { cpu.SP--; cpu.tick(6) }

	c.baseOps[0xC5] = func(cpu *CPU) { cpu.pushWord(cpu.BC()); cpu.tick(11) }
	c.baseOps[0xD5] = func(cpu *CPU) { cpu.pushWord(cpu.DE()); cpu.tick(11) }
	c.baseOps[0xE5] = func(cpu *CPU) { cpu.pushWord(cpu.HL()); cpu.tick(11) }
	c.baseOps[0xF5] = func(cpu *CPU) { cpu.pushWord(cpu.AF()); cpu.tick(11) }
	c.baseOps[0xC1] = func(cpu *CPU) { cpu.SetBC(cpu.popWord()); cpu.tick(10) }
	c.baseOps[0xD1] = func(cpu *CPU) { cpu.SetDE(cpu.popWord()); cpu.tick(10) }
	c.baseOps[0xE1] = func(cpu *CPU) { cpu.SetHL(cpu.popWord()); cpu.tick(10) }
	c.baseOps[0xF1] = func(cpu *CPU) { cpu.SetAF(cpu.popWord()); cpu.tick(10) }

	c.baseOps[0x02] = func(cpu *CPU) { cpu.write(cpu.BC(), cpu.A); cpu.WZ = (cpu.BC()+1)&0xFF | uint16(cpu.A)<<8; cpu.tick(7) }
	c.baseOps[0x0A] = func(cpu *CPU) { cpu.A = cpu.read(cpu.BC()); cpu.WZ = cpu.BC() + 1; cpu.tick(7) }
	c.baseOps[0x12] = func(cpu *CPU) { cpu.write(cpu.DE(), cpu.A); cpu.WZ = (cpu.DE()+1)&0xFF | uint16(cpu.A)<<8; cpu.tick(7) }
	c.baseOps[0x1A] = func(cpu *CPU) { cpu.A = cpu.read(cpu.DE()); cpu.WZ = cpu.DE() + 1; cpu.tick(7) }

	c.baseOps[0x22] = func(cpu *CPU) {
		addr := cpu.fetchWord()
		hl := cpu.HL()
		cpu.write(addr, uint8(hl))
		cpu.write(addr+1, uint8(hl>>8))
		cpu.WZ = addr + 1
		cpu.tick(16)
	}
	c.baseOps[0x2A] = func(cpu *CPU) {
		addr := cpu.fetchWord()
		lo := cpu.read(addr)
		hi := cpu.read(addr + 1)
		cpu.SetHL(uint16(hi)<<8 | uint16(lo))
		cpu.WZ = addr + 1
		cpu.tick(16)
	}
	c.baseOps[0x32] = func(cpu *CPU) { addr := cpu.fetchWord(); cpu.write(addr, cpu.A); cpu.WZ = (addr+1)&0xFF | uint16(cpu.A)<<8; cpu.tick(13) }
	c.baseOps[0x3A] = func(cpu *CPU) { addr := cpu.fetchWord(); cpu.A = cpu.read(addr); cpu.WZ = addr + 1; cpu.tick(13) }
	c.baseOps[0xF9] = func(cpu *CPU) { cpu.SP = cpu.HL(); cpu.bus.NomreqContention(cpu.IX, 1); cpu.bus.NomreqContention(cpu.IX, 1); cpu.tick(6) }

	c.baseOps[0x08] = (*CPU).opEXAF
	c.baseOps[0xEB] = func(cpu *CPU) { cpu.D, cpu.H = cpu.H, cpu.D; cpu.E, cpu.L = cpu.L, cpu.E; cpu.tick(4) }
	c.baseOps[0xD9] = (*CPU).opEXX
	c.baseOps[0xE3] = (*CPU).opEXSPHL

	c.baseOps[0x07] = (*CPU).opRLCA
	c.baseOps[0x0F] = (*CPU).opRRCA
	c.baseOps[0x17] = (*CPU).opRLA
	c.baseOps[0x1F] = (*CPU).opRRA
	c.baseOps[0x27] = func(cpu *CPU) { cpu.daa(); cpu.tick(4) }
	c.baseOps[0x2F] = func(cpu *CPU) { cpu.A = ^cpu.A; cpu.F = (cpu.F & (FlagS | FlagZ | FlagP | FlagC)) | FlagH | FlagN | (cpu.A & (Flag3 | Flag5)); cpu.tick(4) }
	c.baseOps[0x37] = (*CPU).opSCF
	c.baseOps[0x3F] = (*CPU).opCCF

	c.baseOps[0xC3] = func(cpu *CPU) { addr := cpu.fetchWord(); cpu.PC = addr; cpu.WZ = addr; cpu.tick(10) }
	c.baseOps[0xE9] = func(cpu *CPU) { cpu.PC = cpu.HL(); cpu.tick(4) }
	c.baseOps[0x18] = (*CPU).opJR
	c.baseOps[0x10] = (*CPU).opDJNZ

	condJP := []struct {
		op   uint8
		cond func(*CPU) bool
	}{
		{0xC2, func(c *CPU) bool { return !c.Flag(FlagZ) }},
		{0xCA, func(c *CPU) bool { return c.Flag(FlagZ) }},
		{0xD2, func(c *CPU) bool { return !c.Flag(FlagC) }},
		{0xDA, func(c *CPU) bool { return c.Flag(FlagC) }},
		{0xE2, func(c *CPU) bool { return !c.Flag(FlagP) }},
		{0xEA, func(c *CPU) bool { return c.Flag(FlagP) }},
		{0xF2, func(c *CPU) bool { return !c.Flag(FlagS) }},
		{0xFA, func(c *CPU) bool { return c.Flag(FlagS) }},
	}
	for _, e := range condJP {
		cond := e.cond
		c.baseOps[e.op] = func(cpu *CPU) {
			addr := cpu.fetchWord()
			cpu.WZ = addr
			if cond(cpu) {
				cpu.PC = addr
			}
			cpu.tick(10)
		}
	}

	condJR := []struct {
		op   uint8
		cond func(*CPU) bool
	}{
		{0x20, func(c *CPU) bool { return !c.Flag(FlagZ) }},
		{0x28, func(c *CPU) bool { return c.Flag(FlagZ) }},
		{0x30, func(c *CPU) bool { return !c.Flag(FlagC) }},
		{0x38, func(c *CPU) bool { return c.Flag(FlagC) }},
	}
	for _, e := range condJR {
		cond := e.cond
		c.baseOps[e.op] = func(cpu *CPU) {
			d := int8(cpu.fetchByte())
			if cond(cpu) {
				cpu.bus.NomreqContention(cpu.PC, 1)
				cpu.bus.NomreqContention(cpu.PC, 1)
				cpu.bus.NomreqContention(cpu.PC, 1)
				cpu.bus.NomreqContention(cpu.PC, 1)
				cpu.bus.NomreqContention(cpu.PC, 1)
				cpu.PC = uint16(int32(cpu.PC) + int32(d))
				cpu.WZ = cpu.PC
				cpu.tick(12)
			} else {
				cpu.tick(7)
			}
		}
	}

	c.baseOps[0xCD] = func(cpu *CPU) {
		addr := cpu.fetchWord()
		cpu.WZ = addr
		cpu.pushWord(cpu.PC)
		cpu.PC = addr
		cpu.tick(17)
	}
	condCall := []struct {
		op   uint8
		cond func(*CPU) bool
	}{
		{0xC4, func(c *CPU) bool { return !c.Flag(FlagZ) }},
		{0xCC, func(c *CPU) bool { return c.Flag(FlagZ) }},
		{0xD4, func(c *CPU) bool { return !c.Flag(FlagC) }},
		{0xDC, func(c *CPU) bool { return c.Flag(FlagC) }},
		{0xE4, func(c *CPU) bool { return !c.Flag(FlagP) }},
		{0xEC, func(c *CPU) bool { return c.Flag(FlagP) }},
		{0xF4, func(c *CPU) bool { return !c.Flag(FlagS) }},
		{0xFC, func(c *CPU) bool { return c.Flag(FlagS) }},
	}
	for _, e := range condCall {
		cond := e.cond
		c.baseOps[e.op] = func(cpu *CPU) {
			addr := cpu.fetchWord()
			cpu.WZ = addr
			if cond(cpu) {
				cpu.pushWord(cpu.PC)
				cpu.PC = addr
				cpu.tick(17)
			} else {
				cpu.tick(10)
			}
		}
	}

	c.baseOps[0xC9] = func(cpu *CPU) { addr := cpu.popWord(); cpu.PC = addr; cpu.WZ = addr; cpu.tick(10) }
	condRet := []struct {
		op   uint8
		cond func(*CPU) bool
	}{
		{0xC0, func(c *CPU) bool { return !c.Flag(FlagZ) }},
		{0xC8, func(c *CPU) bool { return c.Flag(FlagZ) }},
		{0xD0, func(c *CPU) bool { return !c.Flag(FlagC) }},
		{0xD8, func(c *CPU) bool { return c.Flag(FlagC) }},
		{0xE0, func(c *CPU) bool { return !c.Flag(FlagP) }},
		{0xE8, func(c *CPU) bool { return c.Flag(FlagP) }},
		{0xF0, func(c *CPU) bool { return !c.Flag(FlagS) }},
		{0xF8, func(c *CPU) bool { return c.Flag(FlagS) }},
	}
	for _, e := range condRet {
		cond := e.cond
		c.baseOps[e.op] = func(cpu *CPU) {
			cpu.bus.NomreqContention(cpu.IR(), 1)
			if cond(cpu) {
				addr := cpu.popWord()
				cpu.PC = addr
				cpu.WZ = addr
				cpu.tick(11)
			} else {
				cpu.tick(5)
			}
		}
	}

	rstOps := []uint8{0xC7, 0xCF, 0xD7, 0xDF, 0xE7, 0xEF, 0xF7, 0xFF}
	for i, op := range rstOps {
		vector := uint16(i) * 8
		c.baseOps[op] = func(cpu *CPU) {
			cpu.pushWord(cpu.PC)
			cpu.PC = vector
			cpu.WZ = vector
			cpu.tick(11)
		}
	}

	c.baseOps[0xD3] = func(cpu *CPU) {
		n := cpu.fetchByte()
		port := uint16(cpu.A)<<8 | uint16(n)
		cpu.out(port, cpu.A)
		cpu.WZ = (uint16(cpu.A) << 8) | ((port + 1) & 0xFF)
		cpu.tick(11)
	}
	c.baseOps[0xDB] = func(cpu *CPU) {
		n := cpu.fetchByte()
		port := uint16(cpu.A)<<8 | uint16(n)
		cpu.A = cpu.in(port)
		cpu.WZ = port + 1
		cpu.tick(11)
	}

	c.baseOps[0xF3] = func(cpu *CPU) { cpu.IFF1, cpu.IFF2 = false, false; cpu.tick(4) }
	c.baseOps[0xFB] = func(cpu *CPU) { cpu.IFF1, cpu.IFF2 = true, true; cpu.eiJustHandled = true; cpu.tick(4) }

	c.baseOps[0xCB] = func(cpu *CPU) { opcode := cpu.fetchOpcode(); cpu.cbOps[opcode](cpu) }
	c.baseOps[0xED] = func(cpu *CPU) { opcode := cpu.fetchOpcode(); cpu.edOps[opcode](cpu) }
	c.baseOps[0xDD] = func(cpu *CPU) {
		prev := cpu.prefix
		cpu.prefix = prefixDD
		opcode := cpu.fetchOpcode()
		cpu.ddOps[opcode](cpu)
		cpu.prefix = prev
	}
	c.baseOps[0xFD] = func(cpu *CPU) {
		prev := cpu.prefix
		cpu.prefix = prefixFD
		opcode := cpu.fetchOpcode()
		cpu.fdOps[opcode](cpu)
		cpu.prefix = prev
	}
}

func (c *CPU) IR() uint16 { return uint16(c.I)<<8 | uint16(c.R) }

func (c *CPU) opLDRegReg(dest, src uint8) {
	if src == 6 {
		c.writeReg8(dest, c.read(c.HL()))
		c.tick(7)
		return
	}
	if dest == 6 {
		c.write(c.HL(), c.readReg8(src))
		c.tick(7)
		return
	}
	c.writeReg8(dest, c.readReg8(src))
	c.tick(4)
}

func (c *CPU) opLDRegImm(dest uint8) {
	n := c.fetchByte()
	if dest == 6 {
		c.write(c.HL(), n)
		c.tick(10)
		return
	}
	c.writeReg8(dest, n)
	c.tick(7)
}

func (c *CPU) opALUReg(kind aluKind, src uint8) {
	var v uint8
	if src == 6 {
		v = c.read(c.HL())
		c.applyALU(kind, v)
		c.tick(7)
		return
	}
	v = c.readReg8(src)
	c.applyALU(kind, v)
	c.tick(4)
}

func (c *CPU) opALUImm(kind aluKind) {
	v := c.fetchByte()
	c.applyALU(kind, v)
	c.tick(7)
}

func (c *CPU) opHALT() {
	c.Halted = true
	c.PC--
	c.tick(4)
}

func (c *CPU) opEXAF() { c.ExAF(); c.tick(4) }
func (c *CPU) opEXX()  { c.Exx(); c.tick(4) }

func (c *CPU) opEXSPHL() {
	lo := c.read(c.SP)
	hi := c.read(c.SP + 1)
	hl := c.HL()
	c.write(c.SP, uint8(hl))
	c.write(c.SP+1, uint8(hl>>8))
	v := uint16(hi)<<8 | uint16(lo)
	c.SetHL(v)
	c.WZ = v
	c.bus.NomreqContention(c.SP, 1)
	c.bus.NomreqContention(c.SP, 1)
	c.tick(19)
}

func (c *CPU) updateRotateFlags(carry bool) {
	c.F = (c.F & (FlagS | FlagZ | FlagP)) | (c.A & (Flag3 | Flag5)) | bsel(carry, FlagC, 0)
}

func (c *CPU) opRLCA() {
	carry := c.A&0x80 != 0
	c.A = c.A<<1 | c.A>>7
	c.updateRotateFlags(carry)
	c.tick(4)
}

func (c *CPU) opRRCA() {
	carry := c.A&0x01 != 0
	c.A = c.A>>1 | c.A<<7
	c.updateRotateFlags(carry)
	c.tick(4)
}

func (c *CPU) opRLA() {
	carryIn := c.Flag(FlagC)
	carryOut := c.A&0x80 != 0
	c.A <<= 1
	if carryIn {
		c.A |= 0x01
	}
	c.updateRotateFlags(carryOut)
	c.tick(4)
}

func (c *CPU) opRRA() {
	carryIn := c.Flag(FlagC)
	carryOut := c.A&0x01 != 0
	c.A >>= 1
	if carryIn {
		c.A |= 0x80
	}
	c.updateRotateFlags(carryOut)
	c.tick(4)
}

// opSCF/opCCF reproduce the NMOS "previous opcode altered flags"
// undocumented-bit race: on NMOS, if the previous instruction did not
// touch F, bits 3/5 come straight from A; if it did, they come from
// (F | A) instead. CMOS always takes them from A.
func (c *CPU) opSCF() {
	var bits53 uint8
	if c.Kind == NMOS && c.lastFlagsSet {
		bits53 = (c.F | c.A) & (Flag3 | Flag5)
	} else {
		bits53 = c.A & (Flag3 | Flag5)
	}
	c.F = (c.F & (FlagS | FlagZ | FlagP)) | bits53 | FlagC
	c.tick(4)
}

func (c *CPU) opCCF() {
	var bits53 uint8
	if c.Kind == NMOS && c.lastFlagsSet {
		bits53 = (c.F | c.A) & (Flag3 | Flag5)
	} else {
		bits53 = c.A & (Flag3 | Flag5)
	}
	carry := c.Flag(FlagC)
	c.F = (c.F & (FlagS | FlagZ | FlagP)) | bits53 | bsel(carry, FlagH, 0) | bsel(!carry, FlagC, 0)
	c.tick(4)
}

func (c *CPU) opJR() {
	d := int8(c.fetchByte())
	c.bus.NomreqContention(c.PC, 1)
	c.bus.NomreqContention(c.PC, 1)
	c.bus.NomreqContention(c.PC, 1)
	c.bus.NomreqContention(c.PC, 1)
	c.bus.NomreqContention(c.PC, 1)
	c.PC = uint16(int32(c.PC) + int32(d))
	c.WZ = c.PC
	c.tick(12)
}

func (c *CPU) opDJNZ() {
	c.bus.NomreqContention(c.IR(), 1)
	c.B--
	d := int8(c.fetchByte())
	if c.B != 0 {
		for i := 0; i < 5; i++ {
			c.bus.NomreqContention(c.PC, 1)
		}
		c.PC = uint16(int32(c.PC) + int32(d))
		c.WZ = c.PC
		c.tick(13)
	} else {
		c.tick(8)
	}
}
