package zxcore

// Bus is the set of callbacks the CPU uses to reach memory, IO, and the
// contention model. Supplied by the Machine; the CPU itself holds no
// bus state of its own. Grounded on the teacher's Z80Bus interface
// (cpu_z80.go), generalized to split memory and IO contention the way
// the real ULA does rather than charging one aggregate tick per
// access.
type Bus interface {
	MemRead(addr uint16) uint8
	MemWrite(addr uint16, v uint8)
	IORead(addr uint16) uint8
	IOWrite(addr uint16, v uint8)
	MemContention(addr uint16, ts uint32)
	NomreqContention(addr uint16, ts uint32)
}

// CPUKind selects NMOS or CMOS Z80 behavior for the handful of
// documented differences (SCF/CCF bits 3/5, OUT (C),0, and the IFF2
// read race), per original_source/src/core/z80/z80.hpp's CpuType enum.
type CPUKind int

const (
	NMOS CPUKind = iota
	CMOS
)

type prefixMode int

const (
	prefixNone prefixMode = iota
	prefixDD
	prefixFD
)

// OpcodeCallback fires before a decoded opcode executes. Returning
// true skips the instruction entirely - the hook the tape ROM trap and
// execution breakpoints both depend on.
type OpcodeCallback func(opcode uint8, pc uint16, ctx any) (skip bool)

// CPU is a single-threaded Z80 core: no mutex, no atomics, consistent
// with the spec's lock-free concurrency model. The teacher's own core
// guards its register file with a sync.RWMutex and its run state with
// an atomic.Bool to support a concurrent GUI loop; there is no such
// concurrent caller here, so those primitives are dropped outright
// rather than ported.
type CPU struct {
	A, F       uint8
	B, C, D, E uint8
	H, L       uint8

	A2, F2       uint8
	B2, C2, D2, E2 uint8
	H2, L2       uint8

	IX, IY uint16
	SP, PC uint16
	I, R   uint8
	IM     uint8

	IFF1, IFF2 bool
	Halted     bool

	WZ uint16 // MEMPTR

	Kind CPUKind

	TStates uint32

	irqPending   bool
	irqVector    uint8
	nmiPending   bool
	eiJustHandled bool
	ldAIorR      bool // LD A,I / LD A,R just executed (IFF2-in-P/V race)

	prefix       prefixMode
	lastFlagsSet bool // previous opcode altered F (SCF/CCF NMOS race)

	bus Bus
	ctx any

	onOpcode OpcodeCallback

	baseOps [256]func(*CPU)
	cbOps   [256]func(*CPU)
	edOps   [256]func(*CPU)
	ddOps   [256]func(*CPU)
	fdOps   [256]func(*CPU)
	ddcbOps [256]func(*CPU, uint16)
	fdcbOps [256]func(*CPU, uint16)
}

// NewCPU constructs a CPU wired to bus and builds its dispatch tables.
func NewCPU(bus Bus, ctx any) *CPU {
	c := &CPU{bus: bus, ctx: ctx}
	c.initBaseOps()
	c.initCBOps()
	c.initEDOps()
	initDDCBFDCBOps(&c.ddcbOps)
	c.fdcbOps = c.ddcbOps
	c.initIndexOps(&c.ddOps, &c.ddcbOps, true)
	c.initIndexOps(&c.fdOps, &c.fdcbOps, false)
	c.Reset(true)
	return c
}

func (c *CPU) RegisterOpcodeCallback(cb OpcodeCallback) { c.onOpcode = cb }

func (c *CPU) SetCPUKind(k CPUKind) { c.Kind = k }

// Reset mirrors the documented reset contract: soft reset only clears
// PC/I/R/IFFs/IM/Halted/TStates; hard reset additionally zeros BC, DE,
// HL and their primes, IX, IY. AF/AF'/SP are always set to 0xFFFF.
func (c *CPU) Reset(hard bool) {
	c.PC, c.I, c.R = 0, 0, 0
	c.IFF1, c.IFF2 = false, false
	c.IM = 0
	c.Halted = false
	c.TStates = 0
	c.irqPending = false
	c.nmiPending = false
	c.eiJustHandled = false
	c.ldAIorR = false
	c.prefix = prefixNone
	c.lastFlagsSet = false

	c.A, c.F = 0xFF, 0xFF
	c.A2, c.F2 = 0xFF, 0xFF
	c.SP = 0xFFFF

	if hard {
		c.B, c.C, c.D, c.E, c.H, c.L = 0, 0, 0, 0, 0, 0
		c.B2, c.C2, c.D2, c.E2, c.H2, c.L2 = 0, 0, 0, 0, 0, 0
		c.IX, c.IY = 0, 0
	}
}

func (c *CPU) BC() uint16 { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) DE() uint16 { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) HL() uint16 { return uint16(c.H)<<8 | uint16(c.L) }
func (c *CPU) AF() uint16 { return uint16(c.A)<<8 | uint16(c.F) }

func (c *CPU) SetBC(v uint16) { c.B, c.C = uint8(v>>8), uint8(v) }
func (c *CPU) SetDE(v uint16) { c.D, c.E = uint8(v>>8), uint8(v) }
func (c *CPU) SetHL(v uint16) { c.H, c.L = uint8(v>>8), uint8(v) }
func (c *CPU) SetAF(v uint16) { c.A, c.F = uint8(v>>8), uint8(v) }

func (c *CPU) ExAF() {
	c.A, c.A2 = c.A2, c.A
	c.F, c.F2 = c.F2, c.F
}

func (c *CPU) Exx() {
	c.B, c.B2 = c.B2, c.B
	c.C, c.C2 = c.C2, c.C
	c.D, c.D2 = c.D2, c.D
	c.E, c.E2 = c.E2, c.E
	c.H, c.H2 = c.H2, c.H
	c.L, c.L2 = c.L2, c.L
}

func (c *CPU) Flag(mask uint8) bool { return c.F&mask != 0 }

func (c *CPU) SetFlag(mask uint8, set bool) {
	if set {
		c.F |= mask
	} else {
		c.F &^= mask
	}
}

func (c *CPU) SignalInterrupt() { c.irqPending = true }
func (c *CPU) SetIRQVector(v uint8) { c.irqVector = v }
func (c *CPU) SetNMI(pending bool) { c.nmiPending = pending }

func (c *CPU) incrementR() { c.R = (c.R & 0x80) | ((c.R + 1) & 0x7F) }

func (c *CPU) tick(n uint32) { c.TStates += n }

func (c *CPU) fetchOpcode() uint8 {
	op := c.bus.MemRead(c.PC)
	c.bus.MemContention(c.PC, 1)
	c.incrementR()
	c.PC++
	c.tick(3)
	return op
}

func (c *CPU) fetchByte() uint8 {
	v := c.bus.MemRead(c.PC)
	c.bus.MemContention(c.PC, 3)
	c.PC++
	return v
}

func (c *CPU) fetchWord() uint16 {
	lo := c.fetchByte()
	hi := c.fetchByte()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) read(addr uint16) uint8 {
	v := c.bus.MemRead(addr)
	c.bus.MemContention(addr, 3)
	return v
}

func (c *CPU) write(addr uint16, v uint8) {
	c.bus.MemWrite(addr, v)
	c.bus.MemContention(addr, 3)
}

func (c *CPU) in(port uint16) uint8 { return c.bus.IORead(port) }

func (c *CPU) out(port uint16, v uint8) { c.bus.IOWrite(port, v) }

func (c *CPU) pushWord(v uint16) {
	c.SP--
	c.write(c.SP, uint8(v>>8))
	c.SP--
	c.write(c.SP, uint8(v))
}

func (c *CPU) popWord() uint16 {
	lo := c.read(c.SP)
	c.SP++
	hi := c.read(c.SP)
	c.SP++
	return uint16(hi)<<8 | uint16(lo)
}

// readReg8/writeReg8 address the 3-bit register code used throughout
// the main/CB tables; code 6 means (HL) and is handled by the caller
// (it costs extra T-states the plain-register path does not).
func (c *CPU) readReg8(code uint8) uint8 {
	switch code {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 7:
		return c.A
	}
	return 0
}

func (c *CPU) writeReg8(code uint8, v uint8) {
	switch code {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 7:
		c.A = v
	}
}

// Step executes exactly one instruction (including interrupt service
// that precedes it) and returns the T-states consumed.
func (c *CPU) Step(intLength uint32) uint32 {
	before := c.TStates
	c.serviceInterrupts(intLength)
	if c.Halted {
		c.bus.MemContention(c.PC, 1)
		c.tick(4)
		c.eiJustHandled = false
		return c.TStates - before
	}

	pc := c.PC
	opcode := c.bus.MemRead(pc)
	if c.onOpcode != nil && c.onOpcode(opcode, pc, c.ctx) {
		// Skip: caller (tape trap) has already mutated state and
		// expects us to behave as if a RET had just executed.
		c.eiJustHandled = false
		return c.TStates - before
	}

	opcode = c.fetchOpcode()
	c.baseOps[opcode](c)
	c.lastFlagsSet = c.opcodeAltersFlags(opcode)

	c.eiJustHandled = false
	return c.TStates - before
}

// Execute runs whole instructions until at least numTStates have been
// consumed, returning the number actually consumed.
func (c *CPU) Execute(numTStates, intLength uint32) uint32 {
	start := c.TStates
	for c.TStates-start < numTStates {
		c.Step(intLength)
	}
	return c.TStates - start
}

func (c *CPU) serviceInterrupts(intLength uint32) {
	race := c.ldAIorR
	c.ldAIorR = false
	if c.nmiPending {
		c.IFF2 = c.IFF1
		c.IFF1 = false
		c.Halted = false
		c.incrementR()
		c.pushWord(c.PC)
		c.PC = 0x0066
		c.WZ = c.PC
		c.tick(11)
		c.nmiPending = false
		return
	}
	if c.irqPending && !c.eiJustHandled && c.prefix == prefixNone && c.IFF1 && c.TStates < intLength {
		if race && c.Kind == NMOS {
			c.F &^= FlagP
		}
		c.IFF1, c.IFF2 = false, false
		c.Halted = false
		c.incrementR()
		c.pushWord(c.PC)
		switch c.IM {
		case 0, 1:
			c.PC = 0x0038
			c.tick(7)
		case 2:
			vector := uint16(c.I)<<8 | uint16(c.irqVector|0xFF)
			lo := c.read(vector)
			hi := c.read(vector + 1)
			c.PC = uint16(hi)<<8 | uint16(lo)
			c.tick(7)
		}
		c.WZ = c.PC
		c.irqPending = false
		return
	}
	if c.TStates > intLength {
		c.irqPending = false
	}
}

// opcodeAltersFlags reports whether the given main-table opcode is
// documented to alter F, for the NMOS SCF/CCF bits-3/5 race (an
// instruction that leaves F untouched makes the following SCF/CCF
// copy bits 3/5 straight from A; one that altered F makes SCF/CCF OR
// those bits from A with the bits F already carries).
func (c *CPU) opcodeAltersFlags(opcode uint8) bool {
	if opcode >= 0x40 && opcode <= 0x7F {
		return false // LD r,r' and HALT
	}
	switch opcode {
	case 0x00, 0x01, 0x02, 0x03, 0x06, 0x08, 0x0A, 0x0B, 0x0E,
		0x10, 0x11, 0x12, 0x13, 0x16, 0x18, 0x1A, 0x1B, 0x1E,
		0x20, 0x21, 0x22, 0x23, 0x26, 0x28, 0x2A, 0x2B, 0x2E,
		0x30, 0x31, 0x32, 0x33, 0x36, 0x38, 0x3A, 0x3B, 0x3E,
		0xC0, 0xC1, 0xC2, 0xC3, 0xC4, 0xC5, 0xC7, 0xC8, 0xC9, 0xCA, 0xCC, 0xCD, 0xCF,
		0xD0, 0xD1, 0xD2, 0xD3, 0xD4, 0xD5, 0xD7, 0xD8, 0xD9, 0xDA, 0xDB, 0xDC, 0xDF,
		0xE0, 0xE1, 0xE2, 0xE3, 0xE4, 0xE5, 0xE7, 0xE8, 0xE9, 0xEA, 0xEB, 0xEC, 0xEF,
		0xF0, 0xF1, 0xF2, 0xF3, 0xF4, 0xF5, 0xF7, 0xF8, 0xF9, 0xFA, 0xFB, 0xFC, 0xFF:
		return false
	}
	return true
}
