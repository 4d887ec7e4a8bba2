package zxcore

import "testing"

func newTestMachine() *Machine {
	return NewMachine(ZX48K, nil)
}

func TestCPULoadImmediateAndFlags(t *testing.T) {
	m := newTestMachine()
	// LD A,0  ; OR A  ; sets Z, clears S/C/N/H
	m.DebugWrite(0x8000, 0x3E) // LD A,n
	m.DebugWrite(0x8001, 0x00)
	m.DebugWrite(0x8002, 0xB7) // OR A
	m.CPU.PC = 0x8000

	m.CPU.Step(m.Info.IntLength)
	if m.CPU.A != 0 {
		t.Fatalf("A = %02X, want 0", m.CPU.A)
	}
	m.CPU.Step(m.Info.IntLength)
	if !m.CPU.Flag(FlagZ) {
		t.Fatalf("expected Z flag set after OR A on zero")
	}
	if m.CPU.Flag(FlagC) || m.CPU.Flag(FlagN) || m.CPU.Flag(FlagH) {
		t.Fatalf("expected C/N/H clear after OR A, F=%02X", m.CPU.F)
	}
}

func TestCPUAddCarry(t *testing.T) {
	m := newTestMachine()
	m.DebugWrite(0x8000, 0x3E) // LD A,0xFF
	m.DebugWrite(0x8001, 0xFF)
	m.DebugWrite(0x8002, 0xC6) // ADD A,1
	m.DebugWrite(0x8003, 0x01)
	m.CPU.PC = 0x8000

	m.CPU.Step(m.Info.IntLength)
	m.CPU.Step(m.Info.IntLength)

	if m.CPU.A != 0 {
		t.Fatalf("A = %02X, want 0 (wrapped)", m.CPU.A)
	}
	if !m.CPU.Flag(FlagC) {
		t.Fatalf("expected carry flag set on 0xFF+1")
	}
	if !m.CPU.Flag(FlagZ) {
		t.Fatalf("expected zero flag set on 0xFF+1")
	}
}

func TestCPURegisterPairs(t *testing.T) {
	m := newTestMachine()
	m.CPU.SetBC(0x1234)
	if m.CPU.B != 0x12 || m.CPU.C != 0x34 {
		t.Fatalf("SetBC split wrong: B=%02X C=%02X", m.CPU.B, m.CPU.C)
	}
	if m.CPU.BC() != 0x1234 {
		t.Fatalf("BC() = %04X, want 1234", m.CPU.BC())
	}
}

func TestCPUExx(t *testing.T) {
	m := newTestMachine()
	m.CPU.SetBC(0x1111)
	m.CPU.Exx()
	m.CPU.SetBC(0x2222)
	m.CPU.Exx()
	if m.CPU.BC() != 0x1111 {
		t.Fatalf("BC after double EXX = %04X, want 1111", m.CPU.BC())
	}
}

func TestMemoryContendedBanksFor48K(t *testing.T) {
	m := newTestMachine()
	// 48K: only RAM5 (slot1, 0x4000-0x7FFF) is contended.
	if !m.Mem.IsContended(0x4000) {
		t.Fatalf("expected 0x4000 (RAM5) contended on 48K")
	}
	if m.Mem.IsContended(0xC000) {
		t.Fatalf("did not expect 0xC000 (RAM0) contended on 48K")
	}
	if m.Mem.IsContended(0x0000) {
		t.Fatalf("ROM should never be contended")
	}
}

func TestMemoryPagingLock128K(t *testing.T) {
	m := NewMachine(ZX128K, nil)
	m.Mem.WritePagingPort(0x03) // select RAM bank 3
	if m.Mem.PagingRegister()&0x07 != 0x03 {
		t.Fatalf("paging register bank nibble = %02X, want 3", m.Mem.PagingRegister()&0x07)
	}
	m.Mem.WritePagingPort(0x20 | 0x05) // lock with bank 5 selected
	m.Mem.WritePagingPort(0x01)        // should be ignored, paging is locked
	if m.Mem.PagingRegister()&0x07 != 0x05 {
		t.Fatalf("paging register after lock = %02X, want bank nibble 5", m.Mem.PagingRegister()&0x07)
	}
}
