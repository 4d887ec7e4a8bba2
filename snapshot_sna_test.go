package zxcore

import "testing"

func TestSNA48KRoundTrip(t *testing.T) {
	m := newTestMachine()
	m.CPU.SetAF(0x1234)
	m.CPU.SetBC(0x5678)
	m.CPU.SetHL(0x9ABC)
	m.CPU.IX = 0x1111
	m.CPU.IY = 0x2222
	m.CPU.IM = 1
	m.CPU.IFF2 = true
	m.CPU.SP = 0xFF00
	m.CPU.PC = 0x8123
	m.SetBorderColor(4)

	// Simulate the PUSH PC a real save would have performed: the two
	// bytes just below SP hold the return address the loader pops.
	m.DebugWrite(m.CPU.SP-2, uint8(m.CPU.PC))
	m.DebugWrite(m.CPU.SP-1, uint8(m.CPU.PC>>8))
	m.DebugWrite(0x9000, 0x42)

	data := m.SaveSNA()
	if len(data) != sna48KSize {
		t.Fatalf("saved SNA size = %d, want %d", len(data), sna48KSize)
	}

	m2 := newTestMachine()
	if err := m2.LoadSNA(data); err != nil {
		t.Fatalf("LoadSNA failed: %v", err)
	}

	if m2.CPU.AF() != 0x1234 {
		t.Fatalf("AF = %04X, want 1234", m2.CPU.AF())
	}
	if m2.CPU.BC() != 0x5678 {
		t.Fatalf("BC = %04X, want 5678", m2.CPU.BC())
	}
	if m2.CPU.HL() != 0x9ABC {
		t.Fatalf("HL = %04X, want 9ABC", m2.CPU.HL())
	}
	if m2.CPU.PC != 0x8123 {
		t.Fatalf("PC = %04X, want 8123 (recovered from stack)", m2.CPU.PC)
	}
	if m2.CPU.SP != 0xFF00 {
		t.Fatalf("SP = %04X, want FF00", m2.CPU.SP)
	}
	if m2.BorderColor() != 4 {
		t.Fatalf("border = %d, want 4", m2.BorderColor())
	}
	if m2.DebugRead(0x9000) != 0x42 {
		t.Fatalf("RAM byte at 9000 not preserved")
	}
}

func TestSNAUnrecognizedSize(t *testing.T) {
	m := newTestMachine()
	if err := m.LoadSNA(make([]byte, 10)); err == nil {
		t.Fatalf("expected an error for a bogus SNA size")
	}
}

func TestSNA128KRejectedOn48K(t *testing.T) {
	m := newTestMachine()
	if err := m.LoadSNA(make([]byte, sna128KSize)); err != errUnsupportedMachine {
		t.Fatalf("expected errUnsupportedMachine for a 128K image on a 48K machine, got %v", err)
	}
}

func TestSNA128KRoundTrip(t *testing.T) {
	m := NewMachine(ZX128K, nil)
	m.CPU.SetAF(0xABCD)
	m.CPU.SP = 0xFF00
	m.CPU.PC = 0xC000
	m.Mem.WritePagingPort(0x03) // select bank 3, not locked
	m.Mem.WriteDirectRAM(3, 0x10, 0x99)

	data := m.SaveSNA()
	if len(data) != sna128KSize {
		t.Fatalf("saved SNA size = %d, want %d", len(data), sna128KSize)
	}

	m2 := NewMachine(ZX128K, nil)
	if err := m2.LoadSNA(data); err != nil {
		t.Fatalf("LoadSNA failed: %v", err)
	}
	if m2.CPU.AF() != 0xABCD {
		t.Fatalf("AF = %04X, want ABCD", m2.CPU.AF())
	}
	if m2.CPU.PC != 0xC000 {
		t.Fatalf("PC = %04X, want C000", m2.CPU.PC)
	}
	if m2.Mem.ReadDirectRAM(3, 0x10) != 0x99 {
		t.Fatalf("bank 3 byte not preserved across round trip")
	}
}
