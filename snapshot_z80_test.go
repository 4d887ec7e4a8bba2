package zxcore

import "testing"

func TestZ80V3RoundTrip48K(t *testing.T) {
	m := newTestMachine()
	m.CPU.SetAF(0x1234)
	m.CPU.SetBC(0x5678)
	m.CPU.SetHL(0x9ABC)
	m.CPU.SetDE(0xDEF0)
	m.CPU.IX = 0x1111
	m.CPU.IY = 0x2222
	m.CPU.SP = 0xFF00
	m.CPU.PC = 0x8123
	m.CPU.IM = 1
	m.CPU.IFF1 = true
	m.CPU.IFF2 = true
	m.SetBorderColor(2)
	m.DebugWrite(0x4000, 0xAA)
	m.DebugWrite(0x8000, 0xBB)
	m.DebugWrite(0xC000, 0xCC)

	data, err := m.SaveZ80()
	if err != nil {
		t.Fatalf("SaveZ80 failed: %v", err)
	}

	m2 := newTestMachine()
	if err := m2.LoadZ80(data); err != nil {
		t.Fatalf("LoadZ80 failed: %v", err)
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
	if m2.CPU.DE() != 0xDEF0 {
		t.Fatalf("DE = %04X, want DEF0", m2.CPU.DE())
	}
	if m2.CPU.PC != 0x8123 {
		t.Fatalf("PC = %04X, want 8123", m2.CPU.PC)
	}
	if m2.CPU.SP != 0xFF00 {
		t.Fatalf("SP = %04X, want FF00", m2.CPU.SP)
	}
	if !m2.CPU.IFF1 || !m2.CPU.IFF2 {
		t.Fatalf("expected IFF1/IFF2 preserved")
	}
	if m2.BorderColor() != 2 {
		t.Fatalf("border = %d, want 2", m2.BorderColor())
	}
	if m2.DebugRead(0x4000) != 0xAA || m2.DebugRead(0x8000) != 0xBB || m2.DebugRead(0xC000) != 0xCC {
		t.Fatalf("RAM pages not preserved across round trip")
	}
}

func TestZ80V3RoundTrip128K(t *testing.T) {
	m := NewMachine(ZX128K, nil)
	m.CPU.SetAF(0xABCD)
	m.CPU.PC = 0x6000
	m.Mem.WriteDirectRAM(0, 0x20, 0x55)
	m.Mem.WriteDirectRAM(7, 0x30, 0x66)

	data, err := m.SaveZ80()
	if err != nil {
		t.Fatalf("SaveZ80 failed: %v", err)
	}

	m2 := NewMachine(ZX128K, nil)
	if err := m2.LoadZ80(data); err != nil {
		t.Fatalf("LoadZ80 failed: %v", err)
	}
	if m2.CPU.AF() != 0xABCD {
		t.Fatalf("AF = %04X, want ABCD", m2.CPU.AF())
	}
	if m2.CPU.PC != 0x6000 {
		t.Fatalf("PC = %04X, want 6000", m2.CPU.PC)
	}
	if m2.Mem.ReadDirectRAM(0, 0x20) != 0x55 {
		t.Fatalf("bank 0 byte not preserved")
	}
	if m2.Mem.ReadDirectRAM(7, 0x30) != 0x66 {
		t.Fatalf("bank 7 byte not preserved")
	}
}

func TestZ80V1Load(t *testing.T) {
	// Minimal v1 header (30 bytes) with a nonzero PC signalling v1, and
	// an uncompressed 48K memory dump following it.
	data := make([]byte, 30+0xC000)
	data[0] = 0x99           // A
	data[6], data[7] = 0x00, 0x80 // PC = 0x8000 (nonzero -> v1)
	data[12] = 0              // uncompressed (bit 5 clear)
	data[30] = 0x77           // first RAM byte at 0x4000

	m := newTestMachine()
	if err := m.LoadZ80(data); err != nil {
		t.Fatalf("LoadZ80 v1 failed: %v", err)
	}
	if m.CPU.A != 0x99 {
		t.Fatalf("A = %02X, want 99", m.CPU.A)
	}
	if m.CPU.PC != 0x8000 {
		t.Fatalf("PC = %04X, want 8000", m.CPU.PC)
	}
	if m.DebugRead(0x4000) != 0x77 {
		t.Fatalf("RAM byte at 4000 = %02X, want 77", m.DebugRead(0x4000))
	}
}

func TestZ80128KRejectedOn48K(t *testing.T) {
	m := NewMachine(ZX128K, nil)
	data, err := m.SaveZ80() // a genuine 128K image
	if err != nil {
		t.Fatalf("SaveZ80 failed: %v", err)
	}
	m48 := newTestMachine()
	if err := m48.LoadZ80(data); err != errUnsupportedMachine {
		t.Fatalf("expected errUnsupportedMachine loading a 128K image on a 48K machine, got %v", err)
	}
}

func TestExtractMemoryBlockRLE(t *testing.T) {
	// 3 literal bytes, then an RLE run of 5 0x42s, then 1 literal.
	raw := []byte{0x01, 0x02, 0x03, 0xED, 0xED, 0x05, 0x42, 0x09}
	out := extractMemoryBlock(raw, 0, true, 9)
	want := []byte{0x01, 0x02, 0x03, 0x42, 0x42, 0x42, 0x42, 0x42, 0x09}
	if len(out) != len(want) {
		t.Fatalf("decompressed length = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("byte %d = %02X, want %02X", i, out[i], want[i])
		}
	}
}
