package zxcore

import "testing"

func memReader(buf map[uint16]uint8) func(uint16) uint8 {
	return func(addr uint16) uint8 { return buf[addr] }
}

func TestDisassembleSimpleSequence(t *testing.T) {
	buf := map[uint16]uint8{
		0x8000: 0x00,       // NOP
		0x8001: 0x3E, 0x8002: 0x05, // LD A,5
		0x8003: 0xC3, 0x8004: 0x00, 0x8005: 0x80, // JP 8000h
	}
	lines := Disassemble(memReader(buf), 0x8000, 3)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0].Mnemonic != "NOP" {
		t.Fatalf("line0 = %q, want NOP", lines[0].Mnemonic)
	}
	if lines[1].Mnemonic != "LD A,05h" {
		t.Fatalf("line1 = %q, want LD A,05h", lines[1].Mnemonic)
	}
	if !lines[2].IsBranch || !lines[2].HasBranchTo {
		t.Fatalf("expected JP to be flagged as a branch with a resolved target")
	}
	if lines[2].BranchTo != 0x8000 {
		t.Fatalf("JP target = %04X, want 8000", lines[2].BranchTo)
	}
}

func TestDisassembleDuplicateIMSelectOpcodes(t *testing.T) {
	cases := []struct {
		code uint8
		want string
	}{
		{0x46, "IM 0"}, {0x4E, "IM 0"}, {0x66, "IM 0"}, {0x6E, "IM 0"},
		{0x56, "IM 1"}, {0x76, "IM 1"},
		{0x5E, "IM 2"}, {0x7E, "IM 2"},
	}
	for _, c := range cases {
		buf := map[uint16]uint8{0xA000: 0xED, 0xA001: c.code}
		lines := Disassemble(memReader(buf), 0xA000, 1)
		if len(lines) != 1 {
			t.Fatalf("code %#02x: got %d lines, want 1", c.code, len(lines))
		}
		if lines[0].Mnemonic != c.want {
			t.Fatalf("ED %#02x = %q, want %q", c.code, lines[0].Mnemonic, c.want)
		}
	}
}

func TestDisassembleCBPrefixed(t *testing.T) {
	buf := map[uint16]uint8{
		0x9000: 0xCB, 0x9001: 0x07, // RLC A
	}
	lines := Disassemble(memReader(buf), 0x9000, 1)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if len(lines[0].Bytes) != 2 {
		t.Fatalf("RLC A should be 2 bytes, got %d", len(lines[0].Bytes))
	}
}

func TestDisassembleRelativeJump(t *testing.T) {
	buf := map[uint16]uint8{
		0xA000: 0x18, 0xA001: 0x05, // JR +5
	}
	lines := Disassemble(memReader(buf), 0xA000, 1)
	if !lines[0].HasBranchTo {
		t.Fatalf("expected JR to resolve a branch target")
	}
	want := uint16(0xA000 + 2 + 5)
	if lines[0].BranchTo != want {
		t.Fatalf("JR target = %04X, want %04X", lines[0].BranchTo, want)
	}
}

func TestInstructionLength(t *testing.T) {
	buf := map[uint16]uint8{
		0xB000: 0x21, 0xB001: 0x00, 0xB002: 0x80, // LD HL,8000h
	}
	n := InstructionLength(memReader(buf), 0xB000)
	if n != 3 {
		t.Fatalf("InstructionLength(LD HL,nn) = %d, want 3", n)
	}
}
