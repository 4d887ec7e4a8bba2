package zxcore

import "testing"

func tapBlockData() []byte {
	// flag 0xFF, two data bytes, checksum = XOR of all three.
	payload := []byte{0xFF, 0x11, 0x22}
	checksum := uint8(0)
	for _, b := range payload {
		checksum ^= b
	}
	block := append(append([]byte{}, payload...), checksum)
	return append([]byte{byte(len(block)), byte(len(block) >> 8)}, block...)
}

func TestTryFastLoadUses48KEntryPoint(t *testing.T) {
	m := NewMachine(ZX48K, nil)
	if err := m.LoadTAP(tapBlockData()); err != nil {
		t.Fatalf("LoadTAP failed: %v", err)
	}
	m.TapePlay()

	m.CPU.A = 0xFF // requested flag byte
	m.CPU.IX = 0x9000
	m.CPU.SetDE(2)
	m.CPU.SP = 0xFF00
	m.DebugWrite(0xFF00, 0x00)
	m.DebugWrite(0xFF01, 0x80)

	if !m.Tape.TryFastLoad(m, romLDBytesEntry) {
		t.Fatalf("expected TryFastLoad to trap the 48K LD-BYTES entry point")
	}
	if !m.CPU.Flag(FlagC) {
		t.Fatalf("expected carry set on a successful fast load")
	}
	if m.DebugRead(0x9000) != 0x11 || m.DebugRead(0x9001) != 0x22 {
		t.Fatalf("expected the block's payload bytes copied to IX")
	}
}

func TestTryFastLoadUses128KROM0EntryPoint(t *testing.T) {
	m := NewMachine(ZX128K, nil)
	if err := m.LoadTAP(tapBlockData()); err != nil {
		t.Fatalf("LoadTAP failed: %v", err)
	}
	m.TapePlay()

	m.Mem.WritePagingPort(0x00) // bit 4 clear -> ROM0 (128K editor) paged into slot 0

	m.CPU.A = 0xFF
	m.CPU.IX = 0x9000
	m.CPU.SetDE(2)
	m.CPU.SP = 0xFF00
	m.DebugWrite(0xFF00, 0x00)
	m.DebugWrite(0xFF01, 0x80)

	if m.Tape.TryFastLoad(m, romLDBytesEntry) {
		t.Fatalf("TryFastLoad should not trap the 48K entry point while ROM0 is paged in")
	}
	if !m.Tape.TryFastLoad(m, romLDBytesEntryROM0) {
		t.Fatalf("expected TryFastLoad to trap ROM0's relocated LD-BYTES entry point")
	}
	if m.DebugRead(0x9000) != 0x11 || m.DebugRead(0x9001) != 0x22 {
		t.Fatalf("expected the block's payload bytes copied to IX")
	}
}

func TestTryFastLoadUses128KROM1EntryPoint(t *testing.T) {
	m := NewMachine(ZX128K, nil)
	if err := m.LoadTAP(tapBlockData()); err != nil {
		t.Fatalf("LoadTAP failed: %v", err)
	}
	m.TapePlay()

	m.Mem.WritePagingPort(0x10) // bit 4 set -> ROM1 (48K-compatible) paged into slot 0

	m.CPU.A = 0xFF
	m.CPU.IX = 0x9000
	m.CPU.SetDE(2)
	m.CPU.SP = 0xFF00
	m.DebugWrite(0xFF00, 0x00)
	m.DebugWrite(0xFF01, 0x80)

	if m.Tape.TryFastLoad(m, romLDBytesEntryROM0) {
		t.Fatalf("TryFastLoad should not trap ROM0's entry point while ROM1 is paged in")
	}
	if !m.Tape.TryFastLoad(m, romLDBytesEntry) {
		t.Fatalf("expected TryFastLoad to trap the shared 48K/ROM1 LD-BYTES entry point")
	}
}
