package zxcore

import "github.com/pkg/errors"

// SNA snapshot loading/saving. Ported from
// original_source/src/machines/loaders/sna_loader.cpp, which (unlike
// the Z80 loader) handles both 48K and 128K images directly.

const (
	snaHeaderSize  = 27
	snaRAMSize     = 49152
	sna48KSize     = snaHeaderSize + snaRAMSize
	snaMemPageSize = 16384
	sna128KExtra   = 4 + 5*snaMemPageSize
	sna128KSize    = sna48KSize + sna128KExtra
)

// LoadSNA restores machine state from a .sna image, dispatching on its
// length the way SNALoader::load does.
func (m *Machine) LoadSNA(data []byte) error {
	switch len(data) {
	case sna48KSize:
		return m.loadSNA48K(data)
	case sna128KSize:
		if !m.Info.HasPaging {
			return errUnsupportedMachine
		}
		return m.loadSNA128K(data)
	default:
		return errors.Errorf("zxcore: unrecognized SNA image size %d", len(data))
	}
}

func (m *Machine) loadSNARegisters(data []byte) {
	cpu := m.CPU
	cpu.I = data[0]

	cpu.H2, cpu.L2 = data[2], data[1]
	cpu.D2, cpu.E2 = data[4], data[3]
	cpu.B2, cpu.C2 = data[6], data[5]
	cpu.A2, cpu.F2 = data[8], data[7]

	cpu.SetHL(uint16(data[9]) | uint16(data[10])<<8)
	cpu.SetDE(uint16(data[11]) | uint16(data[12])<<8)
	cpu.SetBC(uint16(data[13]) | uint16(data[14])<<8)
	cpu.IY = uint16(data[15]) | uint16(data[16])<<8
	cpu.IX = uint16(data[17]) | uint16(data[18])<<8

	iff2 := data[19]&0x04 != 0
	cpu.IFF1 = iff2
	cpu.IFF2 = iff2

	cpu.R = data[20]
	cpu.SetAF(uint16(data[21]) | uint16(data[22])<<8)
	cpu.SP = uint16(data[23]) | uint16(data[24])<<8
	cpu.IM = data[25]

	m.SetBorderColor(data[26])
}

func (m *Machine) loadSNA48K(data []byte) error {
	m.loadSNARegisters(data)

	for i := 0; i < snaRAMSize; i++ {
		m.DebugWrite(uint16(0x4000+i), data[snaHeaderSize+i])
	}

	cpu := m.CPU
	sp := cpu.SP
	pc := uint16(m.DebugRead(sp)) | uint16(m.DebugRead(sp+1))<<8
	cpu.PC = pc
	cpu.SP = sp + 2

	return nil
}

func (m *Machine) loadSNA128K(data []byte) error {
	m.loadSNARegisters(data)

	extra := snaHeaderSize + snaRAMSize
	pc128 := uint16(data[extra]) | uint16(data[extra+1])<<8
	pagingReg := data[extra+2]
	currentBank := int(pagingReg & 0x07)

	ramData := data[snaHeaderSize:]

	for i := 0; i < snaMemPageSize; i++ {
		m.Mem.WriteDirectRAM(5, uint16(i), ramData[i])
	}
	for i := 0; i < snaMemPageSize; i++ {
		m.Mem.WriteDirectRAM(2, uint16(i), ramData[snaMemPageSize+i])
	}
	for i := 0; i < snaMemPageSize; i++ {
		m.Mem.WriteDirectRAM(currentBank, uint16(i), ramData[2*snaMemPageSize+i])
	}

	bankOffset := extra + 4
	for bank := 0; bank < 8; bank++ {
		if bank == 5 || bank == 2 || bank == currentBank {
			continue
		}
		for i := 0; i < snaMemPageSize; i++ {
			m.Mem.WriteDirectRAM(bank, uint16(i), data[bankOffset+i])
		}
		bankOffset += snaMemPageSize
	}

	m.Mem.WritePagingPort(pagingReg)
	m.CPU.PC = pc128

	return nil
}

// SaveSNA writes the machine's state as a .sna image (48K) or extended
// .sna image (128K/+2/+2A), per the format SNALoader::load reads back.
// For 48K, the snapshot's SP is pushed down by one word (two bytes) and
// PC stored there,
// mirroring the original's "PC recovered from the stack" convention -
// a real SNA has no dedicated PC field for 48K images.
func (m *Machine) SaveSNA() []byte {
	if !m.Info.HasPaging {
		return m.saveSNA48K()
	}
	return m.saveSNA128K()
}

func (m *Machine) saveSNAHeader(sp uint16) []byte {
	cpu := m.CPU
	header := make([]byte, snaHeaderSize)
	header[0] = cpu.I
	header[1], header[2] = cpu.L2, cpu.H2
	header[3], header[4] = cpu.E2, cpu.D2
	header[5], header[6] = cpu.C2, cpu.B2
	header[7], header[8] = cpu.F2, cpu.A2
	header[9], header[10] = uint8(cpu.HL()), uint8(cpu.HL()>>8)
	header[11], header[12] = uint8(cpu.DE()), uint8(cpu.DE()>>8)
	header[13], header[14] = uint8(cpu.BC()), uint8(cpu.BC()>>8)
	header[15], header[16] = uint8(cpu.IY), uint8(cpu.IY>>8)
	header[17], header[18] = uint8(cpu.IX), uint8(cpu.IX>>8)
	if cpu.IFF2 {
		header[19] = 0x04
	}
	header[20] = cpu.R
	header[21], header[22] = uint8(cpu.AF()), uint8(cpu.AF()>>8)
	header[23], header[24] = uint8(sp), uint8(sp>>8)
	header[25] = cpu.IM
	header[26] = m.BorderColor()
	return header
}

func (m *Machine) saveSNA48K() []byte {
	sp := m.CPU.SP - 2
	out := m.saveSNAHeader(sp)
	for i := 0; i < snaRAMSize; i++ {
		out = append(out, m.DebugRead(uint16(0x4000+i)))
	}
	pc := m.CPU.PC
	for i, b := range []uint8{uint8(pc), uint8(pc >> 8)} {
		if addr := sp + uint16(i); addr >= 0x4000 {
			out[snaHeaderSize+int(addr-0x4000)] = b
		}
	}
	return out
}

func (m *Machine) saveSNA128K() []byte {
	pagingReg := m.Mem.PagingRegister()
	currentBank := int(pagingReg & 0x07)

	out := m.saveSNAHeader(m.CPU.SP)

	for i := 0; i < snaMemPageSize; i++ {
		out = append(out, m.Mem.ReadDirectRAM(5, uint16(i)))
	}
	for i := 0; i < snaMemPageSize; i++ {
		out = append(out, m.Mem.ReadDirectRAM(2, uint16(i)))
	}
	for i := 0; i < snaMemPageSize; i++ {
		out = append(out, m.Mem.ReadDirectRAM(currentBank, uint16(i)))
	}

	pc := m.CPU.PC
	out = append(out, uint8(pc), uint8(pc>>8), pagingReg, 0)

	for bank := 0; bank < 8; bank++ {
		if bank == 5 || bank == 2 || bank == currentBank {
			continue
		}
		for i := 0; i < snaMemPageSize; i++ {
			out = append(out, m.Mem.ReadDirectRAM(bank, uint16(i)))
		}
	}

	return out
}
