package zxcore

import "github.com/pkg/errors"

// Z80 snapshot format (v1/v2/v3) loading/saving. The 48K path below is
// ported directly from
// original_source/src/machines/loaders/z80_loader.cpp, including its
// RLE scheme (extractMemoryBlock) and version/hardware-type detection.
//
// The source's v2/v3 loader explicitly rejects every hardware type
// except 48K (`if (!is48K) return false`), so it has nothing to port
// for 128K/+2/+2A. The page-id-to-bank table below (pageId 3-10 ->
// RAM banks 0-7, pageId 8 doubling as the always-present 0x4000
// screen page on 48K but meaning bank 5 on 128K+) is the well-known
// Z80-format convention used by every machine that reads this format;
// it is supplied from that convention rather than from source, since
// none exists for it here.
const (
	z80MinHeaderSize = 30
	z80RAM48K        = 0xC000
	z80MemPageSize   = 16384
)

const (
	z80HWV2_48K     = 0
	z80HWV2_48KIF1  = 1
	z80HWV3_48K     = 0
	z80HWV3_48KIF1  = 1
	z80HWV3_48KMGT  = 3
)

// LoadZ80 restores machine state from a .z80 (v1/v2/v3) image.
func (m *Machine) LoadZ80(data []byte) error {
	if len(data) < z80MinHeaderSize {
		return errors.New("zxcore: Z80 image shorter than minimum header")
	}

	pcFromHeader := uint16(data[6]) | uint16(data[7])<<8
	var version int
	var pc uint16
	var additionalHeaderLength uint16

	if pcFromHeader != 0 {
		version = 1
		pc = pcFromHeader
	} else {
		if len(data) < 32 {
			return errors.New("zxcore: truncated Z80 v2/v3 header")
		}
		additionalHeaderLength = uint16(data[30]) | uint16(data[31])<<8
		switch additionalHeaderLength {
		case 23:
			version = 2
		case 54, 55:
			version = 3
		default:
			return errors.Errorf("zxcore: unrecognized Z80 additional header length %d", additionalHeaderLength)
		}
		if len(data) < 34 {
			return errors.New("zxcore: truncated Z80 v2/v3 header")
		}
		pc = uint16(data[32]) | uint16(data[33])<<8
		if len(data) < 35 {
			return errors.New("zxcore: truncated Z80 v2/v3 hardware byte")
		}
		hw := data[34]
		is48K := hw == z80HWV2_48K || hw == z80HWV2_48KIF1
		if version == 3 {
			is48K = hw == z80HWV3_48K || hw == z80HWV3_48KIF1 || hw == z80HWV3_48KMGT
		}
		if !is48K && !m.Info.HasPaging {
			return errUnsupportedMachine
		}
	}

	cpu := m.CPU
	cpu.A = data[0]
	cpu.F = data[1]
	cpu.SetBC(uint16(data[2]) | uint16(data[3])<<8)
	cpu.SetHL(uint16(data[4]) | uint16(data[5])<<8)
	cpu.PC = pc
	cpu.SP = uint16(data[8]) | uint16(data[9])<<8
	cpu.I = data[10]

	byte12 := data[12]
	if byte12 == 255 {
		byte12 = 1
	}
	cpu.R = (data[11] & 0x7F) | ((byte12 & 1) << 7)
	m.SetBorderColor((byte12 >> 1) & 0x07)

	v1Compressed := byte12&0x20 != 0

	cpu.SetDE(uint16(data[13]) | uint16(data[14])<<8)
	cpu.C2, cpu.B2 = data[15], data[16]
	cpu.E2, cpu.D2 = data[17], data[18]
	cpu.L2, cpu.H2 = data[19], data[20]
	cpu.A2 = data[21]
	cpu.F2 = data[22]
	cpu.IY = uint16(data[23]) | uint16(data[24])<<8
	cpu.IX = uint16(data[25]) | uint16(data[26])<<8
	cpu.IFF1 = data[27]&1 != 0
	cpu.IFF2 = data[28]&1 != 0
	cpu.IM = data[29] & 3

	switch version {
	case 1:
		buf := extractMemoryBlock(data, 30, v1Compressed, z80RAM48K)
		for i := 0; i < z80RAM48K && i < len(buf); i++ {
			m.DebugWrite(uint16(0x4000+i), buf[i])
		}
		return nil

	default: // 2, 3
		if len(data) < 35 {
			return errors.New("zxcore: truncated Z80 v2/v3 hardware byte")
		}
		hardwareType := data[34]

		var is48K bool
		if version == 2 {
			is48K = hardwareType == z80HWV2_48K || hardwareType == z80HWV2_48KIF1
		} else {
			is48K = hardwareType == z80HWV3_48K || hardwareType == z80HWV3_48KIF1 || hardwareType == z80HWV3_48KMGT
		}

		offset := int(32 + additionalHeaderLength)
		if is48K {
			return m.loadZ80Pages48K(data, offset)
		}

		if !m.Info.HasPaging {
			return errUnsupportedMachine
		}

		pagingReg := byte(0)
		if len(data) > 35 {
			pagingReg = data[35]
		}
		m.Mem.WritePagingPort(pagingReg)
		return m.loadZ80Pages128K(data, offset)
	}
}

func (m *Machine) loadZ80Pages48K(data []byte, offset int) error {
	for offset < len(data) {
		if offset+3 > len(data) {
			break
		}
		compressedLength := uint16(data[offset]) | uint16(data[offset+1])<<8
		isCompressed := true
		if compressedLength == 0xFFFF {
			compressedLength = 0x4000
			isCompressed = false
		}
		pageID := data[offset+2]

		var baseAddr uint16
		switch pageID {
		case 8:
			baseAddr = 0x4000
		case 4:
			baseAddr = 0x8000
		case 5:
			baseAddr = 0xC000
		}

		if baseAddr != 0 {
			buf := extractMemoryBlock(data, offset+3, isCompressed, z80MemPageSize)
			for i := 0; i < z80MemPageSize && i < len(buf); i++ {
				m.DebugWrite(baseAddr+uint16(i), buf[i])
			}
		}

		offset += int(compressedLength) + 3
	}
	return nil
}

// loadZ80Pages128K supplements the source (which rejects any non-48K
// image outright) using the standard Z80-format page-id table: 3-10
// map to RAM banks 0-7 in order.
func (m *Machine) loadZ80Pages128K(data []byte, offset int) error {
	for offset < len(data) {
		if offset+3 > len(data) {
			break
		}
		compressedLength := uint16(data[offset]) | uint16(data[offset+1])<<8
		isCompressed := true
		if compressedLength == 0xFFFF {
			compressedLength = 0x4000
			isCompressed = false
		}
		pageID := data[offset+2]

		if pageID >= 3 && pageID <= 10 {
			bank := int(pageID) - 3
			buf := extractMemoryBlock(data, offset+3, isCompressed, z80MemPageSize)
			for i := 0; i < z80MemPageSize && i < len(buf); i++ {
				m.Mem.WriteDirectRAM(bank, uint16(i), buf[i])
			}
		}

		offset += int(compressedLength) + 3
	}
	return nil
}

// SaveZ80 writes a v3 Z80 snapshot, pages uncompressed, per
// Z80Saver::save. It always succeeds for a constructed *Machine; the
// error return exists for the host-binding contract's sake and for any
// future variant that needs to reject an unsupported configuration.
func (m *Machine) SaveZ80() ([]byte, error) {
	const (
		mainHeaderSize       = 30
		additionalHeaderSize = 54
		totalHeaderSize      = mainHeaderSize + 2 + additionalHeaderSize
	)

	is128K := m.Info.HasPaging
	pageCount := 3
	if is128K {
		pageCount = 8
	}
	buffer := make([]byte, totalHeaderSize+pageCount*(3+z80MemPageSize))

	cpu := m.CPU
	buffer[0], buffer[1] = cpu.A, cpu.F
	writeLE16Z80(buffer[2:], cpu.BC())
	writeLE16Z80(buffer[4:], cpu.HL())
	writeLE16Z80(buffer[6:], 0) // PC=0 signals v2/v3
	writeLE16Z80(buffer[8:], cpu.SP)
	buffer[10] = cpu.I

	r := cpu.R
	buffer[11] = r & 0x7F

	byte12 := (r >> 7) & 0x01
	byte12 |= (m.BorderColor() << 1) & 0x0E
	buffer[12] = byte12

	writeLE16Z80(buffer[13:], cpu.DE())

	altAF := uint16(cpu.A2)<<8 | uint16(cpu.F2)
	altBC := uint16(cpu.B2)<<8 | uint16(cpu.C2)
	altDE := uint16(cpu.D2)<<8 | uint16(cpu.E2)
	altHL := uint16(cpu.H2)<<8 | uint16(cpu.L2)

	writeLE16Z80(buffer[15:], altBC)
	writeLE16Z80(buffer[17:], altDE)
	writeLE16Z80(buffer[19:], altHL)

	buffer[21], buffer[22] = uint8(altAF>>8), uint8(altAF)

	writeLE16Z80(buffer[23:], cpu.IY)
	writeLE16Z80(buffer[25:], cpu.IX)

	if cpu.IFF1 {
		buffer[27] = 1
	}
	if cpu.IFF2 {
		buffer[28] = 1
	}
	buffer[29] = cpu.IM & 3

	writeLE16Z80(buffer[30:], additionalHeaderSize)
	writeLE16Z80(buffer[32:], cpu.PC)

	if is128K {
		buffer[34] = 4
	}
	buffer[35] = m.Mem.PagingRegister()

	offset := totalHeaderSize

	if is128K {
		for bank := 0; bank < 8; bank++ {
			writeLE16Z80(buffer[offset:], 0xFFFF)
			buffer[offset+2] = uint8(bank + 3)
			offset += 3
			for i := 0; i < z80MemPageSize; i++ {
				buffer[offset+i] = m.Mem.ReadDirectRAM(bank, uint16(i))
			}
			offset += z80MemPageSize
		}
	} else {
		pages := []struct {
			pageID  uint8
			baseAdr uint16
		}{
			{8, 0x4000},
			{4, 0x8000},
			{5, 0xC000},
		}
		for _, p := range pages {
			writeLE16Z80(buffer[offset:], 0xFFFF)
			buffer[offset+2] = p.pageID
			offset += 3
			for i := 0; i < z80MemPageSize; i++ {
				buffer[offset+i] = m.DebugRead(p.baseAdr + uint16(i))
			}
			offset += z80MemPageSize
		}
	}

	return buffer[:offset], nil
}

func writeLE16Z80(dst []byte, value uint16) {
	dst[0] = uint8(value)
	dst[1] = uint8(value >> 8)
}

// extractMemoryBlock decompresses (or copies) a Z80-format memory
// block: the `0xED 0xED count value` RLE escape, ported verbatim from
// Z80Loader::extractMemoryBlock.
func extractMemoryBlock(data []byte, fileOffset int, isCompressed bool, unpackedLength int) []byte {
	dest := make([]byte, 0, unpackedLength)
	filePtr := fileOffset
	dataSize := len(data)

	if !isCompressed {
		for len(dest) < unpackedLength && filePtr < dataSize {
			dest = append(dest, data[filePtr])
			filePtr++
		}
		return dest
	}

	for len(dest) < unpackedLength && filePtr < dataSize {
		byte1 := data[filePtr]
		if byte1 == 0xED && filePtr+1 < dataSize {
			byte2 := data[filePtr+1]
			if byte2 == 0xED {
				if filePtr+3 < dataSize {
					count := data[filePtr+2]
					value := data[filePtr+3]
					for i := uint8(0); i < count && len(dest) < unpackedLength; i++ {
						dest = append(dest, value)
					}
					filePtr += 4
					continue
				}
				return dest
			}
		}
		dest = append(dest, byte1)
		filePtr++
	}
	return dest
}
