package zxcore

// Paged memory model. Grounded on the teacher's legacy/memory_bus.go
// (the SystemBus page-mapping idea), generalized from a 32-bit flat bus
// with registered IO regions to the fixed 16KiB-page layout a real
// Spectrum exposes: four CPU-visible slots, each pointing at one
// physical page drawn from ROM or RAM. No mutex - single-threaded, per
// the CPU's own concurrency model.
//
// 48K machines wire the four slots once, at reset, and never move
// them again. 128K/+2/+2A machines repage slot 3 (and the ROM half of
// slot 0) on every write to port 0x7FFD, until the paging lock (bit 5)
// latches the configuration for the rest of the session.

type pageKind int

const (
	pageROM pageKind = iota
	pageRAM
)

type page struct {
	kind pageKind
	data []byte
}

// Memory owns every physical ROM and RAM page and the four slot
// pointers the CPU actually reads and writes through.
type Memory struct {
	kind MachineKind

	rom []page // one page per 16KiB ROM image
	ram []page // one page per 16KiB RAM bank

	slot [4]*page

	pagingLocked  bool
	romPage       int // which ROM page is paged into slot 0 (128K: 0 or 1)
	ramPage       int // which RAM bank is paged into slot 3
	shadowScreen  bool
	disableAY     bool // +2A special-paging bit, latched but unused by sound routing directly
}

// NewMemory builds the page set for kind. romImages is one 16KiB image
// per ROM (48K ships one, 128K/+2 ship two, +2A ships four); missing
// images are left zeroed so booting without ROMs still produces a
// coherent (if silent) machine rather than a crash.
func NewMemory(kind MachineKind, romImages [][]byte) *Memory {
	info := InfoFor(kind)
	m := &Memory{kind: kind}

	numROMPages := len(romImages)
	if numROMPages == 0 {
		numROMPages = 1
	}
	m.rom = make([]page, numROMPages)
	for i := range m.rom {
		m.rom[i] = page{kind: pageROM, data: make([]byte, memPageSize)}
		if i < len(romImages) {
			copy(m.rom[i].data, romImages[i])
		}
	}

	numRAMPages := int(info.RAMSize / memPageSize)
	m.ram = make([]page, numRAMPages)
	for i := range m.ram {
		m.ram[i] = page{kind: pageRAM, data: make([]byte, memPageSize)}
	}

	m.resetPaging()
	return m
}

func (m *Memory) resetPaging() {
	m.pagingLocked = false
	m.romPage = 0
	m.ramPage = 0
	m.shadowScreen = false
	m.disableAY = false
	m.wireSlots()
}

// wireSlots points the four CPU-visible slots at the physical pages the
// current paging configuration selects. 48K is fixed: ROM0, RAM5,
// RAM2, RAM0. 128K+ follows the teacher layout but slot 3 and the ROM
// half of slot 0 move per the last unlocked write to 0x7FFD.
func (m *Memory) wireSlots() {
	m.slot[0] = &m.rom[m.romPage%len(m.rom)]
	m.slot[1] = &m.ram[5%len(m.ram)]
	m.slot[2] = &m.ram[2%len(m.ram)]
	m.slot[3] = &m.ram[m.ramPage%len(m.ram)]
}

func (m *Memory) Read(addr uint16) uint8 {
	slot := m.slot[addr>>14]
	return slot.data[addr&0x3FFF]
}

func (m *Memory) Write(addr uint16, v uint8) {
	slot := m.slot[addr>>14]
	if slot.kind == pageROM {
		return
	}
	slot.data[addr&0x3FFF] = v
}

// ReadDirect/WriteDirect bypass the paging model for debugger/snapshot
// access to a specific physical RAM bank, addressed 0-based.
func (m *Memory) ReadDirectRAM(bank int, offset uint16) uint8 {
	return m.ram[bank%len(m.ram)].data[offset&0x3FFF]
}

func (m *Memory) WriteDirectRAM(bank int, offset uint16, v uint8) {
	m.ram[bank%len(m.ram)].data[offset&0x3FFF] = v
}

func (m *Memory) ReadDirectROM(bank int, offset uint16) uint8 {
	return m.rom[bank%len(m.rom)].data[offset&0x3FFF]
}

func (m *Memory) WriteDirectROM(bank int, offset uint16, v uint8) {
	m.rom[bank%len(m.rom)].data[offset&0x3FFF] = v
}

// WritePagingPort applies a write to port 0x7FFD (128K/+2/+2A memory
// paging). Ignored once the lock bit has latched, and never wired at
// all for a 48K machine (no HasPaging).
func (m *Memory) WritePagingPort(v uint8) {
	if m.pagingLocked {
		return
	}
	m.ramPage = int(v & 0x07)
	m.shadowScreen = v&0x08 != 0
	m.romPage = int((v >> 4) & 0x01)
	if v&0x20 != 0 {
		m.pagingLocked = true
	}
	m.wireSlots()
}

// CurrentROMPage returns which ROM image is paged into slot 0 (always
// 0 on 48K; 0 or 1 on 128K/+2/+2A per the paging latch's bit 4).
func (m *Memory) CurrentROMPage() int { return m.romPage }

// PagingRegister reconstructs the last value written to port 0x7FFD,
// for snapshot saving.
func (m *Memory) PagingRegister() uint8 {
	v := uint8(m.ramPage & 0x07)
	if m.shadowScreen {
		v |= 0x08
	}
	if m.romPage != 0 {
		v |= 0x10
	}
	if m.pagingLocked {
		v |= 0x20
	}
	return v
}

// ScreenBank returns the RAM bank (5 or 7) the display should currently
// render from - bank 7 only reachable on 128K+ via the shadow-screen
// paging bit.
func (m *Memory) ScreenBank() int {
	if m.shadowScreen {
		return 7 % len(m.ram)
	}
	return 5 % len(m.ram)
}

// IsContended reports whether addr falls in a RAM bank contended by
// the ULA: on 48K, only the page wired into slot 1 (0x4000-0x7FFF);
// on 128K+, odd-numbered RAM banks (1,3,5,7).
func (m *Memory) IsContended(addr uint16) bool {
	slot := m.slot[addr>>14]
	if slot.kind == pageROM {
		return false
	}
	for i := range m.ram {
		if slot == &m.ram[i] {
			if !InfoFor(m.kind).HasPaging {
				return i == 5%len(m.ram)
			}
			return i%2 == 1
		}
	}
	return false
}
