package zxcore

// MachineKind identifies one of the four supported Spectrum variants.
type MachineKind int

const (
	ZX48K MachineKind = iota
	ZX128K
	ZX128K2
	ZX128K2A
)

// MachineInfo holds the per-variant timing and geometry constants that
// the distilled specification leaves as prose. Transcribed directly
// from original_source/src/machines/machine_info.hpp's machines[]
// table (itself modelled on SpectREMCPP's MachineInfo.h) - this is the
// single authoritative source every other component consults instead
// of hardcoding per-model numbers.
type MachineInfo struct {
	IntLength           uint32
	TSPerFrame          uint32
	TSToOrigin          uint32
	TSPerLine           uint32
	TSTopBorder         uint32
	TSVerticalBlank     uint32
	TSVerticalDisplay   uint32
	TSHorizontalDisplay uint32
	TSPerChar           uint32
	PxVertBorder        uint32
	PxVerticalBlank     uint32
	PxHorizontalDisplay uint32
	PxVerticalDisplay   uint32
	PxHorizontalTotal   uint32
	PxVerticalTotal     uint32
	PxEmuBorder         uint32
	HasAY               bool
	HasPaging           bool
	BorderDrawingOffset uint32
	PaperDrawingOffset  uint32
	ROMSize             uint32
	RAMSize             uint32
	FloatBusAdjust      int32
	Name                string
	Kind                MachineKind
}

var machineTable = [4]MachineInfo{
	{32, 69888, 14335, 224, 12544, 1792, 43008, 128, 4, 56, 8, 256, 192, 448, 312, 32, false, false, 10, 16, 16384, 65536, -1, "ZX Spectrum 48K", ZX48K},
	{36, 70908, 14361, 228, 12768, 1596, 43776, 128, 4, 56, 7, 256, 192, 448, 311, 32, true, true, 12, 16, 32768, 131072, 1, "ZX Spectrum 128K", ZX128K},
	{36, 70908, 14361, 228, 12768, 1596, 43776, 128, 4, 56, 7, 256, 192, 448, 311, 32, true, true, 12, 16, 32768, 131072, 1, "ZX Spectrum 128K +2", ZX128K2},
	{32, 70908, 14364, 228, 12768, 1596, 43776, 128, 4, 56, 7, 256, 192, 448, 311, 32, true, true, 12, 16, 65536, 131072, 1, "ZX Spectrum 128K +2A", ZX128K2A},
}

func InfoFor(kind MachineKind) MachineInfo { return machineTable[kind] }

const (
	maxScanlines         = 312
	maxTSPerLine         = 228
	maxTStatesPerFrame   = 71000
	screenWidth          = 256
	screenHeight         = 192
	borderTop            = 32
	borderBottom         = 32
	borderLeft           = 32
	borderRight          = 32
	totalWidth           = 320
	totalHeight          = 256
	audioSampleRateHz    = 48000
	cpuClockHz           = 3500000.0
	memPageSize          = 16384
	displayRetrace       = 0
	displayBorder        = 1
	displayPaper         = 2
	tsHorizontalDisplay  = 128
	tstatesPerChar       = 4
)

var ulaContentionValues = [8]uint32{6, 5, 4, 3, 2, 1, 0, 0}
