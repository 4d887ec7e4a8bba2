package zxcore

// ULA memory/IO contention model. Ported from
// original_source/src/machines/contention.cpp's ULAContention class
// (confirmed, via zx_spectrum.hpp's includes, to be the multi-machine
// implementation actually wired into the machine - not the superseded
// src/core/ula/ one) and restructured into idiomatic Go rather than
// transliterated line-by-line.

type ContentionTable struct {
	tsPerFrame    uint32
	tsPerScanline uint32
	tsToOrigin    uint32

	memory []uint32
	io     []uint32
}

// NewContentionTable builds the per-T-state stall tables for the given
// machine variant. Entries are zero everywhere except the 128 T-state
// paper-fetch window of the 192 active display lines, where they
// follow the repeating 6,5,4,3,2,1,0,0 pattern.
func NewContentionTable(info MachineInfo) *ContentionTable {
	t := &ContentionTable{
		tsPerFrame:    info.TSPerFrame,
		tsPerScanline: info.TSPerLine,
		tsToOrigin:    info.TSToOrigin,
	}
	t.memory = make([]uint32, info.TSPerFrame+1)
	t.io = make([]uint32, info.TSPerFrame+1)

	for i := uint32(0); i <= info.TSPerFrame; i++ {
		if i < t.tsToOrigin {
			continue
		}
		rel := i - t.tsToOrigin
		line := rel / t.tsPerScanline
		ts := rel % t.tsPerScanline
		if line < screenHeight && ts < tsHorizontalDisplay {
			v := ulaContentionValues[ts&0x07]
			t.memory[i] = v
			t.io[i] = v
		}
	}
	return t
}

func (t *ContentionTable) MemoryContention(tstates uint32) uint32 {
	return t.memory[tstates%t.tsPerFrame]
}

func (t *ContentionTable) IOContention(tstates uint32) uint32 {
	return t.io[tstates%t.tsPerFrame]
}

// ApplyIOContention implements the four IN/OUT timing sequences - the
// single source of truth for IO timing, shared by every variant:
//
//	contended,  even port: C:1, C:3
//	contended,  odd port:  C:1, C:1, C:1, C:1
//	uncontended,even port: N:1, C:3
//	uncontended,odd port:  N:4
//
// where C:n means "consult the contention table at the current T-state,
// add its stall, then add n" and N:n means "just add n". tstates is the
// CPU's T-state counter at the start of the IO cycle. Returns the total
// T-states the cycle consumes.
func (t *ContentionTable) ApplyIOContention(tstates uint32, contended, evenPort bool) uint32 {
	var total uint32
	contend := func(n uint32) {
		total += t.IOContention(tstates + total)
		total += n
	}
	switch {
	case contended && evenPort:
		contend(1)
		contend(3)
	case contended && !evenPort:
		contend(1)
		contend(1)
		contend(1)
		contend(1)
	case !contended && evenPort:
		total++
		contend(3)
	default:
		total += 4
	}
	return total
}
