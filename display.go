package zxcore

// Display renders the ULA's video output T-state by T-state. Ported
// from original_source/src/machines/display.cpp (confirmed, like
// contention.go, to be the implementation actually wired into the
// machine) and restructured into idiomatic Go: precomputed tables
// stay precomputed, but the per-T-state loop is driven by the
// Machine calling Advance(before, after) once per instruction rather
// than display pulling tstates out of thin air.

type displayAction uint8

const (
	actionRetrace displayAction = iota
	actionBorder
	actionPaper
)

// Framebuffer is a packed RGBA image, row-major, totalWidth x
// totalHeight pixels.
type Framebuffer struct {
	Width, Height int
	Pix           []uint32
}

type Display struct {
	scanlines      uint32
	tsPerScanline  uint32
	paperStartLine uint32

	lineAddr [192]uint16
	action   [][]displayAction // [line][ts]

	currentTs   uint32
	bufIndex    int
	frameCount  uint32
	borderColor uint8

	fb Framebuffer

	// screenRAM returns the 6912 bytes of the currently paged-in
	// screen bank (bitmap + attributes); wired by the Machine since
	// only it knows which RAM bank is the active screen.
	screenRAM func() []byte
}

func NewDisplay(info MachineInfo) *Display {
	d := &Display{
		scanlines:      info.PxVerticalTotal,
		tsPerScanline:  info.TSPerLine,
		paperStartLine: info.PxVerticalBlank + info.PxVertBorder,
	}
	d.fb = Framebuffer{Width: totalWidth, Height: totalHeight, Pix: make([]uint32, totalWidth*totalHeight)}
	d.buildLineAddressTable()
	d.buildActionTable(info)
	return d
}

func (d *Display) SetScreenSource(f func() []byte) { d.screenRAM = f }

func (d *Display) buildLineAddressTable() {
	for i := uint32(0); i < 3; i++ {
		for j := uint32(0); j < 8; j++ {
			for k := uint32(0); k < 8; k++ {
				d.lineAddr[(i<<6)+(j<<3)+k] = uint16((i << 11) + (j << 5) + (k << 8))
			}
		}
	}
}

func (d *Display) buildActionTable(info MachineInfo) {
	d.action = make([][]displayAction, d.scanlines)
	for i := range d.action {
		d.action[i] = make([]displayAction, d.tsPerScanline)
	}

	tsLeftBorderEnd := info.PxEmuBorder / 2
	tsRightBorderStart := tsLeftBorderEnd + info.TSHorizontalDisplay
	tsRightBorderEnd := tsRightBorderStart + info.PxEmuBorder/2

	paperStart := d.paperStartLine
	paperEnd := paperStart + screenHeight
	bottomBorderEnd := paperEnd + borderBottom
	topBorderVisible := paperStart - borderTop

	for line := uint32(0); line < d.scanlines; line++ {
		for ts := uint32(0); ts < d.tsPerScanline; ts++ {
			d.action[line][ts] = actionRetrace

			if line < info.PxVerticalBlank {
				continue
			}
			switch {
			case line >= info.PxVerticalBlank && line < paperStart:
				if ts >= tsRightBorderEnd || line < topBorderVisible {
					continue
				}
				d.action[line][ts] = actionBorder
			case line >= paperStart && line < paperEnd:
				switch {
				case ts < tsLeftBorderEnd || (ts >= tsRightBorderStart && ts < tsRightBorderEnd):
					d.action[line][ts] = actionBorder
				case ts >= tsRightBorderEnd:
					continue
				default:
					d.action[line][ts] = actionPaper
				}
			case line >= paperEnd && line < bottomBorderEnd:
				if ts >= tsRightBorderEnd {
					continue
				}
				d.action[line][ts] = actionBorder
			}
		}
	}
}

func (d *Display) Reset() {
	d.currentTs = 0
	d.bufIndex = 0
	d.frameCount = 0
	d.borderColor = 0
}

func (d *Display) SetBorder(col uint8) { d.borderColor = col }

// Advance renders whatever the T-state window [before, after) covers.
// Called once per CPU instruction by the Machine's frame loop.
func (d *Display) Advance(before, after uint32) {
	if after <= before {
		return
	}
	d.updateWithTs(after - before)
}

func (d *Display) updateWithTs(tStates uint32) {
	var mem []byte
	if d.screenRAM != nil {
		mem = d.screenRAM()
	}
	flashMask := uint8(0)
	if d.frameCount&0x10 != 0 {
		flashMask = 0xFF
	}
	tsLeftBorderEnd := uint32(32 / 2) // PX_EMU_BORDER_H/2, matches machineTable's PxEmuBorder=32

	for tStates > 0 {
		line := d.currentTs / d.tsPerScanline
		ts := d.currentTs % d.tsPerScanline
		if line >= d.scanlines {
			break
		}

		switch d.action[line][ts] {
		case actionBorder:
			color := spectrumColors[d.borderColor]
			for i := 0; i < 8; i++ {
				d.fb.Pix[d.bufIndex+i] = color
			}
			d.bufIndex += 8
		case actionPaper:
			y := line - d.paperStartLine
			x := ts/tstatesPerChar - tsLeftBorderEnd/tstatesPerChar

			pixelAddr := d.lineAddr[y] + uint16(x)
			attrAddr := 6144 + ((y >> 3) << 5) + x

			var pixelByte, attrByte uint8
			if mem != nil && int(pixelAddr) < len(mem) && int(attrAddr) < len(mem) {
				pixelByte = mem[pixelAddr]
				attrByte = mem[attrAddr]
			}

			flash := attrByte&0x80 != 0
			bright := attrByte&0x40 != 0
			ink := attrByte & 0x07
			paper := (attrByte >> 3) & 0x07
			if flash && flashMask != 0 {
				ink, paper = paper, ink
			}

			brightOffset := uint8(0)
			if bright {
				brightOffset = 8
			}
			inkRGBA := spectrumColors[ink+brightOffset]
			paperRGBA := spectrumColors[paper+brightOffset]

			for bit := 7; bit >= 0; bit-- {
				if pixelByte&(1<<uint(bit)) != 0 {
					d.fb.Pix[d.bufIndex] = inkRGBA
				} else {
					d.fb.Pix[d.bufIndex] = paperRGBA
				}
				d.bufIndex++
			}
		}

		d.currentTs += tstatesPerChar
		tStates -= tstatesPerChar
	}
}

// Bytes returns the framebuffer as packed little-endian RGBA bytes,
// for hosts that want a []byte rather than a []uint32 pixel view.
func (f *Framebuffer) Bytes() []byte {
	out := make([]byte, len(f.Pix)*4)
	for i, px := range f.Pix {
		out[i*4+0] = uint8(px)
		out[i*4+1] = uint8(px >> 8)
		out[i*4+2] = uint8(px >> 16)
		out[i*4+3] = uint8(px >> 24)
	}
	return out
}

// Framebuffer returns the rendered frame and resets the render cursor
// for the next one; called once per RunFrame.
func (d *Display) Framebuffer() *Framebuffer {
	d.currentTs = 0
	d.bufIndex = 0
	d.frameCount++
	out := d.fb
	return &out
}

// FloatingBusByte returns the byte value the ULA drives onto the data
// bus during an unmapped IO read while it is itself fetching a
// display byte - only observable on machines without paging tricks
// hiding it, and only during the active paper window.
func (d *Display) FloatingBusByte(cpuTs uint32) uint8 {
	var mem []byte
	if d.screenRAM != nil {
		mem = d.screenRAM()
	}
	if mem == nil {
		return 0xFF
	}
	bitmapSize := uint32((screenWidth / 8) * screenHeight)

	line := cpuTs / d.tsPerScanline
	ts := cpuTs % d.tsPerScanline

	if line >= d.paperStartLine && line < d.paperStartLine+screenHeight && ts < tsHorizontalDisplay {
		y := line - d.paperStartLine
		x := ts >> 2
		switch ts % 8 {
		case 3, 5:
			idx := bitmapSize + (y>>3)<<5 + x
			if int(idx) < len(mem) {
				return mem[idx]
			}
		case 2, 4:
			idx := uint32(d.lineAddr[y]) + x
			if int(idx) < len(mem) {
				return mem[idx]
			}
		}
		return 0xFF
	}
	return 0xFF
}
