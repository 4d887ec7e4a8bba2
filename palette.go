package zxcore

// The 16-entry ZX Spectrum colour table (8 normal + 8 bright), carried
// over as packed 32-bit pixel values straight from
// original_source/src/core/palette.hpp so every consumer - display,
// any future software renderer - agrees on the exact RGBA bytes.
var spectrumColors = [16]uint32{
	0xFF000000, // 0: black
	0xFFC20000, // 1: blue
	0xFF0000C2, // 2: red
	0xFFC200C2, // 3: magenta
	0xFF00C200, // 4: green
	0xFFC2C200, // 5: cyan
	0xFF00C2C2, // 6: yellow
	0xFFC2C2C2, // 7: white
	0xFF000000, // 8: black (bright)
	0xFFFF0000, // 9: bright blue
	0xFF0000FF, // 10: bright red
	0xFFFF00FF, // 11: bright magenta
	0xFF00FF00, // 12: bright green
	0xFFFFFF00, // 13: bright cyan
	0xFF00FFFF, // 14: bright yellow
	0xFFFFFFFF, // 15: bright white
}
