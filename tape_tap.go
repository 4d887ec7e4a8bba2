package zxcore

import "github.com/pkg/errors"

// TAP format parsing. Ported from
// original_source/src/machines/loaders/tap_loader.cpp: a flat sequence
// of [u16 length][length bytes] records, each one becoming a
// TapeBlock with the standard ROM pilot/sync/bit timings (the TAP
// format carries no timing information of its own).

// LoadTAP parses a .tap image and installs it, stopped (matching the
// source's ZXSpectrum::reset leaving tapePulseActive_ false on load).
func (t *TapeDeck) LoadTAP(data []byte) error {
	if len(data) < 2 {
		return errors.New("zxcore: TAP image too short")
	}
	blocks, err := parseTAPBlocks(data)
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		return errors.New("zxcore: TAP image contains no blocks")
	}
	t.loadBlocks(blocks, false)
	t.loadWarning = ""
	return nil
}

func parseTAPBlocks(data []byte) ([]TapeBlock, error) {
	var blocks []TapeBlock
	offset := 0
	for offset+2 <= len(data) {
		blockLen := int(data[offset]) | int(data[offset+1])<<8
		offset += 2
		if blockLen == 0 {
			continue
		}
		if offset+blockLen > len(data) {
			return nil, errors.New("zxcore: TAP block length runs past end of image")
		}
		tb := defaultTapeBlock()
		tb.Data = append([]byte(nil), data[offset:offset+blockLen]...)
		blocks = append(blocks, tb)
		offset += blockLen
	}
	return blocks, nil
}
