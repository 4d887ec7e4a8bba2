package zxcore

import "testing"

func TestLoadTAPParsesBlocks(t *testing.T) {
	// Two blocks: a 2-byte block, then a 3-byte block.
	data := []byte{
		0x02, 0x00, 0xAA, 0xBB,
		0x03, 0x00, 0x01, 0x02, 0x03,
	}
	td := NewTapeDeck()
	if err := td.LoadTAP(data); err != nil {
		t.Fatalf("LoadTAP failed: %v", err)
	}
	if td.BlockCount() != 2 {
		t.Fatalf("BlockCount = %d, want 2", td.BlockCount())
	}
	if !td.IsLoaded() {
		t.Fatalf("expected tape loaded after LoadTAP")
	}
	if td.IsPlaying() {
		t.Fatalf("expected tape stopped after load, not playing")
	}
}

func TestLoadTAPRejectsTruncatedBlock(t *testing.T) {
	data := []byte{0x05, 0x00, 0x01, 0x02} // claims 5 bytes, only 2 present
	td := NewTapeDeck()
	if err := td.LoadTAP(data); err == nil {
		t.Fatalf("expected an error for a truncated TAP block")
	}
}

func TestLoadTAPRejectsEmptyImage(t *testing.T) {
	td := NewTapeDeck()
	if err := td.LoadTAP([]byte{0x00, 0x00}); err == nil {
		t.Fatalf("expected an error for a TAP image with no real blocks")
	}
}

func TestTapePlayStopRewindEject(t *testing.T) {
	td := NewTapeDeck()
	data := []byte{0x02, 0x00, 0xAA, 0xBB}
	if err := td.LoadTAP(data); err != nil {
		t.Fatalf("LoadTAP failed: %v", err)
	}
	td.Play()
	if !td.IsPlaying() {
		t.Fatalf("expected playing after Play()")
	}
	td.Stop()
	if td.IsPlaying() {
		t.Fatalf("expected stopped after Stop()")
	}
	td.Rewind()
	if td.CurrentBlock() != 0 {
		t.Fatalf("CurrentBlock after Rewind = %d, want 0", td.CurrentBlock())
	}
	td.Eject()
	if td.IsLoaded() {
		t.Fatalf("expected not loaded after Eject()")
	}
}
