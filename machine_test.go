package zxcore

import "testing"

func TestRunFrameConsumesFullFrameAndRendersFramebuffer(t *testing.T) {
	m := newTestMachine()
	// An endless loop so RunFrame always has work to do for the whole frame.
	m.DebugWrite(0x8000, 0x18) // JR -2 (infinite loop in uncontended RAM; ROM ignores writes)
	m.DebugWrite(0x8001, 0xFE)
	m.CPU.PC = 0x8000

	consumed := m.RunFrame()
	if consumed != m.Info.TSPerFrame {
		t.Fatalf("RunFrame consumed = %d, want %d (a full frame)", consumed, m.Info.TSPerFrame)
	}

	fb := m.Framebuffer()
	wantLen := totalWidth * totalHeight * 4
	if len(fb) != wantLen {
		t.Fatalf("Framebuffer() length = %d, want %d", len(fb), wantLen)
	}
}

func TestRunFrameStopsEarlyOnBreakpoint(t *testing.T) {
	m := newTestMachine()
	m.DebugWrite(0x8000, 0x18) // JR -2
	m.DebugWrite(0x8001, 0xFE)
	m.CPU.PC = 0x8000
	m.Debugger.AddBreakpoint(0x8000)

	consumed := m.RunFrame()
	if !m.Debugger.IsBreakpointHit() {
		t.Fatalf("expected the breakpoint to have fired")
	}
	if consumed >= m.Info.TSPerFrame {
		t.Fatalf("expected RunFrame to stop well short of a full frame, consumed=%d", consumed)
	}
}

func TestAudioBufferIsInt16PCM(t *testing.T) {
	m := newTestMachine()
	m.DebugWrite(0x8000, 0x18)
	m.DebugWrite(0x8001, 0xFE)
	m.CPU.PC = 0x8000
	m.RunFrame()

	buf := m.AudioBuffer()
	if len(buf) == 0 {
		t.Fatalf("expected a non-empty audio buffer after a full frame")
	}
	if len(buf) != len(m.FloatAudioBuffer()) {
		t.Fatalf("AudioBuffer length = %d, want %d (matching the float mix)", len(buf), len(m.FloatAudioBuffer()))
	}
}

func TestPauseResumeToggleState(t *testing.T) {
	m := newTestMachine()
	if m.Paused() {
		t.Fatalf("expected a fresh machine to start unpaused")
	}
	m.Pause()
	if !m.Paused() {
		t.Fatalf("expected Pause() to set the paused state")
	}
	m.Resume()
	if m.Paused() {
		t.Fatalf("expected Resume() to clear the paused state")
	}
}

func TestRunFrameReturnsImmediatelyWhenPaused(t *testing.T) {
	m := newTestMachine()
	m.DebugWrite(0x8000, 0x18)
	m.DebugWrite(0x8001, 0xFE)
	m.CPU.PC = 0x8000
	m.Pause()

	tsBefore := m.CPU.TStates
	if consumed := m.RunFrame(); consumed != 0 {
		t.Fatalf("RunFrame() while paused consumed %d T-states, want 0", consumed)
	}
	if m.CPU.TStates != tsBefore {
		t.Fatalf("RunFrame() while paused advanced TStates from %d to %d", tsBefore, m.CPU.TStates)
	}
	if m.CPU.PC != 0x8000 {
		t.Fatalf("RunFrame() while paused moved PC to %#04x, want unchanged", m.CPU.PC)
	}

	m.Resume()
	if consumed := m.RunFrame(); consumed == 0 {
		t.Fatalf("RunFrame() after Resume() should consume T-states again")
	}
}

func TestStepReturnsZeroWhenPaused(t *testing.T) {
	m := newTestMachine()
	m.DebugWrite(0x0000, 0x00) // NOP
	m.CPU.PC = 0x0000
	m.Pause()

	if elapsed := m.Step(); elapsed != 0 {
		t.Fatalf("Step() while paused consumed %d T-states, want 0", elapsed)
	}
}

func TestStepAdvancesOneInstruction(t *testing.T) {
	m := newTestMachine()
	m.DebugWrite(0x0000, 0x00) // NOP
	m.CPU.PC = 0x0000

	elapsed := m.Step()
	if elapsed == 0 {
		t.Fatalf("expected Step() to consume at least one T-state")
	}
	if m.CPU.PC != 0x0001 {
		t.Fatalf("PC after Step() = %#04x, want 0x0001", m.CPU.PC)
	}
}

func TestRunCyclesConsumesAtLeastRequestedTStates(t *testing.T) {
	m := newTestMachine()
	m.DebugWrite(0x8000, 0x18) // JR -2 (infinite loop, so there's always work)
	m.DebugWrite(0x8001, 0xFE)
	m.CPU.PC = 0x8000

	consumed := m.RunCycles(100)
	if consumed < 100 {
		t.Fatalf("RunCycles(100) consumed = %d, want >= 100", consumed)
	}
}

func TestMachineLevelTapeAndMemoryForwards(t *testing.T) {
	m := newTestMachine()
	if err := m.LoadTAP([]byte{0x02, 0x00, 0xAA, 0xBB}); err != nil {
		t.Fatalf("LoadTAP failed: %v", err)
	}
	m.TapePlay()
	if !m.Tape.IsPlaying() {
		t.Fatalf("expected TapePlay() to start playback")
	}
	m.TapeStop()
	if m.Tape.IsPlaying() {
		t.Fatalf("expected TapeStop() to stop playback")
	}
	m.TapeRewind()
	if m.Tape.CurrentBlock() != 0 {
		t.Fatalf("expected TapeRewind() to reset the current block")
	}
	m.TapeEject()
	if m.Tape.IsLoaded() {
		t.Fatalf("expected TapeEject() to unload the tape")
	}

	m.WriteMemory(0x8000, 0x42)
	if got := m.ReadMemory(0x8000); got != 0x42 {
		t.Fatalf("ReadMemory(0x8000) = %#02x, want 0x42", got)
	}
}

func TestKeyDownUpAffectsKeyboardRead(t *testing.T) {
	m := newTestMachine()
	// Row 0 is selected by a 0xFE port read whose high byte has bit 0 clear.
	const rowZeroPort = 0xFEFE

	before := m.Keyboard.Read(rowZeroPort)
	m.KeyDown(0, 0)
	pressed := m.Keyboard.Read(rowZeroPort)
	if pressed == before {
		t.Fatalf("expected KeyDown(0,0) to change row 0's read value")
	}
	m.KeyUp(0, 0)
	released := m.Keyboard.Read(rowZeroPort)
	if released != before {
		t.Fatalf("expected KeyUp(0,0) to restore row 0's original read value")
	}
}
