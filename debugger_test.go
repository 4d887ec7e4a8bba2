package zxcore

import "testing"

func TestDebuggerBreakpointHitAndSkipOnce(t *testing.T) {
	m := newTestMachine()
	// NOP; NOP; NOP at 0x8000
	m.DebugWrite(0x8000, 0x00)
	m.DebugWrite(0x8001, 0x00)
	m.DebugWrite(0x8002, 0x00)
	m.CPU.PC = 0x8000

	m.Debugger.AddBreakpoint(0x8001)

	if m.Debugger.shouldBreak(m, 0x8000) {
		t.Fatalf("did not expect a break at 0x8000")
	}
	if !m.Debugger.shouldBreak(m, 0x8001) {
		t.Fatalf("expected a break at 0x8001")
	}
	if !m.Debugger.IsBreakpointHit() {
		t.Fatalf("expected IsBreakpointHit true")
	}
	if m.Debugger.BreakpointAddress() != 0x8001 {
		t.Fatalf("BreakpointAddress = %04X, want 8001", m.Debugger.BreakpointAddress())
	}

	// A second check at the same PC, without clearing, must not re-latch.
	if m.Debugger.shouldBreak(m, 0x8001) {
		t.Fatalf("should not break again while already latched")
	}

	m.Debugger.ClearBreakpointHit()
	if m.Debugger.IsBreakpointHit() {
		t.Fatalf("expected hit cleared")
	}
	// Resuming at the same address must be suppressed exactly once.
	if m.Debugger.shouldBreak(m, 0x8001) {
		t.Fatalf("expected skip-once to suppress the immediate re-break")
	}
	if !m.Debugger.shouldBreak(m, 0x8001) {
		t.Fatalf("expected the breakpoint to fire normally on the next visit")
	}
}

func TestDebuggerConditionalBreakpoint(t *testing.T) {
	m := newTestMachine()
	m.CPU.A = 5
	m.Debugger.AddConditionalBreakpoint(0x9000, "A == 10")

	if m.Debugger.shouldBreak(m, 0x9000) {
		t.Fatalf("condition A==10 should not fire when A=5")
	}
	m.CPU.A = 10
	if !m.Debugger.shouldBreak(m, 0x9000) {
		t.Fatalf("condition A==10 should fire when A=10")
	}
}

func TestDebuggerEnableDisable(t *testing.T) {
	m := newTestMachine()
	m.Debugger.AddBreakpoint(0xA000)
	m.Debugger.EnableBreakpoint(0xA000, false)
	if m.Debugger.shouldBreak(m, 0xA000) {
		t.Fatalf("disabled breakpoint should not fire")
	}
	m.Debugger.EnableBreakpoint(0xA000, true)
	if !m.Debugger.shouldBreak(m, 0xA000) {
		t.Fatalf("re-enabled breakpoint should fire")
	}
}

func TestDebuggerRemoveBreakpoint(t *testing.T) {
	m := newTestMachine()
	m.Debugger.AddBreakpoint(0xB000)
	m.Debugger.RemoveBreakpoint(0xB000)
	if m.Debugger.HasBreakpoint(0xB000) {
		t.Fatalf("expected breakpoint removed")
	}
}
