package zxcore

import "testing"

func TestBeeperProducesSamplesEachFrame(t *testing.T) {
	m := newTestMachine()
	m.Beeper.WriteEAR(0, true)
	m.Beeper.Advance(m.Info.TSPerFrame)
	samples := m.Beeper.EndFrame()
	if len(samples) == 0 {
		t.Fatalf("expected a non-empty sample buffer for a full frame")
	}
	if m.Beeper.SampleCount() != len(samples) {
		t.Fatalf("SampleCount() = %d, want %d", m.Beeper.SampleCount(), len(samples))
	}
}

func TestContentionMemoryStaysWithinBound(t *testing.T) {
	m := newTestMachine()
	for ts := uint32(0); ts < m.Info.TSPerFrame; ts += 997 {
		if m.Contention.MemoryContention(ts) > 8 {
			t.Fatalf("contention delay at ts=%d implausibly large: %d", ts, m.Contention.MemoryContention(ts))
		}
	}
}
