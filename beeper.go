package zxcore

// Beeper renders the single-bit ULA speaker output (port 0xFE bit 4)
// into averaged samples at the host sample rate, using the same
// fractional-accumulator scheduling as original_source's
// src/core/audio.cpp - ported near-verbatim, since there is nothing
// Spectrum-specific left to generalize once the T-state/sample-rate
// ratio is parameterized by MachineInfo instead of hardcoded.

const beeperVolume = 0.3

type Beeper struct {
	earBit bool
	micBit bool

	samples []float32

	tsCounter   float64
	outputLevel float64
	tsStep      float64
	tsInStep    int

	lastCount int
}

func NewBeeper(info MachineInfo) *Beeper {
	b := &Beeper{}
	b.setup(audioSampleRateHz, 50.0, int(info.TSPerFrame))
	return b
}

func (b *Beeper) setup(sampleRate int, fps float64, tsPerFrame int) {
	samplesPerFrame := float64(sampleRate) / fps
	b.tsStep = float64(tsPerFrame) / samplesPerFrame
	b.Reset()
}

func (b *Beeper) Reset() {
	b.earBit = false
	b.micBit = false
	b.samples = b.samples[:0]
	b.tsCounter = 0
	b.outputLevel = 0
	b.tsInStep = 0
	b.lastCount = 0
}

// WriteEAR is called on every ULA port write with the level of the
// speaker bit (bit 4); tstates is accepted for symmetry with the tape
// deck's own EAR sampling but the beeper itself only needs the level.
func (b *Beeper) WriteEAR(tstates uint32, bit bool) { b.earBit = bit }

func (b *Beeper) WriteMIC(bit bool) { b.micBit = bit }

// Advance accumulates tStates worth of the current EAR level,
// flushing an averaged sample whenever the fractional step rolls
// over. Driven once per CPU instruction by the Machine's frame loop.
func (b *Beeper) Advance(tStates uint32) {
	level := float32(0)
	if b.earBit {
		level = beeperVolume
	}
	for i := uint32(0); i < tStates; i++ {
		b.outputLevel += float64(level)
		b.tsInStep++
		b.tsCounter++

		if b.tsCounter >= b.tsStep {
			if b.tsInStep > 0 {
				b.samples = append(b.samples, float32(b.outputLevel/float64(b.tsInStep)))
			}
			b.tsCounter -= b.tsStep
			b.outputLevel = 0
			b.tsInStep = 0
		}
	}
}

// EndFrame flushes any partial accumulation and hands back the
// frame's samples, clearing the internal buffer.
func (b *Beeper) EndFrame() []float32 {
	if b.tsInStep > 0 {
		b.samples = append(b.samples, float32(b.outputLevel/float64(b.tsInStep)))
		b.outputLevel = 0
		b.tsInStep = 0
	}
	out := make([]float32, len(b.samples))
	copy(out, b.samples)
	b.samples = b.samples[:0]
	b.lastCount = len(out)
	return out
}

// SampleCount returns the number of samples the most recent EndFrame
// handed back.
func (b *Beeper) SampleCount() int { return b.lastCount }
