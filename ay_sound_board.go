package zxcore

// AYSoundBoard schedules the AY-3-8912 at its real PSG clock
// (1.7734MHz, about half the CPU clock) independent of the host's
// audio sample rate, and hands back averaged samples at
// audioSampleRateHz - ported from
// original_source/src/core/peripherals/ay_sound_board.cpp's
// fractional-accumulator scheduling, which is the same pattern the
// teacher's own PSGEngine uses for its sample-rate-vs-clock split.

const (
	// ayClockHz is the PSG's nominal input clock before its internal
	// /8 tone/noise prescaler; ayTicksPerTState folds that prescaler in
	// so Advance's accumulator ticks the chip at the real rate instead
	// of at half the CPU clock.
	ayClockHz         = 1773400.0
	ayTicksPerTState   = ayClockHz / 8.0 / cpuClockHz
	waveformBufferSize = 2048
	maxSamplesPerFrame = audioSampleRateHz/50 + 64
)

type AYSoundBoard struct {
	chip *AYChip

	tsStep     float64
	tsCounter  float64
	ayTsCounter float64
	level      float32
	outputLevel float64

	samples    []float32

	waveforms       [3][waveformBufferSize]float32
	waveformWritePos int
}

func NewAYSoundBoard() *AYSoundBoard {
	b := &AYSoundBoard{chip: NewAYChip()}
	b.setup(audioSampleRateHz, 50.0, maxTStatesPerFrame)
	return b
}

func (b *AYSoundBoard) setup(sampleRate int, fps float64, tsPerFrame int) {
	samplesPerFrame := float64(sampleRate) / fps
	b.tsStep = float64(tsPerFrame) / samplesPerFrame
	b.Reset()
}

func (b *AYSoundBoard) Reset() {
	b.chip.Reset()
	b.samples = b.samples[:0]
	b.tsCounter = 0
	b.outputLevel = 0
	b.ayTsCounter = 0
	b.level = 0
	b.waveformWritePos = 0
	for ch := range b.waveforms {
		b.waveforms[ch] = [waveformBufferSize]float32{}
	}
}

// SelectRegister/ReadData/WriteData correspond to the three port
// functions the distilled spec's 0xFFFD/0xBFFD decode names; routing
// by address mask is done by the Machine (ay_sound_board.cpp's
// claimsPort equivalent), these assume the caller has already decoded.
func (b *AYSoundBoard) SelectRegister(v uint8) { b.chip.SetRegisterAddress(v) }
func (b *AYSoundBoard) WriteData(v uint8)      { b.chip.WriteRegister(v) }
func (b *AYSoundBoard) ReadData() uint8        { return b.chip.ReadRegister() }

// Advance ticks the chip forward by tStates T-states and accumulates
// averaged output samples at the host sample rate.
func (b *AYSoundBoard) Advance(tStates uint32) {
	for i := uint32(0); i < tStates; i++ {
		b.ayTsCounter += ayTicksPerTState
		for b.ayTsCounter >= 1.0 {
			b.ayTsCounter -= 1.0
			b.chip.Tick()
		}
		b.level = b.chip.Output()

		b.tsCounter++
		b.outputLevel += float64(b.level)

		if b.tsCounter >= b.tsStep {
			if len(b.samples) < maxSamplesPerFrame {
				b.samples = append(b.samples, float32(b.outputLevel/b.tsCounter))
				for ch := 0; ch < 3; ch++ {
					b.waveforms[ch][b.waveformWritePos] = b.chip.ChannelOutput(ch)
				}
				b.waveformWritePos = (b.waveformWritePos + 1) % waveformBufferSize
			}
			b.tsCounter -= b.tsStep
			b.outputLevel = float64(b.level) * b.tsCounter
		}
	}
}

// EndFrame hands the accumulated samples to the caller and clears the
// per-frame buffer; fractional accumulators are left untouched so the
// resampler stays phase-continuous across frame boundaries.
func (b *AYSoundBoard) EndFrame() []float32 {
	out := make([]float32, len(b.samples))
	copy(out, b.samples)
	b.samples = b.samples[:0]
	return out
}

func (b *AYSoundBoard) MuteChannel(ch int, muted bool) { b.chip.MuteChannel(ch, muted) }

// Waveform copies up to sampleCount of the most recent samples for
// channel ch into buffer, oldest first, zero-padding short histories.
func (b *AYSoundBoard) Waveform(ch int, buffer []float32) {
	if ch < 0 || ch >= 3 || len(buffer) == 0 {
		return
	}
	count := len(buffer)
	if count > waveformBufferSize {
		count = waveformBufferSize
	}
	readPos := (b.waveformWritePos - count + waveformBufferSize) % waveformBufferSize
	for i := 0; i < count; i++ {
		buffer[i] = b.waveforms[ch][readPos]
		readPos = (readPos + 1) % waveformBufferSize
	}
	for i := count; i < len(buffer); i++ {
		buffer[i] = 0
	}
}
