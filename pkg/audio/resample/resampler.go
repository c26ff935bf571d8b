// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Low-passes before downsampling and keeps history so chunks join without gaps
package resample

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// Anti-alias cutoff as a fraction of the output Nyquist frequency
const lowpassCutoff = 0.9

// Resampler performs linear interpolation to convert between sample rates.
// When downsampling, input is first low-passed below the output Nyquist
// frequency with a Hamming-windowed sinc FIR.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64

	// anti-alias filter, nil unless downsampling
	taps     []float64
	history  []float64 // last len(taps)-1 input frames, interleaved
	ext      []float64
	filtered []int32

	// position of the next output frame, in input frames, relative to
	// lastSample once primed and to the first frame of the chunk before
	position   float64
	lastSample []int32 // one sample per channel
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	r := &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastSample: make([]int32, channels),
	}
	if r.ratio > 1 {
		r.taps = lowpassTaps(inputRate, outputRate, r.ratio)
		r.history = make([]float64, (len(r.taps)-1)*channels)
	}
	return r
}

// lowpassTaps designs a unity-gain windowed-sinc low-pass FIR with its
// cutoff just below outputRate/2.
func lowpassTaps(inputRate, outputRate int, ratio float64) []float64 {
	n := 16*int(math.Ceil(ratio)) + 1
	fc := lowpassCutoff * float64(outputRate) / 2 / float64(inputRate) // cycles per sample
	mid := float64(n-1) / 2

	h := make([]float64, n)
	for i := range h {
		x := float64(i) - mid
		if x == 0 {
			h[i] = 2 * fc
		} else {
			h[i] = math.Sin(2*math.Pi*fc*x) / (math.Pi * x)
		}
	}
	window.Hamming(h)
	floats.Scale(1/floats.Sum(h), h)
	return h
}

// lowpass filters whole input frames, carrying the filter history across
// calls. The taps are symmetric, so no reversal is needed.
func (r *Resampler) lowpass(input []int32, frames int) []int32 {
	ch := r.channels
	hist := len(r.taps) - 1

	need := (hist + frames) * ch
	if cap(r.ext) < need {
		r.ext = make([]float64, need)
	}
	ext := r.ext[:need]
	if !r.primed {
		// Hold the first frame backwards so the stream starts without a ramp
		for i := range r.history {
			r.history[i] = float64(input[i%ch])
		}
	}
	copy(ext, r.history)
	for i, s := range input[:frames*ch] {
		ext[hist*ch+i] = float64(s)
	}

	if cap(r.filtered) < frames*ch {
		r.filtered = make([]int32, frames*ch)
	}
	out := r.filtered[:frames*ch]
	for n := 0; n < frames; n++ {
		for c := 0; c < ch; c++ {
			var acc float64
			for k, h := range r.taps {
				acc += h * ext[(n+hist-k)*ch+c]
			}
			out[n*ch+c] = int32(math.Round(acc))
		}
	}

	copy(r.history, ext[frames*ch:])
	return out
}

// Resample converts input samples to output sample rate using linear interpolation
// input: interleaved samples at inputRate
// output: interleaved samples at outputRate, sized with OutputSamplesNeeded
// Returns the number of output samples written.
func (r *Resampler) Resample(input []int32, output []int32) int {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return 0
	}
	if r.taps != nil {
		input = r.lowpass(input, inputFrames)
	}

	offset := 0
	if r.primed {
		offset = 1
	}
	total := inputFrames + offset
	frame := func(i, ch int) int32 {
		if i < offset {
			return r.lastSample[ch]
		}
		return input[(i-offset)*r.channels+ch]
	}

	outputFrames := len(output) / r.channels
	outIdx := 0
	for outIdx < outputFrames {
		idx := int(r.position)
		if idx >= total-1 {
			break
		}
		frac := r.position - float64(idx)

		for ch := 0; ch < r.channels; ch++ {
			s1 := frame(idx, ch)
			s2 := frame(idx+1, ch)
			output[outIdx*r.channels+ch] = int32(float64(s1)*(1.0-frac) + float64(s2)*frac)
		}

		outIdx++
		r.position += r.ratio
	}

	// Re-anchor on the last input frame, which becomes the history sample
	r.position -= float64(total - 1)
	if r.position < 0 {
		r.position = 0
	}
	copy(r.lastSample, input[(inputFrames-1)*r.channels:inputFrames*r.channels])
	r.primed = true

	return outIdx * r.channels
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
	r.primed = false
	for i := range r.lastSample {
		r.lastSample[i] = 0
	}
	for i := range r.history {
		r.history[i] = 0
	}
}

// OutputSamplesNeeded returns an output size large enough for input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames+1)/r.ratio) + 1
	return outputFrames * r.channels
}

// Ratio returns input frames consumed per output frame
func (r *Resampler) Ratio() float64 {
	return r.ratio
}
