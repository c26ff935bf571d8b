// ABOUTME: Framer downmixes, resamples and slices PCM into speech frames
// ABOUTME: Partial frames are held until more input arrives or Flush pads them
package frame

import (
	"fmt"

	"github.com/dvmvoice/mbe-go/pkg/audio"
	"github.com/dvmvoice/mbe-go/pkg/audio/resample"
	"github.com/dvmvoice/mbe-go/pkg/mbe"
)

// Framer slices an audio stream into MBE input frames. It is not safe for
// concurrent use.
type Framer struct {
	format    audio.Format
	resampler *resample.Resampler

	mono    []int32
	out     []int32
	pending []int16
}

// NewFramer creates a framer for input in format
func NewFramer(format audio.Format) (*Framer, error) {
	if format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", format.SampleRate)
	}
	if format.Channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", format.Channels)
	}

	f := &Framer{format: format}
	if format.SampleRate != mbe.SampleRate {
		f.resampler = resample.New(format.SampleRate, mbe.SampleRate, 1)
	}
	return f, nil
}

// Write consumes interleaved samples in 24-bit range. A trailing partial
// multichannel frame is dropped.
func (f *Framer) Write(samples []int32) {
	channels := f.format.Channels
	frames := len(samples) / channels
	if frames == 0 {
		return
	}

	if cap(f.mono) < frames {
		f.mono = make([]int32, frames)
	}
	mono := f.mono[:frames]
	for i := range mono {
		var sum int64
		for ch := 0; ch < channels; ch++ {
			sum += int64(samples[i*channels+ch])
		}
		mono[i] = int32(sum / int64(channels))
	}

	if f.resampler != nil {
		need := f.resampler.OutputSamplesNeeded(len(mono))
		if cap(f.out) < need {
			f.out = make([]int32, need)
		}
		n := f.resampler.Resample(mono, f.out[:need])
		mono = f.out[:n]
	}

	for _, s := range mono {
		f.pending = append(f.pending, audio.SampleToInt16(s))
	}
}

// Next copies the next complete frame into dst and reports whether one was
// available. dst must hold mbe.FrameSamples samples.
func (f *Framer) Next(dst []int16) bool {
	if len(f.pending) < mbe.FrameSamples {
		return false
	}
	copy(dst[:mbe.FrameSamples], f.pending)
	f.pending = append(f.pending[:0], f.pending[mbe.FrameSamples:]...)
	return true
}

// Flush zero-pads a held partial frame into dst. It reports false when
// nothing was held.
func (f *Framer) Flush(dst []int16) bool {
	if len(f.pending) == 0 {
		return false
	}
	n := copy(dst[:mbe.FrameSamples], f.pending)
	for i := n; i < mbe.FrameSamples; i++ {
		dst[i] = 0
	}
	f.pending = f.pending[:0]
	return true
}

// Buffered returns the number of 8 kHz samples held for the next frame
func (f *Framer) Buffered() int {
	return len(f.pending)
}

// Reset drops held samples and resampler history
func (f *Framer) Reset() {
	f.pending = f.pending[:0]
	if f.resampler != nil {
		f.resampler.Reset()
	}
}
