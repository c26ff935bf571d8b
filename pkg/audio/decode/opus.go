// ABOUTME: Opus audio decoder
// ABOUTME: Decodes Opus packets, including narrowband VoIP streams, to int32 samples
package decode

import (
	"fmt"

	"github.com/dvmvoice/mbe-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// Longest Opus packet is 120ms
const opusMaxPacketMs = 120

// OpusDecoder decodes Opus audio
type OpusDecoder struct {
	decoder *opus.Decoder
	format  audio.Format
	pcm16   []int16
}

// NewOpus creates a new Opus decoder. Opus decodes at 8, 12, 16, 24 or
// 48 kHz; 8 kHz output feeds the MBE encoder without resampling.
func NewOpus(format audio.Format) (*OpusDecoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus decoder: %s", format.Codec)
	}

	switch format.SampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return nil, fmt.Errorf("unsupported sample rate: %d (supported: 8000, 12000, 16000, 24000, 48000)", format.SampleRate)
	}

	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder: dec,
		format:  format,
		pcm16:   make([]int16, format.SampleRate*opusMaxPacketMs/1000*format.Channels),
	}, nil
}

// Decode converts Opus bytes to int32 samples
func (d *OpusDecoder) Decode(data []byte) ([]int32, error) {
	n, err := d.decoder.Decode(data, d.pcm16)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	// Opus is always 16-bit; n is per channel
	actualSamples := n * d.format.Channels
	pcm32 := make([]int32, actualSamples)
	for i := 0; i < actualSamples; i++ {
		pcm32[i] = audio.SampleFromInt16(d.pcm16[i])
	}
	return pcm32, nil
}

// DecodeLost conceals one lost packet of the given duration.
func (d *OpusDecoder) DecodeLost(ms int) ([]int32, error) {
	n := d.format.SampleRate * ms / 1000 * d.format.Channels
	if n <= 0 || n > len(d.pcm16) {
		return nil, fmt.Errorf("invalid loss duration: %dms", ms)
	}
	if err := d.decoder.DecodePLC(d.pcm16[:n]); err != nil {
		return nil, fmt.Errorf("opus concealment failed: %w", err)
	}

	pcm32 := make([]int32, n)
	for i := range pcm32 {
		pcm32[i] = audio.SampleFromInt16(d.pcm16[i])
	}
	return pcm32, nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}

var _ Decoder = (*OpusDecoder)(nil)
