// ABOUTME: PCM audio decoder
// ABOUTME: Decodes 16-bit and 24-bit little-endian PCM packets to int32 samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/dvmvoice/mbe-go/pkg/audio"
)

// PCMDecoder decodes PCM audio. A sample split across two packets is
// completed from the next packet.
type PCMDecoder struct {
	bitDepth int
	width    int
	partial  []byte
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (*PCMDecoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}

	return &PCMDecoder{
		bitDepth: format.BitDepth,
		width:    format.BitDepth / 8,
	}, nil
}

// Decode converts PCM bytes to int32 samples
func (d *PCMDecoder) Decode(data []byte) ([]int32, error) {
	if len(d.partial) > 0 {
		data = append(d.partial, data...)
		d.partial = nil
	}

	numSamples := len(data) / d.width
	samples := make([]int32, numSamples)
	for i := 0; i < numSamples; i++ {
		off := i * d.width
		if d.bitDepth == 24 {
			samples[i] = audio.SampleFrom24Bit([3]byte{data[off], data[off+1], data[off+2]})
		} else {
			samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(data[off:])))
		}
	}

	if rest := data[numSamples*d.width:]; len(rest) > 0 {
		d.partial = append([]byte(nil), rest...)
	}
	return samples, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	d.partial = nil
	return nil
}

var _ Decoder = (*PCMDecoder)(nil)
