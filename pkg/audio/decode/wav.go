// ABOUTME: WAV file source
// ABOUTME: Reads integer PCM WAV files through go-audio/wav
package decode

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dvmvoice/mbe-go/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource reads from a WAV file
type WAVSource struct {
	file     *os.File
	decoder  *wav.Decoder
	format   audio.Format
	buf      *goaudio.IntBuffer
	bitDepth int
}

// OpenWAV opens a WAV file source
func OpenWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}
	if err := decoder.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read WAV PCM data: %w", err)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth != 8 && bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		f.Close()
		return nil, fmt.Errorf("unsupported WAV bit depth: %d", bitDepth)
	}

	format := audio.Format{
		Codec:      "pcm",
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		BitDepth:   bitDepth,
	}
	log.Printf("Loaded WAV: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		path, format.SampleRate, format.Channels, bitDepth)

	return &WAVSource{
		file:    f,
		decoder: decoder,
		format:  format,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			SourceBitDepth: bitDepth,
		},
		bitDepth: bitDepth,
	}, nil
}

func (s *WAVSource) Read(samples []int32) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	if cap(s.buf.Data) < len(samples) {
		s.buf.Data = make([]int, len(samples))
	}
	s.buf.Data = s.buf.Data[:len(samples)]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("wav decode error: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i := 0; i < n; i++ {
		v := s.buf.Data[i]
		if s.bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		samples[i] = scaleTo24(int32(v), s.bitDepth)
	}
	return n, nil
}

func (s *WAVSource) Format() audio.Format { return s.format }

func (s *WAVSource) Close() error {
	return s.file.Close()
}
