// ABOUTME: Raw PCM file source
// ABOUTME: Streams headerless little-endian PCM through the PCM decoder
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/dvmvoice/mbe-go/pkg/audio"
)

// RawSource reads headerless PCM from a file
type RawSource struct {
	file    *os.File
	decoder Decoder
	format  audio.Format
	buf     []byte
	pending []int32
}

// OpenRaw opens a headerless PCM file in the given format
func OpenRaw(path string, format audio.Format) (*RawSource, error) {
	decoder, err := NewPCM(format)
	if err != nil {
		return nil, err
	}
	if format.Channels < 1 || format.SampleRate < 1 {
		return nil, fmt.Errorf("invalid raw PCM format: %d Hz, %d channels", format.SampleRate, format.Channels)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw PCM file: %w", err)
	}

	return &RawSource{
		file:    f,
		decoder: decoder,
		format:  format,
		buf:     make([]byte, 4096),
	}, nil
}

func (s *RawSource) Read(samples []int32) (int, error) {
	read := copy(samples, s.pending)
	s.pending = s.pending[read:]

	for read < len(samples) {
		n, err := s.file.Read(s.buf)
		if n > 0 {
			decoded, derr := s.decoder.Decode(s.buf[:n])
			if derr != nil {
				return read, fmt.Errorf("raw PCM decode error: %w", derr)
			}
			c := copy(samples[read:], decoded)
			read += c
			s.pending = append(s.pending, decoded[c:]...)
		}
		if err == io.EOF {
			if read == 0 {
				return 0, io.EOF
			}
			return read, nil
		}
		if err != nil {
			return read, fmt.Errorf("raw PCM read error: %w", err)
		}
	}
	return read, nil
}

func (s *RawSource) Format() audio.Format { return s.format }

func (s *RawSource) Close() error {
	s.decoder.Close()
	return s.file.Close()
}
