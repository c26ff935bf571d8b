// ABOUTME: FLAC file source
// ABOUTME: Parses FLAC frames with mewkiz/flac and interleaves the subframes
package decode

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dvmvoice/mbe-go/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACSource reads from a FLAC file
type FLACSource struct {
	file     *os.File
	stream   *flac.Stream
	format   audio.Format
	bitDepth int

	// Interleaved samples of the last parsed frame not yet returned
	pending []int32
}

// OpenFLAC opens a FLAC file source
func OpenFLAC(path string) (*FLACSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	format := audio.Format{
		Codec:      "flac",
		SampleRate: int(info.SampleRate),
		Channels:   int(info.NChannels),
		BitDepth:   int(info.BitsPerSample),
	}
	log.Printf("Loaded FLAC: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		path, format.SampleRate, format.Channels, format.BitDepth)

	return &FLACSource{
		file:     f,
		stream:   stream,
		format:   format,
		bitDepth: format.BitDepth,
	}, nil
}

func (s *FLACSource) Read(samples []int32) (int, error) {
	read := 0
	for read < len(samples) {
		if len(s.pending) == 0 {
			if err := s.parseFrame(); err != nil {
				if err == io.EOF && read > 0 {
					return read, nil
				}
				return read, err
			}
		}
		n := copy(samples[read:], s.pending)
		s.pending = s.pending[n:]
		read += n
	}
	return read, nil
}

func (s *FLACSource) parseFrame() error {
	frame, err := s.stream.ParseNext()
	if err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("flac decode error: %w", err)
	}

	channels := s.format.Channels
	blockSize := int(frame.BlockSize)
	if cap(s.pending) < blockSize*channels {
		s.pending = make([]int32, blockSize*channels)
	}
	s.pending = s.pending[:blockSize*channels]
	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < channels; ch++ {
			s.pending[i*channels+ch] = scaleTo24(frame.Subframes[ch].Samples[i], s.bitDepth)
		}
	}
	return nil
}

func (s *FLACSource) Format() audio.Format { return s.format }

func (s *FLACSource) Close() error {
	s.stream.Close()
	return s.file.Close()
}
