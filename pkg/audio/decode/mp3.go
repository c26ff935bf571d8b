// ABOUTME: MP3 file source
// ABOUTME: Decodes MP3 through go-mp3, which always yields 16-bit stereo
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dvmvoice/mbe-go/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Source reads from an MP3 file
type MP3Source struct {
	file    *os.File
	decoder *mp3.Decoder
	format  audio.Format
	buf     []byte
}

// OpenMP3 opens an MP3 file source
func OpenMP3(path string) (*MP3Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	log.Printf("Loaded MP3: %s (sample rate: %d Hz)", path, decoder.SampleRate())

	return &MP3Source{
		file:    f,
		decoder: decoder,
		format: audio.Format{
			Codec:      "mp3",
			SampleRate: decoder.SampleRate(),
			Channels:   2, // go-mp3 outputs stereo
			BitDepth:   16,
		},
	}, nil
}

func (s *MP3Source) Read(samples []int32) (int, error) {
	// Whole stereo frames only, so channels stay aligned across reads
	numBytes := len(samples) / 2 * 4
	if numBytes == 0 {
		return 0, nil
	}
	if cap(s.buf) < numBytes {
		s.buf = make([]byte, numBytes)
	}
	buf := s.buf[:numBytes]

	n, err := io.ReadFull(s.decoder, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("mp3 decode error: %w", err)
	}

	numSamples := n / 4 * 2
	if numSamples == 0 {
		return 0, io.EOF
	}
	for i := 0; i < numSamples; i++ {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}
	return numSamples, nil
}

func (s *MP3Source) Format() audio.Format { return s.format }

func (s *MP3Source) Close() error {
	return s.file.Close()
}
