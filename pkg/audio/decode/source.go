// ABOUTME: File source interface and extension based opener
// ABOUTME: Sources return interleaved int32 samples until io.EOF
package decode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dvmvoice/mbe-go/pkg/audio"
)

// ErrUnsupportedFormat indicates a file type with no Source.
var ErrUnsupportedFormat = errors.New("decode: unsupported audio format")

// Source provides PCM samples read from a file
type Source interface {
	// Read fills samples with interleaved int32 samples in 24-bit range.
	// It returns io.EOF once the file is exhausted and no samples were read.
	Read(samples []int32) (int, error)

	// Format returns the sample rate and channel count of the samples
	Format() audio.Format

	// Close closes the underlying file
	Close() error
}

// OpenFile opens path as a Source, choosing the decoder by extension.
//
// Raw files (.raw, .pcm) are read as 8 kHz mono 16-bit little-endian PCM.
func OpenFile(path string) (Source, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav":
		return OpenWAV(path)
	case ".mp3":
		return OpenMP3(path)
	case ".flac":
		return OpenFLAC(path)
	case ".raw", ".pcm":
		return OpenRaw(path, audio.Format{Codec: "pcm", SampleRate: audio.VoiceSampleRate, Channels: 1, BitDepth: 16})
	default:
		return nil, fmt.Errorf("%w: %s (supported: .wav, .mp3, .flac, .raw)", ErrUnsupportedFormat, ext)
	}
}

// scaleTo24 moves a sample of the given bit depth into 24-bit range.
func scaleTo24(sample int32, bitDepth int) int32 {
	switch {
	case bitDepth == 24:
		return sample
	case bitDepth > 24:
		return sample >> (bitDepth - 24)
	default:
		return sample << (24 - bitDepth)
	}
}
