// ABOUTME: Reader pulls speech frames from a decoded file source
// ABOUTME: The final partial frame is zero padded before io.EOF
package frame

import (
	"fmt"
	"io"

	"github.com/dvmvoice/mbe-go/pkg/audio/decode"
	"github.com/dvmvoice/mbe-go/pkg/mbe"
)

// Reader reads MBE input frames from a Source
type Reader struct {
	src    decode.Source
	framer *Framer
	buf    []int32
	eof    bool
	frames int
}

// NewReader creates a frame reader over src
func NewReader(src decode.Source) (*Reader, error) {
	framer, err := NewFramer(src.Format())
	if err != nil {
		return nil, fmt.Errorf("failed to create framer: %w", err)
	}

	// About 20ms of source audio per read
	format := src.Format()
	chunk := format.SampleRate / 50 * format.Channels
	if chunk < format.Channels {
		chunk = format.Channels
	}

	return &Reader{
		src:    src,
		framer: framer,
		buf:    make([]int32, chunk),
	}, nil
}

// ReadFrame fills dst with the next frame. It returns io.EOF when the
// source is exhausted and every sample has been returned.
func (r *Reader) ReadFrame(dst []int16) error {
	if len(dst) < mbe.FrameSamples {
		return fmt.Errorf("%w: got %d samples, want %d", mbe.ErrInvalidFrameSize, len(dst), mbe.FrameSamples)
	}

	for !r.framer.Next(dst) {
		if r.eof {
			if r.framer.Flush(dst) {
				r.frames++
				return nil
			}
			return io.EOF
		}

		n, err := r.src.Read(r.buf)
		if n > 0 {
			r.framer.Write(r.buf[:n])
		}
		if err == io.EOF {
			r.eof = true
		} else if err != nil {
			return fmt.Errorf("failed to read source: %w", err)
		}
	}
	r.frames++
	return nil
}

// Frames returns the number of frames returned so far
func (r *Reader) Frames() int {
	return r.frames
}
