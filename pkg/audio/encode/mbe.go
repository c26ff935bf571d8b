// ABOUTME: MBE encoder facade for DMR AMBE and P25 IMBE codewords
// ABOUTME: Dispatches frames to the vocoder engine and keeps parameter history
package encode

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/dvmvoice/mbe-go/pkg/audio"
	"github.com/dvmvoice/mbe-go/pkg/mbe"
	"github.com/dvmvoice/mbe-go/pkg/mbe/vocoder"
	"github.com/google/uuid"
)

// MBEEncoder encodes 8 kHz speech into MBE codewords.
//
// The mode is fixed when the encoder is created. The encoder keeps the
// parameters of the last frame for the engine's inter-frame prediction, so
// one instance must carry exactly one audio stream. An MBEEncoder is NOT
// safe for concurrent use.
type MBEEncoder struct {
	id        string
	mode      mbe.Mode
	layout    mbe.Layout
	engine    mbe.Engine
	quantizer mbe.Quantizer

	cur  mbe.Params
	prev mbe.Params

	gainAdjust float32
	state      mbe.State
	frames     uint64
	closed     bool

	scaled []int16
	out    []byte
}

// NewMBE creates a new MBE encoder backed by the built-in vocoder engine.
//
// format.Codec selects the mode ("dmr-ambe" or "imbe-88"); the format must
// be 8 kHz mono 16-bit.
func NewMBE(format audio.Format) (*MBEEncoder, error) {
	return NewMBEWithEngine(format, vocoder.New())
}

// NewMBEWithEngine creates a new MBE encoder that owns engine.
func NewMBEWithEngine(format audio.Format, engine mbe.Engine) (*MBEEncoder, error) {
	mode, err := mbe.ParseMode(format.Codec)
	if err != nil {
		return nil, fmt.Errorf("invalid codec for MBE encoder: %w", err)
	}
	if format.SampleRate != mbe.SampleRate {
		return nil, fmt.Errorf("unsupported sample rate: %d (supported: %d)", format.SampleRate, mbe.SampleRate)
	}
	if format.Channels != 1 {
		return nil, fmt.Errorf("unsupported channel count: %d (supported: 1)", format.Channels)
	}
	if format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}
	if engine == nil {
		return nil, errors.New("MBE encoder requires an engine")
	}

	quantizer, err := engine.Quantizer(mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s quantizer: %w", mode, err)
	}

	layout := mode.Layout()
	e := &MBEEncoder{
		id:         uuid.New().String(),
		mode:       mode,
		layout:     layout,
		engine:     engine,
		quantizer:  quantizer,
		gainAdjust: 1.0,
		scaled:     make([]int16, layout.FrameSamples),
		out:        make([]byte, layout.CodewordBytes),
	}

	log.Printf("MBE encoder %s created: mode=%s codeword=%d bits", e.id, mode, layout.CodewordBits)
	return e, nil
}

// EncodeFrame encodes one frame of 16-bit PCM into codeword.
//
// samples must hold exactly Layout().FrameSamples samples and codeword at
// least Layout().CodewordBytes bytes. On error codeword and the parameter
// history are left unchanged.
func (e *MBEEncoder) EncodeFrame(samples []int16, codeword []byte) error {
	if e.closed {
		return mbe.ErrClosed
	}
	if len(samples) != e.layout.FrameSamples {
		return fmt.Errorf("%w: got %d samples, want %d", mbe.ErrInvalidFrameSize, len(samples), e.layout.FrameSamples)
	}
	if err := e.checkCodeword(codeword); err != nil {
		return err
	}

	for i, s := range samples {
		e.scaled[i] = audio.ScaleInt16(s, e.gainAdjust)
	}

	var cur mbe.Params
	if err := e.engine.Analyze(e.scaled, &e.prev, &cur); err != nil {
		return e.fault("analysis", err)
	}
	if err := e.quantizer.Quantize(&cur, &e.prev, e.out); err != nil {
		return e.fault("quantization", err)
	}

	e.commit(&cur, codeword)
	return nil
}

// EncodeBits re-encodes unpacked parameter bits (one bit per byte) into
// codeword without analysis.
//
// bits must hold exactly Layout().ParamBits entries. The parameters decoded
// from the bits become the current frame, so history advances exactly as
// it does for EncodeFrame.
func (e *MBEEncoder) EncodeBits(bits []byte, codeword []byte) error {
	if e.closed {
		return mbe.ErrClosed
	}
	if len(bits) != e.layout.ParamBits {
		return fmt.Errorf("%w: got %d bits, want %d", mbe.ErrInvalidBitCount, len(bits), e.layout.ParamBits)
	}
	if err := e.checkCodeword(codeword); err != nil {
		return err
	}

	var cur mbe.Params
	if err := e.quantizer.Repack(bits, &e.prev, &cur, e.out); err != nil {
		return e.fault("repack", err)
	}

	e.commit(&cur, codeword)
	return nil
}

// Encode implements Encoder. samples are int32 in 24-bit range and must be
// a whole number of frames; the codewords are returned back to back.
func (e *MBEEncoder) Encode(samples []int32) ([]byte, error) {
	n := e.layout.FrameSamples
	if len(samples)%n != 0 {
		return nil, fmt.Errorf("%w: %d samples is not a multiple of %d", mbe.ErrInvalidFrameSize, len(samples), n)
	}

	out := make([]byte, 0, len(samples)/n*e.layout.CodewordBytes)
	frame := make([]int16, n)
	codeword := make([]byte, e.layout.CodewordBytes)
	for off := 0; off < len(samples); off += n {
		for i := range frame {
			frame[i] = audio.SampleToInt16(samples[off+i])
		}
		if err := e.EncodeFrame(frame, codeword); err != nil {
			return nil, err
		}
		out = append(out, codeword...)
	}
	return out, nil
}

// Close releases the engine. Further encode calls return mbe.ErrClosed.
func (e *MBEEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.engine.Close()
}

func (e *MBEEncoder) checkCodeword(codeword []byte) error {
	if len(codeword) < e.layout.CodewordBytes {
		return fmt.Errorf("%w: got %d bytes, want %d", mbe.ErrBufferTooSmall, len(codeword), e.layout.CodewordBytes)
	}
	return nil
}

// commit publishes a finished frame: the codeword goes out and the frame
// becomes both the current and the previous parameters.
func (e *MBEEncoder) commit(cur *mbe.Params, codeword []byte) {
	copy(codeword, e.out)
	e.cur = *cur
	e.prev = e.cur
	e.frames++
	e.state = mbe.StateStreaming
}

func (e *MBEEncoder) fault(stage string, err error) error {
	log.Printf("MBE encoder %s: %s failed on frame %d: %v", e.id, stage, e.frames, err)
	return fmt.Errorf("%w: %s of frame %d: %w", mbe.ErrEngineFault, stage, e.frames, err)
}

// GainAdjust returns the multiplier applied to input samples.
func (e *MBEEncoder) GainAdjust() float32 {
	return e.gainAdjust
}

// SetGainAdjust sets the multiplier applied to input samples of later
// EncodeFrame calls. NaN and infinite gains are rejected with
// mbe.ErrInvalidGain and the current gain is kept.
func (e *MBEEncoder) SetGainAdjust(gain float32) error {
	g := float64(gain)
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return fmt.Errorf("%w: %v", mbe.ErrInvalidGain, gain)
	}
	e.gainAdjust = gain
	return nil
}

// ID returns the identifier used in this encoder's log lines.
func (e *MBEEncoder) ID() string {
	return e.id
}

// Mode returns the encode mode.
func (e *MBEEncoder) Mode() mbe.Mode {
	return e.mode
}

// Layout returns the frame and codeword sizes of the mode.
func (e *MBEEncoder) Layout() mbe.Layout {
	return e.layout
}

// State reports whether a frame has been encoded yet.
func (e *MBEEncoder) State() mbe.State {
	return e.state
}

// Frames returns the number of frames encoded.
func (e *MBEEncoder) Frames() uint64 {
	return e.frames
}

// Current returns the parameters of the last encoded frame.
func (e *MBEEncoder) Current() mbe.Params {
	return e.cur
}

// Previous returns the parameters the next frame will be predicted from.
func (e *MBEEncoder) Previous() mbe.Params {
	return e.prev
}

var _ Encoder = (*MBEEncoder)(nil)
