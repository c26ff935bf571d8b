// ABOUTME: Per-connection transcoding session
// ABOUTME: Decodes packets, frames them at 8 kHz and runs the MBE encoder
package transcode

import (
	"fmt"
	"log"

	"github.com/dvmvoice/mbe-go/pkg/audio"
	"github.com/dvmvoice/mbe-go/pkg/audio/decode"
	"github.com/dvmvoice/mbe-go/pkg/audio/encode"
	"github.com/dvmvoice/mbe-go/pkg/audio/frame"
	"github.com/dvmvoice/mbe-go/pkg/mbe"
)

// concealer is a decoder that can synthesize audio for lost packets.
type concealer interface {
	DecodeLost(ms int) ([]int32, error)
}

// session turns one client's audio into codewords. It is driven from a
// single goroutine.
type session struct {
	id      string
	name    string
	decoder decode.Decoder
	framer  *frame.Framer
	encoder *encode.MBEEncoder

	input     audio.Format
	pcm       []int16
	codeword  []byte
	seq       uint32
	dropped   uint64
	concealed uint64
}

func newSession(start SessionStart) (*session, error) {
	input := start.Input.Format()

	var decoder decode.Decoder
	var err error
	switch input.Codec {
	case "pcm":
		decoder, err = decode.NewPCM(input)
	case "opus":
		decoder, err = decode.NewOpus(input)
	default:
		return nil, fmt.Errorf("unsupported input codec: %s (supported: pcm, opus)", input.Codec)
	}
	if err != nil {
		return nil, err
	}

	framer, err := frame.NewFramer(input)
	if err != nil {
		decoder.Close()
		return nil, err
	}

	encoder, err := encode.NewMBE(audio.VoiceFormat(start.Mode))
	if err != nil {
		decoder.Close()
		return nil, err
	}
	if start.GainAdjust != nil {
		if err := encoder.SetGainAdjust(*start.GainAdjust); err != nil {
			decoder.Close()
			encoder.Close()
			return nil, err
		}
	}

	return &session{
		id:       encoder.ID(),
		name:     start.Name,
		decoder:  decoder,
		framer:   framer,
		encoder:  encoder,
		input:    input,
		pcm:      make([]int16, mbe.FrameSamples),
		codeword: make([]byte, encoder.Layout().CodewordBytes),
	}, nil
}

func (s *session) ready(serverName string) SessionReady {
	layout := s.encoder.Layout()
	return SessionReady{
		SessionID:     s.id,
		ServerName:    serverName,
		Version:       ProtocolVersion,
		Mode:          s.encoder.Mode().String(),
		FrameSamples:  layout.FrameSamples,
		CodewordBytes: layout.CodewordBytes,
	}
}

// process decodes one packet and emits a message for every frame it
// completes.
func (s *session) process(packet []byte, emit func([]byte) error) error {
	samples, err := s.decoder.Decode(packet)
	if err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	return s.write(samples, emit)
}

// conceal fills ms of lost audio. Opus synthesizes it with packet loss
// concealment; other inputs get silence.
func (s *session) conceal(ms int, emit func([]byte) error) error {
	var samples []int32
	if c, ok := s.decoder.(concealer); ok {
		var err error
		samples, err = c.DecodeLost(ms)
		if err != nil {
			return fmt.Errorf("concealment failed: %w", err)
		}
	} else {
		samples = make([]int32, s.input.SampleRate*ms/1000*s.input.Channels)
	}
	s.concealed += uint64(ms)
	return s.write(samples, emit)
}

func (s *session) write(samples []int32, emit func([]byte) error) error {
	s.framer.Write(samples)

	for s.framer.Next(s.pcm) {
		if err := s.encodeFrame(emit); err != nil {
			return err
		}
	}
	return nil
}

// flush pads and encodes a held partial frame.
func (s *session) flush(emit func([]byte) error) error {
	if !s.framer.Flush(s.pcm) {
		return nil
	}
	return s.encodeFrame(emit)
}

// encodeFrame encodes s.pcm. A frame the engine rejects is counted as
// dropped and the sequence still advances, so receivers see the gap.
func (s *session) encodeFrame(emit func([]byte) error) error {
	seq := s.seq
	s.seq++
	if err := s.encoder.EncodeFrame(s.pcm, s.codeword); err != nil {
		s.dropped++
		log.Printf("Session %s: dropped frame %d: %v", s.id, seq, err)
		return nil
	}
	return emit(encodeCodeword(seq, s.codeword))
}

func (s *session) stats() SessionStats {
	return SessionStats{Frames: s.encoder.Frames(), Dropped: s.dropped, Concealed: s.concealed}
}

func (s *session) close() {
	s.decoder.Close()
	s.encoder.Close()
}
