// ABOUTME: Tests for Opus decoder
// ABOUTME: Tests creation, validation and narrowband round trips
package decode

import (
	"math"
	"testing"

	"github.com/dvmvoice/mbe-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

func TestNewOpus(t *testing.T) {
	tests := []struct {
		name    string
		format  audio.Format
		wantErr bool
	}{
		{"stereo 48k", audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16}, false},
		{"mono 8k", audio.Format{Codec: "opus", SampleRate: 8000, Channels: 1, BitDepth: 16}, false},
		{"invalid codec", audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16}, true},
		{"44.1k", audio.Format{Codec: "opus", SampleRate: 44100, Channels: 2, BitDepth: 16}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder, err := NewOpus(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if decoder != nil {
					t.Fatal("expected decoder to be nil on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to create decoder: %v", err)
			}
			if err := decoder.Close(); err != nil {
				t.Errorf("expected Close to succeed, got error: %v", err)
			}
		})
	}
}

func TestNewOpus_InvalidCodecMessage(t *testing.T) {
	_, err := NewOpus(audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16})
	expectedError := "invalid codec for Opus decoder: pcm"
	if err == nil || err.Error() != expectedError {
		t.Errorf("expected error %q, got %v", expectedError, err)
	}
}

func TestOpusDecodeNarrowband(t *testing.T) {
	enc, err := opus.NewEncoder(8000, 1, opus.AppVoIP)
	if err != nil {
		t.Fatalf("failed to create encoder: %v", err)
	}

	decoder, err := NewOpus(audio.Format{Codec: "opus", SampleRate: 8000, Channels: 1, BitDepth: 16})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	defer decoder.Close()

	// 20ms at 8 kHz is one MBE frame
	pcm := make([]int16, 160)
	for i := range pcm {
		pcm[i] = int16(8000 * math.Sin(2*math.Pi*float64(i)/20))
	}
	packet := make([]byte, 1000)
	n, err := enc.Encode(pcm, packet)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	samples, err := decoder.Decode(packet[:n])
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(samples) != 160 {
		t.Errorf("expected 160 samples, got %d", len(samples))
	}

	lost, err := decoder.DecodeLost(20)
	if err != nil {
		t.Fatalf("DecodeLost failed: %v", err)
	}
	if len(lost) != 160 {
		t.Errorf("expected 160 concealed samples, got %d", len(lost))
	}

	if _, err := decoder.DecodeLost(500); err == nil {
		t.Error("expected error for loss longer than a packet")
	}
}
