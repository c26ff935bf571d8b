// ABOUTME: Tests for encode modes and layouts
// ABOUTME: Covers mode parsing, validity and fixed codeword sizes
package mbe

import (
	"errors"
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Mode
		wantErr bool
	}{
		{"dmr", "dmr-ambe", ModeDMRAMBE, false},
		{"imbe", "imbe-88", ModeIMBE88, false},
		{"unknown", "codec2", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMode) {
					t.Fatalf("expected ErrInvalidMode, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if got.String() != tt.input {
				t.Errorf("String() = %q, want %q", got.String(), tt.input)
			}
		})
	}
}

func TestModeLayout(t *testing.T) {
	tests := []struct {
		mode          Mode
		paramBits     int
		codewordBits  int
		codewordBytes int
	}{
		{ModeDMRAMBE, 49, 72, 9},
		{ModeIMBE88, 88, 88, 11},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			if !tt.mode.Valid() {
				t.Fatal("expected mode to be valid")
			}
			l := tt.mode.Layout()
			if l.FrameSamples != 160 {
				t.Errorf("FrameSamples = %d, want 160", l.FrameSamples)
			}
			if l.ParamBits != tt.paramBits {
				t.Errorf("ParamBits = %d, want %d", l.ParamBits, tt.paramBits)
			}
			if l.CodewordBits != tt.codewordBits {
				t.Errorf("CodewordBits = %d, want %d", l.CodewordBits, tt.codewordBits)
			}
			if l.CodewordBytes != tt.codewordBytes {
				t.Errorf("CodewordBytes = %d, want %d", l.CodewordBytes, tt.codewordBytes)
			}
			if l.CodewordBits > l.CodewordBytes*8 {
				t.Error("codeword bits do not fit in codeword bytes")
			}
		})
	}
}

func TestUndefinedMode(t *testing.T) {
	m := Mode(7)
	if m.Valid() {
		t.Error("expected mode 7 to be invalid")
	}
	if m.Layout() != (Layout{}) {
		t.Errorf("expected zero layout, got %+v", m.Layout())
	}
	if m.String() != "mode(7)" {
		t.Errorf("unexpected name %q", m.String())
	}
}

func TestStateString(t *testing.T) {
	if StateUninitialized.String() != "uninitialized" {
		t.Errorf("got %q", StateUninitialized.String())
	}
	if StateStreaming.String() != "streaming" {
		t.Errorf("got %q", StateStreaming.String())
	}
}
