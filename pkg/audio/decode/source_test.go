// ABOUTME: Tests for file sources
// ABOUTME: Generates WAV and raw fixtures in temp dirs and reads them back
package decode

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvmvoice/mbe-go/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, path string, rate, bitDepth, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to close fixture: %v", err)
	}
}

func readAll(t *testing.T, src Source, chunk int) []int32 {
	t.Helper()
	var out []int32
	buf := make([]int32, chunk)
	for {
		n, err := src.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if n == 0 {
			t.Fatal("read returned no samples and no error")
		}
	}
}

func TestOpenFileWAV(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		channels int
		data     []int
		want     []int32
	}{
		{"16-bit mono", 16, 1, []int{0, 1, -1, 32767, -32768}, []int32{0, 256, -256, 32767 << 8, -32768 << 8}},
		{"24-bit stereo", 24, 2, []int{100, -100, 8388607, -8388608}, []int32{100, -100, 8388607, -8388608}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "voice.wav")
			writeWAV(t, path, 8000, tt.bitDepth, tt.channels, tt.data)

			src, err := OpenFile(path)
			if err != nil {
				t.Fatalf("OpenFile failed: %v", err)
			}
			defer src.Close()

			format := src.Format()
			if format.SampleRate != 8000 || format.Channels != tt.channels || format.BitDepth != tt.bitDepth {
				t.Errorf("unexpected format %+v", format)
			}

			got := readAll(t, src, 3)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d samples, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sample %d: expected %d, got %d", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestOpenFileRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice.raw")
	raw := make([]byte, 2*5000)
	for i := 0; i < 5000; i++ {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(int16(i-2500)))
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer src.Close()

	if src.Format().SampleRate != 8000 || src.Format().Channels != 1 {
		t.Errorf("unexpected format %+v", src.Format())
	}

	got := readAll(t, src, 333)
	if len(got) != 5000 {
		t.Fatalf("expected 5000 samples, got %d", len(got))
	}
	for i, v := range got {
		if v != int32(i-2500)<<8 {
			t.Fatalf("sample %d: got %d", i, v)
		}
	}
}

type failingDecoder struct{ err error }

func (d failingDecoder) Decode([]byte) ([]int32, error) { return nil, d.err }
func (d failingDecoder) Close() error                   { return nil }

func TestRawSourceDecodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice.raw")
	if err := os.WriteFile(path, make([]byte, 64), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	src, err := OpenRaw(path, audio.VoiceFormat("pcm"))
	if err != nil {
		t.Fatalf("OpenRaw failed: %v", err)
	}
	defer src.Close()

	cause := errors.New("corrupt packet")
	src.decoder = failingDecoder{err: cause}

	n, err := src.Read(make([]int32, 16))
	if !errors.Is(err, cause) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 samples, got %d", n)
	}
}

func TestOpenFileErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := []byte("this is not audio data at all")
	for _, name := range []string{"bad.wav", "bad.flac", "song.ogg"} {
		if err := os.WriteFile(filepath.Join(dir, name), garbage, 0o644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing", filepath.Join(dir, "missing.wav"), nil},
		{"invalid wav", filepath.Join(dir, "bad.wav"), nil},
		{"invalid flac", filepath.Join(dir, "bad.flac"), nil},
		{"unsupported", filepath.Join(dir, "song.ogg"), ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := OpenFile(tt.path)
			if err == nil {
				src.Close()
				t.Fatal("expected error, got nil")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestScaleTo24(t *testing.T) {
	tests := []struct {
		sample   int32
		bitDepth int
		want     int32
	}{
		{1, 8, 1 << 16},
		{-1, 16, -256},
		{12345, 24, 12345},
		{1 << 16, 32, 1 << 8},
	}

	for _, tt := range tests {
		if got := scaleTo24(tt.sample, tt.bitDepth); got != tt.want {
			t.Errorf("scaleTo24(%d, %d) = %d, want %d", tt.sample, tt.bitDepth, got, tt.want)
		}
	}
}
