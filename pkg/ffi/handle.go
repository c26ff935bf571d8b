// ABOUTME: Encoder handle table and the functions exported to C
// ABOUTME: Every call validates its handle and returns a status code
package ffi

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/dvmvoice/mbe-go/internal/version"
	"github.com/dvmvoice/mbe-go/pkg/audio"
	"github.com/dvmvoice/mbe-go/pkg/audio/encode"
	"github.com/dvmvoice/mbe-go/pkg/mbe"
)

// Handle identifies an encoder owned by the table.
type Handle uintptr

// InvalidHandle is returned when an encoder cannot be created.
const InvalidHandle Handle = 0

// Status codes returned by the handle functions.
const (
	StatusOK              = 0
	StatusInvalidHandle   = -1
	StatusInvalidArgument = -2
	StatusEngineFault     = -3
)

type entry struct {
	mu  sync.Mutex
	enc *encode.MBEEncoder
}

var (
	tableMu sync.RWMutex
	table   = make(map[Handle]*entry)
	nextID  atomic.Uint64
)

// Create makes an encoder for mode (0 = DMR AMBE, 1 = 88-bit IMBE) and
// returns its handle, or InvalidHandle.
func Create(mode int) Handle {
	m := mbe.Mode(mode)
	if !m.Valid() {
		log.Printf("ffi: create failed: %v: %d", mbe.ErrInvalidMode, mode)
		return InvalidHandle
	}

	enc, err := encode.NewMBE(audio.VoiceFormat(m.String()))
	if err != nil {
		log.Printf("ffi: create failed: %v", err)
		return InvalidHandle
	}

	h := Handle(nextID.Add(1))
	tableMu.Lock()
	table[h] = &entry{enc: enc}
	tableMu.Unlock()
	return h
}

// Encode encodes one frame of PCM samples into codeword.
func Encode(h Handle, samples []int16, codeword []byte) int {
	return with(h, func(enc *encode.MBEEncoder) error {
		return enc.EncodeFrame(samples, codeword)
	})
}

// EncodeBits encodes unpacked parameter bits into codeword.
func EncodeBits(h Handle, bits []byte, codeword []byte) int {
	return with(h, func(enc *encode.MBEEncoder) error {
		return enc.EncodeBits(bits, codeword)
	})
}

// SetGainAdjust sets the input gain multiplier of the encoder. NaN and
// infinite gains return StatusInvalidArgument.
func SetGainAdjust(h Handle, gain float32) int {
	return with(h, func(enc *encode.MBEEncoder) error {
		return enc.SetGainAdjust(gain)
	})
}

// GainAdjust returns the input gain multiplier of the encoder.
func GainAdjust(h Handle) (float32, int) {
	var gain float32
	status := with(h, func(enc *encode.MBEEncoder) error {
		gain = enc.GainAdjust()
		return nil
	})
	return gain, status
}

// Layout returns the frame layout of the encoder's mode.
func Layout(h Handle) (mbe.Layout, int) {
	var layout mbe.Layout
	status := with(h, func(enc *encode.MBEEncoder) error {
		layout = enc.Layout()
		return nil
	})
	return layout, status
}

// Destroy releases the encoder. The handle is invalid afterwards.
func Destroy(h Handle) int {
	tableMu.Lock()
	e, ok := table[h]
	delete(table, h)
	tableMu.Unlock()
	if !ok {
		return StatusInvalidHandle
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Close(); err != nil {
		log.Printf("ffi: close of handle %d failed: %v", h, err)
	}
	return StatusOK
}

// Version returns the library name and version.
func Version() string {
	return version.String()
}

// Count returns the number of live handles.
func Count() int {
	tableMu.RLock()
	defer tableMu.RUnlock()
	return len(table)
}

func with(h Handle, fn func(*encode.MBEEncoder) error) int {
	tableMu.RLock()
	e, ok := table[h]
	tableMu.RUnlock()
	if !ok {
		return StatusInvalidHandle
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	err := fn(e.enc)
	if err != nil {
		log.Printf("ffi: handle %d: %v", h, err)
	}
	return status(err)
}

func status(err error) int {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, mbe.ErrClosed):
		return StatusInvalidHandle
	case errors.Is(err, mbe.ErrEngineFault):
		return StatusEngineFault
	default:
		return StatusInvalidArgument
	}
}
