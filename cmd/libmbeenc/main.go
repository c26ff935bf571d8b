// ABOUTME: C shared library exposing the MBE encoder
// ABOUTME: Build with go build -buildmode=c-shared -o libmbeenc.so
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"unsafe"

	"github.com/dvmvoice/mbe-go/pkg/ffi"
	"github.com/dvmvoice/mbe-go/pkg/mbe"
)

// Buffers are sized from the handle's layout. A C caller that passes
// shorter buffers gets undefined behavior, as with any C API.

//export MBEEncoder_Create
func MBEEncoder_Create(mode C.int) C.uintptr_t {
	return C.uintptr_t(ffi.Create(int(mode)))
}

//export MBEEncoder_Encode
func MBEEncoder_Encode(h C.uintptr_t, samples *C.int16_t, codeword *C.uint8_t) C.int {
	layout, status := ffi.Layout(ffi.Handle(h))
	if status != ffi.StatusOK {
		return C.int(status)
	}
	if samples == nil || codeword == nil {
		return ffi.StatusInvalidArgument
	}
	in := unsafe.Slice((*int16)(unsafe.Pointer(samples)), layout.FrameSamples)
	out := unsafe.Slice((*byte)(unsafe.Pointer(codeword)), layout.CodewordBytes)
	return C.int(ffi.Encode(ffi.Handle(h), in, out))
}

//export MBEEncoder_EncodeBits
func MBEEncoder_EncodeBits(h C.uintptr_t, bits *C.uint8_t, codeword *C.uint8_t) C.int {
	layout, status := ffi.Layout(ffi.Handle(h))
	if status != ffi.StatusOK {
		return C.int(status)
	}
	if bits == nil || codeword == nil {
		return ffi.StatusInvalidArgument
	}
	in := unsafe.Slice((*byte)(unsafe.Pointer(bits)), layout.ParamBits)
	out := unsafe.Slice((*byte)(unsafe.Pointer(codeword)), layout.CodewordBytes)
	return C.int(ffi.EncodeBits(ffi.Handle(h), in, out))
}

//export MBEEncoder_Delete
func MBEEncoder_Delete(h C.uintptr_t) {
	ffi.Destroy(ffi.Handle(h))
}

//export MBEEncoder_SetGainAdjust
func MBEEncoder_SetGainAdjust(h C.uintptr_t, gain C.float) C.int {
	return C.int(ffi.SetGainAdjust(ffi.Handle(h), float32(gain)))
}

// MBEEncoder_GetGainAdjust stores the gain in *gain and returns a status.
// *gain is left untouched unless the status is 0.
//
//export MBEEncoder_GetGainAdjust
func MBEEncoder_GetGainAdjust(h C.uintptr_t, gain *C.float) C.int {
	return C.int(gainAdjust(ffi.Handle(h), (*float32)(unsafe.Pointer(gain))))
}

func gainAdjust(h ffi.Handle, out *float32) int {
	if out == nil {
		return ffi.StatusInvalidArgument
	}
	gain, status := ffi.GainAdjust(h)
	if status == ffi.StatusOK {
		*out = gain
	}
	return status
}

// MBEEncoder_CodewordSize returns the codeword size in bytes, or a negative
// status for an invalid handle.
//
//export MBEEncoder_CodewordSize
func MBEEncoder_CodewordSize(h C.uintptr_t) C.int {
	layout, status := ffi.Layout(ffi.Handle(h))
	if status != ffi.StatusOK {
		return C.int(status)
	}
	return C.int(layout.CodewordBytes)
}

// MBEEncoder_FrameSamples returns the PCM samples consumed per frame.
//
//export MBEEncoder_FrameSamples
func MBEEncoder_FrameSamples() C.int {
	return mbe.FrameSamples
}

var version = C.CString(ffi.Version())

// MBEEncoder_Version returns a static string the caller must not free.
//
//export MBEEncoder_Version
func MBEEncoder_Version() *C.char {
	return version
}

func main() {}
