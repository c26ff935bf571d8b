// ABOUTME: Handle based encoder API for callers outside Go
// ABOUTME: Maps opaque handles to encoders and errors to status codes
// Package ffi exposes MBE encoders through plain functions over opaque
// handles, the shape a C ABI needs.
//
// Go errors never cross this boundary. Every call returns one of the Status
// codes and logs the underlying error. Handles are never reused, so a
// destroyed handle reports StatusInvalidHandle instead of reaching another
// encoder.
//
// Example:
//
//	h := ffi.Create(int(mbe.ModeIMBE88))
//	defer ffi.Destroy(h)
//	status := ffi.Encode(h, samples, codeword)
package ffi
