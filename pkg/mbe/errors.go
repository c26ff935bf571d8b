// ABOUTME: Sentinel errors for MBE encoding
// ABOUTME: Callers match these with errors.Is
package mbe

import "errors"

var (
	// ErrInvalidMode indicates a mode outside the defined set.
	ErrInvalidMode = errors.New("mbe: invalid encode mode")

	// ErrInvalidFrameSize indicates a PCM block that is not exactly one frame.
	ErrInvalidFrameSize = errors.New("mbe: invalid frame size")

	// ErrInvalidBitCount indicates a parameter bit block of the wrong length.
	ErrInvalidBitCount = errors.New("mbe: invalid parameter bit count")

	// ErrBufferTooSmall indicates the codeword buffer cannot hold one codeword.
	ErrBufferTooSmall = errors.New("mbe: codeword buffer too small")

	// ErrEngineFault indicates the vocoder engine failed to analyze or
	// quantize a frame. The frame is lost; nothing is retried.
	ErrEngineFault = errors.New("mbe: engine fault")

	// ErrInvalidGain indicates a NaN or infinite gain adjust.
	ErrInvalidGain = errors.New("mbe: invalid gain adjust")

	// ErrClosed indicates use of an encoder after Close.
	ErrClosed = errors.New("mbe: encoder closed")
)
