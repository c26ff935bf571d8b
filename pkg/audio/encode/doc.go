// ABOUTME: Audio encoder package for encoding PCM to radio voice codewords
// ABOUTME: Provides Encoder interface and the MBE encoder facade
// Package encode provides audio encoders.
//
// Supports: MBE (DMR AMBE half rate, P25 IMBE 88-bit)
//
// All encoders implement Encoder, which accepts int32 samples in 24-bit
// range. The MBE encoder additionally exposes frame-level calls that take
// 16-bit PCM or raw parameter bits and keep one frame of parameter history.
//
// Example:
//
//	encoder, err := encode.NewMBE(audio.VoiceFormat("imbe-88"))
//	codeword := make([]byte, encoder.Layout().CodewordBytes)
//	err = encoder.EncodeFrame(samples, codeword)
package encode
