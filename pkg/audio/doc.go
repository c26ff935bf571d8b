// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and sample conversion functions used by the codecs
// Package audio provides fundamental audio types and utilities shared by the
// decoders, the frame source and the MBE encoder.
//
// This package defines:
//   - Format: Describes an audio stream (codec, sample rate, channels, bit depth)
//   - VoiceFormat: the 8 kHz mono 16-bit format MBE encoders accept
//
// It also provides utilities for converting between sample formats:
//   - 16-bit ↔ 24-bit conversions (int32 samples are kept in 24-bit range)
//   - int32 ↔ packed byte conversions
//   - saturating gain on 16-bit samples
//
// Example:
//
//	format := audio.VoiceFormat("imbe-88")
//
//	// Convert 16-bit sample to 24-bit range
//	sample24 := audio.SampleFromInt16(sample16)
package audio
