// ABOUTME: MBE model package shared by the encoder facade and vocoder engine
// ABOUTME: Defines encode modes, frame parameters, engine contracts and bit helpers
// Package mbe defines the multi-band excitation (MBE) speech model used by
// narrowband digital radio vocoders.
//
// This package holds the pieces every other layer agrees on:
//   - Mode: the closed set of codeword layouts (DMR AMBE half rate, P25 IMBE 88-bit)
//   - Layout: frame size, parameter bit count and codeword size of a mode
//   - Params: one frame of model parameters (pitch, amplitudes, voicing, gain)
//   - Engine / Quantizer: the analysis and per-mode quantization contracts
//
// Example:
//
//	mode, err := mbe.ParseMode("imbe-88")
//	layout := mode.Layout()
//	codeword := make([]byte, layout.CodewordBytes)
package mbe
