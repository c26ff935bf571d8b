// ABOUTME: Speech framing package for the MBE encoder input contract
// ABOUTME: Turns arbitrary PCM into 8 kHz mono int16 frames of 160 samples
// Package frame converts decoded audio into the fixed frames an MBE encoder
// consumes.
//
// A Framer accepts interleaved int32 samples at any rate and channel count,
// downmixes them to mono, resamples to 8 kHz and cuts 20ms frames. A Reader
// drives a Framer from a decode.Source.
//
// Example:
//
//	src, _ := decode.OpenFile("call.wav")
//	r, _ := frame.NewReader(src)
//	pcm := make([]int16, mbe.FrameSamples)
//	for r.ReadFrame(pcm) == nil {
//		enc.EncodeFrame(pcm, codeword)
//	}
package frame
