// ABOUTME: Audio decoder package feeding speech into the MBE encoder
// ABOUTME: Provides packet Decoders (PCM, Opus) and file Sources (WAV, MP3, FLAC)
// Package decode turns recorded or received audio into int32 samples.
//
// Two shapes are provided. A Decoder converts one packet at a time, as
// audio arrives from a network (PCM, Opus). A Source pulls interleaved
// samples from a file until io.EOF (WAV, MP3, FLAC, raw PCM).
//
// All samples are int32 in 24-bit range, the convention of pkg/audio.
//
// Example:
//
//	src, err := decode.OpenFile("call.wav")
//	defer src.Close()
//	n, err := src.Read(buf)
package decode
