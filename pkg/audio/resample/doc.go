// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts file and network audio to the 8 kHz speech rate
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation between neighbouring samples. The resampler is
// streaming: the last input frame of one call is kept so interpolation is
// continuous across chunk boundaries. Downsampling does not low-pass filter
// first, so content above the output Nyquist rate aliases.
//
// Example:
//
//	r := resample.New(48000, 8000, 1)
//	out := make([]int32, r.OutputSamplesNeeded(len(in)))
//	n := r.Resample(in, out)
package resample
