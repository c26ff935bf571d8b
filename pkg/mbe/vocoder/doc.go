// ABOUTME: MBE vocoder engine package
// ABOUTME: Speech analysis plus DMR AMBE and P25 IMBE quantizers
// Package vocoder implements an MBE analysis engine and the per-mode
// quantizers that turn model parameters into radio codewords.
//
// Analysis runs once per 160-sample frame:
//   - pitch: normalized autocorrelation with sub-multiple checking and
//     tracking against the previous frame
//   - spectrum: Hamming window and 256-point FFT (gonum dsp/fourier)
//   - amplitudes and voicing: per-harmonic fit of the window response,
//     decided per band of three harmonics with hysteresis on the
//     previous frame's decision
//
// Quantizers:
//   - AMBE (DMR): 49 parameter bits, differential gain, 8-point cepstral
//     envelope, Golay protected and interleaved into a 72-bit frame
//   - IMBE (P25): 88 parameter bits, amplitudes predicted from the
//     previous frame and coded as a DCT of the residual
//
// Example:
//
//	eng := vocoder.New()
//	q, err := eng.Quantizer(mbe.ModeIMBE88)
//	err = eng.Analyze(samples, &prev, &cur)
//	err = q.Quantize(&cur, &prev, codeword)
package vocoder
