// ABOUTME: Per-frame MBE model parameters
// ABOUTME: Value type so frame history is kept by plain assignment
package mbe

const (
	// MinHarmonics and MaxHarmonics bound the harmonic count L.
	MinHarmonics = 9
	MaxHarmonics = 56

	// MaxBands is the largest number of voicing bands K.
	MaxBands = 12
)

// Params is one frame of MBE model parameters.
//
// Harmonic-indexed arrays are 1-based: index 0 is unused so that
// Amplitudes[l] is the amplitude of harmonic l. The zero value is the
// neutral state an encoder starts from.
type Params struct {
	W0 float64 // fundamental frequency, radians per sample
	L  int     // number of harmonics
	K  int     // number of voicing bands

	Voiced        [MaxHarmonics + 1]bool
	Amplitudes    [MaxHarmonics + 1]float64
	LogAmplitudes [MaxHarmonics + 1]float64 // log2(1 + amplitude)

	Gain   float64 // mean of LogAmplitudes[1..L]
	Energy float64 // mean square of the analyzed samples
	Silent bool

	// Quantizer reconstruction, the values a decoder would see. Prediction
	// in the next frame works from these rather than the analysis values.
	QW0            float64
	QL             int
	QGain          float64
	QLogAmplitudes [MaxHarmonics + 1]float64
}

// VoicedCount returns how many of the L harmonics are voiced.
func (p *Params) VoicedCount() int {
	n := 0
	for l := 1; l <= p.L && l <= MaxHarmonics; l++ {
		if p.Voiced[l] {
			n++
		}
	}
	return n
}

// HarmonicCount returns the harmonic count for fundamental w0, clamped to
// [MinHarmonics, MaxHarmonics].
func HarmonicCount(w0 float64) int {
	if w0 <= 0 {
		return MinHarmonics
	}
	l := int(0.9254 * float64(int(3.141592653589793/w0+0.25)))
	if l < MinHarmonics {
		return MinHarmonics
	}
	if l > MaxHarmonics {
		return MaxHarmonics
	}
	return l
}

// BandCount returns the number of voicing bands for L harmonics. Each band
// covers three harmonics; the last band takes whatever is left.
func BandCount(l int) int {
	if l > 36 {
		return MaxBands
	}
	return (l + 2) / 3
}

// BandOf returns the voicing band (0-based) that harmonic l belongs to
// when there are k bands.
func BandOf(l, k int) int {
	b := (l - 1) / 3
	if b >= k {
		return k - 1
	}
	return b
}
