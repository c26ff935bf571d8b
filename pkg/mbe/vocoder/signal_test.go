// ABOUTME: Test signal generators for the vocoder tests
// ABOUTME: Harmonic series and deterministic noise frames
package vocoder

import (
	"math"

	"github.com/dvmvoice/mbe-go/pkg/mbe"
)

// harmonicFrame returns a frame of harmonics of the given period with
// amplitudes amp/h, starting at sample offset.
func harmonicFrame(period, amp float64, harmonics, offset int) []int16 {
	s := make([]int16, mbe.FrameSamples)
	for n := range s {
		var v float64
		for h := 1; h <= harmonics; h++ {
			v += amp / float64(h) * math.Cos(2*math.Pi*float64(h)*float64(n+offset)/period)
		}
		s[n] = int16(v)
	}
	return s
}

// noiseFrame returns a frame of uniform noise from a fixed LCG seed.
func noiseFrame(seed uint32, amp float64) []int16 {
	s := make([]int16, mbe.FrameSamples)
	x := seed
	for n := range s {
		x = x*1664525 + 1013904223
		u := float64(x>>8)/float64(1<<24)*2 - 1
		s[n] = int16(u * amp)
	}
	return s
}
