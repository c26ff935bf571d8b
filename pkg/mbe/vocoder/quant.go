// ABOUTME: Helpers shared by the AMBE and IMBE quantizers
// ABOUTME: Uniform scalar quantizers, DCT cache and spectral interpolation
package vocoder

import (
	"math"

	"github.com/dvmvoice/mbe-go/pkg/mbe"
	"gonum.org/v1/gonum/dsp/fourier"
)

// quantizeUniform maps v onto 2^bits levels spread evenly over [lo, hi].
func quantizeUniform(v, lo, hi float64, bits int) uint32 {
	levels := 1 << uint(bits)
	step := (hi - lo) / float64(levels-1)
	idx := math.Round((v - lo) / step)
	if idx < 0 {
		return 0
	}
	if idx > float64(levels-1) {
		return uint32(levels - 1)
	}
	return uint32(idx)
}

// dequantizeUniform is the inverse of quantizeUniform.
func dequantizeUniform(idx uint32, lo, hi float64, bits int) float64 {
	levels := 1 << uint(bits)
	step := (hi - lo) / float64(levels-1)
	return lo + float64(idx)*step
}

// dctCache holds one DCT plan per length. gonum's DCT is the type-I
// transform; applying it twice scales the input by 2(n-1).
type dctCache map[int]*fourier.DCT

func (c dctCache) get(n int) *fourier.DCT {
	t, ok := c[n]
	if !ok {
		t = fourier.NewDCT(n)
		c[n] = t
	}
	return t
}

// trapezoidMean is the mean that makes the DC term of a type-I DCT of
// x - mean vanish.
func trapezoidMean(x []float64) float64 {
	n := len(x)
	if n < 2 {
		if n == 1 {
			return x[0]
		}
		return 0
	}
	sum := -0.5 * (x[0] + x[n-1])
	for _, v := range x {
		sum += v
	}
	return sum / float64(n-1)
}

// logAmplitudeAt interpolates the analysis log amplitudes of p at
// frequency w (radians per sample).
func logAmplitudeAt(p *mbe.Params, w float64) float64 {
	if p.L < 1 || p.W0 <= 0 {
		return 0
	}
	h := w / p.W0
	if h <= 1 {
		return p.LogAmplitudes[1]
	}
	if h >= float64(p.L) {
		return p.LogAmplitudes[p.L]
	}
	i := int(h)
	frac := h - float64(i)
	return p.LogAmplitudes[i]*(1-frac) + p.LogAmplitudes[i+1]*frac
}

// voicedAt reports the analysis voicing decision of p nearest frequency w.
func voicedAt(p *mbe.Params, w float64) bool {
	if p.L < 1 || p.W0 <= 0 {
		return false
	}
	l := int(math.Round(w / p.W0))
	if l < 1 {
		l = 1
	}
	if l > p.L {
		l = p.L
	}
	return p.Voiced[l]
}

// fillFromReconstruction copies the quantizer reconstruction of p into its
// analysis fields. Used when parameters come from bits rather than audio.
func fillFromReconstruction(p *mbe.Params) {
	p.W0 = p.QW0
	p.L = p.QL
	p.K = mbe.BandCount(p.L)
	var sum float64
	for l := 1; l <= p.L; l++ {
		p.LogAmplitudes[l] = p.QLogAmplitudes[l]
		p.Amplitudes[l] = math.Max(0, math.Exp2(p.QLogAmplitudes[l])-1)
		sum += p.QLogAmplitudes[l]
	}
	if p.L > 0 {
		p.Gain = sum / float64(p.L)
	}
}
