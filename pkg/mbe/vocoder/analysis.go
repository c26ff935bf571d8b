// ABOUTME: MBE speech analysis for one 20ms frame
// ABOUTME: Estimates pitch, harmonic amplitudes, voicing and gain
package vocoder

import (
	"fmt"
	"math"

	"github.com/dvmvoice/mbe-go/pkg/mbe"
	"gonum.org/v1/gonum/floats"
)

const (
	// Bonus added to the correlation of lags near the previous pitch.
	trackingBonus = 0.05

	// A sub-multiple of the best lag wins if it reaches this fraction of
	// the best correlation.
	subMultipleRatio = 0.85

	// Normalized fit error below which a band is voiced. A band voiced in
	// the previous frame uses the looser threshold.
	voicingThreshold       = 0.3
	voicingThresholdSticky = 0.4
)

// Analyze fills cur with the model parameters of samples.
func (e *Engine) Analyze(samples []int16, prev *mbe.Params, cur *mbe.Params) error {
	if len(samples) != mbe.FrameSamples {
		return fmt.Errorf("%w: got %d samples, want %d", mbe.ErrInvalidFrameSize, len(samples), mbe.FrameSamples)
	}

	*cur = mbe.Params{}

	var mean float64
	for _, s := range samples {
		mean += float64(s)
	}
	mean /= float64(len(samples))
	for i, s := range samples {
		e.frame[i] = float64(s) - mean
	}

	cur.Energy = floats.Dot(e.frame, e.frame) / float64(len(e.frame))
	if cur.Energy < silenceEnergy {
		cur.Silent = true
		cur.W0 = 2 * math.Pi / silencePitch
		cur.L = mbe.HarmonicCount(cur.W0)
		cur.K = mbe.BandCount(cur.L)
		return nil
	}

	period := e.estimatePitch(prev)
	cur.W0 = 2 * math.Pi / period
	cur.L = mbe.HarmonicCount(cur.W0)
	cur.K = mbe.BandCount(cur.L)

	e.spectrum()
	e.harmonics(prev, cur)

	var sum float64
	for l := 1; l <= cur.L; l++ {
		sum += cur.LogAmplitudes[l]
	}
	cur.Gain = sum / float64(cur.L)
	return nil
}

// estimatePitch returns the pitch period in samples.
func (e *Engine) estimatePitch(prev *mbe.Params) float64 {
	x := e.frame
	n := len(x)

	tracking := prev != nil && prev.W0 > 0 && !prev.Silent && prev.VoicedCount() > 0
	var prevLag float64
	if tracking {
		prevLag = 2 * math.Pi / prev.W0
	}

	for i := range e.corr {
		e.corr[i] = 0
	}

	best, bestScore := 0, math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		a, b := x[:n-lag], x[lag:]
		den := math.Sqrt(floats.Dot(a, a) * floats.Dot(b, b))
		if den == 0 {
			continue
		}
		r := floats.Dot(a, b) / den
		e.corr[lag] = r

		score := r
		if tracking && math.Abs(float64(lag)-prevLag) <= 0.2*prevLag {
			score += trackingBonus
		}
		if score > bestScore {
			best, bestScore = lag, score
		}
	}
	if best == 0 {
		return silencePitch
	}

	// A periodic signal correlates at every multiple of its period; take
	// the shortest one that still correlates nearly as well.
	for k := 4; k >= 2; k-- {
		sub := int(math.Round(float64(best) / float64(k)))
		if sub >= minLag && e.corr[sub] >= subMultipleRatio*e.corr[best] {
			best = sub
			break
		}
	}

	return e.refineLag(best)
}

// refineLag places the correlation peak between integer lags by
// parabolic interpolation.
func (e *Engine) refineLag(lag int) float64 {
	p := float64(lag)
	if lag > minLag && lag < maxLag {
		r0, r1, r2 := e.corr[lag-1], e.corr[lag], e.corr[lag+1]
		den := r0 - 2*r1 + r2
		if den < 0 {
			off := 0.5 * (r0 - r2) / den
			if off > -1 && off < 1 {
				p += off
			}
		}
	}
	return math.Max(minPitch, math.Min(maxPitch, p))
}

// spectrum computes the windowed FFT of the current frame.
func (e *Engine) spectrum() {
	for i := range e.buf {
		e.buf[i] = 0
	}
	for i, v := range e.frame {
		e.buf[i] = v * e.window[i]
	}
	e.coeffs = e.fft.Coefficients(e.coeffs, e.buf)
	for k, c := range e.coeffs {
		e.power[k] = real(c)*real(c) + imag(c)*imag(c)
	}
}

// harmonics estimates the amplitude of every harmonic and makes the
// voicing decision for every band.
func (e *Engine) harmonics(prev *mbe.Params, cur *mbe.Params) {
	binsPerRad := fftSize / (2 * math.Pi)
	scale := fftSize * e.windowEnergy
	nbins := len(e.coeffs)

	var bandErr, bandEnergy [mbe.MaxBands]float64
	var fitted [mbe.MaxHarmonics + 1]float64

	for l := 1; l <= cur.L; l++ {
		center := float64(l) * cur.W0 * binsPerRad
		lo := int(math.Ceil(center - 0.5*cur.W0*binsPerRad))
		hi := int(math.Ceil(center + 0.5*cur.W0*binsPerRad))
		if lo < 0 {
			lo = 0
		}
		if hi > nbins {
			hi = nbins
		}
		if hi <= lo {
			continue
		}

		// Least-squares fit of one shifted window response to the band.
		var num complex128
		var wsum float64
		for k := lo; k < hi; k++ {
			w := e.responseAt(float64(k) - center)
			num += e.coeffs[k] * complex(real(w), -imag(w))
			wsum += real(w)*real(w) + imag(w)*imag(w)
		}
		var fit complex128
		if wsum > 0 {
			fit = num / complex(wsum, 0)
		}

		var energy, fitErr float64
		for k := lo; k < hi; k++ {
			d := e.coeffs[k] - fit*e.responseAt(float64(k)-center)
			fitErr += real(d)*real(d) + imag(d)*imag(d)
			energy += e.power[k]
		}

		band := mbe.BandOf(l, cur.K)
		bandErr[band] += fitErr
		bandEnergy[band] += energy

		// Voiced bands keep the fitted amplitude; the energy estimate is
		// used below for unvoiced ones.
		cur.Amplitudes[l] = 2 * math.Sqrt(energy/scale)
		fitted[l] = 2 * math.Hypot(real(fit), imag(fit))
	}

	var voicedBand [mbe.MaxBands]bool
	for b := 0; b < cur.K; b++ {
		if bandEnergy[b] == 0 {
			continue
		}
		threshold := voicingThreshold
		if prev != nil && !prev.Silent && prev.K > b && bandVoiced(prev, b) {
			threshold = voicingThresholdSticky
		}
		voicedBand[b] = bandErr[b]/bandEnergy[b] < threshold
	}

	for l := 1; l <= cur.L; l++ {
		cur.Voiced[l] = voicedBand[mbe.BandOf(l, cur.K)]
		if cur.Voiced[l] {
			cur.Amplitudes[l] = fitted[l]
		}
		cur.LogAmplitudes[l] = math.Log2(1 + cur.Amplitudes[l])
	}
}

// bandVoiced reports whether the first harmonic of band b was voiced in p.
func bandVoiced(p *mbe.Params, b int) bool {
	l := 3*b + 1
	if l > p.L || l > mbe.MaxHarmonics {
		return false
	}
	return p.Voiced[l]
}
