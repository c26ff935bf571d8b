// ABOUTME: Half-rate AMBE quantizer for DMR voice frames
// ABOUTME: Codes 49 parameter bits and interleaves them into 72-bit codewords
package vocoder

import (
	"fmt"
	"math"

	"github.com/dvmvoice/mbe-go/pkg/mbe"
)

const (
	ambeParamBits     = 49
	ambeCodewordBytes = 9

	// b0 values from 120 up are reserved for erasures and tones.
	ambePitchLevels = 120

	ambeRegions  = 5
	ambeEnvelope = 8

	// Gain is coded as the difference from a decayed copy of the previous
	// frame's gain.
	ambeGainDecay = 0.5
	ambeGainLo    = -4.0
	ambeGainHi    = 11.5
)

// Widths of parameters b0..b8.
var ambeFieldWidths = [9]int{7, 5, 5, 9, 7, 5, 4, 4, 3}

// Positions of each parameter's bits in the 49-bit vector, most
// significant first. The first 24 positions land in the Golay protected
// vectors, so every parameter keeps its high bits there.
var ambeFieldBits = [9][]int{
	{0, 1, 2, 3, 37, 38, 39},
	{4, 5, 6, 7, 35},
	{8, 9, 10, 11, 36},
	{12, 13, 14, 15, 16, 17, 18, 19, 40},
	{20, 21, 22, 23, 24, 25, 41},
	{26, 27, 28, 29, 42},
	{30, 31, 32, 43},
	{33, 34, 44, 45},
	{46, 47, 48},
}

// Range (+-) of envelope coefficients 1..6 after normalizing by n-1.
var ambeCoefRange = [6]float64{8, 6, 4, 4, 3, 3}

var (
	ambeLogW0Min = math.Log2(2 * math.Pi / maxPitch)
	ambeLogW0Max = math.Log2(2 * math.Pi / minPitch)
)

type ambeQuantizer struct {
	dct  dctCache
	env  []float64
	coef []float64
	bits [ambeParamBits]byte
}

func newAMBEQuantizer() *ambeQuantizer {
	return &ambeQuantizer{
		dct:  dctCache{},
		env:  make([]float64, ambeEnvelope),
		coef: make([]float64, ambeEnvelope),
	}
}

func (q *ambeQuantizer) Mode() mbe.Mode {
	return mbe.ModeDMRAMBE
}

// Quantize codes cur into a 9-byte DMR AMBE frame.
func (q *ambeQuantizer) Quantize(cur *mbe.Params, prev *mbe.Params, codeword []byte) error {
	if len(codeword) < ambeCodewordBytes {
		return mbe.ErrBufferTooSmall
	}
	if cur.W0 <= 0 || cur.L < 1 {
		return fmt.Errorf("ambe: frame has no fundamental (w0=%v, L=%d)", cur.W0, cur.L)
	}

	var b [9]uint32

	b[0] = ambePitchIndex(cur.W0)
	w0 := ambePitch(b[0])
	l := mbe.HarmonicCount(w0)

	var voiced, total [ambeRegions]int
	for h := 1; h <= l; h++ {
		r := ambeRegion(h, w0)
		total[r]++
		if voicedAt(cur, float64(h)*w0) {
			voiced[r]++
		}
	}
	for r := 0; r < ambeRegions; r++ {
		if total[r] > 0 && 2*voiced[r] >= total[r] {
			b[1] |= 1 << uint(ambeRegions-1-r)
		}
	}

	for j := range q.env {
		q.env[j] = logAmplitudeAt(cur, ambeEnvelopeFreq(j))
	}
	mean := trapezoidMean(q.env)
	b[2] = quantizeUniform(mean-ambeGainDecay*prev.QGain, ambeGainLo, ambeGainHi, ambeFieldWidths[2])

	for j := range q.env {
		q.env[j] -= mean
	}
	q.coef = q.dct.get(ambeEnvelope).Transform(q.coef, q.env)
	norm := float64(ambeEnvelope - 1)
	for k := 1; k <= 6; k++ {
		r := ambeCoefRange[k-1]
		b[k+2] = quantizeUniform(q.coef[k]/norm, -r, r, ambeFieldWidths[k+2])
	}

	q.reconstruct(b, prev, cur)
	q.putFields(b)
	interleaveDMR(q.bits[:], codeword)
	return nil
}

// Repack rebuilds cur from 49 unpacked parameter bits and interleaves them
// into a DMR AMBE frame.
func (q *ambeQuantizer) Repack(bits []byte, prev *mbe.Params, cur *mbe.Params, codeword []byte) error {
	if len(bits) != ambeParamBits {
		return fmt.Errorf("%w: got %d, want %d", mbe.ErrInvalidBitCount, len(bits), ambeParamBits)
	}
	if len(codeword) < ambeCodewordBytes {
		return mbe.ErrBufferTooSmall
	}

	for i, v := range bits {
		if v != 0 {
			q.bits[i] = 1
		} else {
			q.bits[i] = 0
		}
	}
	b := q.getFields()
	if b[0] >= ambePitchLevels {
		return fmt.Errorf("ambe: pitch index %d is reserved", b[0])
	}

	*cur = mbe.Params{}
	q.reconstruct(b, prev, cur)
	fillFromReconstruction(cur)
	for h := 1; h <= cur.L; h++ {
		cur.Voiced[h] = b[1]&(1<<uint(ambeRegions-1-ambeRegion(h, cur.W0))) != 0
	}

	interleaveDMR(q.bits[:], codeword)
	return nil
}

// reconstruct decodes the parameter indices into the reconstruction
// fields of cur.
func (q *ambeQuantizer) reconstruct(b [9]uint32, prev *mbe.Params, cur *mbe.Params) {
	w0 := ambePitch(b[0])
	l := mbe.HarmonicCount(w0)
	gain := dequantizeUniform(b[2], ambeGainLo, ambeGainHi, ambeFieldWidths[2]) + ambeGainDecay*prev.QGain

	norm := float64(ambeEnvelope - 1)
	for k := range q.coef {
		q.coef[k] = 0
	}
	for k := 1; k <= 6; k++ {
		r := ambeCoefRange[k-1]
		q.coef[k] = dequantizeUniform(b[k+2], -r, r, ambeFieldWidths[k+2]) * norm
	}
	q.env = q.dct.get(ambeEnvelope).Transform(q.env, q.coef)
	scale := 1 / (2 * norm)

	cur.QW0 = w0
	cur.QL = l
	cur.QGain = gain
	cur.QLogAmplitudes = [mbe.MaxHarmonics + 1]float64{}
	for h := 1; h <= l; h++ {
		x := float64(h)*w0/(math.Pi/ambeEnvelope) - 0.5
		var v float64
		switch {
		case x <= 0:
			v = q.env[0]
		case x >= ambeEnvelope-1:
			v = q.env[ambeEnvelope-1]
		default:
			i := int(x)
			frac := x - float64(i)
			v = q.env[i]*(1-frac) + q.env[i+1]*frac
		}
		cur.QLogAmplitudes[h] = math.Max(0, v*scale+gain)
	}
}

func (q *ambeQuantizer) putFields(b [9]uint32) {
	for f, positions := range ambeFieldBits {
		for i, p := range positions {
			shift := uint(len(positions) - 1 - i)
			q.bits[p] = byte((b[f] >> shift) & 1)
		}
	}
}

func (q *ambeQuantizer) getFields() [9]uint32 {
	var b [9]uint32
	for f, positions := range ambeFieldBits {
		for _, p := range positions {
			b[f] = b[f]<<1 | uint32(q.bits[p])
		}
	}
	return b
}

// ambePitchIndex codes w0 on a log scale over the pitch search range.
func ambePitchIndex(w0 float64) uint32 {
	x := (math.Log2(w0) - ambeLogW0Min) / (ambeLogW0Max - ambeLogW0Min) * (ambePitchLevels - 1)
	idx := math.Round(x)
	if idx < 0 {
		return 0
	}
	if idx > ambePitchLevels-1 {
		return ambePitchLevels - 1
	}
	return uint32(idx)
}

func ambePitch(idx uint32) float64 {
	x := float64(idx) / (ambePitchLevels - 1)
	return math.Exp2(ambeLogW0Min + x*(ambeLogW0Max-ambeLogW0Min))
}

// ambeRegion returns which of the equal-width voicing regions harmonic h
// falls in.
func ambeRegion(h int, w0 float64) int {
	r := int(float64(h) * w0 / (math.Pi / ambeRegions))
	if r >= ambeRegions {
		return ambeRegions - 1
	}
	return r
}

// ambeEnvelopeFreq is the center frequency of envelope point j.
func ambeEnvelopeFreq(j int) float64 {
	return (float64(j) + 0.5) * math.Pi / ambeEnvelope
}
