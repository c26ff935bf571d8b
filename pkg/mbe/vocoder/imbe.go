// ABOUTME: 88-bit IMBE quantizer for P25 voice frames
// ABOUTME: Predicts amplitudes from the previous frame and codes the residual DCT
package vocoder

import (
	"fmt"
	"math"

	"github.com/dvmvoice/mbe-go/pkg/mbe"
)

const (
	imbeParamBits     = 88
	imbeCodewordBytes = 11

	imbePitchBits = 8
	imbePitchMax  = 207 // 208-255 are invalid

	imbeGainBits = 6
	imbeGainLo   = -8.0
	imbeGainHi   = 15.625

	imbePredictor = 0.65
	imbeCoefs     = 8
)

// Range (+-) of residual DCT coefficients 1..8 after normalizing by L-1.
var imbeCoefRange = [imbeCoefs]float64{6, 6, 4, 4, 4, 4, 4, 4}

// imbeFields are the quantizer indices of one frame, in bit order.
type imbeFields struct {
	pitch   uint32
	voicing uint32 // K bits, band 0 most significant
	gain    uint32
	coefs   [imbeCoefs]uint32
}

type imbeQuantizer struct {
	dct   dctCache
	resid []float64
	coef  []float64
	pred  [mbe.MaxHarmonics + 1]float64
	bits  [imbeParamBits]byte
}

func newIMBEQuantizer() *imbeQuantizer {
	return &imbeQuantizer{
		dct:   dctCache{},
		resid: make([]float64, mbe.MaxHarmonics),
		coef:  make([]float64, mbe.MaxHarmonics),
	}
}

func (q *imbeQuantizer) Mode() mbe.Mode {
	return mbe.ModeIMBE88
}

// Quantize codes cur into an 11-byte IMBE frame.
func (q *imbeQuantizer) Quantize(cur *mbe.Params, prev *mbe.Params, codeword []byte) error {
	if len(codeword) < imbeCodewordBytes {
		return mbe.ErrBufferTooSmall
	}
	if cur.W0 <= 0 || cur.L < 1 {
		return fmt.Errorf("imbe: frame has no fundamental (w0=%v, L=%d)", cur.W0, cur.L)
	}

	var f imbeFields
	f.pitch = imbePitchIndex(cur.W0)
	w0 := imbePitch(f.pitch)
	l := mbe.HarmonicCount(w0)
	k := mbe.BandCount(l)

	var voiced, total [mbe.MaxBands]int
	for h := 1; h <= l; h++ {
		band := mbe.BandOf(h, k)
		total[band]++
		if voicedAt(cur, float64(h)*w0) {
			voiced[band]++
		}
	}
	for band := 0; band < k; band++ {
		if 2*voiced[band] >= total[band] && total[band] > 0 {
			f.voicing |= 1 << uint(k-1-band)
		}
	}

	q.predict(prev, l)
	resid := q.resid[:l]
	for h := 1; h <= l; h++ {
		resid[h-1] = logAmplitudeAt(cur, float64(h)*w0) - q.pred[h]
	}
	mean := trapezoidMean(resid)
	f.gain = quantizeUniform(mean, imbeGainLo, imbeGainHi, imbeGainBits)

	for i := range resid {
		resid[i] -= mean
	}
	coef := q.dct.get(l).Transform(q.coef[:l], resid)
	norm := float64(l - 1)
	alloc := imbeAllocation(k)
	for i := 0; i < imbeCoefs; i++ {
		r := imbeCoefRange[i]
		f.coefs[i] = quantizeUniform(coef[i+1]/norm, -r, r, alloc[i])
	}

	q.reconstruct(f, prev, cur)
	q.putFields(f, k)
	packCodeword(codeword[:imbeCodewordBytes], q.bits[:])
	return nil
}

// Repack rebuilds cur from 88 unpacked parameter bits and packs them into
// an IMBE frame.
func (q *imbeQuantizer) Repack(bits []byte, prev *mbe.Params, cur *mbe.Params, codeword []byte) error {
	if len(bits) != imbeParamBits {
		return fmt.Errorf("%w: got %d, want %d", mbe.ErrInvalidBitCount, len(bits), imbeParamBits)
	}
	if len(codeword) < imbeCodewordBytes {
		return mbe.ErrBufferTooSmall
	}

	for i, v := range bits {
		if v != 0 {
			q.bits[i] = 1
		} else {
			q.bits[i] = 0
		}
	}

	f, k, err := q.getFields()
	if err != nil {
		return err
	}

	*cur = mbe.Params{}
	q.reconstruct(f, prev, cur)
	fillFromReconstruction(cur)
	for h := 1; h <= cur.L; h++ {
		cur.Voiced[h] = f.voicing&(1<<uint(k-1-mbe.BandOf(h, k))) != 0
	}

	packCodeword(codeword[:imbeCodewordBytes], q.bits[:])
	return nil
}

// predict fills q.pred with the scaled previous-frame reconstruction,
// resampled from the previous harmonic count to l.
func (q *imbeQuantizer) predict(prev *mbe.Params, l int) {
	q.pred = [mbe.MaxHarmonics + 1]float64{}
	if prev.QL < 1 {
		return
	}
	ratio := float64(prev.QL) / float64(l)
	for h := 1; h <= l; h++ {
		x := float64(h) * ratio
		i := int(x)
		frac := x - float64(i)
		lo := prevLog(prev, i)
		hi := prevLog(prev, i+1)
		q.pred[h] = imbePredictor * (lo*(1-frac) + hi*frac)
	}
}

// prevLog returns the previous reconstruction at harmonic i, holding the
// first and last harmonics beyond the ends.
func prevLog(prev *mbe.Params, i int) float64 {
	if i < 1 {
		i = 1
	}
	if i > prev.QL {
		i = prev.QL
	}
	return prev.QLogAmplitudes[i]
}

func (q *imbeQuantizer) reconstruct(f imbeFields, prev *mbe.Params, cur *mbe.Params) {
	w0 := imbePitch(f.pitch)
	l := mbe.HarmonicCount(w0)
	k := mbe.BandCount(l)

	q.predict(prev, l)
	gain := dequantizeUniform(f.gain, imbeGainLo, imbeGainHi, imbeGainBits)

	coef := q.coef[:l]
	for i := range coef {
		coef[i] = 0
	}
	norm := float64(l - 1)
	alloc := imbeAllocation(k)
	for i := 0; i < imbeCoefs; i++ {
		r := imbeCoefRange[i]
		coef[i+1] = dequantizeUniform(f.coefs[i], -r, r, alloc[i]) * norm
	}
	resid := q.dct.get(l).Transform(q.resid[:l], coef)
	scale := 1 / (2 * norm)

	cur.QW0 = w0
	cur.QL = l
	cur.QGain = gain
	cur.QLogAmplitudes = [mbe.MaxHarmonics + 1]float64{}
	for h := 1; h <= l; h++ {
		cur.QLogAmplitudes[h] = math.Max(0, resid[h-1]*scale+gain+q.pred[h])
	}
}

func (q *imbeQuantizer) putFields(f imbeFields, k int) {
	pos := mbe.PutField(q.bits[:], 0, imbePitchBits, f.pitch)
	pos = mbe.PutField(q.bits[:], pos, k, f.voicing)
	pos = mbe.PutField(q.bits[:], pos, imbeGainBits, f.gain)
	alloc := imbeAllocation(k)
	for i := 0; i < imbeCoefs; i++ {
		pos = mbe.PutField(q.bits[:], pos, alloc[i], f.coefs[i])
	}
}

func (q *imbeQuantizer) getFields() (imbeFields, int, error) {
	var f imbeFields
	var pos int
	f.pitch, pos = mbe.GetField(q.bits[:], 0, imbePitchBits)
	if f.pitch > imbePitchMax {
		return f, 0, fmt.Errorf("imbe: pitch index %d out of range", f.pitch)
	}
	k := mbe.BandCount(mbe.HarmonicCount(imbePitch(f.pitch)))
	f.voicing, pos = mbe.GetField(q.bits[:], pos, k)
	f.gain, pos = mbe.GetField(q.bits[:], pos, imbeGainBits)
	alloc := imbeAllocation(k)
	for i := 0; i < imbeCoefs; i++ {
		f.coefs[i], pos = mbe.GetField(q.bits[:], pos, alloc[i])
	}
	return f, k, nil
}

// imbeAllocation splits the bits left after pitch, voicing and gain
// across the residual coefficients, lower coefficients first.
func imbeAllocation(k int) [imbeCoefs]int {
	var alloc [imbeCoefs]int
	r := imbeParamBits - imbePitchBits - k - imbeGainBits
	for i := range alloc {
		alloc[i] = r / imbeCoefs
		if i < r%imbeCoefs {
			alloc[i]++
		}
	}
	return alloc
}

// imbePitchIndex codes w0 as b0 = floor(4pi/w0 - 39).
func imbePitchIndex(w0 float64) uint32 {
	idx := math.Floor(4*math.Pi/w0 - 39)
	if idx < 0 {
		return 0
	}
	if idx > imbePitchMax {
		return imbePitchMax
	}
	return uint32(idx)
}

func imbePitch(idx uint32) float64 {
	return 4 * math.Pi / (float64(idx) + 39.5)
}

func packCodeword(dst []byte, bits []byte) {
	for i := range dst {
		dst[i] = 0
	}
	mbe.PackBits(dst, bits)
}
