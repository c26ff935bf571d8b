// ABOUTME: Vocoder engine implementing mbe.Engine
// ABOUTME: Owns the analysis buffers and hands out per-mode quantizers
package vocoder

import (
	"fmt"
	"math"

	"github.com/dvmvoice/mbe-go/pkg/mbe"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	fftSize = 256

	// Pitch period search range in samples.
	minPitch = 19.875
	maxPitch = 123.125
	minLag   = 20
	maxLag   = 123

	// Period assumed for silent frames.
	silencePitch = 100.0

	// Mean square below which a frame is classified as silence.
	silenceEnergy = 4.0

	// Window response table: +-responseSpan bins at 1/responseSteps resolution.
	responseSpan  = 8
	responseSteps = 32
)

// Engine is the MBE analysis engine. It is not safe for concurrent use;
// each encoder owns one.
type Engine struct {
	fft          *fourier.FFT
	window       []float64
	windowEnergy float64 // sum of squared window coefficients
	response     []complex128

	frame  []float64
	buf    []float64
	coeffs []complex128
	power  []float64
	corr   []float64
}

// New creates an analysis engine.
func New() *Engine {
	ones := make([]float64, mbe.FrameSamples)
	for i := range ones {
		ones[i] = 1
	}
	w := window.Hamming(ones)

	e := &Engine{
		fft:    fourier.NewFFT(fftSize),
		window: w,
		frame:  make([]float64, mbe.FrameSamples),
		buf:    make([]float64, fftSize),
		coeffs: make([]complex128, fftSize/2+1),
		power:  make([]float64, fftSize/2+1),
		corr:   make([]float64, maxLag+1),
	}
	for _, v := range w {
		e.windowEnergy += v * v
	}
	e.response = windowResponse(w)
	return e
}

// windowResponse tabulates the DTFT of the analysis window over
// +-responseSpan FFT bins.
func windowResponse(w []float64) []complex128 {
	n := 2*responseSpan*responseSteps + 1
	table := make([]complex128, n)
	for i := range table {
		bins := float64(i-responseSpan*responseSteps) / responseSteps
		omega := 2 * math.Pi * bins / fftSize
		var re, im float64
		for j, v := range w {
			s, c := math.Sincos(omega * float64(j))
			re += v * c
			im -= v * s
		}
		table[i] = complex(re, im)
	}
	return table
}

// responseAt returns the window response at an offset of bins from the
// window center. Offsets beyond the table are treated as zero.
func (e *Engine) responseAt(bins float64) complex128 {
	i := int(math.Round((bins + responseSpan) * responseSteps))
	if i < 0 || i >= len(e.response) {
		return 0
	}
	return e.response[i]
}

// Quantizer returns a new quantizer for mode.
func (e *Engine) Quantizer(mode mbe.Mode) (mbe.Quantizer, error) {
	switch mode {
	case mbe.ModeDMRAMBE:
		return newAMBEQuantizer(), nil
	case mbe.ModeIMBE88:
		return newIMBEQuantizer(), nil
	default:
		return nil, fmt.Errorf("%w: %d", mbe.ErrInvalidMode, int(mode))
	}
}

// Close releases engine resources.
func (e *Engine) Close() error {
	return nil
}

var _ mbe.Engine = (*Engine)(nil)
