// ABOUTME: Contracts between the encoder facade and a vocoder engine
// ABOUTME: Analysis is shared; quantization is a per-mode strategy
package mbe

// Analyzer derives model parameters from one frame of PCM.
type Analyzer interface {
	// Analyze fills cur from samples. prev holds the previous frame and
	// must not be modified.
	Analyze(samples []int16, prev *Params, cur *Params) error
}

// Quantizer packs model parameters into the codeword of a single mode.
type Quantizer interface {
	// Mode returns the mode this quantizer produces.
	Mode() Mode

	// Quantize packs cur into codeword, using prev for inter-frame
	// prediction. It records the reconstruction in cur.QGain and
	// cur.QLogAmplitudes.
	Quantize(cur *Params, prev *Params, codeword []byte) error

	// Repack turns unpacked parameter bits (one bit per byte) into a
	// codeword without analysis. It rebuilds cur from the bits so the
	// history stays continuous with the sample path.
	Repack(bits []byte, prev *Params, cur *Params, codeword []byte) error
}

// Engine is a complete vocoder engine: one analyzer plus a quantizer for
// every mode it supports.
type Engine interface {
	Analyzer

	// Quantizer returns the strategy for mode. It is called once when an
	// encoder is constructed.
	Quantizer(mode Mode) (Quantizer, error)

	// Close releases engine resources.
	Close() error
}
