// ABOUTME: Encoder interface definition
// ABOUTME: Batch interface over whole speech frames of 24-bit range samples
package encode

// Encoder turns a block of samples into back to back codec frames.
type Encoder interface {
	// Encode converts samples in 24-bit range; implementations may
	// require a whole number of codec frames.
	Encode(samples []int32) ([]byte, error)

	// Close releases encoder resources
	Close() error
}
