// ABOUTME: Packet decoder interface for network audio
// ABOUTME: Implemented by the PCM and Opus decoders feeding transcode sessions
package decode

// Decoder turns one network audio packet into interleaved int32 samples in
// 24-bit range. Decoders may keep state between packets.
type Decoder interface {
	Decode(packet []byte) ([]int32, error)

	// Close releases decoder resources
	Close() error
}
