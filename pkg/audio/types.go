// ABOUTME: Audio type definitions
// ABOUTME: Defines audio formats and sample conversions
package audio

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23

	// VoiceSampleRate is the narrowband speech rate used by MBE codecs.
	VoiceSampleRate = 8000
)

// Format describes audio stream format
type Format struct {
	Codec       string
	SampleRate  int
	Channels    int
	BitDepth    int
	CodecHeader []byte // For Opus, etc.
}

// VoiceFormat returns the 8 kHz mono 16-bit format for a speech codec
func VoiceFormat(codec string) Format {
	return Format{
		Codec:      codec,
		SampleRate: VoiceSampleRate,
		Channels:   1,
		BitDepth:   16,
	}
}

// SampleToInt16 converts a 24-bit range sample to the encoders' 16-bit input
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	// Left-shift to position 16-bit value in upper bits
	return int32(sample) << 8
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF // Set upper 8 bits to 1 for negative values
	}
	return val
}

// ScaleInt16 multiplies a 16-bit sample by gain, saturating at the int16
// range. The fractional part is truncated and a NaN product gives 0.
func ScaleInt16(sample int16, gain float32) int16 {
	v := float32(sample) * gain
	if v != v {
		return 0
	}
	if v >= 32767 {
		return 32767
	}
	if v <= -32768 {
		return -32768
	}
	return int16(v)
}
