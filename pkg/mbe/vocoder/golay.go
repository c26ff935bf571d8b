// ABOUTME: Golay(23,12) and extended Golay(24,12) encoders
// ABOUTME: Protect the two most sensitive AMBE parameter vectors
package vocoder

// golayPoly is the generator x^11+x^10+x^6+x^5+x^4+x^2+1.
const golayPoly = 0xC75

// golay23Encode returns the 23-bit codeword for 12 data bits, data in the
// high bits and parity in the low 11.
func golay23Encode(data uint32) uint32 {
	data &= 0xFFF
	rem := data << 11
	for i := 22; i >= 11; i-- {
		if rem&(1<<uint(i)) != 0 {
			rem ^= golayPoly << uint(i-11)
		}
	}
	return data<<11 | rem&0x7FF
}

// golay24Encode returns the 24-bit extended codeword: the Golay(23,12)
// codeword followed by an overall even parity bit.
func golay24Encode(data uint32) uint32 {
	cw := golay23Encode(data)
	return cw<<1 | parity(cw)
}

// golay23Syndrome returns the remainder of a 23-bit word; zero for a
// valid codeword.
func golay23Syndrome(cw uint32) uint32 {
	rem := cw & 0x7FFFFF
	for i := 22; i >= 11; i-- {
		if rem&(1<<uint(i)) != 0 {
			rem ^= golayPoly << uint(i-11)
		}
	}
	return rem & 0x7FF
}

func parity(v uint32) uint32 {
	v ^= v >> 16
	v ^= v >> 8
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v & 1
}
