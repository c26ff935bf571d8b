// ABOUTME: Bit packing helpers for codeword buffers
// ABOUTME: MSB-first bit addressing, unpacked one-bit-per-byte vectors
package mbe

var bitMaskTable = [8]byte{0x80, 0x40, 0x20, 0x10, 0x08, 0x04, 0x02, 0x01}

// ReadBit returns bit pos of data, MSB first. Positions past the end read
// as false.
func ReadBit(data []byte, pos uint) bool {
	bytePos := pos >> 3
	if int(bytePos) >= len(data) {
		return false
	}
	return data[bytePos]&bitMaskTable[pos&7] != 0
}

// WriteBit sets or clears bit pos of data, MSB first. Positions past the
// end are ignored.
func WriteBit(data []byte, pos uint, value bool) {
	bytePos := pos >> 3
	if int(bytePos) >= len(data) {
		return
	}
	if value {
		data[bytePos] |= bitMaskTable[pos&7]
	} else {
		data[bytePos] &^= bitMaskTable[pos&7]
	}
}

// PackBits packs an unpacked bit vector into dst, MSB first. Any nonzero
// byte in bits is a 1.
func PackBits(dst []byte, bits []byte) {
	for i, b := range bits {
		WriteBit(dst, uint(i), b != 0)
	}
}

// UnpackBits expands the first n bits of src into dst, one bit per byte.
func UnpackBits(dst []byte, src []byte, n int) {
	for i := 0; i < n && i < len(dst); i++ {
		if ReadBit(src, uint(i)) {
			dst[i] = 1
		} else {
			dst[i] = 0
		}
	}
}

// PutField writes the low width bits of v into bits starting at pos, MSB
// first, and returns the position after the field.
func PutField(bits []byte, pos int, width int, v uint32) int {
	for i := width - 1; i >= 0; i-- {
		bits[pos] = byte((v >> uint(i)) & 1)
		pos++
	}
	return pos
}

// GetField reads width bits from bits starting at pos, MSB first, and
// returns the value and the position after the field.
func GetField(bits []byte, pos int, width int) (uint32, int) {
	var v uint32
	for i := 0; i < width; i++ {
		v <<= 1
		if bits[pos] != 0 {
			v |= 1
		}
		pos++
	}
	return v, pos
}
