// ABOUTME: DMR half-rate AMBE frame interleaving
// ABOUTME: Places FEC-protected parameter vectors into a 72-bit mini-frame
package vocoder

import "github.com/dvmvoice/mbe-go/pkg/mbe"

// Bit positions of the A (24), B (23) and C (25) vectors within one 72-bit
// DMR AMBE frame, most significant bit first.
var (
	dmrATable = [24]uint{
		0, 4, 8, 12, 16, 20, 24, 28, 32, 36, 40, 44,
		48, 52, 56, 60, 64, 68, 1, 5, 9, 13, 17, 21,
	}
	dmrBTable = [23]uint{
		25, 29, 33, 37, 41, 45, 49, 53, 57, 61, 65, 69,
		2, 6, 10, 14, 18, 22, 26, 30, 34, 38, 42,
	}
	dmrCTable = [25]uint{
		46, 50, 54, 58, 62, 66, 70, 3, 7, 11, 15, 19, 23,
		27, 31, 35, 39, 43, 47, 51, 55, 59, 63, 67, 71,
	}
)

// prngMask returns the 23-bit scrambling sequence applied to the B vector,
// seeded from the 12 data bits of the A vector.
func prngMask(seed uint32) uint32 {
	pr := 16 * (seed & 0xFFF)
	var mask uint32
	for i := 0; i < 23; i++ {
		pr = (173*pr + 13849) % 65536
		mask = mask<<1 | pr>>15
	}
	return mask
}

// interleaveDMR protects the 49 AMBE parameter bits and writes the 9-byte
// DMR frame.
//
// Bits 0-11 are Golay(24,12) coded into A, bits 12-23 are Golay(23,12)
// coded and scrambled into B, bits 24-48 are carried unprotected as C.
func interleaveDMR(bits []byte, codeword []byte) {
	c0, pos := mbe.GetField(bits, 0, 12)
	c1, pos := mbe.GetField(bits, pos, 12)
	c2, _ := mbe.GetField(bits, pos, 25)

	a := golay24Encode(c0)
	b := golay23Encode(c1) ^ prngMask(c0)

	for i := range codeword[:9] {
		codeword[i] = 0
	}

	mask := uint32(0x800000)
	for _, p := range dmrATable {
		mbe.WriteBit(codeword, p, a&mask != 0)
		mask >>= 1
	}
	mask = 0x400000
	for _, p := range dmrBTable {
		mbe.WriteBit(codeword, p, b&mask != 0)
		mask >>= 1
	}
	mask = 0x1000000
	for _, p := range dmrCTable {
		mbe.WriteBit(codeword, p, c2&mask != 0)
		mask >>= 1
	}
}
