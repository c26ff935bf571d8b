// ABOUTME: Tests for bit packing helpers
// ABOUTME: Verifies MSB-first addressing and field round trips
package mbe

import "testing"

func TestWriteReadBit(t *testing.T) {
	data := make([]byte, 2)
	WriteBit(data, 0, true)
	WriteBit(data, 9, true)
	WriteBit(data, 15, true)

	if data[0] != 0x80 || data[1] != 0x41 {
		t.Fatalf("unexpected bytes %#v", data)
	}
	if !ReadBit(data, 9) || ReadBit(data, 8) {
		t.Error("ReadBit disagrees with WriteBit")
	}

	WriteBit(data, 9, false)
	if data[1] != 0x01 {
		t.Errorf("clear failed: %#x", data[1])
	}

	// Out of range is ignored
	WriteBit(data, 16, true)
	if ReadBit(data, 16) {
		t.Error("expected out-of-range read to be false")
	}
}

func TestPackUnpackBits(t *testing.T) {
	bits := []byte{1, 0, 1, 1, 0, 0, 0, 1, 1, 1, 0}
	packed := make([]byte, 2)
	PackBits(packed, bits)

	if packed[0] != 0xB1 || packed[1] != 0xC0 {
		t.Fatalf("unexpected packing %#v", packed)
	}

	unpacked := make([]byte, len(bits))
	UnpackBits(unpacked, packed, len(bits))
	for i := range bits {
		if unpacked[i] != bits[i] {
			t.Errorf("bit %d: got %d, want %d", i, unpacked[i], bits[i])
		}
	}
}

func TestPackBitsTreatsNonzeroAsOne(t *testing.T) {
	packed := make([]byte, 1)
	PackBits(packed, []byte{0xFF, 0, 2})
	if packed[0] != 0xA0 {
		t.Errorf("got %#x, want 0xa0", packed[0])
	}
}

func TestFields(t *testing.T) {
	bits := make([]byte, 20)
	pos := PutField(bits, 0, 7, 0x55)
	pos = PutField(bits, pos, 13, 0x1ABC)
	if pos != 20 {
		t.Fatalf("pos = %d, want 20", pos)
	}

	v, pos := GetField(bits, 0, 7)
	if v != 0x55 {
		t.Errorf("first field = %#x, want 0x55", v)
	}
	v, _ = GetField(bits, pos, 13)
	if v != 0x1ABC {
		t.Errorf("second field = %#x, want 0x1abc", v)
	}
}
