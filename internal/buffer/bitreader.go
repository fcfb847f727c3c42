package buffer

// BitReader reads MSB-first bits from a byte slice.
type BitReader struct {
	data    []byte
	bytePos int
	bitPos  uint8
}

func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data}
}

func (r *BitReader) BytesLeft() int {
	if r.bytePos >= len(r.data) {
		return 0
	}
	return len(r.data) - r.bytePos
}

// Pos returns the current byte offset.
func (r *BitReader) Pos() int {
	return r.bytePos
}

func (r *BitReader) ReadBit() (uint64, bool) {
	if r.bytePos >= len(r.data) {
		return 0, false
	}
	b := r.data[r.bytePos]
	bit := (b >> (7 - r.bitPos)) & 0x01
	r.bitPos++
	if r.bitPos == 8 {
		r.bitPos = 0
		r.bytePos++
	}
	return uint64(bit), true
}

func (r *BitReader) ReadBits(n int) (uint64, bool) {
	if n <= 0 {
		return 0, true
	}
	var v uint64
	for i := 0; i < n; i++ {
		bit, ok := r.ReadBit()
		if !ok {
			return 0, false
		}
		v = (v << 1) | bit
	}
	return v, true
}

func (r *BitReader) ReadBool() (bool, bool) {
	bit, ok := r.ReadBit()
	return bit == 1, ok
}

func (r *BitReader) ReadByte() (byte, bool) {
	if r.bitPos == 0 {
		if r.bytePos >= len(r.data) {
			return 0, false
		}
		b := r.data[r.bytePos]
		r.bytePos++
		return b, true
	}
	val, ok := r.ReadBits(8)
	if !ok {
		return 0, false
	}
	return byte(val), true
}

func (r *BitReader) ReadUint16() (uint16, bool) {
	v, ok := r.ReadBits(16)
	return uint16(v), ok
}

func (r *BitReader) ReadUint32() (uint32, bool) {
	v, ok := r.ReadBits(32)
	return uint32(v), ok
}

func (r *BitReader) SkipBits(n int) bool {
	if n <= 0 {
		return true
	}
	total := r.bytePos*8 + int(r.bitPos) + n
	if total > len(r.data)*8 {
		r.bytePos = len(r.data)
		r.bitPos = 0
		return false
	}
	r.bytePos = total / 8
	r.bitPos = uint8(total % 8)
	return true
}

func (r *BitReader) SkipBytes(n int) bool {
	return r.SkipBits(n * 8)
}

// AlignByte discards the remaining bits of a partially read byte.
func (r *BitReader) AlignByte() {
	if r.bitPos != 0 {
		r.bitPos = 0
		r.bytePos++
	}
}
