package permit

import (
	"encoding/binary"
	"fmt"
)

// DecodeError is returned for malformed, truncated or unknown-tag input.
// It is always fatal to the permit being decoded.
type DecodeError struct {
	msg string
}

func (e *DecodeError) Error() string { return "permit: " + e.msg }

func decodeErrorf(format string, a ...any) *DecodeError {
	return &DecodeError{msg: fmt.Sprintf(format, a...)}
}

// Uint128 is a 128-bit unsigned integer encoded as 16 little-endian bytes.
// Used for client order identifiers.
type Uint128 struct {
	Lo uint64
	Hi uint64
}

func NewUint128(v uint64) Uint128 { return Uint128{Lo: v} }

func (v Uint128) String() string {
	if v.Hi == 0 {
		return fmt.Sprintf("%d", v.Lo)
	}
	return fmt.Sprintf("0x%016x%016x", v.Hi, v.Lo)
}

// encoder appends the canonical little-endian representation of each
// field in schema order. It never fails: all sizes are fixed up front.
type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) bool(v bool)  { e.u8(boolByte(v)) }
func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *encoder) i64(v int64)  { e.u64(uint64(v)) }

func (e *encoder) u128(v Uint128) {
	e.u64(v.Lo)
	e.u64(v.Hi)
}

func (e *encoder) bytes32(v [32]byte) { e.buf = append(e.buf, v[:]...) }

// optU64 writes the one byte presence prefix followed by the value if any
func (e *encoder) optU64(v *uint64) {
	if v == nil {
		e.u8(0)
		return
	}
	e.u8(1)
	e.u64(*v)
}

func boolByte(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

// decoder is the strict counterpart of encoder. The first failure is
// sticky: subsequent reads return zero values and the original error
// is reported once.
type decoder struct {
	data []byte
	pos  int
	err  error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.data)-d.pos < n {
		d.fail(decodeErrorf("truncated input: need %d bytes at offset %d, have %d", n, d.pos, len(d.data)-d.pos))
		return nil
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *decoder) u8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) bool() bool {
	switch v := d.u8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail(decodeErrorf("invalid boolean byte %#02x", v))
		return false
	}
}

func (d *decoder) u16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *decoder) u64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *decoder) i64() int64 { return int64(d.u64()) }

func (d *decoder) u128() Uint128 {
	lo := d.u64()
	hi := d.u64()
	return Uint128{Lo: lo, Hi: hi}
}

func (d *decoder) bytes32() (out [32]byte) {
	b := d.take(32)
	if b != nil {
		copy(out[:], b)
	}
	return
}

func (d *decoder) optU64() *uint64 {
	if !d.option() {
		return nil
	}
	v := d.u64()
	return &v
}

// option reads the presence prefix of an optional field
func (d *decoder) option() bool {
	switch v := d.u8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail(decodeErrorf("invalid option prefix %#02x", v))
		return false
	}
}

// finish asserts the input was consumed exactly
func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if d.pos != len(d.data) {
		return decodeErrorf("%d trailing bytes after envelope", len(d.data)-d.pos)
	}
	return nil
}
