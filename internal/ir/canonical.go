package ir

import (
	"encoding/binary"
	"fmt"
	"math"
)

// canonicalNaN is the single bit pattern every NaN is folded to.
const canonicalNaN = 0x7ff8000000000001

// TupleKey produces the canonical byte encoding of a value sequence.
// CRITICAL: This is the ONLY encoding that should be used for tuple
// identity (set membership, hash joins, content digests).
//
// Two sequences have equal keys iff they have the same length and are
// pairwise Equal. The encoding is self-delimiting:
//  1. Each value is prefixed with its Domain tag byte
//  2. Fixed-width numbers are big-endian
//  3. Floats fold -0 to +0 and every NaN to one bit pattern
//  4. Strings and binaries are length-prefixed (uvarint)
//
// Strings are NOT normalized; values are compared exactly as stored.
func TupleKey(values []Value) string {
	buf := make([]byte, 0, 16*len(values))
	for _, v := range values {
		buf = AppendCanonical(buf, v)
	}
	return string(buf)
}

// AppendCanonical appends the canonical encoding of v to buf.
func AppendCanonical(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.Domain()))
	switch val := v.(type) {
	case Boolean:
		if val {
			return append(buf, 1)
		}
		return append(buf, 0)
	case Byte:
		return append(buf, byte(val))
	case UnsignedInteger:
		return binary.BigEndian.AppendUint64(buf, uint64(val))
	case Integer:
		return binary.BigEndian.AppendUint64(buf, uint64(val))
	case Float:
		return binary.BigEndian.AppendUint64(buf, canonicalFloatBits(float64(val)))
	case Char:
		return binary.BigEndian.AppendUint32(buf, uint32(val))
	case String:
		buf = binary.AppendUvarint(buf, uint64(len(val)))
		return append(buf, val...)
	case Binary:
		buf = binary.AppendUvarint(buf, uint64(len(val)))
		return append(buf, val...)
	default:
		panic(fmt.Sprintf("unknown value type: %T", v))
	}
}

func canonicalFloatBits(f float64) uint64 {
	switch {
	case math.IsNaN(f):
		return canonicalNaN
	case f == 0:
		return 0
	default:
		return math.Float64bits(f)
	}
}
