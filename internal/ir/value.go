package ir

import (
	"bytes"
	"cmp"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Value is a sealed interface representing a typed scalar.
// Only Boolean, Byte, UnsignedInteger, Integer, Float, Char, String, and
// Binary implement this. Values are immutable and compared by value.
type Value interface {
	// Domain returns the type tag of the value.
	Domain() Domain

	// String returns the literal display form of the value.
	String() string

	value() // Sealed - only these types implement it
}

// Boolean is a truth value.
type Boolean bool

// Byte is an unsigned 8-bit value.
type Byte uint8

// UnsignedInteger is an unsigned 64-bit integer.
type UnsignedInteger uint64

// Integer is a signed 64-bit integer.
type Integer int64

// Float is an IEEE-754 double.
type Float float64

// Char is a single Unicode code point.
type Char rune

// String is a UTF-8 string.
type String string

// Binary is an opaque byte string.
// Binary values must not be mutated after construction.
type Binary []byte

func (Boolean) value()         {}
func (Byte) value()            {}
func (UnsignedInteger) value() {}
func (Integer) value()         {}
func (Float) value()           {}
func (Char) value()            {}
func (String) value()          {}
func (Binary) value()          {}

func (Boolean) Domain() Domain         { return DomainBoolean }
func (Byte) Domain() Domain            { return DomainByte }
func (UnsignedInteger) Domain() Domain { return DomainUnsigned }
func (Integer) Domain() Domain         { return DomainInteger }
func (Float) Domain() Domain           { return DomainFloat }
func (Char) Domain() Domain            { return DomainChar }
func (String) Domain() Domain          { return DomainString }
func (Binary) Domain() Domain          { return DomainBinary }

func (v Boolean) String() string         { return strconv.FormatBool(bool(v)) }
func (v Byte) String() string            { return fmt.Sprintf("0x%02x", uint8(v)) }
func (v UnsignedInteger) String() string { return strconv.FormatUint(uint64(v), 10) }
func (v Integer) String() string         { return strconv.FormatInt(int64(v), 10) }
func (v Float) String() string           { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v Char) String() string            { return strconv.QuoteRune(rune(v)) }
func (v String) String() string          { return strconv.Quote(string(v)) }
func (v Binary) String() string          { return "x'" + hex.EncodeToString(v) + "'" }

// Text returns the unquoted display form of v, as written to CSV cells and
// table output. Strings and chars are returned verbatim; binary values as
// bare hex.
func Text(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Char:
		return string(rune(val))
	case Binary:
		return hex.EncodeToString(val)
	case Byte:
		return strconv.FormatUint(uint64(val), 10)
	default:
		return v.String()
	}
}

// Compare returns the natural ordering of two values of the same domain:
// -1 if a < b, 0 if equal, +1 if a > b.
//
// Booleans order false before true, binary values compare bytewise, and
// floats follow cmp.Compare (NaN sorts first and equals itself; -0 equals
// 0). The same total order drives sorting, set membership, and predicate
// evaluation.
//
// Returns an *Error of kind KindIncompatibleTypes if the domains differ.
func Compare(a, b Value) (int, error) {
	if a.Domain() != b.Domain() {
		return 0, NewIncompatibleTypesError(a.Domain(), b.Domain())
	}
	switch av := a.(type) {
	case Boolean:
		bv := b.(Boolean)
		switch {
		case av == bv:
			return 0, nil
		case !bool(av):
			return -1, nil
		default:
			return 1, nil
		}
	case Byte:
		return cmp.Compare(av, b.(Byte)), nil
	case UnsignedInteger:
		return cmp.Compare(av, b.(UnsignedInteger)), nil
	case Integer:
		return cmp.Compare(av, b.(Integer)), nil
	case Float:
		return cmp.Compare(float64(av), float64(b.(Float))), nil
	case Char:
		return cmp.Compare(av, b.(Char)), nil
	case String:
		return strings.Compare(string(av), string(b.(String))), nil
	case Binary:
		return bytes.Compare(av, b.(Binary)), nil
	default:
		return 0, fmt.Errorf("unknown value type: %T", a)
	}
}

// MustCompare is like Compare but panics on domain mismatch.
// Use only where both values are known to share a domain (e.g. columns of
// one relation).
func MustCompare(a, b Value) int {
	c, err := Compare(a, b)
	if err != nil {
		panic(err)
	}
	return c
}

// Equal reports whether a and b have the same domain and the same value
// under the total order of Compare.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	c, err := Compare(a, b)
	return err == nil && c == 0
}

// IsNaN reports whether v is a Float NaN.
func IsNaN(v Value) bool {
	f, ok := v.(Float)
	return ok && math.IsNaN(float64(f))
}

// ParseValue parses the textual literal s as a value of domain d.
//
// Accepted forms:
//   - boolean: true/false (strconv.ParseBool)
//   - byte: decimal or 0x-prefixed hex in [0, 255]
//   - unsigned, integer: decimal
//   - float: any strconv.ParseFloat form
//   - char: exactly one code point
//   - string: verbatim
//   - binary: hex digits, optionally wrapped as x'..'
//
// Returns an *Error of kind KindInvalidValue when s does not conform.
func ParseValue(d Domain, s string) (Value, error) {
	switch d {
	case DomainBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, NewInvalidValueError(d, s)
		}
		return Boolean(b), nil
	case DomainByte:
		n, err := strconv.ParseUint(s, 0, 8)
		if err != nil {
			return nil, NewInvalidValueError(d, s)
		}
		return Byte(n), nil
	case DomainUnsigned:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, NewInvalidValueError(d, s)
		}
		return UnsignedInteger(n), nil
	case DomainInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, NewInvalidValueError(d, s)
		}
		return Integer(n), nil
	case DomainFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, NewInvalidValueError(d, s)
		}
		return Float(f), nil
	case DomainChar:
		if utf8.RuneCountInString(s) != 1 {
			return nil, NewInvalidValueError(d, s)
		}
		r, _ := utf8.DecodeRuneInString(s)
		return Char(r), nil
	case DomainString:
		return String(s), nil
	case DomainBinary:
		h := s
		if strings.HasPrefix(h, "x'") && strings.HasSuffix(h, "'") && len(h) >= 3 {
			h = h[2 : len(h)-1]
		}
		b, err := hex.DecodeString(h)
		if err != nil {
			return nil, NewInvalidValueError(d, s)
		}
		return Binary(b), nil
	default:
		return nil, NewInvalidValueError(d, s)
	}
}

// Convert coerces a decoded native Go value (from JSON, YAML, Avro, or
// SQLite) into a Value of domain d.
//
// Strings are parsed with ParseValue unless d is String. Numbers convert to
// any numeric domain when the conversion is exact (an integral float64 may
// become an Integer; a negative number never becomes Unsigned).
//
// Returns an *Error of kind KindInvalidValue when raw cannot represent a
// value of d.
func Convert(d Domain, raw any) (Value, error) {
	switch v := raw.(type) {
	case Value:
		if v.Domain() != d {
			return nil, NewInvalidValueError(d, v.String())
		}
		return v, nil
	case nil:
		return nil, NewInvalidValueError(d, "null")
	case string:
		return ParseValue(d, v)
	case json.Number:
		return ParseValue(d, v.String())
	case bool:
		if d != DomainBoolean {
			return nil, NewInvalidValueError(d, strconv.FormatBool(v))
		}
		return Boolean(v), nil
	case []byte:
		switch d {
		case DomainBinary:
			return Binary(bytes.Clone(v)), nil
		case DomainString:
			return String(v), nil
		}
		return nil, NewInvalidValueError(d, hex.EncodeToString(v))
	case float64:
		return convertFloat(d, v)
	case float32:
		return convertFloat(d, float64(v))
	case int:
		return convertInt(d, int64(v))
	case int32:
		return convertInt(d, int64(v))
	case int64:
		return convertInt(d, v)
	case uint8:
		return convertUint(d, uint64(v))
	case uint:
		return convertUint(d, uint64(v))
	case uint32:
		return convertUint(d, uint64(v))
	case uint64:
		return convertUint(d, v)
	default:
		return nil, NewInvalidValueError(d, fmt.Sprintf("%v", raw))
	}
}

func convertFloat(d Domain, f float64) (Value, error) {
	if d == DomainFloat {
		return Float(f), nil
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, NewInvalidValueError(d, strconv.FormatFloat(f, 'g', -1, 64))
	}
	if f < 0 {
		if f < math.MinInt64 {
			return nil, NewInvalidValueError(d, strconv.FormatFloat(f, 'g', -1, 64))
		}
		return convertInt(d, int64(f))
	}
	if f >= math.MaxUint64 {
		return nil, NewInvalidValueError(d, strconv.FormatFloat(f, 'g', -1, 64))
	}
	return convertUint(d, uint64(f))
}

func convertInt(d Domain, n int64) (Value, error) {
	if n >= 0 {
		return convertUint(d, uint64(n))
	}
	switch d {
	case DomainInteger:
		return Integer(n), nil
	case DomainFloat:
		return Float(n), nil
	}
	return nil, NewInvalidValueError(d, strconv.FormatInt(n, 10))
}

func convertUint(d Domain, n uint64) (Value, error) {
	switch d {
	case DomainByte:
		if n <= math.MaxUint8 {
			return Byte(n), nil
		}
	case DomainUnsigned:
		return UnsignedInteger(n), nil
	case DomainInteger:
		if n <= math.MaxInt64 {
			return Integer(n), nil
		}
	case DomainFloat:
		return Float(n), nil
	case DomainChar:
		if n <= utf8.MaxRune && utf8.ValidRune(rune(n)) {
			return Char(rune(n)), nil
		}
	}
	return nil, NewInvalidValueError(d, strconv.FormatUint(n, 10))
}

// Native returns the Go representation of v, suitable for database/sql
// arguments and JSON encoding.
func Native(v Value) any {
	switch val := v.(type) {
	case Boolean:
		return bool(val)
	case Byte:
		return int64(val)
	case UnsignedInteger:
		return uint64(val)
	case Integer:
		return int64(val)
	case Float:
		return float64(val)
	case Char:
		return string(rune(val))
	case String:
		return string(val)
	case Binary:
		return []byte(val)
	default:
		return nil
	}
}
