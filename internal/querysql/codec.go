package querysql

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/relalg/internal/ir"
)

// TablePrefix is prepended to relation names to form data table names, so
// relation tables never collide with metadata tables.
const TablePrefix = "rel_"

// TableName returns the quoted SQLite table holding relation name.
func TableName(name ir.Name) string {
	return QuoteIdent(TablePrefix + name.String())
}

// ColumnName returns the column holding attribute position i. Columns are
// positional because attribute names may be anonymous or repeated.
func ColumnName(i int) string {
	return "c" + strconv.Itoa(i)
}

// QuoteIdent quotes s as an SQLite identifier.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ColumnType returns the SQLite storage type of domain d.
func ColumnType(d ir.Domain) string {
	switch d {
	case ir.DomainBoolean, ir.DomainByte, ir.DomainInteger, ir.DomainFloat:
		return "INTEGER"
	case ir.DomainUnsigned, ir.DomainChar, ir.DomainString:
		return "TEXT"
	case ir.DomainBinary:
		return "BLOB"
	default:
		return "BLOB"
	}
}

// Encode converts v to its SQL storage form.
//
// INVARIANT: for values a, b of one domain, SQLite's comparison of
// Encode(a) and Encode(b) (BINARY collation) agrees with ir.Compare(a, b).
// This lets selections and joins run in SQL with the engine's semantics:
//   - unsigned integers become 20-digit zero-padded decimal text
//   - floats become an int64 whose order is the total float order
//     (NaN first, -0 folded into 0)
//   - chars become their UTF-8 text (UTF-8 preserves code point order)
func Encode(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.Boolean:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case ir.Byte:
		return int64(val), nil
	case ir.UnsignedInteger:
		return fmt.Sprintf("%020d", uint64(val)), nil
	case ir.Integer:
		return int64(val), nil
	case ir.Float:
		return floatKey(float64(val)), nil
	case ir.Char:
		return string(rune(val)), nil
	case ir.String:
		return string(val), nil
	case ir.Binary:
		return append([]byte{}, val...), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}

// Decode converts a scanned SQL value back to a value of domain d.
func Decode(d ir.Domain, raw any) (ir.Value, error) {
	switch d {
	case ir.DomainFloat:
		n, ok := raw.(int64)
		if !ok {
			return nil, ir.NewInvalidValueError(d, fmt.Sprintf("%v", raw))
		}
		return ir.Float(floatFromKey(n)), nil
	case ir.DomainBoolean:
		n, ok := raw.(int64)
		if !ok || (n != 0 && n != 1) {
			return nil, ir.NewInvalidValueError(d, fmt.Sprintf("%v", raw))
		}
		return ir.Boolean(n == 1), nil
	case ir.DomainUnsigned, ir.DomainChar:
		s, ok := textOf(raw)
		if !ok {
			return nil, ir.NewInvalidValueError(d, fmt.Sprintf("%v", raw))
		}
		return ir.ParseValue(d, s)
	case ir.DomainString:
		s, ok := textOf(raw)
		if !ok {
			return nil, ir.NewInvalidValueError(d, fmt.Sprintf("%v", raw))
		}
		return ir.String(s), nil
	case ir.DomainBinary:
		// Zero-length blobs scan as nil.
		if raw == nil {
			return ir.Binary{}, nil
		}
		return ir.Convert(d, raw)
	default:
		return ir.Convert(d, raw)
	}
}

func textOf(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

// floatKey maps f onto int64 so that integer order is the total float
// order used by ir.Compare.
func floatKey(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return math.MinInt64
	case f == 0:
		f = 0
	}
	bits := math.Float64bits(f)
	if bits>>63 == 1 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	// Shift from unsigned to signed order. MinInt64 maps back to a NaN bit
	// pattern, so no ordered value can produce it.
	return int64(bits ^ (1 << 63))
}

func floatFromKey(n int64) float64 {
	if n == math.MinInt64 {
		return math.NaN()
	}
	bits := uint64(n) ^ (1 << 63)
	if bits>>63 == 1 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}
