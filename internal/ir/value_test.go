package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Verify all types implement Value (compile-time check via assignment)
	var _ Value = Boolean(true)
	var _ Value = Byte(1)
	var _ Value = UnsignedInteger(1)
	var _ Value = Integer(-1)
	var _ Value = Float(1.5)
	var _ Value = Char('a')
	var _ Value = String("a")
	var _ Value = Binary{0x01}
}

func TestValueDomainAndString(t *testing.T) {
	testCases := []struct {
		name    string
		value   Value
		domain  Domain
		display string
	}{
		{"boolean", Boolean(true), DomainBoolean, "true"},
		{"byte", Byte(10), DomainByte, "0x0a"},
		{"unsigned", UnsignedInteger(42), DomainUnsigned, "42"},
		{"integer", Integer(-7), DomainInteger, "-7"},
		{"float", Float(2.5), DomainFloat, "2.5"},
		{"char", Char('a'), DomainChar, "'a'"},
		{"string", String("foo*"), DomainString, `"foo*"`},
		{"binary", Binary{0x0a, 0x0b}, DomainBinary, "x'0a0b'"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.domain, tc.value.Domain())
			assert.Equal(t, tc.display, tc.value.String())
		})
	}
}

func TestCompare(t *testing.T) {
	testCases := []struct {
		name string
		a, b Value
		want int
	}{
		{"bool false<true", Boolean(false), Boolean(true), -1},
		{"bool equal", Boolean(true), Boolean(true), 0},
		{"integer", Integer(-1), Integer(3), -1},
		{"unsigned", UnsignedInteger(9), UnsignedInteger(3), 1},
		{"float", Float(1.5), Float(1.5), 0},
		{"float negative zero", Float(math.Copysign(0, -1)), Float(0), 0},
		{"float NaN first", Float(math.NaN()), Float(-1e300), -1},
		{"char", Char('a'), Char('b'), -1},
		{"string", String("Bob"), String("Ann"), 1},
		{"binary", Binary{1, 2}, Binary{1, 2, 0}, -1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compare(tc.a, tc.b)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCompareDomainMismatch(t *testing.T) {
	_, err := Compare(Integer(1), String("1"))
	require.Error(t, err)
	assert.True(t, IsIncompatibleTypes(err))

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, DomainInteger, e.Expected)
	assert.Equal(t, DomainString, e.Actual)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Integer(1), Integer(1)))
	assert.False(t, Equal(Integer(1), UnsignedInteger(1)))
	assert.True(t, Equal(Binary{1}, Binary{1}))
	assert.True(t, Equal(Float(math.NaN()), Float(math.NaN())), "total order treats NaN as equal to itself")
	assert.True(t, IsNaN(Float(math.NaN())))
	assert.False(t, IsNaN(Integer(0)))
}

func TestParseValue(t *testing.T) {
	testCases := []struct {
		name   string
		domain Domain
		input  string
		want   Value
	}{
		{"boolean", DomainBoolean, "true", Boolean(true)},
		{"byte decimal", DomainByte, "255", Byte(255)},
		{"byte hex", DomainByte, "0x0a", Byte(10)},
		{"unsigned", DomainUnsigned, "18446744073709551615", UnsignedInteger(math.MaxUint64)},
		{"integer", DomainInteger, "-42", Integer(-42)},
		{"float", DomainFloat, "1e3", Float(1000)},
		{"char", DomainChar, "é", Char('é')},
		{"string", DomainString, "hello world", String("hello world")},
		{"binary bare", DomainBinary, "0a0b", Binary{0x0a, 0x0b}},
		{"binary quoted", DomainBinary, "x'ff'", Binary{0xff}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseValue(tc.domain, tc.input)
			require.NoError(t, err)
			assert.True(t, Equal(tc.want, got), "got %v", got)
		})
	}
}

func TestParseValueInvalid(t *testing.T) {
	testCases := []struct {
		name   string
		domain Domain
		input  string
	}{
		{"boolean", DomainBoolean, "yes"},
		{"byte overflow", DomainByte, "256"},
		{"unsigned negative", DomainUnsigned, "-1"},
		{"integer text", DomainInteger, "one"},
		{"char two runes", DomainChar, "ab"},
		{"binary odd hex", DomainBinary, "abc"},
		{"unknown domain", DomainUnknown, "x"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseValue(tc.domain, tc.input)
			require.Error(t, err)
			assert.True(t, IsInvalidValue(err))
		})
	}
}

func TestConvert(t *testing.T) {
	testCases := []struct {
		name   string
		domain Domain
		raw    any
		want   Value
	}{
		{"json integral float to integer", DomainInteger, float64(3), Integer(3)},
		{"json number", DomainInteger, json.Number("-12"), Integer(-12)},
		{"int to unsigned", DomainUnsigned, 7, UnsignedInteger(7)},
		{"int64 to float", DomainFloat, int64(2), Float(2)},
		{"string to char", DomainChar, "z", Char('z')},
		{"bytes to binary", DomainBinary, []byte{1, 2}, Binary{1, 2}},
		{"bytes to string", DomainString, []byte("ab"), String("ab")},
		{"bool", DomainBoolean, true, Boolean(true)},
		{"value passthrough", DomainString, String("x"), String("x")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Convert(tc.domain, tc.raw)
			require.NoError(t, err)
			assert.True(t, Equal(tc.want, got), "got %v", got)
		})
	}
}

func TestConvertRejectsLossy(t *testing.T) {
	testCases := []struct {
		name   string
		domain Domain
		raw    any
	}{
		{"fractional to integer", DomainInteger, 1.5},
		{"negative to unsigned", DomainUnsigned, -1},
		{"large to byte", DomainByte, 300},
		{"bool to integer", DomainInteger, true},
		{"nil", DomainString, nil},
		{"wrong value domain", DomainInteger, String("1")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Convert(tc.domain, tc.raw)
			require.Error(t, err)
			assert.True(t, IsInvalidValue(err))
		})
	}
}

func TestTextAndNative(t *testing.T) {
	assert.Equal(t, "Ann", Text(String("Ann")))
	assert.Equal(t, "a", Text(Char('a')))
	assert.Equal(t, "0a", Text(Binary{0x0a}))
	assert.Equal(t, "10", Text(Byte(10)))
	assert.Equal(t, "1", Text(Integer(1)))

	assert.Equal(t, int64(1), Native(Integer(1)))
	assert.Equal(t, "a", Native(Char('a')))
	assert.Equal(t, []byte{1}, Native(Binary{1}))
}
