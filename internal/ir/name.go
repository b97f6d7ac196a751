package ir

import (
	"cmp"
	"regexp"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxNameLength is the maximum number of characters in a Name.
const MaxNameLength = 127

var namePattern = regexp.MustCompile(`^[\p{L}_][\p{L}\p{Nd}_]*$`)

// Name is a validated identifier for relations and attributes.
//
// A Name is non-empty, at most MaxNameLength characters, and matches the
// grammar [letter_][letter|digit|_]*. Input is NFC-normalized first so
// that canonically equivalent spellings produce the same Name.
//
// The zero value is the empty name; it denotes an anonymous attribute in
// derived schemas and is never produced by ParseName.
type Name string

// ParseName validates s and returns it as a Name.
// Returns an *Error of kind KindInvalidName if s is not a valid identifier.
func ParseName(s string) (Name, error) {
	s = norm.NFC.String(s)
	if !IsValidName(s) {
		return "", NewInvalidNameError(s)
	}
	return Name(s), nil
}

// MustName is like ParseName but panics on error.
// Use only in tests or with literal identifiers.
func MustName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// NameUnchecked converts s to a Name without validation.
// Callers must guarantee s is already a valid identifier.
func NameUnchecked(s string) Name {
	return Name(s)
}

// IsValidName reports whether s satisfies the identifier grammar.
// s must already be NFC-normalized.
func IsValidName(s string) bool {
	if s == "" || utf8.RuneCountInString(s) > MaxNameLength {
		return false
	}
	return namePattern.MatchString(s)
}

// String returns the identifier text.
func (n Name) String() string {
	return string(n)
}

// IsZero reports whether n is the empty (anonymous) name.
func (n Name) IsZero() bool {
	return n == ""
}

// CompareNames orders names by value.
func CompareNames(a, b Name) int {
	return cmp.Compare(a, b)
}
