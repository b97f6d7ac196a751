package ir

import "fmt"

// Domain is the type tag of a Value.
// Domains are used for static compatibility checks: set-operation operand
// schemas, comparison operands, and tuple conformance.
type Domain uint8

const (
	// DomainUnknown is the zero Domain; no Value carries it.
	DomainUnknown Domain = iota
	DomainBoolean
	DomainByte
	DomainUnsigned
	DomainInteger
	DomainFloat
	DomainChar
	DomainString
	DomainBinary
)

var domainNames = [...]string{
	DomainUnknown:  "unknown",
	DomainBoolean:  "boolean",
	DomainByte:     "byte",
	DomainUnsigned: "unsigned",
	DomainInteger:  "integer",
	DomainFloat:    "float",
	DomainChar:     "char",
	DomainString:   "string",
	DomainBinary:   "binary",
}

// Domains returns every valid Domain in declaration order.
func Domains() []Domain {
	return []Domain{
		DomainBoolean, DomainByte, DomainUnsigned, DomainInteger,
		DomainFloat, DomainChar, DomainString, DomainBinary,
	}
}

// String returns the lowercase domain name used in schema declarations.
func (d Domain) String() string {
	if int(d) < len(domainNames) {
		return domainNames[d]
	}
	return fmt.Sprintf("domain(%d)", uint8(d))
}

// IsValid reports whether d is one of the eight value domains.
func (d Domain) IsValid() bool {
	return d >= DomainBoolean && d <= DomainBinary
}

// ParseDomain parses a domain name ("integer", "string", ...).
// Returns an *Error of kind KindInvalidValue for unknown names.
func ParseDomain(s string) (Domain, error) {
	for _, d := range Domains() {
		if domainNames[d] == s {
			return d, nil
		}
	}
	return DomainUnknown, &Error{
		Kind:    KindInvalidValue,
		Message: fmt.Sprintf("unknown domain %q", s),
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Domain) MarshalText() ([]byte, error) {
	if !d.IsValid() {
		return nil, fmt.Errorf("cannot marshal invalid domain %d", uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Domain) UnmarshalText(text []byte) error {
	parsed, err := ParseDomain(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
