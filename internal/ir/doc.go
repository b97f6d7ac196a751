// Package ir provides the leaf types of the relational algebra: identifiers,
// scalar values and their domains, and the error taxonomy shared by every
// other package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the value layer the
// foundation with no circular dependencies.
//
// Key design constraints:
//   - Name is validated on construction (NFC-normalized, identifier grammar)
//   - Value is a closed union; every Value carries its Domain
//   - Canonical tuple keys are the only encoding used for set membership
//   - Errors carry a Kind plus the offending name, index, or domain pair
package ir
