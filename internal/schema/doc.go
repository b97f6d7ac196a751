// Package schema describes the shape a relation must conform to.
//
// A Schema owns uniquely-named RelationSchemas; a RelationSchema owns an
// ordered sequence of AttributeSchemas whose order defines positional
// indices; an AttributeSchema is a (Name, Domain) pair.
//
// The interfaces are the contract consumed by the evaluation engine. The
// Simple* types are the in-memory implementations used by loaders, the
// CUE compiler, the SQLite store, and evaluation results.
package schema
