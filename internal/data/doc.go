// Package data defines the evaluation-time data contract: relations are
// finite sets of tuples conforming to a schema.RelationSchema.
//
// Relation and Tuple are interfaces so that any provider (CSV files, a
// SQLite store, evaluation results) can be evaluated against. The engine
// never mutates a Relation it did not create.
//
// SimpleRelation is the materialized implementation. It is an
// insertion-ordered set keyed by ir.TupleKey, so Order results keep their
// sequence while membership stays set-semantic.
package data
