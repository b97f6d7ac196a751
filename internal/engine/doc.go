// Package engine evaluates relational algebra expression trees.
//
// The engine receives a queryir.RelationalOp (or an ExpressionList),
// resolves relation leaves through a Provider, and returns a materialized
// data.SimpleRelation.
//
// ARCHITECTURE:
//
// Bottom-Up Evaluation:
// Each operator evaluates its operands first, then applies its semantics
// to the materialized operand relations. Evaluation is synchronous and
// single-threaded per call:
// 1. Relation leaves resolve through the binding scope, then the Provider
// 2. Terms are bound once per operator against the operand schema
// 3. Each operator produces a new SimpleRelation (inputs are never mutated)
// 4. The first error aborts the whole evaluation; no partial results
//
// Expression Lists:
// EvaluateList evaluates expressions strictly in order. A named expression
// binds its result in a scope overlay, shadowing Provider relations of the
// same name for every later expression.
//
// Static Inference:
// Infer computes the result schema of a tree without data. Evaluation and
// inference share the same schema rules (plan.go), so a tree that infers
// cleanly fails at evaluation only for data-dependent reasons (an
// attribute-valued regex that does not compile, a row limit).
//
// CRITICAL PATTERNS:
//
// Attribute Resolution:
// Attributes resolve to fixed positions once per operator, never per tuple.
//
// Determinism:
// Results preserve a deterministic order: operand order for filters and set
// operations, lhs-major order for joins, stable sort for Order, first-seen
// order for Group. No randomness, no concurrency.
package engine
