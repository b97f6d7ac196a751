// Package queryir provides the relational algebra expression IR: the
// operator tree (RelationalOp) and its predicate sub-language (Term).
//
// ARCHITECTURE:
//
// The IR sits between hosts that build or decode queries and the backends
// that give them meaning:
//
//	[YAML/JSON codec] → [Query IR] → [engine]     (in-memory evaluation)
//	[Go builders]     →            → [querysql]   (SQLite pushdown)
//	                               → [render]     (text, LaTeX, HTML)
//	                               → [graph]      (DOT, Mermaid)
//
// OPERATORS:
//
//   - Relation(name) - Leaf reference resolved by the data provider
//   - SetOperation(lhs, op, rhs) - Union, Intersection, Difference,
//     SymmetricDifference, CartesianProduct
//   - Selection(criteria, rhs) - Keep tuples satisfying a Term
//   - Projection(attributes, rhs) - Column subset/constants, set semantics
//   - Rename(renames, rhs) - Replace attribute names
//   - Order(attributes, rhs) - Ascending multi-attribute ordering
//   - Group(attributes, rhs) - Partition keys (no aggregation)
//   - Join(lhs, criteria, rhs) - Natural (nil criteria) or theta join
//
// SEALED INTERFACES:
//
// RelationalOp and Term are sealed interfaces using the marker method
// pattern. Only types in this package implement them, so every consumer
// can switch exhaustively:
//
//	switch op := node.(type) {
//	case *Relation:
//	    // Handle leaf
//	case *SetOperation:
//	    // Handle set algebra
//	...
//	default:
//	    // Unreachable for well-formed trees; report an error
//	}
//
// INVARIANTS:
//
// Nodes are immutable after construction and own their operands
// exclusively (a tree, never a DAG or cycle). Constructors enforce
// node-local invariants eagerly:
//   - Projection, Order, Group: attribute list is non-empty (panics)
//   - Selection, theta Join: criteria is non-nil (panics)
//   - Rename: at least one rename (panics); targets pairwise distinct
//     (returns a DuplicateName error)
//
// Panics are reserved for structurally invalid programmer input. All
// data-dependent failures (unknown names, out-of-range indices, domain
// mismatches) are reported by evaluation as typed ir.Error values.
package queryir
