// Package store provides SQLite-backed durable storage for relations.
//
// Every relation lives in its own table (querysql.TableName) with one
// column per attribute position. The header is kept in two metadata tables:
//   - relalg_relations: name, arity and content digest
//   - relalg_attributes: (relation, position, name, domain)
//
// # Critical Patterns
//
// Set semantics: data tables carry a UNIQUE constraint over all columns and
// inserts use ON CONFLICT DO NOTHING, so duplicate tuples collapse the way
// they do in data.SimpleRelation.
//
// Deterministic reads: LoadRelation returns tuples in insertion order
// (ORDER BY seq); Query results are ordered by every column with
// COLLATE BINARY.
//
// Engine parity: Query compiles a relational tree with querysql and runs it
// inside SQLite. Values are stored in an order-preserving encoding and a
// regexp SQL function backs StringMatch, so results equal the in-memory
// engine's on the same data.
//
// Integrity: the digest recorded by SaveRelation is recomputed on load;
// a mismatch means the table was modified behind the store's back.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
