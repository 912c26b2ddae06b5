// Package value provides the constrained value types stored in record fields.
//
// Every field of a record holds a Value. Values are a sealed set:
// Null, String, Int, Bool, Array and Object. There is no float type;
// numbers are always int64 so that snapshots, diffs and stored rows
// compare exactly.
//
// This package imports nothing internal. record, schema, store and update
// all build on it.
//
// Key constraints:
//   - NO float types anywhere - use int64 for numbers
//   - Object iteration must use SortedKeys() for deterministic output
//   - MarshalCanonical is the only serialization used for digests
package value
