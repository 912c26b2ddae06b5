// Package query filters stored records by field value.
//
// A filter is a Predicate tree built from Equals, IsNull and And. It is
// checked against a kind with Validate and compiled to parameterized
// SQLite over the canonical JSON stored in records.fields:
//
//	[--where name=Bolt] → And{Equals{name, "Bolt"}} → SELECT id FROM records WHERE ...
//
// Only scalar values can be compared. Field names are restricted to
// identifiers and every value, including the JSON path, is bound as a
// parameter. Compiled queries always end in ORDER BY id COLLATE BINARY so
// listings are stable.
package query
