// Package schema compiles record kind declarations written in CUE into
// Kinds that validate entity fields.
//
// A kind file declares fields in order:
//
//	kind: widget: {
//		fields: {
//			name:  {type: "string", required: true, unique: true, max_length: 64}
//			color: {type: "string", enum: ["red", "green", "blue"]}
//			stock: {type: "int", min: 0}
//			sku:   {type: "string", readonly: true}
//			notes: string
//		}
//	}
//
// A field is either a declaration struct with a "type" key or a bare CUE type
// (string, int, bool, [...], {...}). Floats are rejected.
//
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
package schema
