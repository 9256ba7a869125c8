// Package schema describes studio document types as declarative metadata and
// validates document values against them.
//
// A Type is an ordered list of Field descriptors. Each Field has a closed
// FieldType and carries only the attributes meaningful for that type: a
// reference names its target document types in To, an array lists its member
// types in Of, an object lists its sub-fields in Fields. Rules are built by
// chaining (NewRule().Required().Max(200)) and are evaluated by Type.Validate
// when a document is saved.
//
// Values are the shapes produced by decoding JSON: map[string]any, []any,
// string, float64 and bool. Composite values follow the studio conventions:
//
//	reference  {"_type": "reference", "_ref": "<document id>"}
//	image      {"_type": "image", "asset": {"_ref": "<asset id>"}}
//	slug       {"_type": "slug", "current": "<slug>"}
//	block      {"_type": "block", ...}
//
// Keys beginning with an underscore are system keys and are never treated as
// fields.
package schema
