// Package query provides the filter tree and query description clients send
// to the calendar store.
//
// A Query names a view, an optional filter, a projection, a sort property
// and a distinct flag. The filter is a tree:
//
//	Composite(view)
//	├── Leaf(summary CONTAINS "standup")
//	├── AND
//	└── Composite(view)
//	    ├── Leaf(priority >= 2)
//	    ├── OR
//	    └── Leaf(busy_status == 1)
//
// SEALED INTERFACE:
//
// Filter is sealed with a marker method; *Composite and *Leaf are its only
// implementations, so backends switch over it exhaustively.
//
// OPERATOR INVARIANT:
//
// A composite with n children has exactly n-1 operators. Where, And and Or
// maintain this by construction; Validate and the decoder reject any tree
// that violates it.
//
// WIRE FORMAT:
//
// Queries travel through the same wire.Stream layout in both directions.
// The filter is written pre-order: a composite writes its tag, view, child
// count, each child, operator count and each operator; a leaf writes its
// tag, property id, match kind and an operand whose type is taken from the
// property id. A decode failure at any depth discards the whole tree.
package query
