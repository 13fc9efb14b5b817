// Package fragment models the rendered template-instance tree that the
// resolution core walks.
//
// Fragments live in a Tree arena and point at each other through IDs, so
// Parent and ComponentParent are plain back-references: the tree owns every
// fragment and nothing else keeps one alive. The rendering layer creates and
// removes fragments; the resolution core only reads ancestry and maintains
// the per-fragment resolver bookkeeping.
package fragment
