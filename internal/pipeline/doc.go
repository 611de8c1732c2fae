// Package pipeline runs the enhancement pass over a document as an ordered
// list of steps.
//
// The default pipeline is match → locate → linkify. Each step receives the
// shared Job and may end the pass early by stopping its model.Pass; a
// stopped pass is a normal outcome, not an error. BatchProcessor runs many
// jobs concurrently with errgroup while keeping results in input order.
package pipeline
