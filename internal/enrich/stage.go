// Package enrich provides a small, generic pipeline that completes records one
// at a time. A pipeline is an ordered list of stages, and a stage is an ordered
// list of steps.
//
// Records are processed strictly in sequence: every stage of record i finishes
// before record i+1 is touched. A slow external lookup in one record therefore
// paces the whole run, and any cache written while handling record i is visible
// to record i+1.
package enrich

import "context"

// Step completes a single record in place.
//
// A step that cannot do its job returns an error. The pipeline logs and counts
// the error and carries on with the next step; a failed step never aborts the
// record or the run. Steps should leave the record in a usable state when they
// fail, for example by flagging it instead of clearing required fields.
//
// The context is handed through unchanged so steps can bound their own network
// calls.
//
// Example:
//
//	func geocode(ctx context.Context, b *models.Bloco) error { ...; return nil }
type Step[T any] func(ctx context.Context, item *T) error

// Stage is a named group of steps applied to one record in the order given.
// The name only appears in log lines.
type Stage[T any] struct {
	name  string
	steps []Step[T]
}

// NewStage constructs a Stage from the provided steps.
func NewStage[T any](name string, steps ...Step[T]) Stage[T] {
	return Stage[T]{name: name, steps: steps}
}
