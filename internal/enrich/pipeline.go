package enrich

import (
	"context"
	"log"
)

// Pipeline applies a fixed sequence of stages to each record of a batch.
//
// Pipeline is generic over the record type T and holds no per-run state, so
// the same value can be reused for every batch.
type Pipeline[T any] struct {
	stages []Stage[T]
}

// NewPipeline constructs a Pipeline from the provided stages. Stages are
// applied to each record in order.
func NewPipeline[T any](stages ...Stage[T]) *Pipeline[T] {
	return &Pipeline[T]{stages: stages}
}

// Report summarizes a run. Failures counts failed steps, not records.
type Report struct {
	Items    int
	Failures int
}

// Run enriches items in place, one record at a time:
//   - every step of every stage runs for item i before item i+1 starts;
//   - step errors are logged with the stage name and counted in the Report;
//   - the run always visits every item. Steps observe ctx themselves, so a
//     canceled context makes the remaining lookups fail fast rather than
//     stopping the loop.
func (p *Pipeline[T]) Run(ctx context.Context, items []T) Report {
	var rep Report
	for i := range items {
		rep.Items++
		rep.Failures += p.apply(ctx, &items[i])
	}
	return rep
}

func (p *Pipeline[T]) apply(ctx context.Context, item *T) int {
	failures := 0
	for _, stage := range p.stages {
		for _, step := range stage.steps {
			if err := step(ctx, item); err != nil {
				log.Printf("Stage %s failed: %v", stage.name, err)
				failures++
			}
		}
	}
	return failures
}
