// Package pipeline orchestrates the ingestion and summarization flows:
// collection, dedup, synthesis, federation fan-out, and the run ledger.
package pipeline

import (
	"context"
	"sync"
)

// Task is one federation destination attempt. Run returns the number of
// objects the destination accepted.
type Task struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// Outcome is a settled task result. Err is recorded, never propagated:
// one destination failing must not disturb its siblings.
type Outcome struct {
	Name  string
	Count int
	Err   error
}

// RunAll runs every task concurrently and waits for all of them to
// settle. Outcomes are returned in task order.
func RunAll(ctx context.Context, tasks []Task) []Outcome {
	outcomes := make([]Outcome, len(tasks))

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			count, err := task.Run(ctx)
			outcomes[i] = Outcome{Name: task.Name, Count: count, Err: err}
		}(i, task)
	}
	wg.Wait()

	return outcomes
}
