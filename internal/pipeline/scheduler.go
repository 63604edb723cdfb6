package pipeline

import (
	"context"
	"log"
	"time"
)

// Runner is anything the scheduler can trigger periodically.
type Runner interface {
	Run(ctx context.Context) (*RunResult, error)
}

// Scheduler triggers ingestion runs on a fixed interval. A run that fails
// is logged; the next tick still fires.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewScheduler(runner Runner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the scheduling loop and blocks until stopped.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneChan)

	log.Printf("ingest scheduler started with interval: %v", s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("ingest scheduler stopped: context cancelled")
			return
		case <-s.stopChan:
			log.Println("ingest scheduler stopped: stop signal received")
			return
		case <-ticker.C:
			if _, err := s.runner.Run(ctx); err != nil {
				log.Printf("scheduled ingestion run failed: %v", err)
			}
		}
	}
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	<-s.doneChan
	log.Println("ingest scheduler shutdown complete")
}
