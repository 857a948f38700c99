package usecase

import "context"

// CycleReport summarizes one notification pass over all subscribers.
type CycleReport struct {
	Subscribers int
	Notified    int
	Unchanged   int
	Skipped     int
	Failed      int
}

// CycleRunner runs one notification pass. It is what background workers drive.
type CycleRunner interface {
	RunCycle(ctx context.Context) (CycleReport, error)
}
