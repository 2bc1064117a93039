package tasks

import "context"

// SchedulerInterface is what the HTTP API and main need from the scheduler.
type SchedulerInterface interface {
	Start()
	Stop()
	Refresh() RefreshResult
	RunOnce(ctx context.Context, trigger Trigger) (*CycleReport, bool)
	State() State
	LastReport() *CycleReport
}
