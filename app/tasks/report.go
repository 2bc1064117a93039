package tasks

import (
	"errors"
	"sync/atomic"
	"time"
)

var (
	ErrAllSourcesFailed = errors.New("all sources failed")
	ErrCancelled        = errors.New("cycle cancelled")
)

type State int32

const (
	StateIdle State = iota
	StateFetching
	StateProcessing
	StateDispatching
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateProcessing:
		return "processing"
	case StateDispatching:
		return "dispatching"
	default:
		return "unknown"
	}
}

type stateValue struct {
	v atomic.Int32
}

func (s *stateValue) load() State {
	return State(s.v.Load())
}

func (s *stateValue) set(state State) {
	s.v.Store(int32(state))
}

// begin moves Idle to Fetching and reports whether this caller owns the cycle.
func (s *stateValue) begin() bool {
	return s.v.CompareAndSwap(int32(StateIdle), int32(StateFetching))
}

type Trigger string

const (
	TriggerTimer  Trigger = "timer"
	TriggerManual Trigger = "manual"
)

type RefreshResult int

const (
	RefreshStarted RefreshResult = iota
	RefreshAlreadyRunning
	RefreshStopped
)

func (r RefreshResult) String() string {
	switch r {
	case RefreshStarted:
		return "started"
	case RefreshAlreadyRunning:
		return "already running"
	case RefreshStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type SourceResult struct {
	Name    string
	Fetched int
	Err     error
	Skipped bool // in back-off on a timer cycle
}

// CycleReport summarises one refresh cycle.
type CycleReport struct {
	ID               string
	Trigger          Trigger
	StartedAt        time.Time
	FinishedAt       time.Time
	Sources          []SourceResult
	Fetched          int
	Normalized       int
	Rejected         int
	Duplicates       int
	New              int
	Dispatched       int
	DispatchFailures int
	Err              error
}

func (r *CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *CycleReport) FailedSources() int {
	n := 0
	for _, s := range r.Sources {
		if s.Err != nil {
			n++
		}
	}
	return n
}
