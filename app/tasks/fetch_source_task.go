package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/newsbell/app/feed"
	"github.com/lysyi3m/newsbell/app/source"
)

// FetchSourceTask runs one adapter under its own timeout. The outcome is kept
// on the task; Execute returns the same error for the caller's convenience.
type FetchSourceTask struct {
	Task
	source  source.Source
	timeout time.Duration

	Items []feed.RawItem
	Err   error
}

func NewFetchSourceTask(src source.Source, timeout time.Duration) *FetchSourceTask {
	return &FetchSourceTask{
		Task:    NewTask(TaskTypeFetchSource, src.Name()),
		source:  src,
		timeout: timeout,
	}
}

type fetchResult struct {
	items []feed.RawItem
	err   error
}

// Execute treats a source still running when ctx ends as timed out, whether
// or not the adapter honours ctx. Items it returns later are dropped.
func (t *FetchSourceTask) Execute(ctx context.Context) error {
	t.Start()

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	done := make(chan fetchResult, 1)
	go func() {
		items, err := t.source.Fetch(ctx)
		done <- fetchResult{items: items, err: err}
	}()

	select {
	case res := <-done:
		t.Items, t.Err = res.items, res.err
	case <-ctx.Done():
		t.Items = nil
		t.Err = &source.FetchError{Source: t.SourceName, Kind: source.ErrTimeout, Err: ctx.Err()}
	}

	if t.Err != nil {
		t.Items = nil
		return t.Err
	}

	return nil
}
