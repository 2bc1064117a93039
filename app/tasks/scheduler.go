package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/newsbell/app/database"
	"github.com/lysyi3m/newsbell/app/engine"
	"github.com/lysyi3m/newsbell/app/feed"
	"github.com/lysyi3m/newsbell/app/notify"
	"github.com/lysyi3m/newsbell/app/source"
)

var _ SchedulerInterface = (*Scheduler)(nil)

const maxBackoff = time.Hour

// ItemStore is the part of the history the scheduler writes.
type ItemStore interface {
	AppendBatch(ctx context.Context, items []feed.NewsItem) (int, error)
	MarkNotified(ctx context.Context, id string) error
}

type Options struct {
	Interval       time.Duration
	SourceTimeout  time.Duration
	SourceTimeouts map[string]time.Duration // per-source overrides
	Notify         bool
	NotifyLimit    int // 0 means unlimited
	OnCycle        func(*CycleReport)
	Now            func() time.Time
}

// Scheduler runs refresh cycles on a timer and on demand, one at a time.
type Scheduler struct {
	sources    []source.Source
	normalizer *feed.Normalizer
	engine     *engine.Engine
	itemRepo   ItemStore
	sourceRepo database.SourceStore
	dispatcher notify.Dispatcher
	opts       Options

	state stateValue

	mu         sync.Mutex
	lastReport *CycleReport
	failures   map[string]int
	skipTicks  map[string]int

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func NewScheduler(sources []source.Source, normalizer *feed.Normalizer, engine *engine.Engine,
	itemRepo ItemStore, sourceRepo database.SourceStore, dispatcher notify.Dispatcher, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Scheduler{
		sources:    sources,
		normalizer: normalizer,
		engine:     engine,
		itemRepo:   itemRepo,
		sourceRepo: sourceRepo,
		dispatcher: dispatcher,
		opts:       opts,
		failures:   make(map[string]int),
		skipTicks:  make(map[string]int),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start runs a cycle immediately and then one per interval.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.tick(TriggerManual)

		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.tick(TriggerTimer)
			}
		}
	}()
}

// Stop cancels the timer and any cycle still fetching, then waits for
// in-flight work to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Refresh starts a manual cycle unless one is already running.
func (s *Scheduler) Refresh() RefreshResult {
	if s.ctx.Err() != nil {
		return RefreshStopped
	}
	if !s.state.begin() {
		slog.Debug("Refresh requested while a cycle is running", "state", s.state.load().String())
		return RefreshAlreadyRunning
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runCycle(s.ctx, TriggerManual)
	}()

	return RefreshStarted
}

// RunOnce runs a cycle synchronously. It returns false when another cycle is running.
func (s *Scheduler) RunOnce(ctx context.Context, trigger Trigger) (*CycleReport, bool) {
	if !s.state.begin() {
		return nil, false
	}
	return s.runCycle(ctx, trigger), true
}

func (s *Scheduler) State() State {
	return s.state.load()
}

func (s *Scheduler) LastReport() *CycleReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

func (s *Scheduler) tick(trigger Trigger) {
	if !s.state.begin() {
		slog.Debug("Cycle skipped, previous cycle still running", "trigger", string(trigger))
		return
	}
	s.runCycle(s.ctx, trigger)
}

// runCycle must be entered in StateFetching and always leaves the state Idle.
func (s *Scheduler) runCycle(ctx context.Context, trigger Trigger) *CycleReport {
	report := &CycleReport{
		ID:        newID(),
		Trigger:   trigger,
		StartedAt: s.opts.Now().UTC(),
	}

	defer s.finish(report)

	tasks := s.fetch(ctx, trigger, report)

	if ctx.Err() != nil {
		report.Err = ErrCancelled
		return report
	}

	s.recordHealth(tasks, report.StartedAt)

	attempted := len(tasks)
	if attempted > 0 && report.FailedSources() == attempted {
		report.Err = ErrAllSourcesFailed
		return report
	}

	s.state.set(StateProcessing)

	newItems, err := s.process(context.WithoutCancel(ctx), tasks, report)
	if err != nil {
		report.Err = err
		return report
	}

	s.state.set(StateDispatching)
	s.dispatch(ctx, newItems, report)

	return report
}

func (s *Scheduler) fetch(ctx context.Context, trigger Trigger, report *CycleReport) []*FetchSourceTask {
	// fetches run detached from Stop so an issued call completes or times out
	fetchCtx := context.WithoutCancel(ctx)

	var (
		tasks []*FetchSourceTask
		wg    sync.WaitGroup
	)

	for _, src := range s.sources {
		if trigger == TriggerTimer && s.inBackoff(src.Name()) {
			report.Sources = append(report.Sources, SourceResult{Name: src.Name(), Skipped: true})
			slog.Debug("Source in back-off, skipping", "source", src.Name())
			continue
		}

		task := NewFetchSourceTask(src, s.timeoutFor(src.Name()))
		tasks = append(tasks, task)

		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = Run(fetchCtx, task)
		}()
	}

	wg.Wait()

	for _, task := range tasks {
		report.Sources = append(report.Sources, SourceResult{
			Name:    task.SourceName,
			Fetched: len(task.Items),
			Err:     task.Err,
		})
		report.Fetched += len(task.Items)
	}

	return tasks
}

func (s *Scheduler) process(ctx context.Context, tasks []*FetchSourceTask, report *CycleReport) ([]feed.NewsItem, error) {
	seenAt := report.StartedAt

	var batch []feed.NewsItem
	for _, task := range tasks {
		for _, raw := range task.Items {
			item, err := s.normalizer.RunAt(raw, task.SourceName, seenAt)
			if err != nil {
				report.Rejected++
				slog.Debug("Item rejected", "source", task.SourceName, "error", err)
				continue
			}
			batch = append(batch, item)
		}
	}
	report.Normalized = len(batch)

	result, err := s.engine.Process(ctx, batch)
	if err != nil {
		return nil, err
	}
	report.Duplicates = result.Duplicates

	if len(result.New) == 0 {
		return nil, nil
	}

	inserted, err := s.itemRepo.AppendBatch(ctx, result.New)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrStoreUnavailable, err)
	}
	report.New = inserted

	return result.New, nil
}

// dispatch notifies new items in order. Items are marked notified only after
// the dispatcher accepted them; failures are not retried.
func (s *Scheduler) dispatch(ctx context.Context, items []feed.NewsItem, report *CycleReport) {
	if !s.opts.Notify || s.dispatcher == nil {
		return
	}

	// items are already persisted; a started dispatch runs to the end even
	// after Stop, or they would never be notified
	ctx = context.WithoutCancel(ctx)

	for i, item := range items {
		if s.opts.NotifyLimit > 0 && i >= s.opts.NotifyLimit {
			slog.Info("Notification limit reached", "limit", s.opts.NotifyLimit, "pending", len(items)-i)
			break
		}
		if err := s.dispatcher.Notify(ctx, item); err != nil {
			report.DispatchFailures++
			slog.Warn("Notification failed", "id", item.ID, "source", item.Source, "error", err)
			continue
		}
		report.Dispatched++
		slog.Debug("Notification dispatched", "id", item.ID, "source", item.Source)

		if err := s.itemRepo.MarkNotified(ctx, item.ID); err != nil {
			slog.Error("Failed to mark item notified", "id", item.ID, "error", err)
		}
	}
}

func (s *Scheduler) recordHealth(tasks []*FetchSourceTask, at time.Time) {
	s.mu.Lock()
	for _, task := range tasks {
		if task.Err != nil {
			s.failures[task.SourceName]++
			s.skipTicks[task.SourceName] = s.backoffTicks(s.failures[task.SourceName])
		} else {
			delete(s.failures, task.SourceName)
			delete(s.skipTicks, task.SourceName)
		}
	}
	s.mu.Unlock()

	if s.sourceRepo == nil {
		return
	}

	ctx := context.Background()
	for _, task := range tasks {
		var err error
		if task.Err != nil {
			err = s.sourceRepo.RecordFailure(ctx, task.SourceName, at, task.Err)
		} else {
			err = s.sourceRepo.RecordSuccess(ctx, task.SourceName, at, len(task.Items))
		}
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			slog.Warn("Failed to record source health", "source", task.SourceName, "error", err)
		}
	}
}

// backoffTicks is the number of timer ticks to skip after the given number of
// consecutive failures: the retry delay is interval * 2^(failures-1), capped.
func (s *Scheduler) backoffTicks(failures int) int {
	if failures <= 1 || s.opts.Interval <= 0 {
		return 0
	}

	delay := s.opts.Interval
	for i := 1; i < failures && delay < maxBackoff; i++ {
		delay *= 2
	}
	delay = min(delay, max(maxBackoff, s.opts.Interval))

	return int(delay/s.opts.Interval) - 1
}

func (s *Scheduler) inBackoff(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.skipTicks[name] > 0 {
		s.skipTicks[name]--
		return true
	}
	return false
}

func (s *Scheduler) timeoutFor(name string) time.Duration {
	if t, ok := s.opts.SourceTimeouts[name]; ok && t > 0 {
		return t
	}
	return s.opts.SourceTimeout
}

func (s *Scheduler) finish(report *CycleReport) {
	report.FinishedAt = s.opts.Now().UTC()

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()

	s.state.set(StateIdle)

	attrs := []any{
		"id", report.ID,
		"trigger", string(report.Trigger),
		"duration", report.Duration(),
		"sources", len(report.Sources),
		"failed_sources", report.FailedSources(),
		"fetched", report.Fetched,
		"rejected", report.Rejected,
		"duplicates", report.Duplicates,
		"new", report.New,
		"dispatched", report.Dispatched,
	}

	if report.Err != nil {
		slog.Error("Cycle failed", append(attrs, "error", report.Err)...)
	} else {
		slog.Info("Cycle completed", attrs...)
	}

	if s.opts.OnCycle != nil {
		s.opts.OnCycle(report)
	}
}
