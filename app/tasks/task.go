package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

type TaskType string

const (
	TaskTypeFetchSource TaskType = "fetch_source"
	TaskTypeSyncSources TaskType = "sync_sources"
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetSourceName() string
	Start()
	GetDuration() time.Duration
}

var (
	_ TaskInterface = (*FetchSourceTask)(nil)
	_ TaskInterface = (*SyncSourcesTask)(nil)
)

// Run executes a task and logs its outcome.
func Run(ctx context.Context, task TaskInterface) error {
	err := task.Execute(ctx)
	if err != nil {
		slog.Warn("Task failed",
			"type", string(task.GetType()),
			"id", task.GetID(),
			"source", task.GetSourceName(),
			"duration", task.GetDuration(),
			"error", err)
		return err
	}

	slog.Debug("Task completed",
		"type", string(task.GetType()),
		"id", task.GetID(),
		"source", task.GetSourceName(),
		"duration", task.GetDuration())

	return nil
}

type Task struct {
	ID         string
	Type       TaskType
	SourceName string
	StartedAt  *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetSourceName() string {
	return t.SourceName
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func NewTask(taskType TaskType, sourceName string) Task {
	return Task{
		ID:         newID(),
		Type:       taskType,
		SourceName: sourceName,
	}
}

func newID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), rand.Intn(10000))
}
