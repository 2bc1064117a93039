package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/newsbell/app/database"
	"github.com/lysyi3m/newsbell/app/feed"
)

// SyncSourcesTask registers every configured source in the source health table.
type SyncSourcesTask struct {
	Task
	configs    []*feed.SourceConfig
	sourceRepo database.SourceStore
}

func NewSyncSourcesTask(configs []*feed.SourceConfig, sourceRepo database.SourceStore) *SyncSourcesTask {
	return &SyncSourcesTask{
		Task:       NewTask(TaskTypeSyncSources, ""),
		configs:    configs,
		sourceRepo: sourceRepo,
	}
}

func (t *SyncSourcesTask) Execute(ctx context.Context) error {
	t.Start()

	for _, config := range t.configs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.sourceRepo.Upsert(ctx, config.Name, config.URL, config.Kind); err != nil {
			return fmt.Errorf("failed to sync source %s: %w", config.Name, err)
		}
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"sources", len(t.configs),
		"duration", t.GetDuration())

	return nil
}
