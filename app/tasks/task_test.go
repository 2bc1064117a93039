package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/newsbell/app/feed"
	"github.com/lysyi3m/newsbell/app/source"
)

func TestRunFetchSourceTask(t *testing.T) {
	task := NewFetchSourceTask(staticSource("A", feed.RawItem{Title: "One"}), time.Second)

	var ti TaskInterface = task
	require.NoError(t, Run(context.Background(), ti))

	assert.NotEmpty(t, ti.GetID())
	assert.Equal(t, TaskTypeFetchSource, ti.GetType())
	assert.Equal(t, "A", ti.GetSourceName())
	assert.Len(t, task.Items, 1)
}

func TestRunReturnsTaskError(t *testing.T) {
	task := NewFetchSourceTask(failingSource("broken"), time.Second)

	err := Run(context.Background(), task)
	assert.True(t, errors.Is(err, source.ErrNetwork))
	assert.Same(t, task.Err, err)
	assert.Nil(t, task.Items)
}
