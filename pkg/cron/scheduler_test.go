package cron

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(logs *bytes.Buffer) *Scheduler {
	return NewScheduler(time.Second, slog.New(slog.NewTextHandler(logs, nil)))
}

func TestScheduler_AddJob(t *testing.T) {
	var logs bytes.Buffer
	s := newTestScheduler(&logs)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.AddJob("@every 1h", "refresh", noop))
	assert.Error(t, s.AddJob("@every 1h", "refresh", noop))
	assert.Error(t, s.AddJob("not a spec", "other", noop))
	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_RunNow(t *testing.T) {
	var logs bytes.Buffer
	s := newTestScheduler(&logs)

	var runs atomic.Int32
	require.NoError(t, s.AddJob("@every 1h", "refresh", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		runs.Add(1)
		return nil
	}))
	require.NoError(t, s.AddJob("@every 1h", "broken", func(context.Context) error {
		return errors.New("source unavailable")
	}))

	s.Start()
	require.NoError(t, s.RunNow("refresh"))
	require.NoError(t, s.RunNow("broken"))
	assert.ErrorIs(t, s.RunNow("missing"), ErrUnknownJob)

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(1), runs.Load())
	assert.Contains(t, logs.String(), "job=refresh")
	assert.Contains(t, logs.String(), "source unavailable")
}

func TestScheduler_StopCancelsRunningJobs(t *testing.T) {
	var logs bytes.Buffer
	s := NewScheduler(time.Hour, slog.New(slog.NewTextHandler(&logs, nil)))

	started := make(chan struct{})
	require.NoError(t, s.AddJob("@every 1h", "slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))

	require.NoError(t, s.RunNow("slow"))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Contains(t, logs.String(), "context canceled")
}
