package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueue_RunsOnWorkers(t *testing.T) {
	s := New(time.UTC, 2, 10)
	s.Start()

	var n atomic.Int32
	for i := 0; i < 5; i++ {
		id, ok := s.Enqueue("count", func(ctx context.Context) error {
			n.Add(1)
			return nil
		})
		require.True(t, ok)
		assert.NotEmpty(t, id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, int32(5), n.Load(), "stop drains the queue")
}

func TestEnqueue_FullQueueDrops(t *testing.T) {
	s := New(time.UTC, 1, 1)
	// not started: nothing consumes the queue
	_, ok := s.Enqueue("a", func(ctx context.Context) error { return nil })
	assert.True(t, ok)
	_, ok = s.Enqueue("b", func(ctx context.Context) error { return nil })
	assert.False(t, ok)

	require.NoError(t, s.Stop(context.Background()))
	_, ok = s.Enqueue("c", func(ctx context.Context) error { return nil })
	assert.False(t, ok, "stopped scheduler rejects jobs")
}

func TestJobErrorsAndPanicsDoNotKillWorkers(t *testing.T) {
	s := New(time.UTC, 1, 10)
	s.Start()

	done := make(chan struct{})
	s.Enqueue("fails", func(ctx context.Context) error { return errors.New("boom") })
	s.Enqueue("panics", func(ctx context.Context) error { panic("kaboom") })
	s.Enqueue("ok", func(ctx context.Context) error { close(done); return nil })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive failing jobs")
	}
	require.NoError(t, s.Stop(context.Background()))
}

func TestEvery_Fires(t *testing.T) {
	s := New(time.UTC, 1, 1)
	fired := make(chan struct{}, 10)
	require.NoError(t, s.Every(time.Second, "tick", func(ctx context.Context) error {
		fired <- struct{}{}
		return nil
	}))
	s.Start()
	defer func() { _ = s.Stop(context.Background()) }()

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("interval trigger never fired")
	}
}

func TestScheduleValidation(t *testing.T) {
	s := New(time.UTC, 1, 1)
	assert.Error(t, s.Every(0, "zero", func(ctx context.Context) error { return nil }))
	assert.Error(t, s.Cron("not a spec", "bad", func(ctx context.Context) error { return nil }))
	assert.NoError(t, s.Cron("0 8 * * *", "daily", func(ctx context.Context) error { return nil }))
}

func TestInline_RunsImmediately(t *testing.T) {
	ran := false
	id, ok := Inline{}.Enqueue("now", func(ctx context.Context) error {
		ran = true
		return errors.New("logged, not returned")
	})
	assert.True(t, ok)
	assert.NotEmpty(t, id)
	assert.True(t, ran)
}
