package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCompleter struct {
	calls atomic.Int32
	n     int
	err   error
}

func (c *countingCompleter) CompleteFinished(ctx context.Context) (int, error) {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("expected a deadline")
	}
	return c.n, c.err
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler("every tuesday-ish", &countingCompleter{}, nil)
	require.Error(t, err)
}

func TestRunCompletion(t *testing.T) {
	c := &countingCompleter{n: 3}
	s, err := NewScheduler("", c, nil)
	require.NoError(t, err)

	require.NoError(t, s.RunCompletion(context.Background()))
	assert.EqualValues(t, 1, c.calls.Load())

	c.err = errors.New("db down")
	assert.ErrorIs(t, s.RunCompletion(context.Background()), c.err)
}

func TestSchedulerRunsOnSchedule(t *testing.T) {
	c := &countingCompleter{}
	s, err := NewScheduler("@every 1s", c, nil)
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return c.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
