package job

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (e *countingExpirer) ExpireReservations(_ context.Context, _ time.Time) (int, error) {
	e.calls.Add(1)
	return 2, e.err
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler(&countingExpirer{}, "every now and then", quiet())
	assert.Error(t, err)
}

func TestScheduler_RunOnce(t *testing.T) {
	e := &countingExpirer{}
	s, err := NewScheduler(e, "0 */15 * * * *", quiet())
	require.NoError(t, err)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int32(1), e.calls.Load())
}

func TestScheduler_Fires(t *testing.T) {
	e := &countingExpirer{err: errors.New("db down")}
	s, err := NewScheduler(e, "@every 1s", quiet())
	require.NoError(t, err)

	s.Start()
	defer s.Stop()
	assert.Eventually(t, func() bool { return e.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
