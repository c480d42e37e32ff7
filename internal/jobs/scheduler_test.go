package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/natours-api/internal/logging"
)

type mockResetStore struct {
	mock.Mock
}

func (m *mockResetStore) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type countingSweeper struct {
	calls chan struct{}
}

func (c *countingSweeper) Sweep() int {
	select {
	case c.calls <- struct{}{}:
	default:
	}
	return 1
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler(logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestSweepResetTokensUsesClock(t *testing.T) {
	s := newTestScheduler(t)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	store := new(mockResetStore)
	store.On("ClearExpiredResetTokens", mock.Anything, now).Return(int64(2), nil).Once()

	require.NoError(t, s.sweepResetTokens(store))
	store.AssertExpectations(t)
}

func TestSweepResetTokensReportsFailure(t *testing.T) {
	s := newTestScheduler(t)
	store := new(mockResetStore)
	store.On("ClearExpiredResetTokens", mock.Anything, mock.Anything).Return(int64(0), errors.New("mongo down"))

	assert.EqualError(t, s.sweepResetTokens(store), "mongo down")
}

type signalingResetStore struct {
	calls chan time.Time
}

func (s *signalingResetStore) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	select {
	case s.calls <- now:
	default:
	}
	return 0, nil
}

func TestScheduledJobsRun(t *testing.T) {
	s := newTestScheduler(t)
	store := &signalingResetStore{calls: make(chan time.Time, 1)}
	sweeper := &countingSweeper{calls: make(chan struct{}, 1)}

	require.NoError(t, s.ScheduleResetTokenSweep(store, 20*time.Millisecond))
	require.NoError(t, s.ScheduleWindowSweep(sweeper, 20*time.Millisecond))
	assert.ElementsMatch(t, []string{"reset-token-sweep", "rate-limit-sweep"}, s.Names())

	s.Start()
	select {
	case <-sweeper.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("rate limit sweep never ran")
	}
	select {
	case <-store.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("reset token sweep never ran")
	}
}
