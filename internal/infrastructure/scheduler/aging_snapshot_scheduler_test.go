package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appar "github.com/arledger/backend/internal/application/ar"
)

type stubSnapshotRunner struct {
	mu      sync.Mutex
	calls   int
	lastDay time.Time
	err     error
}

func (r *stubSnapshotRunner) GenerateDailySnapshots(_ context.Context, date time.Time) (*appar.DailySnapshotResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.lastDay = date
	if r.err != nil {
		return nil, r.err
	}
	return &appar.DailySnapshotResult{SnapshotDate: date, TotalCustomers: 2, Successful: 2}, nil
}

func (r *stubSnapshotRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestParseCronSchedule(t *testing.T) {
	tests := []struct {
		name       string
		cronExpr   string
		wantHour   int
		wantMinute int
		wantErr    bool
	}{
		{name: "standard 2am", cronExpr: "0 2 * * *", wantHour: 2, wantMinute: 0},
		{name: "half past midnight", cronExpr: "30 0 * * *", wantHour: 0, wantMinute: 30},
		{name: "empty uses defaults", cronExpr: "", wantHour: 2, wantMinute: 0},
		{name: "wildcards use defaults", cronExpr: "* * * * *", wantHour: 2, wantMinute: 0},
		{name: "invalid hour", cronExpr: "0 25 * * *", wantErr: true},
		{name: "invalid minute", cronExpr: "75 2 * * *", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour, minute, err := ParseCronSchedule(tt.cronExpr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHour, hour)
			assert.Equal(t, tt.wantMinute, minute)
		})
	}
}

func TestAgingSnapshotScheduler_ShouldRun(t *testing.T) {
	s := NewAgingSnapshotScheduler(AgingSnapshotSchedulerConfig{CronHour: 2, CronMinute: 0}, &stubSnapshotRunner{}, zap.NewNop())

	assert.True(t, s.shouldRun(time.Date(2024, 6, 1, 2, 0, 30, 0, time.UTC)))
	assert.False(t, s.shouldRun(time.Date(2024, 6, 1, 2, 1, 0, 0, time.UTC)))
	assert.False(t, s.shouldRun(time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)))
}

func TestAgingSnapshotScheduler_CalculateNextRunTime(t *testing.T) {
	s := NewAgingSnapshotScheduler(AgingSnapshotSchedulerConfig{CronHour: 2, CronMinute: 0}, &stubSnapshotRunner{}, zap.NewNop())

	s.calculateNextRunTime()

	next := s.GetNextRunAt()
	require.NotNil(t, next)
	assert.Equal(t, 2, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))
}

func TestAgingSnapshotScheduler_Lifecycle(t *testing.T) {
	runner := &stubSnapshotRunner{}
	s := NewAgingSnapshotScheduler(DefaultAgingSnapshotSchedulerConfig(), runner, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	// Starting twice is a no-op
	require.NoError(t, s.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	require.NoError(t, s.Stop(stopCtx))
}

func TestAgingSnapshotScheduler_TriggerManualRun(t *testing.T) {
	runner := &stubSnapshotRunner{}
	s := NewAgingSnapshotScheduler(DefaultAgingSnapshotSchedulerConfig(), runner, zap.NewNop())

	err := s.TriggerManualRun(context.Background(), time.Now())
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(stopCtx)
	}()

	require.NoError(t, s.TriggerManualRun(context.Background(), time.Now()))

	assert.Eventually(t, func() bool {
		return runner.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	status := s.GetStatus()
	assert.Equal(t, true, status["is_running"])
	assert.NotNil(t, s.GetLastRunAt())
}

func TestAgingSnapshotScheduler_RunRetriesOnFailure(t *testing.T) {
	runner := &stubSnapshotRunner{err: context.DeadlineExceeded}
	cfg := DefaultAgingSnapshotSchedulerConfig()
	cfg.RetryAttempts = 3
	cfg.RetryDelay = 5 * time.Millisecond
	s := NewAgingSnapshotScheduler(cfg, runner, zap.NewNop())

	s.runSnapshots(context.Background(), time.Now())

	assert.Equal(t, 3, runner.callCount())
	assert.Nil(t, s.lastResult)
}
