package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	appar "github.com/arledger/backend/internal/application/ar"
)

// cronTickerInterval is the interval at which the scheduler checks for execution
const cronTickerInterval = 1 * time.Minute

// SnapshotRunner generates the daily aging snapshots for one day
type SnapshotRunner interface {
	GenerateDailySnapshots(ctx context.Context, date time.Time) (*appar.DailySnapshotResult, error)
}

// AgingSnapshotSchedulerConfig holds configuration for the daily snapshot scheduler
type AgingSnapshotSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// CronHour is the hour (0-23) to run the daily snapshot
	CronHour int
	// CronMinute is the minute (0-59) to run the daily snapshot
	CronMinute int
	// DailyCronSchedule is the cron expression (parsed to extract hour/minute)
	DailyCronSchedule string
	// JobTimeout is the maximum time a snapshot run can take
	JobTimeout time.Duration
	// RetryAttempts is the number of retry attempts for a failed run
	RetryAttempts int
	// RetryDelay is the delay between retries
	RetryDelay time.Duration
}

// DefaultAgingSnapshotSchedulerConfig returns the default configuration.
// Defaults to running at 2:00 AM daily.
func DefaultAgingSnapshotSchedulerConfig() AgingSnapshotSchedulerConfig {
	return AgingSnapshotSchedulerConfig{
		Enabled:           true,
		CronHour:          2,
		CronMinute:        0,
		DailyCronSchedule: "0 2 * * *",
		JobTimeout:        30 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        5 * time.Minute,
	}
}

// ParseCronSchedule parses a cron expression "minute hour * * *" to extract hour and minute.
// Returns defaults (2:00) if parsing fails or expression is empty.
func ParseCronSchedule(cronExpr string) (hour, minute int, err error) {
	hour = 2
	minute = 0

	if cronExpr == "" {
		return hour, minute, nil
	}

	parts := strings.Fields(cronExpr)
	if len(parts) < 2 {
		return hour, minute, nil
	}

	if parts[0] != "*" {
		if val, parseErr := parseIntOrDefault(parts[0], 0); parseErr == nil {
			minute = val
		}
	}
	if parts[1] != "*" {
		if val, parseErr := parseIntOrDefault(parts[1], 2); parseErr == nil {
			hour = val
		}
	}

	if minute < 0 || minute > 59 {
		return 2, 0, fmt.Errorf("minute must be 0-59, got %d", minute)
	}
	if hour < 0 || hour > 23 {
		return 2, 0, fmt.Errorf("hour must be 0-23, got %d", hour)
	}

	return hour, minute, nil
}

// parseIntOrDefault parses an int string or returns default
func parseIntOrDefault(s string, defaultVal int) (int, error) {
	if s == "" || s == "*" {
		return defaultVal, nil
	}
	var val int
	for _, c := range s {
		if c < '0' || c > '9' {
			return defaultVal, ErrInvalidConfig
		}
		val = val*10 + int(c-'0')
	}
	return val, nil
}

// AgingSnapshotScheduler runs the daily aging snapshot job on a fixed
// time of day. A run that fails entirely is retried; per-customer
// failures inside a run are already isolated by the snapshot job itself.
type AgingSnapshotScheduler struct {
	config AgingSnapshotSchedulerConfig
	runner SnapshotRunner
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	lastRunAt  *time.Time
	nextRunAt  *time.Time
	lastResult *appar.DailySnapshotResult
}

// NewAgingSnapshotScheduler creates a new daily snapshot scheduler
func NewAgingSnapshotScheduler(
	config AgingSnapshotSchedulerConfig,
	runner SnapshotRunner,
	logger *zap.Logger,
) *AgingSnapshotScheduler {
	return &AgingSnapshotScheduler{
		config: config,
		runner: runner,
		logger: logger,
	}
}

// Start starts the scheduler
func (s *AgingSnapshotScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.calculateNextRunTime()

	s.wg.Add(1)
	go s.cronLoop(ctx)

	s.logger.Info("Aging snapshot scheduler started",
		zap.Int("cron_hour", s.config.CronHour),
		zap.Int("cron_minute", s.config.CronMinute),
		zap.Timep("next_run_at", s.nextRunAt),
	)

	return nil
}

// Stop stops the scheduler
func (s *AgingSnapshotScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Aging snapshot scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Aging snapshot scheduler stop timed out")
		return ctx.Err()
	}
}

// cronLoop runs the main cron loop
func (s *AgingSnapshotScheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(cronTickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.runSnapshots(ctx, now)
				s.calculateNextRunTime()
			}
		}
	}
}

// shouldRun checks if the job should run at the given time
func (s *AgingSnapshotScheduler) shouldRun(now time.Time) bool {
	return now.Hour() == s.config.CronHour && now.Minute() == s.config.CronMinute
}

// calculateNextRunTime calculates the next run time
func (s *AgingSnapshotScheduler) calculateNextRunTime() {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.CronHour, s.config.CronMinute, 0, 0, now.Location())
	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}

	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()
}

// runSnapshots runs the daily snapshot job with retries
func (s *AgingSnapshotScheduler) runSnapshots(ctx context.Context, date time.Time) {
	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	s.logger.Info("Starting daily aging snapshot run", zap.Time("snapshot_date", date))

	attempts := s.config.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		result *appar.DailySnapshotResult
		err    error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		runCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
		result, err = s.runner.GenerateDailySnapshots(runCtx, date)
		cancel()

		if err == nil {
			break
		}
		s.logger.Error("Daily aging snapshot run failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.config.RetryDelay):
			}
		}
	}
	if err != nil {
		return
	}

	s.mu.Lock()
	s.lastResult = result
	s.mu.Unlock()

	s.logger.Info("Daily aging snapshot run finished",
		zap.Time("snapshot_date", result.SnapshotDate),
		zap.Int("total", result.TotalCustomers),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
	)
}

// TriggerManualRun triggers an out-of-schedule snapshot run.
// Uses a background context so the run outlives the triggering request.
func (s *AgingSnapshotScheduler) TriggerManualRun(ctx context.Context, date time.Time) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	go s.runSnapshots(context.Background(), date)
	return nil
}

// GetStatus returns the current status of the scheduler
func (s *AgingSnapshotScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]any{
		"enabled":     s.config.Enabled,
		"is_running":  s.isRunning,
		"cron_hour":   s.config.CronHour,
		"cron_minute": s.config.CronMinute,
		"last_run_at": s.lastRunAt,
		"next_run_at": s.nextRunAt,
	}
	if s.lastResult != nil {
		status["last_result"] = s.lastResult
	}
	return status
}

// GetNextRunAt returns when the next scheduled run will occur
func (s *AgingSnapshotScheduler) GetNextRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// GetLastRunAt returns when the last run occurred
func (s *AgingSnapshotScheduler) GetLastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}
