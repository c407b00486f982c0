package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// CronSchedule is a minimal cron subset: discrete values and "*" in minute,
// hour, day-of-month, month, and day-of-week fields, matching the "minimum
// viable subset" design note.
type CronSchedule struct {
	minute, hour, dom, month, dow string
}

// ParseCron parses a standard 5-field cron expression.
func ParseCron(expr string) (CronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return CronSchedule{}, domain.NewError(domain.CodeValidationError, "cron expression must have 5 fields")
	}
	return CronSchedule{minute: fields[0], hour: fields[1], dom: fields[2], month: fields[3], dow: fields[4]}, nil
}

func cronFieldMatches(field string, value int) bool {
	if field == "*" {
		return true
	}
	n, err := strconv.Atoi(field)
	if err != nil {
		return false
	}
	return n == value
}

// Matches reports whether t satisfies the schedule at minute granularity.
func (s CronSchedule) Matches(t time.Time) bool {
	return cronFieldMatches(s.minute, t.Minute()) &&
		cronFieldMatches(s.hour, t.Hour()) &&
		cronFieldMatches(s.dom, t.Day()) &&
		cronFieldMatches(s.month, int(t.Month())) &&
		cronFieldMatches(s.dow, int(t.Weekday()))
}

// NextRun finds the next minute-granularity instant strictly after `after` that matches
// the schedule, searching up to one year ahead.
func (s CronSchedule) NextRun(after time.Time) time.Time {
	t := after.Truncate(time.Minute)
	if !t.After(after) {
		t = t.Add(time.Minute)
	}
	limit := after.AddDate(1, 0, 0)
	for t.Before(limit) {
		if s.Matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return limit
}

// Phase names one stage of a consolidation run's progress.
type Phase string

const (
	PhaseIdentifyingClusters  Phase = "identifying_clusters"
	PhaseGeneratingSummaries  Phase = "generating_summaries"
	PhaseConsolidating        Phase = "consolidating"
	PhaseComplete             Phase = "complete"
)

// Progress is the live snapshot HealthMonitor reads.
type Progress struct {
	Phase                 Phase
	ClustersIdentified    int
	ClustersConsolidated  int
	MemoriesProcessed     int
	MemoriesTotal         int
	PercentComplete       float64
	StartedAt             time.Time
	EstimatedRemainingMs  int64
	Running               bool
	LastError             string
	LastRunAt             *time.Time
}

// SchedulerConfig parameterizes ConsolidationScheduler.
type SchedulerConfig struct {
	CronExpression      string
	Enabled             bool
	MaxSystemLoad       float64
	ConsolidationConfig domain.ConsolidationConfig
	MaxRetryAttempts    int
	BaseRetryDelay      time.Duration
	// ActiveUsers supplies the iterable set of users to run maintenance for;
	// the core makes no assumption about that set other than "iterable".
	ActiveUsers func(ctx context.Context) ([]uuid.UUID, error)
}

// DefaultSchedulerConfig matches the defaults named in the component spec.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		CronExpression:      "0 3 * * *",
		Enabled:             true,
		MaxSystemLoad:       0.8,
		ConsolidationConfig: domain.DefaultConsolidationConfig(),
		MaxRetryAttempts:    3,
		BaseRetryDelay:      time.Second,
	}
}

// ConsolidationScheduler runs ConsolidationEngine.RunConsolidation on a
// cron-like cadence (or on manual trigger), with retry/backoff and
// load-based suppression, grounded on the teacher's ticker+stopCh+WaitGroup
// background-worker pattern in internal/service/consolidation.go.
type ConsolidationScheduler struct {
	mu       sync.Mutex
	cfg      SchedulerConfig
	schedule CronSchedule
	engine   *ConsolidationEngine
	monitor  domain.SystemLoadMonitor
	logger   *zap.Logger

	running    bool
	progress   Progress
	nextRun    time.Time
	ticker     *time.Ticker
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func NewConsolidationScheduler(cfg SchedulerConfig, engine *ConsolidationEngine, monitor domain.SystemLoadMonitor, logger *zap.Logger) (*ConsolidationScheduler, error) {
	schedule, err := ParseCron(cfg.CronExpression)
	if err != nil {
		return nil, err
	}
	return &ConsolidationScheduler{
		cfg:      cfg,
		schedule: schedule,
		engine:   engine,
		monitor:  monitor,
		logger:   logger,
		nextRun:  schedule.NextRun(time.Now()),
	}, nil
}

// Start is idempotent and a no-op when the scheduler is disabled.
func (s *ConsolidationScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.ticker != nil {
		return
	}
	s.ticker = time.NewTicker(time.Minute)
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.loop(ctx)
}

func (s *ConsolidationScheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.ticker.C:
			s.runScheduledIfDue(ctx)
		}
	}
}

// Stop cancels the tick and waits for any in-flight job.
func (s *ConsolidationScheduler) Stop() {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	close(s.stopCh)
	s.ticker = nil
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *ConsolidationScheduler) runScheduledIfDue(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	now := time.Now()
	if now.Before(s.nextRun) {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if s.monitor != nil {
		load, err := s.monitor.SystemLoad(ctx)
		if err == nil && load > s.cfg.MaxSystemLoad {
			s.mu.Lock()
			s.progress.LastError = "Skipped due to high system load"
			s.nextRun = s.schedule.NextRun(now)
			s.mu.Unlock()
			return
		}
	}

	s.mu.Lock()
	s.nextRun = s.schedule.NextRun(now)
	s.mu.Unlock()

	if s.cfg.ActiveUsers == nil {
		return
	}
	users, err := s.cfg.ActiveUsers(ctx)
	if err != nil {
		s.logger.Warn("failed to list active users for scheduled consolidation", zap.Error(err))
		return
	}
	for _, userID := range users {
		_ = s.runConsolidationWithRetry(ctx, userID)
	}
}

// TriggerNow runs consolidation synchronously for one user with retry,
// rejecting with JobInProgress if a job is already running.
func (s *ConsolidationScheduler) TriggerNow(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return domain.ErrJobInProgress
	}
	s.mu.Unlock()
	return s.runConsolidationWithRetry(ctx, userID)
}

func (s *ConsolidationScheduler) runConsolidationWithRetry(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	s.running = true
	s.progress = Progress{Phase: PhaseIdentifyingClusters, StartedAt: time.Now(), Running: true}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.progress.Running = false
		s.mu.Unlock()
	}()

	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetryAttempts; attempt++ {
		s.mu.Lock()
		s.progress.Phase = PhaseIdentifyingClusters
		s.mu.Unlock()

		result, err := s.engine.RunConsolidation(ctx, userID, s.cfg.ConsolidationConfig)
		if err == nil {
			s.mu.Lock()
			s.progress.Phase = PhaseComplete
			s.progress.ClustersIdentified = result.ClustersIdentified
			s.progress.ClustersConsolidated = result.ClustersConsolidated
			s.progress.PercentComplete = 100
			now := time.Now()
			s.progress.LastRunAt = &now
			s.mu.Unlock()
			return nil
		}

		lastErr = err
		if attempt < s.cfg.MaxRetryAttempts {
			delay := s.cfg.BaseRetryDelay * time.Duration(1<<uint(attempt))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	s.mu.Lock()
	s.progress.LastError = lastErr.Error()
	s.mu.Unlock()
	return domain.WrapError(domain.CodeMaxRetriesExceeded, fmt.Sprintf("consolidation failed after %d attempts", s.cfg.MaxRetryAttempts+1), lastErr)
}

// GetProgress returns the live progress snapshot.
func (s *ConsolidationScheduler) GetProgress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.progress
	if p.MemoriesProcessed > 0 {
		elapsed := time.Since(p.StartedAt)
		remaining := p.MemoriesTotal - p.MemoriesProcessed
		p.EstimatedRemainingMs = int64(elapsed.Milliseconds()) / int64(p.MemoriesProcessed) * int64(remaining)
	}
	return p
}

// SetBatchSize updates the consolidation batch size at runtime.
func (s *ConsolidationScheduler) SetBatchSize(n int) error {
	if n < 1 {
		return domain.NewError(domain.CodeValidationError, "batch size must be >= 1")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.ConsolidationConfig.BatchSize = n
	return nil
}

// IsRunning reports whether a job is currently in flight.
func (s *ConsolidationScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
