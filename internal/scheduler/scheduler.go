package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Warmer refreshes cached weather for a set of cities.
type Warmer interface {
	Warm(ctx context.Context, cities []string) error
}

type Status struct {
	Running   bool       `json:"running"`
	Schedule  string     `json:"schedule"`
	Cities    []string   `json:"cities"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Scheduler keeps favourite cities warm in the cache on a cron schedule.
type Scheduler struct {
	warmer   Warmer
	logger   *zap.Logger
	cron     *cron.Cron
	entryID  cron.EntryID
	schedule string
	cities   []string
	timeout  time.Duration

	mu      sync.Mutex
	running bool
	lastRun time.Time
	lastErr error
}

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NewScheduler accepts standard five-field schedules, schedules with a leading
// seconds field, and descriptors such as "@every 15m".
func NewScheduler(warmer Warmer, schedule string, cities []string, timeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	s := &Scheduler{
		warmer:   warmer,
		logger:   logger,
		schedule: schedule,
		cities:   append([]string(nil), cities...),
		timeout:  timeout,
	}

	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithChain(
			cron.Recover(cronLogger{logger.Sugar()}),
			cron.SkipIfStillRunning(cronLogger{logger.Sugar()}),
		),
	)

	// nothing to warm, so the schedule is never consulted
	if len(s.cities) == 0 {
		return s, nil
	}

	id, err := s.cron.AddFunc(schedule, s.runWarm)
	if err != nil {
		return nil, fmt.Errorf("invalid warm schedule %q: %w", schedule, err)
	}
	s.entryID = id

	return s, nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	if len(s.cities) == 0 {
		s.mu.Unlock()
		s.logger.Info("No cities to warm, scheduler not started")
		return
	}
	s.running = true
	s.mu.Unlock()

	s.cron.Start()

	s.logger.Info("Scheduler started",
		zap.String("schedule", s.schedule),
		zap.Strings("cities", s.cities),
		zap.Time("next_run", s.cron.Entry(s.entryID).Next))

	// Run immediately on start
	go s.runWarm()
}

// Stop halts the schedule and waits for a running warm-up to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) ForceRun() {
	s.logger.Info("Manually triggering cache warm-up")
	go s.runWarm()
}

func (s *Scheduler) runWarm() {
	startTime := time.Now()
	s.logger.Info("Starting scheduled cache warm-up", zap.Strings("cities", s.cities))

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.warmer.Warm(ctx, s.cities)

	s.mu.Lock()
	s.lastRun = startTime
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Scheduled cache warm-up failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(startTime)))
		return
	}
	s.logger.Info("Scheduled cache warm-up completed",
		zap.Duration("duration", time.Since(startTime)))
}

func (s *Scheduler) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running:  s.running,
		Schedule: s.schedule,
		Cities:   append([]string(nil), s.cities...),
	}
	if !s.lastRun.IsZero() {
		last := s.lastRun
		status.LastRun = &last
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	if s.running {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			status.NextRun = &next
		}
	}
	return status
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
