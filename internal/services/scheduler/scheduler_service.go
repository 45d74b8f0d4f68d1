// Package scheduler runs the analysis pipeline on a cron schedule and raises
// alerts for setups above a confidence threshold.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/analysis"
)

// DefaultRunTimeout bounds one scheduled run.
const DefaultRunTimeout = 10 * time.Minute

// ErrAlreadyRunning is returned by RunNow while another run is in progress.
var ErrAlreadyRunning = errors.New("analysis run already in progress")

// Analyzer executes one analysis run.
type Analyzer interface {
	Execute(ctx context.Context, req models.AnalysisRequest, onProgress analysis.ProgressFunc) (*models.AnalysisResult, error)
}

// Status is a snapshot of the scheduled job.
type Status struct {
	Running   bool
	Schedule  string
	LastRun   *time.Time
	NextRun   *time.Time
	LastError string
	Alerts    int
}

// Service owns the cron loop for scheduled analysis.
type Service struct {
	analyzer  Analyzer
	request   models.AnalysisRequest
	watchlist interfaces.WatchlistStorage
	sinks     []interfaces.NotificationSink
	threshold float64
	timeout   time.Duration
	logger    arbor.ILogger
	now       func() time.Time

	cron     *cron.Cron
	mu       sync.Mutex
	runMu    sync.Mutex
	running  bool
	schedule string
	entryID  cron.EntryID
	lastRun  *time.Time
	lastErr  string
	alerts   int
}

// Option configures the Service.
type Option func(*Service)

// WithWatchlist adds pinned symbols to every scheduled request.
func WithWatchlist(w interfaces.WatchlistStorage) Option {
	return func(s *Service) {
		s.watchlist = w
	}
}

// WithSinks sets where alerts are delivered.
func WithSinks(sinks ...interfaces.NotificationSink) Option {
	return func(s *Service) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// WithRunTimeout bounds each run.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock overrides the alert timestamp clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a scheduler running request through analyzer. Setups
// with confidence at or above threshold raise alerts.
func NewService(analyzer Analyzer, request models.AnalysisRequest, threshold float64, logger arbor.ILogger, opts ...Option) *Service {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	s := &Service{
		analyzer:  analyzer,
		request:   request,
		threshold: threshold,
		timeout:   DefaultRunTimeout,
		logger:    logger,
		now:       time.Now,
		cron:      cron.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the analysis job on schedule and starts the cron loop.
func (s *Service) Start(schedule string) error {
	if err := common.ValidateSchedule(schedule); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	id, err := s.cron.AddFunc(schedule, s.runScheduled)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entryID = id
	s.schedule = schedule
	s.cron.Start()
	s.running = true

	s.logger.Info().Str("schedule", schedule).Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for an in-flight run to finish.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.cron.Remove(s.entryID)
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning reports whether the cron loop is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the job's last outcome and next fire time.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running:   s.running,
		Schedule:  s.schedule,
		LastRun:   s.lastRun,
		LastError: s.lastErr,
		Alerts:    s.alerts,
	}
	if s.running {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			st.NextRun = &next
		}
	}
	return st
}

// RunNow executes one run immediately and delivers its alerts. Overlapping
// runs are rejected with ErrAlreadyRunning.
func (s *Service) RunNow(ctx context.Context) (*models.AnalysisResult, error) {
	if !s.runMu.TryLock() {
		return nil, ErrAlreadyRunning
	}
	defer s.runMu.Unlock()

	req := s.request
	req.CustomTickers = append([]string{}, s.request.CustomTickers...)
	if s.watchlist != nil {
		entries, err := s.watchlist.List(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to load watchlist, running without it")
		}
		for _, e := range entries {
			req.CustomTickers = append(req.CustomTickers, e.Symbol)
		}
	}

	start := s.now()
	result, err := s.analyzer.Execute(ctx, req, nil)
	finished := s.now()

	s.mu.Lock()
	s.lastRun = &finished
	if err != nil {
		s.lastErr = err.Error()
	} else {
		s.lastErr = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Dur("duration", finished.Sub(start)).Msg("Scheduled analysis failed")
		return nil, err
	}

	sent := s.deliver(ctx, result)
	s.logger.Info().
		Str("run_id", result.RunID).
		Int("setups", result.SetupCount).
		Int("alerts", sent).
		Dur("duration", finished.Sub(start)).
		Msg("Scheduled analysis completed")
	return result, nil
}

func (s *Service) runScheduled() {
	defer common.Recover(s.logger, "scheduler:analysis")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.RunNow(ctx); errors.Is(err, ErrAlreadyRunning) {
		s.logger.Warn().Msg("Skipping scheduled run, previous run still in progress")
	}
}

// deliver sends one alert per qualifying setup to every sink and returns
// the number of alerts raised.
func (s *Service) deliver(ctx context.Context, result *models.AnalysisResult) int {
	raised := 0
	for i := range result.Setups {
		setup := result.Setups[i]
		if setup.Confidence < s.threshold {
			continue
		}
		alert := models.Alert{
			Title:     fmt.Sprintf("High-confidence setup: %s", setup.Symbol),
			Body:      fmt.Sprintf("%s %s setup at %.2f confidence (run %s).", setup.Intent, setup.SetupType, setup.Confidence, result.RunID),
			Symbol:    setup.Symbol,
			Setup:     &setup,
			CreatedAt: s.now(),
		}
		raised++
		for _, sink := range s.sinks {
			if err := sink.Notify(ctx, alert); err != nil {
				s.logger.Warn().Err(err).Str("symbol", setup.Symbol).Msg("Alert delivery failed")
			}
		}
	}

	s.mu.Lock()
	s.alerts += raised
	s.mu.Unlock()
	return raised
}
