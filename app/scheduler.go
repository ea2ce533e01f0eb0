package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	models "tradescout/database/models_pkg"
	"tradescout/database/types"
	"tradescout/helpers"
)

// Market session in the trading timezone
const (
	marketOpenHour    = 9
	marketOpenMinute  = 30
	marketCloseHour   = 16
	schedulerTickRate = time.Minute
)

// MaintenanceRunner runs the end-of-day job
type MaintenanceRunner interface {
	RunDailyMaintenance(ctx context.Context) (*types.MaintenanceResult, error)
}

// OpportunityScanner runs an alerting scan
type OpportunityScanner interface {
	ScanAndAlert(ctx context.Context) ([]types.OpportunitySignal, error)
}

// PeriodReporter generates and sends the quarterly report for the quarter
// containing asOf. History exposes the stored reports so a restart can tell
// which quarters were already sent.
type PeriodReporter interface {
	RunPeriodReport(ctx context.Context, asOf time.Time) (*types.PeriodReport, error)
	History(ctx context.Context, periodType models.PeriodType, limit int) ([]models.PerformanceMetrics, error)
}

// ScheduleOptions controls which jobs run and when
type ScheduleOptions struct {
	MaintenanceHour        int
	MaintenanceMinute      int
	ScanInterval           time.Duration // 0 disables intraday scans
	QuarterlyReportEnabled bool
	Location               *time.Location
}

// Scheduler triggers maintenance, scans and reports from a one-minute ticker
type Scheduler struct {
	maintenance MaintenanceRunner
	scanner     OpportunityScanner
	reporter    PeriodReporter
	opts        ScheduleOptions
	now         Clock
	logger      zerolog.Logger

	mu              sync.Mutex
	lastMaintenance time.Time // date of the last maintenance run
	lastScan        time.Time
	reportedQuarter int  // year*4 + quarter index already reported on
	reportsLoaded   bool // reportedQuarter reflects the stored reports

	done chan bool
}

// NewScheduler creates a scheduler. The newest final quarterly report in the
// store marks what was already sent; with none stored, quarters before the one
// current at construction are not backfilled.
func NewScheduler(maintenance MaintenanceRunner, scanner OpportunityScanner, reporter PeriodReporter, opts ScheduleOptions, now Clock) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Scheduler{
		maintenance:     maintenance,
		scanner:         scanner,
		reporter:        reporter,
		opts:            opts,
		now:             now,
		logger:          log.With().Str("component", "scheduler").Logger(),
		reportedQuarter: quarterKey(now().In(opts.Location)) - 1,
		done:            make(chan bool),
	}
}

func quarterKey(t time.Time) int {
	return t.Year()*4 + helpers.QuarterIndex(t)
}

// Start runs the loop until Stop is called or ctx ends
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().
		Int("maintenance_hour", s.opts.MaintenanceHour).
		Int("maintenance_minute", s.opts.MaintenanceMinute).
		Dur("scan_interval", s.opts.ScanInterval).
		Msg("⏰ Scheduler started")

	ticker := time.NewTicker(schedulerTickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-ctx.Done():
			s.logger.Info().Msg("⏰ Scheduler stopped")
			return
		case <-s.done:
			s.logger.Info().Msg("⏰ Scheduler stopped")
			return
		}
	}
}

// Stop stops the loop
func (s *Scheduler) Stop() {
	select {
	case s.done <- true:
	case <-time.After(time.Second):
	}
}

// Tick runs whatever jobs are due at the current time
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now().In(s.opts.Location)
	if helpers.IsWeekend(now) {
		return
	}

	if s.scanDue(now) {
		if _, err := s.scanner.ScanAndAlert(ctx); err != nil {
			s.logger.Error().Err(err).Msg("❌ Scheduled scan failed")
		}
	}

	if s.maintenanceDue(now) {
		if _, err := s.maintenance.RunDailyMaintenance(ctx); err != nil {
			s.logger.Error().Err(err).Msg("❌ Daily maintenance failed")
		}

		if asOf, ok := s.reportDue(ctx, now); ok {
			if _, err := s.reporter.RunPeriodReport(ctx, asOf); err != nil {
				s.logger.Error().Err(err).Msg("❌ Quarterly report failed")
			} else {
				s.markReported(asOf)
			}
		}
	}
}

func (s *Scheduler) maintenanceDue(now time.Time) bool {
	if s.maintenance == nil {
		return false
	}
	at := time.Date(now.Year(), now.Month(), now.Day(), s.opts.MaintenanceHour, s.opts.MaintenanceMinute, 0, 0, now.Location())
	if now.Before(at) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	today := helpers.DateOnly(now)
	if s.lastMaintenance.Equal(today) {
		return false
	}
	s.lastMaintenance = today
	return true
}

func (s *Scheduler) scanDue(now time.Time) bool {
	if s.scanner == nil || s.opts.ScanInterval <= 0 {
		return false
	}
	open := time.Date(now.Year(), now.Month(), now.Day(), marketOpenHour, marketOpenMinute, 0, 0, now.Location())
	closeAt := time.Date(now.Year(), now.Month(), now.Day(), marketCloseHour, 0, 0, 0, now.Location())
	if now.Before(open) || !now.Before(closeAt) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastScan.IsZero() && now.Sub(s.lastScan) < s.opts.ScanInterval {
		return false
	}
	s.lastScan = now
	return true
}

// loadReportedQuarter sets reportedQuarter from the newest final quarterly
// report in the store, once. Reports generated mid-quarter do not count.
func (s *Scheduler) loadReportedQuarter(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.reportsLoaded
	s.mu.Unlock()
	if loaded {
		return nil
	}

	recent, err := s.reporter.History(ctx, models.PeriodQuarterly, 4)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	final := false
	for i := range recent {
		if recent[i].IsFinal() {
			s.reportedQuarter = quarterKey(recent[i].PeriodEnd)
			final = true
			break
		}
	}
	// only mid-quarter reports: tracking began with the oldest of them
	if !final && len(recent) > 0 {
		s.reportedQuarter = quarterKey(recent[len(recent)-1].PeriodEnd) - 1
	}
	s.reportsLoaded = true
	return nil
}

// reportDue returns the last day of the previous quarter while that quarter
// has not been reported.
func (s *Scheduler) reportDue(ctx context.Context, now time.Time) (time.Time, bool) {
	if s.reporter == nil || !s.opts.QuarterlyReportEnabled {
		return time.Time{}, false
	}
	if err := s.loadReportedQuarter(ctx); err != nil {
		s.logger.Error().Err(err).Msg("❌ Failed to read stored quarterly reports")
		return time.Time{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if quarterKey(now)-1 <= s.reportedQuarter {
		return time.Time{}, false
	}

	start, _ := helpers.QuarterBounds(now)
	return start.AddDate(0, 0, -1), true
}

func (s *Scheduler) markReported(asOf time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q := quarterKey(asOf); q > s.reportedQuarter {
		s.reportedQuarter = q
	}
}
