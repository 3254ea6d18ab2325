// Package jobs runs the periodic maintenance work: the idle session sweep
// and the end-of-day summary sent to the restaurant.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Ananth-NQI/orderbot-backend/internal/metrics"
	"github.com/Ananth-NQI/orderbot-backend/internal/services"
)

// SweepSpec is how often expired sessions are dropped
const SweepSpec = "@every 5m"

// cronParser accepts 5-field expressions and descriptors such as @every
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSpec reports whether expr is a schedule the scheduler accepts
func ValidateSpec(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("jobs: invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Scheduler owns the cron runner
type Scheduler struct {
	cron     *cron.Cron
	sessions *services.SessionManager
	admin    *services.AdminCommands
	metrics  *metrics.Metrics
	timeout  time.Duration
}

// NewScheduler registers the sweep and, when summarySpec is not empty, the
// daily summary. Schedules are evaluated in the restaurant time zone.
func NewScheduler(engine *services.Engine, m *metrics.Metrics, summarySpec string) (*Scheduler, error) {
	s := &Scheduler{
		sessions: engine.Sessions(),
		admin:    engine.Admin(),
		metrics:  m,
		timeout:  30 * time.Second,
	}
	s.cron = cron.New(
		cron.WithLocation(engine.Admin().Location()),
		cron.WithParser(cronParser),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)

	if _, err := s.cron.AddFunc(SweepSpec, s.SweepSessions); err != nil {
		return nil, fmt.Errorf("jobs: schedule session sweep: %w", err)
	}
	if summarySpec != "" {
		if err := ValidateSpec(summarySpec); err != nil {
			return nil, err
		}
		if _, err := s.cron.AddFunc(summarySpec, s.SendDailySummary); err != nil {
			return nil, fmt.Errorf("jobs: schedule daily summary: %w", err)
		}
	}
	return s, nil
}

// Start begins all scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		log.Printf("⏰ Job %d next run at %s", e.ID, e.Next.Format(time.RFC3339))
	}
}

// Stop halts the scheduler and waits for running jobs up to ctx
func (s *Scheduler) Stop(ctx context.Context) {
	log.Println("Stopping scheduled jobs...")
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Println("⚠️ Scheduled jobs still running at shutdown")
	}
}

// SweepSessions drops expired sessions and updates the session gauge
func (s *Scheduler) SweepSessions() {
	removed := s.sessions.Sweep()
	active := len(s.sessions.ActiveSessions())
	s.metrics.SetActiveSessions(active)
	if removed > 0 {
		log.Printf("🧹 Swept %d expired sessions, %d active", removed, active)
	}
}

// SendDailySummary pushes today's summary to the restaurant
func (s *Scheduler) SendDailySummary() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.admin.SendDailySummary(ctx); err != nil {
		log.Printf("❌ Daily summary failed: %v", err)
		return
	}
	log.Println("📊 Daily summary sent")
}
