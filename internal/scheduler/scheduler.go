package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/lexera/internal/logger"
)

// DefaultSweepInterval is used when no interval is configured
const DefaultSweepInterval = time.Minute

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	sweeper   Sweeper
	interval  time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// Sweeper closes play sessions that went quiet
type Sweeper interface {
	SweepIdleSessions(now time.Time) int
}

// New creates a new scheduler instance
func New(sweeper Sweeper, interval time.Duration, log *logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		sweeper:   sweeper,
		interval:  interval,
		log:       log,
		now:       time.Now,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.sweep); err != nil {
		return err
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RunNow performs a sweep immediately and returns the number of closed sessions
func (s *Scheduler) RunNow() int {
	return s.sweep()
}

func (s *Scheduler) sweep() int {
	closed := s.sweeper.SweepIdleSessions(s.now())
	if closed > 0 {
		s.log.Info("closed idle sessions", "count", closed)
	}
	return closed
}
