// Package job runs the periodic reservation expiry sweep.
package job

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Expirer releases lots whose reservation expired before now.
type Expirer interface {
	ExpireReservations(ctx context.Context, now time.Time) (int, error)
}

// Scheduler triggers an Expirer on a cron schedule with a seconds field,
// e.g. "0 */15 * * * *".
type Scheduler struct {
	c       *cron.Cron
	expirer Expirer
	timeout time.Duration
	now     func() time.Time
	logger  *log.Logger
}

func NewScheduler(expirer Expirer, spec string, logger *log.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = log.Default()
	}
	s := &Scheduler{
		c:       cron.New(cron.WithSeconds()),
		expirer: expirer,
		timeout: time.Minute,
		now:     time.Now,
		logger:  logger,
	}
	if _, err := s.c.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid expiry schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() { s.c.Start() }

// Stop halts the schedule; the returned context is done once a running
// sweep has finished.
func (s *Scheduler) Stop() context.Context { return s.c.Stop() }

// RunOnce performs one sweep now.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	return s.expirer.ExpireReservations(ctx, s.now())
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Printf("[cron] reservation expiry failed: %v", err)
		return
	}
	if n > 0 {
		s.logger.Printf("[cron] expired %d reservations", n)
	}
}
