package audit

import (
	"context"
	"time"

	"github.com/fairyhunter13/product-catalog-service/internal/obs"
	"github.com/robfig/cron/v3"
)

// DefaultSweepSpec is the cron schedule used to purge expired entries.
const DefaultSweepSpec = "@every 1m"

// Sweeper periodically deletes expired audit entries. Reads already hide
// expired entries; the sweeper only reclaims their storage.
type Sweeper struct {
	log  Log
	cron *cron.Cron
	now  func() time.Time
}

// NewSweeper schedules a purge of log according to the cron spec.
func NewSweeper(log Log, spec string) (*Sweeper, error) {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	s := &Sweeper{log: log, cron: cron.New(), now: time.Now}
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			obs.Logger.Error("audit_sweep_error", "error", err)
		}
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() { <-s.cron.Stop().Done() }

// Sweep purges expired entries once and returns how many were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	n, err := s.log.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		obs.AuditExpired.Add(float64(n))
		obs.Logger.Info("audit_entries_expired", "count", n)
	}
	return n, nil
}
