package cron

import (
	"context"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
)

// AccrualRunner is implemented by the balance engine.
type AccrualRunner interface {
	RunScheduledAccruals(ctx context.Context, at time.Time, actx audit.Context) error
}

// TxRunner scopes one sweep in one transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RegisterAccrualJob schedules the balance accrual sweep. Each run executes
// in its own transaction under the scheduler actor.
func RegisterAccrualJob(s *Scheduler, tx TxRunner, runner AccrualRunner, interval time.Duration) {
	s.AddJob("leave_balance_accrual", interval, func(ctx context.Context) error {
		return tx.RunInTx(ctx, func(ctx context.Context) error {
			return runner.RunScheduledAccruals(ctx, time.Now().UTC(), audit.SystemContext(audit.ActorScheduler))
		})
	})
}
