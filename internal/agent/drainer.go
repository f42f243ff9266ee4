package agent

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/yndnr/botvault/internal/telemetry/logger"
	"github.com/yndnr/botvault/internal/telemetry/metric"
)

// DrainResult counts what one pass over a queue did.
type DrainResult struct {
	Redeemed int
	Rejected int
}

// Drainer works through redemption queues in priority order, one key at a
// time, paced by a token bucket shared by every account.
type Drainer struct {
	redeemer Redeemer
	limiter  *rate.Limiter
	metrics  *metric.Metrics
}

// NewDrainer creates a drainer allowing ratePerMinute attempts with the
// given burst. A nil metrics disables recording.
func NewDrainer(r Redeemer, ratePerMinute float64, burst int, m *metric.Metrics) *Drainer {
	if burst < 1 {
		burst = 1
	}
	return &Drainer{
		redeemer: r,
		limiter:  rate.NewLimiter(rate.Limit(ratePerMinute/60), burst),
		metrics:  m,
	}
}

// Drain redeems queued keys of acct until the queue is empty, a transient
// failure occurs or ctx is done. Keys that were redeemed or permanently
// rejected are removed. A transient failure leaves the key in place and is
// returned.
func (d *Drainer) Drain(ctx context.Context, acct *Account) (DrainResult, error) {
	var res DrainResult
	log := logger.L(logger.WithAccount(ctx, acct.Name()))
	db := acct.DB()

	for {
		item, prio, ok := db.NextRedeem()
		if !ok {
			return res, nil
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return res, err
		}

		err := d.redeemer.Redeem(ctx, acct.Name(), item)
		switch {
		case err == nil:
			res.Redeemed++
			d.record(acct.Name(), metric.OutcomeRedeemed)
			log.Info("key redeemed", "cdkey", item.Key, "priority", prio.String())
		case errors.Is(err, ErrRejected):
			res.Rejected++
			d.record(acct.Name(), metric.OutcomeRejected)
			log.Warn("key rejected", "cdkey", item.Key, "error", err)
		default:
			d.record(acct.Name(), metric.OutcomeTransient)
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			return res, fmt.Errorf("redeem %s: %w", acct.Name(), err)
		}

		if _, err := db.RemoveRedeem(item.Key); err != nil {
			return res, err
		}
	}
}

func (d *Drainer) record(account, outcome string) {
	if d.metrics != nil {
		d.metrics.RedeemAttempt(account, outcome)
	}
}
