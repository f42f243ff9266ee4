package agent

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/botvault/internal/telemetry/logger"
	"github.com/yndnr/botvault/internal/telemetry/metric"
)

// RunResult summarizes one maintenance pass.
type RunResult struct {
	ID       string
	Accounts int
	Expired  int
	Redeemed int
	Rejected int
}

// MaintainerOption configures a Maintainer.
type MaintainerOption func(*Maintainer)

// WithDrainer drains redemption queues after every sweep.
func WithDrainer(d *Drainer) MaintainerOption {
	return func(m *Maintainer) { m.drainer = d }
}

// WithMaintainerMetrics counts passes.
func WithMaintainerMetrics(mt *metric.Metrics) MaintainerOption {
	return func(m *Maintainer) { m.metrics = mt }
}

// WithMaintainerLogger sets the logger.
func WithMaintainerLogger(l logger.Logger) MaintainerOption {
	return func(m *Maintainer) { m.logger = l }
}

// Maintainer runs periodic maintenance over every registered account.
type Maintainer struct {
	registry *Registry
	interval time.Duration
	drainer  *Drainer
	metrics  *metric.Metrics
	logger   logger.Logger
	now      func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewMaintainer creates a maintainer ticking every interval.
func NewMaintainer(reg *Registry, interval time.Duration, opts ...MaintainerOption) *Maintainer {
	m := &Maintainer{
		registry: reg,
		interval: interval,
		logger:   logger.Default(),
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunOnce sweeps expired entries of every account and, with a drainer,
// drains their queues. A failed drain is logged and does not stop the pass.
func (m *Maintainer) RunOnce(ctx context.Context) RunResult {
	res := RunResult{ID: ulid.Make().String()}
	ctx = logger.WithRunID(logger.WithLogger(ctx, m.logger), res.ID)
	now := m.now()

	m.registry.Each(func(acct *Account) bool {
		if ctx.Err() != nil {
			return false
		}
		res.Accounts++
		log := logger.L(logger.WithAccount(ctx, acct.Name()))

		if removed := acct.DB().PerformMaintenance(now); removed > 0 {
			res.Expired += removed
			log.Info("expired entries removed", "count", removed)
		}

		if m.drainer == nil {
			return true
		}
		dr, err := m.drainer.Drain(ctx, acct)
		res.Redeemed += dr.Redeemed
		res.Rejected += dr.Rejected
		if err != nil && ctx.Err() == nil {
			log.Warn("redeem queue drain stopped", "error", err)
		}
		return true
	})

	if m.metrics != nil {
		m.metrics.SweepRun()
	}
	logger.L(ctx).Debug("maintenance run finished",
		"accounts", res.Accounts,
		"expired", res.Expired,
		"redeemed", res.Redeemed,
		"rejected", res.Rejected)
	return res
}

// Start runs the loop in a goroutine. Calling it again has no effect.
func (m *Maintainer) Start() {
	m.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		go m.backgroundLoop(ctx)
	})
}

func (m *Maintainer) backgroundLoop(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.RunOnce(ctx)
		case <-m.stopCh:
			return
		}
	}
}

// Stop ends the loop, cancelling a running pass, and waits for it to
// return or for ctx. A maintainer that was never started cannot start later.
func (m *Maintainer) Stop(ctx context.Context) error {
	m.startOnce.Do(func() { close(m.doneCh) })
	m.stopOnce.Do(func() {
		close(m.stopCh)
		if m.cancel != nil {
			m.cancel()
		}
	})
	select {
	case <-m.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
