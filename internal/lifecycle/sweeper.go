package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSweepInterval is how often the sweeper calls CheckStaleBots.
const DefaultSweepInterval = 30 * time.Second

// dropletSyncer pulls a bot's droplet state from the IaaS provider into the
// local cache. *provisioning.Saga satisfies this implicitly; the sweeper
// never imports the provisioning package directly.
type dropletSyncer interface {
	SyncDropletStatus(ctx context.Context, botID uuid.UUID) error
}

// Sweeper periodically calls CheckStaleBots against a fixed heartbeat
// timeout, and — when a dropletSyncer is attached — reconciles every
// still-assigned droplet's status, independent of any request path.
type Sweeper struct {
	svc      *Service
	syncer   dropletSyncer
	timeout  time.Duration
	interval time.Duration
	logger   *zap.Logger

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewSweeper builds a Sweeper with the default interval. Use SetInterval to
// override it and SetDropletSyncer to enable droplet reconciliation before
// calling Start.
func NewSweeper(svc *Service, heartbeatTimeout time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		svc:      svc,
		timeout:  heartbeatTimeout,
		interval: DefaultSweepInterval,
		logger:   logger,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// SetInterval overrides the sweep period. Call before Start.
func (sw *Sweeper) SetInterval(interval time.Duration) {
	sw.interval = interval
}

// SetDropletSyncer attaches the component that reconciles droplet state
// against the IaaS provider. Without one, the sweeper only checks
// heartbeats. Call before Start.
func (sw *Sweeper) SetDropletSyncer(syncer dropletSyncer) {
	sw.syncer = syncer
}

// Start launches the sweep loop in its own goroutine.
func (sw *Sweeper) Start(ctx context.Context) {
	sw.logger.Info("starting stale-bot sweeper", zap.Duration("interval", sw.interval), zap.Duration("heartbeat_timeout", sw.timeout))
	go sw.loop(ctx)
}

// Stop signals the loop to exit and waits for it to finish.
func (sw *Sweeper) Stop() {
	close(sw.stopChan)
	<-sw.doneChan
	sw.logger.Info("stale-bot sweeper stopped")
}

func (sw *Sweeper) loop(ctx context.Context) {
	defer close(sw.doneChan)

	sw.sweepOnce(ctx)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.stopChan:
			return
		case <-ticker.C:
			sw.sweepOnce(ctx)
		}
	}
}

func (sw *Sweeper) sweepOnce(ctx context.Context) {
	stale, err := sw.svc.CheckStaleBots(ctx, sw.timeout)
	if err != nil {
		sw.logger.Error("stale-bot sweep failed", zap.Error(err))
	} else if len(stale) > 0 {
		sw.logger.Warn("transitioned stale bots to error", zap.Int("count", len(stale)))
	}

	if sw.syncer != nil {
		sw.syncDroplets(ctx)
	}
}

// syncDroplets pulls current IaaS state for every bot that still has a
// droplet assigned, so the cached droplet rows (and any bot whose droplet
// vanished underneath it) stay current between requests.
func (sw *Sweeper) syncDroplets(ctx context.Context) {
	bots, err := sw.svc.ListBotsWithDroplet(ctx)
	if err != nil {
		sw.logger.Error("listing bots with droplets failed", zap.Error(err))
		return
	}
	for _, bot := range bots {
		if err := sw.syncer.SyncDropletStatus(ctx, bot.ID); err != nil {
			sw.logger.Warn("droplet sync failed", zap.String("bot_id", bot.ID.String()), zap.Error(err))
		}
	}
}
