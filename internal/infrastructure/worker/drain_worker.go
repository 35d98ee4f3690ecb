package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/service"
)

// QueueDrainer resolves deferred remote operations in batches.
type QueueDrainer interface {
	Drain(ctx context.Context, batchSize int) (service.DrainStats, error)
	Backlog(ctx context.Context) (int, error)
}

// DrainWorkerConfig holds configuration for the queue drain worker
type DrainWorkerConfig struct {
	DrainInterval time.Duration
	BatchSize     int
}

// DefaultDrainWorkerConfig returns default configuration
func DefaultDrainWorkerConfig() DrainWorkerConfig {
	return DrainWorkerConfig{
		DrainInterval: 30 * time.Second,
		BatchSize:     10,
	}
}

// DrainWorker periodically flushes the offline queue toward the
// backend. Each tick resolves at most one batch; items that fail stay
// queued with their backoff applied, so a dead backend never blocks
// the loop.
type DrainWorker struct {
	config  DrainWorkerConfig
	drainer QueueDrainer
	logger  *zap.Logger

	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	isRunning     bool
	lastDrain     time.Time
	resolvedCount int
	failedCount   int
}

// NewDrainWorker creates a new queue drain worker
func NewDrainWorker(config DrainWorkerConfig, drainer QueueDrainer, logger *zap.Logger) *DrainWorker {
	if config.DrainInterval <= 0 {
		config.DrainInterval = DefaultDrainWorkerConfig().DrainInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultDrainWorkerConfig().BatchSize
	}
	return &DrainWorker{
		config:  config,
		drainer: drainer,
		logger:  logger,
	}
}

// Start begins the drain polling loop
func (w *DrainWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("drain worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("DrainWorker started",
		zap.Duration("drain_interval", w.config.DrainInterval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.pollLoop()

	return nil
}

// Stop gracefully terminates the worker
func (w *DrainWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}

	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("DrainWorker stopped",
		zap.Int("resolved_count", w.resolvedCount),
		zap.Int("failed_count", w.failedCount))

	return nil
}

// Name returns the worker name for identification
func (w *DrainWorker) Name() string {
	return "DrainWorker"
}

func (w *DrainWorker) pollLoop() {
	ticker := time.NewTicker(w.config.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Drain loop context cancelled")
			return

		case <-ticker.C:
			w.drainOnce()
		}
	}
}

func (w *DrainWorker) drainOnce() {
	stats, err := w.drainer.Drain(w.ctx, w.config.BatchSize)
	if err != nil {
		w.logger.Error("Queue drain failed", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.lastDrain = time.Now()
	w.resolvedCount += stats.Resolved
	w.failedCount += stats.Failed
	w.mu.Unlock()

	if stats.Fetched > 0 {
		w.logger.Info("Queue drained",
			zap.Int("fetched", stats.Fetched),
			zap.Int("resolved", stats.Resolved),
			zap.Int("failed", stats.Failed),
			zap.Int("dead_lettered", stats.DeadLettered))
	}

	if backlog, err := w.drainer.Backlog(w.ctx); err == nil && backlog > 0 {
		w.logger.Debug("Offline queue backlog", zap.Int("pending", backlog))
	}
}
