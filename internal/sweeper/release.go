package sweeper

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-vesting/internal/adapter"
	"github.com/feral-file/ff-vesting/internal/domain"
	"github.com/feral-file/ff-vesting/internal/logger"
)

// Releaser is the slice of the engine the sweeper drives
//
//go:generate mockgen -source=release.go -destination=../mocks/releaser.go -package=mocks -mock_names=Releaser=MockReleaser
type Releaser interface {
	// Pairs enumerates every (beneficiary, token) pair known to the ledger
	Pairs(ctx context.Context) []domain.PairKey
	// Release pays out the currently releasable amount for one pair
	Release(ctx context.Context, beneficiary, token domain.Address) (*big.Int, error)
}

// ReleaseSweeperConfig holds configuration for the release sweeper
type ReleaseSweeperConfig struct {
	Interval       time.Duration // Time to sleep between sweep cycles
	WorkerPoolSize int           // Concurrent release workers
	QueueSize      int           // Pending tasks the pool accepts per cycle
}

// releaseSweeper implements the Sweeper interface for periodic vesting payouts
type releaseSweeper struct {
	config    *ReleaseSweeperConfig
	releaser  Releaser
	pool      pond.Pool
	clock     adapter.Clock
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewReleaseSweeper creates a new release sweeper
func NewReleaseSweeper(config *ReleaseSweeperConfig, releaser Releaser, clock adapter.Clock) Sweeper {
	return &releaseSweeper{
		config:    config,
		releaser:  releaser,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *releaseSweeper) Name() string {
	return "release-sweeper"
}

// Start begins the sweeper's main loop
func (s *releaseSweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh) // Signal that we've stopped
	}()

	logger.InfoCtx(ctx, "Starting release sweeper",
		zap.Duration("interval", s.config.Interval),
		zap.Int("worker_pool_size", s.config.WorkerPoolSize),
		zap.Int("queue_size", s.config.QueueSize),
	)

	// Create worker pool
	s.pool = pond.NewPool(
		s.config.WorkerPoolSize,
		pond.WithQueueSize(s.config.QueueSize),
		pond.WithContext(ctx),
	)

	// Continuous loop - stops when context is canceled or stop is requested
	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Release sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			s.cleanup()
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "Release sweeper stop requested")
			s.cleanup()
			return nil
		default:
			if err := s.runSweepCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err)
				}
			}
		}
	}
}

// cleanup stops the worker pool and waits for tasks to complete
func (s *releaseSweeper) cleanup() {
	if s.pool != nil {
		s.pool.StopAndWait()
	}
}

// Stop gracefully stops the sweeper with timeout support
func (s *releaseSweeper) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping release sweeper")

	// Signal stop to the main loop
	close(s.stopChan)

	// Wait for main loop to exit, but respect context cancellation
	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Release sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Release sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runSweepCycle runs a single sweep cycle: enumerate every known
// (beneficiary, token) pair and release whatever has vested for each
func (s *releaseSweeper) runSweepCycle(ctx context.Context) error {
	startTime := s.clock.Now()

	// ULID gives the cycle a unique, time-sortable ID for log correlation
	sweepID := ulid.MustNewDefault(startTime).String()
	logger.InfoCtx(ctx, "Starting sweep cycle", zap.String("sweep_id", sweepID))

	pairs := s.releaser.Pairs(ctx)
	if len(pairs) == 0 {
		logger.InfoCtx(ctx, "No vesting pairs to sweep", zap.String("sweep_id", sweepID))
		if !s.sleep(ctx, s.config.Interval) {
			return ctx.Err() // Context canceled during sleep
		}
		return nil
	}

	logger.InfoCtx(ctx, "Found vesting pairs to sweep",
		zap.String("sweep_id", sweepID),
		zap.Int("count", len(pairs)),
	)

	// Track metrics
	var releasedCount, noopCount, failedCount atomic.Int32

	// Submit all releases to the worker pool. The engine serializes them
	// internally, so concurrent submissions are safe.
	for _, pair := range pairs {
		s.pool.Submit(func() {
			s.releasePair(ctx, sweepID, pair, &releasedCount, &noopCount, &failedCount)
		})
	}

	// Wait for all releases to complete
	s.pool.StopAndWait()

	// Recreate pool for next cycle
	s.pool = pond.NewPool(
		s.config.WorkerPoolSize,
		pond.WithQueueSize(s.config.QueueSize),
		pond.WithContext(ctx),
	)

	duration := s.clock.Since(startTime)
	logger.InfoCtx(ctx, "Sweep cycle completed",
		zap.String("sweep_id", sweepID),
		zap.Duration("duration", duration),
		zap.Int("total_pairs", len(pairs)),
		zap.Int32("released", releasedCount.Load()),
		zap.Int32("noop", noopCount.Load()),
		zap.Int32("failed", failedCount.Load()),
	)

	if !s.sleep(ctx, s.config.Interval) {
		return ctx.Err() // Context canceled during sleep
	}

	return nil
}

// releasePair releases one (beneficiary, token) pair and updates metrics
func (s *releaseSweeper) releasePair(ctx context.Context, sweepID string, pair domain.PairKey, releasedCount, noopCount, failedCount *atomic.Int32) {
	amount, err := s.releaser.Release(ctx, pair.Beneficiary, pair.Token)
	if err != nil {
		failedCount.Add(1)
		logger.ErrorCtx(ctx, err,
			zap.String("sweep_id", sweepID),
			zap.String("beneficiary", pair.Beneficiary.String()),
			zap.String("token", pair.Token.String()),
		)
		return
	}

	if amount.Sign() == 0 {
		noopCount.Add(1)
		return
	}

	releasedCount.Add(1)
	logger.InfoCtx(ctx, "Released vested tokens",
		zap.String("sweep_id", sweepID),
		zap.String("beneficiary", pair.Beneficiary.String()),
		zap.String("token", pair.Token.String()),
		zap.String("amount", amount.String()),
	)
}

// sleep sleeps for the given duration but can be interrupted by context cancellation
// Returns true if sleep completed normally, false if interrupted
func (s *releaseSweeper) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-s.clock.After(duration):
		return true // Sleep completed
	case <-ctx.Done():
		return false // Interrupted by context cancellation
	case <-s.stopChan:
		return false // Interrupted by stop signal
	}
}
