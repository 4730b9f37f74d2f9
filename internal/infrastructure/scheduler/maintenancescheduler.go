package scheduler

import (
	"context"
	"sync"
	"time"

	connectionUsecases "github.com/lumina-dash/lumina/internal/application/connection/usecases"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

// MaintenanceScheduler handles periodic connection maintenance tasks.
// - Refreshes access tokens nearing expiry (every refresh interval)
// - Sweeps consumed and expired authorization states (hourly)
type MaintenanceScheduler struct {
	refreshUC       *connectionUsecases.RefreshExpiringConnectionsUseCase
	sweepUC         *connectionUsecases.SweepExpiredStatesUseCase
	logger          logger.Interface
	stopChan        chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
	refreshInterval time.Duration
	sweepInterval   time.Duration
}

// NewMaintenanceScheduler creates a new MaintenanceScheduler
func NewMaintenanceScheduler(
	refreshUC *connectionUsecases.RefreshExpiringConnectionsUseCase,
	sweepUC *connectionUsecases.SweepExpiredStatesUseCase,
	refreshInterval time.Duration,
	logger logger.Interface,
) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		refreshUC:       refreshUC,
		sweepUC:         sweepUC,
		logger:          logger,
		stopChan:        make(chan struct{}),
		refreshInterval: refreshInterval,
		sweepInterval:   time.Hour,
	}
}

// Start starts the scheduler
func (s *MaintenanceScheduler) Start(ctx context.Context) {
	s.logger.Infow("starting maintenance scheduler",
		"refresh_interval", s.refreshInterval,
		"sweep_interval", s.sweepInterval,
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runLoop(ctx)
	}()
}

// Stop stops the scheduler gracefully
func (s *MaintenanceScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Infow("stopping maintenance scheduler")
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Infow("maintenance scheduler stopped")
	})
}

func (s *MaintenanceScheduler) runLoop(ctx context.Context) {
	// Run immediately on startup to catch tokens that expired while down
	s.runRefreshPass(ctx)
	s.runSweepPass(ctx)

	refreshTicker := time.NewTicker(s.refreshInterval)
	defer refreshTicker.Stop()
	sweepTicker := time.NewTicker(s.sweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("maintenance scheduler stopped due to context cancellation")
			return
		case <-s.stopChan:
			return
		case <-refreshTicker.C:
			s.runRefreshPass(ctx)
		case <-sweepTicker.C:
			s.runSweepPass(ctx)
		}
	}
}

func (s *MaintenanceScheduler) runRefreshPass(ctx context.Context) {
	startTime := time.Now()

	summary, err := s.refreshUC.Execute(ctx)
	if err != nil {
		s.logger.Errorw("refresh pass failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if summary.Scanned > 0 {
		s.logger.Infow("refresh pass completed",
			"scanned", summary.Scanned,
			"refreshed", summary.Refreshed,
			"marked_reauth", summary.MarkedReauth,
			"deferred", summary.Deferred,
			"failed", summary.Failed,
			"duration", time.Since(startTime),
		)
	} else {
		s.logger.Debugw("no connections due for refresh",
			"duration", time.Since(startTime),
		)
	}
}

func (s *MaintenanceScheduler) runSweepPass(ctx context.Context) {
	deleted, err := s.sweepUC.Execute(ctx)
	if err != nil {
		s.logger.Errorw("state sweep failed", "error", err)
		return
	}

	if deleted > 0 {
		s.logger.Infow("expired authorization states swept", "count", deleted)
	}
}
