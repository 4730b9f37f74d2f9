package usecases

import (
	"context"
	"time"

	"github.com/lumina-dash/lumina/internal/domain/authflow"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

// SweepExpiredStatesUseCase removes dead ledger entries. Purely
// housekeeping: validation rejects expired states whether or not the sweep
// has run.
type SweepExpiredStatesUseCase struct {
	ledger authflow.StateLedger
	logger logger.Interface
}

// NewSweepExpiredStatesUseCase creates a new sweep expired states use case
func NewSweepExpiredStatesUseCase(ledger authflow.StateLedger, logger logger.Interface) *SweepExpiredStatesUseCase {
	return &SweepExpiredStatesUseCase{ledger: ledger, logger: logger}
}

// Execute deletes ledger entries whose expiry has passed and returns the count.
func (uc *SweepExpiredStatesUseCase) Execute(ctx context.Context) (int64, error) {
	deleted, err := uc.ledger.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		uc.logger.Errorw("failed to sweep expired states", "error", err)
		return 0, err
	}
	return deleted, nil
}
