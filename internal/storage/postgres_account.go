package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/observer"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/tenant"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/logger"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/utils"
)

// FindActiveAccounts returns the active integration accounts for
// (tenant, platform), most recently synced first so the resolver's
// deterministic pick is the head of the slice.
func (r *PostgresRepo) FindActiveAccounts(ctx context.Context, platform model.Platform) ([]model.IntegrationAccount, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	var accounts []model.IntegrationAccount
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("company_id = ? AND platform = ? AND active = ?", companyID, platform, true).
			Order("last_synced_at DESC NULLS LAST").
			Find(&accounts)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindActiveAccounts", operation)
	observer.ObserveDbOperationDuration("find", "integration_account", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find active accounts after retries",
			zap.String("platform", string(platform)),
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}

	return accounts, nil
}

// TouchAccountLastSynced updates the account's last-synced timestamp.
// This is the only integration-account mutation this service performs.
func (r *PostgresRepo) TouchAccountLastSynced(ctx context.Context, accountID int64, syncedAt time.Time) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.IntegrationAccount{}).
			Where("id = ? AND company_id = ?", accountID, companyID).
			Update("last_synced_at", syncedAt)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: integration account %d", apperrors.ErrNotFound, accountID)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "TouchAccountLastSynced", operation)
	observer.ObserveDbOperationDuration("update", "integration_account", companyID, time.Since(startTime), commitErr)

	if commitErr != nil {
		if errors.Is(commitErr, apperrors.ErrNotFound) {
			return commitErr
		}
		logger.FromContext(ctx).Error("Failed to touch account last_synced_at after retries",
			zap.Int64("account_id", accountID),
			zap.Error(commitErr))
		return commitErr
	}

	return nil
}
