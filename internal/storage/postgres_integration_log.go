package storage

import (
	"context"
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

// AppendIntegrationLog inserts an audit log entry. The table is
// append-only; there are no update or delete operations.
func (r *PostgresRepo) AppendIntegrationLog(ctx context.Context, entry model.IntegrationLog) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != entry.CompanyID {
		return fmt.Errorf("%w: log CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, entry.CompanyID, companyID)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Create(&entry)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "AppendIntegrationLog", operation)
	observer.ObserveDbOperationDuration("insert", "integration_log", companyID, time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to append integration log after retries",
			zap.String("operation_name", entry.Operation),
			zap.String("status", entry.Status),
			zap.Error(commitErr))
		return commitErr
	}

	return nil
}
