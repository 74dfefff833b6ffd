package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/observer"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/tenant"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/logger"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/utils"
)

// InsertMessageIfAbsent stores a message unless one with the same
// (company_id, platform, provider_message_id) already exists.
// ON CONFLICT DO NOTHING makes concurrent duplicate deliveries resolve to
// "second writer sees existing row and no-ops" at the storage level.
func (r *PostgresRepo) InsertMessageIfAbsent(ctx context.Context, message model.Message) (bool, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != message.CompanyID {
		return false, fmt.Errorf("%w: message CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, message.CompanyID, companyID)
	}

	var created bool
	operation := func() error {
		result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "company_id"}, {Name: "platform"}, {Name: "provider_message_id"},
			},
			DoNothing: true,
		}).Create(&message)

		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		created = result.RowsAffected > 0
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "InsertMessageIfAbsent", operation)
	observer.ObserveDbOperationDuration("insert", "message", companyID, time.Since(startTime), commitErr)

	if commitErr != nil {
		// A unique violation that slipped past DO NOTHING (e.g. raced on a
		// partial index) is the idempotency no-op path, not a failure.
		if errors.Is(commitErr, apperrors.ErrDuplicate) {
			logger.FromContext(ctx).Debug("Duplicate message insert treated as no-op",
				zap.String("provider_message_id", message.ProviderMessageID))
			return false, nil
		}
		logger.FromContext(ctx).Error("Failed to insert message after retries",
			zap.String("provider_message_id", message.ProviderMessageID),
			zap.Error(commitErr))
		return false, commitErr
	}

	return created, nil
}

// UpdateMessageStatus refines the delivery status of an already-stored
// message. Messages are otherwise immutable.
func (r *PostgresRepo) UpdateMessageStatus(ctx context.Context, platform model.Platform, providerMessageID, status string) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Message{}).
			Where("company_id = ? AND platform = ? AND provider_message_id = ?", companyID, platform, providerMessageID).
			Update("status", status)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: message %s", apperrors.ErrNotFound, providerMessageID)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateMessageStatus", operation)
	observer.ObserveDbOperationDuration("update", "message", companyID, time.Since(startTime), commitErr)

	if commitErr != nil {
		if errors.Is(commitErr, apperrors.ErrNotFound) {
			return commitErr
		}
		logger.FromContext(ctx).Error("Failed to update message status after retries",
			zap.String("provider_message_id", providerMessageID),
			zap.Error(commitErr))
		return commitErr
	}

	return nil
}

// FindMessageByProviderID finds a message by its provider-assigned id
// within the tenant and platform scope.
func (r *PostgresRepo) FindMessageByProviderID(ctx context.Context, platform model.Platform, providerMessageID string) (*model.Message, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	var message model.Message
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("company_id = ? AND platform = ? AND provider_message_id = ?", companyID, platform, providerMessageID).
			First(&message)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindMessageByProviderID", operation)
	observer.ObserveDbOperationDuration("find", "message", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find message by provider id after retries",
			zap.String("provider_message_id", providerMessageID),
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}

	return &message, nil
}
