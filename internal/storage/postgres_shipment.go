package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/observer"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/tenant"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/logger"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/utils"
)

// FindShipmentByTracking finds a shipment by tracking number within the
// tenant and carrier scope.
func (r *PostgresRepo) FindShipmentByTracking(ctx context.Context, platform model.Platform, trackingNumber string) (*model.Shipment, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	var shipment model.Shipment
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("company_id = ? AND platform = ? AND tracking_number = ?", companyID, platform, trackingNumber).
			First(&shipment)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindShipmentByTracking", operation)
	observer.ObserveDbOperationDuration("find", "shipment", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find shipment by tracking number after retries",
			zap.String("tracking_number", trackingNumber),
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}

	return &shipment, nil
}

// ApplyShipmentUpdate locks the shipment row and applies the incoming
// update under the monotonic-progress rule: a stored terminal status is
// never overwritten and an earlier lifecycle stage never regresses a more
// advanced one. Delivery timestamps are overwritten only when provided,
// and the metadata snapshot replaces the previous one.
func (r *PostgresRepo) ApplyShipmentUpdate(ctx context.Context, platform model.Platform, trackingNumber string, update ShipmentUpdate) (*model.Shipment, bool, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	var (
		shipment      model.Shipment
		statusChanged bool
	)

	operation := func() error {
		statusChanged = false

		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if p := recover(); p != nil {
				tx.Rollback()
				panic(p)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					logger.FromContext(ctx).Error("Failed to rollback transaction after error",
						zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("company_id = ? AND platform = ? AND tracking_number = ?", companyID, platform, trackingNumber).
			First(&shipment)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: shipment not found (tracking: %s, platform: %s)", apperrors.ErrNotFound, trackingNumber, platform)
				return backoff.Permanent(txErr)
			}
			txErr = fmt.Errorf("%w: failed to lock shipment row: %w", apperrors.ErrDatabase, result.Error)
			return txErr
		}

		updates := map[string]interface{}{
			"last_updated_at": utils.Now(),
		}
		if update.Status != nil && model.IsProgressOrEqual(shipment.Status, *update.Status) {
			if *update.Status != shipment.Status {
				statusChanged = true
			}
			shipment.Status = *update.Status
			updates["status"] = *update.Status
		}
		if update.EstimatedDelivery != nil {
			shipment.EstimatedDelivery = update.EstimatedDelivery
			updates["estimated_delivery"] = *update.EstimatedDelivery
		}
		if update.ActualDelivery != nil {
			shipment.ActualDelivery = update.ActualDelivery
			updates["actual_delivery"] = *update.ActualDelivery
		}
		if len(update.Metadata) > 0 {
			// Replaces the previous snapshot, not an accumulating log.
			shipment.LastMetadata = datatypes.JSON(update.Metadata)
			updates["last_metadata"] = datatypes.JSON(update.Metadata)
		}

		updateResult := tx.Model(&model.Shipment{}).
			Where("id = ?", shipment.ID).
			Updates(updates)
		if updateResult.Error != nil {
			txErr = checkConstraintViolation(updateResult.Error)
			return txErr
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = checkConstraintViolation(commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "ApplyShipmentUpdate", operation)
	observer.ObserveDbOperationDuration("update", "shipment", companyID, time.Since(startTime), commitErr)

	if commitErr != nil {
		if errors.Is(commitErr, apperrors.ErrNotFound) {
			return nil, false, commitErr
		}
		logger.FromContext(ctx).Error("Failed to apply shipment update after retries",
			zap.String("tracking_number", trackingNumber),
			zap.Error(commitErr))
		return nil, false, commitErr
	}

	return &shipment, statusChanged, nil
}
