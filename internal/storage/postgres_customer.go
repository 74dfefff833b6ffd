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

// FindCustomerByPlatformIdentity finds a customer by the synthetic
// platform identity within the tenant scope.
func (r *PostgresRepo) FindCustomerByPlatformIdentity(ctx context.Context, identity string) (*model.Customer, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	var customer model.Customer
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("company_id = ? AND platform_identity = ?", companyID, identity).
			First(&customer)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindCustomerByPlatformIdentity", operation)
	observer.ObserveDbOperationDuration("find", "customer", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find customer by platform identity after retries",
			zap.String("platform_identity", identity),
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}

	return &customer, nil
}

// CreateCustomer inserts a placeholder customer. If a concurrent webhook
// created the same identity first, the existing row is returned instead.
func (r *PostgresRepo) CreateCustomer(ctx context.Context, customer model.Customer) (*model.Customer, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != customer.CompanyID {
		return nil, fmt.Errorf("%w: customer CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, customer.CompanyID, companyID)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Create(&customer)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "CreateCustomer", operation)
	observer.ObserveDbOperationDuration("insert", "customer", companyID, time.Since(startTime), commitErr)

	if commitErr != nil {
		if errors.Is(commitErr, apperrors.ErrDuplicate) {
			// Lost the race to a concurrent delivery; use the winner's row.
			existing, findErr := r.FindCustomerByPlatformIdentity(ctx, customer.PlatformIdentity)
			if findErr == nil {
				return existing, nil
			}
			logger.FromContext(ctx).Error("Duplicate customer insert but existing row not found",
				zap.String("platform_identity", customer.PlatformIdentity),
				zap.Error(findErr))
			return nil, findErr
		}
		logger.FromContext(ctx).Error("Failed to create customer after retries",
			zap.String("platform_identity", customer.PlatformIdentity),
			zap.Error(commitErr))
		return nil, commitErr
	}

	return &customer, nil
}
