package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/validator"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/logger"
)

// MessageOutcome describes what applying a MessageEvent did.
type MessageOutcome string

const (
	MessageCreated       MessageOutcome = "created"
	MessageDuplicate     MessageOutcome = "duplicate"
	MessageStatusUpdated MessageOutcome = "status_updated"
	MessageNotActionable MessageOutcome = "not_actionable"
)

// ApplyMessage idempotently applies a normalized messaging event. A
// duplicate delivery of the same provider message id is a safe no-op; a
// later event carrying a delivery status refines the stored message.
func (s *WebhookService) ApplyMessage(ctx context.Context, account *model.IntegrationAccount, platform model.Platform, event model.MessageEvent) (MessageOutcome, error) {
	log := logger.FromContext(ctx)

	if err := validator.Validate(event); err != nil {
		return MessageNotActionable, apperrors.NewFatal(err, "message event validation failed")
	}

	// A status-only event refines an already-stored message; it never
	// creates one (the outbound side owns outbound message rows).
	if event.Status != "" && event.Content == "" {
		err := s.messageRepo.UpdateMessageStatus(ctx, platform, event.ProviderMessageID, event.Status)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				log.Debug("Status refinement for unknown message, skipping",
					zap.String("provider_message_id", event.ProviderMessageID),
					zap.String("status", event.Status),
				)
				return MessageNotActionable, nil
			}
			return MessageNotActionable, handleRepositoryError(ctx, err, "UpdateMessageStatus", event.ProviderMessageID)
		}
		return MessageStatusUpdated, nil
	}

	message := model.Message{
		CompanyID:         account.CompanyID,
		AccountID:         account.ID,
		Platform:          platform,
		ProviderMessageID: event.ProviderMessageID,
		Flow:              event.Flow,
		FromID:            event.SenderID,
		ToID:              event.RecipientID,
		Type:              event.Type,
		Content:           event.Content,
		Status:            event.Status,
		MessageTimestamp:  event.Timestamp,
	}

	// Counterpart resolution is best effort: its failure must not lose
	// the message, which is then stored with an unresolved counterpart.
	if event.Flow == model.MessageFlowInbound {
		customer, err := s.resolveOrCreateCustomer(ctx, account.CompanyID, platform, event.SenderID)
		if err != nil {
			log.Warn("Customer resolution failed, persisting message without counterpart",
				zap.String("provider_message_id", event.ProviderMessageID),
				zap.String("sender_id", event.SenderID),
				zap.Error(err),
			)
		} else {
			message.CustomerID = &customer.ID
		}
	}

	created, err := s.messageRepo.InsertMessageIfAbsent(ctx, message)
	if err != nil {
		return MessageNotActionable, handleRepositoryError(ctx, err, "InsertMessageIfAbsent", event.ProviderMessageID)
	}
	if !created {
		// Duplicate delivery. If the replay carries a delivery status,
		// refine it; otherwise nothing to do.
		if event.Status != "" {
			if err := s.messageRepo.UpdateMessageStatus(ctx, platform, event.ProviderMessageID, event.Status); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
				return MessageDuplicate, handleRepositoryError(ctx, err, "UpdateMessageStatus", event.ProviderMessageID)
			}
			return MessageStatusUpdated, nil
		}
		log.Debug("Duplicate message delivery, no-op",
			zap.String("provider_message_id", event.ProviderMessageID))
		return MessageDuplicate, nil
	}

	return MessageCreated, nil
}

// resolveOrCreateCustomer matches the sender to an existing customer by
// synthetic platform identity, or creates a placeholder.
func (s *WebhookService) resolveOrCreateCustomer(ctx context.Context, companyID string, platform model.Platform, senderID string) (*model.Customer, error) {
	identity := model.PlatformIdentityFor(platform, senderID)

	customer, err := s.customerRepo.FindCustomerByPlatformIdentity(ctx, identity)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("customer lookup failed: %w", err)
	}

	placeholder := model.Customer{
		ID:               uuid.NewString(),
		CompanyID:        companyID,
		PlatformIdentity: identity,
		Name:             fmt.Sprintf("%s %s", platform, senderID),
		Email:            model.SyntheticEmail(platform, senderID),
		Type:             model.CustomerTypeIndividual,
	}
	// WABA sender ids are phone numbers; keep the phone reachable.
	if platform == model.PlatformWaba {
		placeholder.Phone = senderID
	}

	created, err := s.customerRepo.CreateCustomer(ctx, placeholder)
	if err != nil {
		return nil, fmt.Errorf("placeholder customer creation failed: %w", err)
	}

	logger.FromContext(ctx).Info("Created placeholder customer from webhook",
		zap.String("customer_id", created.ID),
		zap.String("platform_identity", identity),
	)
	return created, nil
}

// handleRepositoryError maps standard apperrors from the repository layer
// to FatalError or RetryableError for the use case layer.
func handleRepositoryError(ctx context.Context, err error, operation string, subjectID string) error {
	if err == nil {
		return nil
	}

	log := logger.FromContext(ctx)
	logFields := []zap.Field{
		zap.String("operation", operation),
		zap.Error(err),
	}
	if subjectID != "" {
		logFields = append(logFields, zap.String("subject_id", subjectID))
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		log.Warn("Repository operation failed: Not found", logFields...)
		return apperrors.NewFatal(err, "%s failed: resource not found", operation)
	case errors.Is(err, apperrors.ErrDuplicate):
		log.Warn("Repository operation failed: Duplicate resource", logFields...)
		return apperrors.NewFatal(err, "%s failed: duplicate resource", operation)
	case errors.Is(err, apperrors.ErrBadRequest):
		log.Warn("Repository operation failed: Bad request", logFields...)
		return apperrors.NewFatal(err, "%s failed: bad request data", operation)
	case errors.Is(err, apperrors.ErrUnauthorized):
		log.Error("Repository operation failed: Unauthorized", logFields...)
		return apperrors.NewFatal(err, "%s failed: unauthorized", operation)
	case errors.Is(err, apperrors.ErrDatabase):
		log.Error("Repository operation failed: Database error", logFields...)
		return apperrors.NewRetryable(err, "%s failed: database error", operation)
	case errors.Is(err, apperrors.ErrTimeout):
		log.Warn("Repository operation failed: Timeout", logFields...)
		return apperrors.NewRetryable(err, "%s failed: operation timeout", operation)
	default:
		log.Error("Repository operation failed: Unexpected error", logFields...)
		return apperrors.NewFatal(err, "%s failed: unexpected repository error", operation)
	}
}
