package usecase

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/logger"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/utils"
)

// Audit appends one integration log entry for a webhook processing
// attempt. It is fire-and-forget from the caller's perspective: a logging
// failure is swallowed and reported to the process log so it never masks
// the primary processing outcome.
func (s *WebhookService) Audit(ctx context.Context, account *model.IntegrationAccount, operation, status, message string, payload []byte) {
	entry := model.IntegrationLog{
		CompanyID: account.CompanyID,
		AccountID: account.ID,
		Operation: operation,
		Status:    status,
		Message:   message,
	}
	if len(payload) > 0 && json.Valid(payload) {
		entry.Payload = datatypes.JSON(payload)
	}

	if err := s.logRepo.AppendIntegrationLog(ctx, entry); err != nil {
		logger.FromContext(ctx).Error("Integration log append failed, outcome preserved for caller",
			zap.String("operation_name", operation),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

// TouchAccount updates the account's last-synced timestamp after a
// successful processing attempt. Best effort.
func (s *WebhookService) TouchAccount(ctx context.Context, account *model.IntegrationAccount) {
	if err := s.accountRepo.TouchAccountLastSynced(ctx, account.ID, utils.Now()); err != nil {
		logger.FromContext(ctx).Warn("Failed to touch account last_synced_at",
			zap.Int64("account_id", account.ID),
			zap.Error(err),
		)
	}
}
