package usecase

import (
	"context"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/storage"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/logger"
)

// WebhookService applies normalized webhook events to the canonical store.
type WebhookService struct {
	accountRepo  storage.AccountRepo
	messageRepo  storage.MessageRepo
	shipmentRepo storage.ShipmentRepo
	customerRepo storage.CustomerRepo
	logRepo      storage.IntegrationLogRepo
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	accountRepo storage.AccountRepo,
	messageRepo storage.MessageRepo,
	shipmentRepo storage.ShipmentRepo,
	customerRepo storage.CustomerRepo,
	logRepo storage.IntegrationLogRepo,
) *WebhookService {
	return &WebhookService{
		accountRepo:  accountRepo,
		messageRepo:  messageRepo,
		shipmentRepo: shipmentRepo,
		customerRepo: customerRepo,
		logRepo:      logRepo,
	}
}

// ResolveAccount selects the active integration account for the tenant in
// context and the given platform. A nil account with nil error means the
// tenant has no active integration and the webhook is a no-op.
//
// Multiple active accounts for one (tenant, platform) is a configuration
// anomaly; the most recently synced one is picked deterministically,
// because dropping a legitimate webhook is worse than picking an account.
func (s *WebhookService) ResolveAccount(ctx context.Context, platform model.Platform) (*model.IntegrationAccount, error) {
	accounts, err := s.accountRepo.FindActiveAccounts(ctx, platform)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	if len(accounts) > 1 {
		logger.FromContext(ctx).Warn("Multiple active integration accounts for platform, picking most recently synced",
			zap.String("platform", string(platform)),
			zap.Int("count", len(accounts)),
			zap.Int64("picked_account_id", accounts[0].ID),
		)
	}
	return &accounts[0], nil
}
