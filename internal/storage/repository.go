package storage

import (
	"context"
	"time"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
)

// AccountRepo defines integration account storage operations.
// Accounts are owned by the management UI; this service reads them and
// only touches the last-synced timestamp.
type AccountRepo interface {
	FindActiveAccounts(ctx context.Context, platform model.Platform) ([]model.IntegrationAccount, error)
	TouchAccountLastSynced(ctx context.Context, accountID int64, syncedAt time.Time) error
	Close(ctx context.Context) error
}

// MessageRepo defines message storage operations
type MessageRepo interface {
	// InsertMessageIfAbsent inserts the message unless one with the same
	// (company, platform, provider message id) already exists. Returns
	// whether a row was created.
	InsertMessageIfAbsent(ctx context.Context, message model.Message) (bool, error)
	UpdateMessageStatus(ctx context.Context, platform model.Platform, providerMessageID, status string) error
	FindMessageByProviderID(ctx context.Context, platform model.Platform, providerMessageID string) (*model.Message, error)
	Close(ctx context.Context) error
}

// ShipmentUpdate carries the fields a courier webhook may refine on an
// existing shipment. A nil Status means the carrier status was not
// recognized and the stored status must be left untouched.
type ShipmentUpdate struct {
	Status            *model.ShipmentStatus
	EstimatedDelivery *time.Time
	ActualDelivery    *time.Time
	Metadata          []byte
}

// ShipmentRepo defines shipment storage operations
type ShipmentRepo interface {
	FindShipmentByTracking(ctx context.Context, platform model.Platform, trackingNumber string) (*model.Shipment, error)
	// ApplyShipmentUpdate locks the shipment row and applies the update
	// under the monotonic-progress rule. Returns the stored shipment and
	// whether the status actually changed.
	ApplyShipmentUpdate(ctx context.Context, platform model.Platform, trackingNumber string, update ShipmentUpdate) (*model.Shipment, bool, error)
	Close(ctx context.Context) error
}

// CustomerRepo defines customer storage operations
type CustomerRepo interface {
	FindCustomerByPlatformIdentity(ctx context.Context, identity string) (*model.Customer, error)
	CreateCustomer(ctx context.Context, customer model.Customer) (*model.Customer, error)
	Close(ctx context.Context) error
}

// IntegrationLogRepo defines audit log storage operations
type IntegrationLogRepo interface {
	AppendIntegrationLog(ctx context.Context, entry model.IntegrationLog) error
	Close(ctx context.Context) error
}
