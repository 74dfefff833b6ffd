package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/storage"
)

// --- AccountRepo Mock ---

// AccountRepoMock mocks the AccountRepo interface
type AccountRepoMock struct {
	mock.Mock
}

// FindActiveAccounts mocks the FindActiveAccounts method
func (m *AccountRepoMock) FindActiveAccounts(ctx context.Context, platform model.Platform) ([]model.IntegrationAccount, error) {
	args := m.Called(ctx, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.IntegrationAccount), args.Error(1)
}

// TouchAccountLastSynced mocks the TouchAccountLastSynced method
func (m *AccountRepoMock) TouchAccountLastSynced(ctx context.Context, accountID int64, syncedAt time.Time) error {
	args := m.Called(ctx, accountID, syncedAt)
	return args.Error(0)
}

// Close mocks the Close method
func (m *AccountRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- MessageRepo Mock ---

// MessageRepoMock mocks the MessageRepo interface
type MessageRepoMock struct {
	mock.Mock
}

// InsertMessageIfAbsent mocks the InsertMessageIfAbsent method
func (m *MessageRepoMock) InsertMessageIfAbsent(ctx context.Context, message model.Message) (bool, error) {
	args := m.Called(ctx, message)
	return args.Bool(0), args.Error(1)
}

// UpdateMessageStatus mocks the UpdateMessageStatus method
func (m *MessageRepoMock) UpdateMessageStatus(ctx context.Context, platform model.Platform, providerMessageID, status string) error {
	args := m.Called(ctx, platform, providerMessageID, status)
	return args.Error(0)
}

// FindMessageByProviderID mocks the FindMessageByProviderID method
func (m *MessageRepoMock) FindMessageByProviderID(ctx context.Context, platform model.Platform, providerMessageID string) (*model.Message, error) {
	args := m.Called(ctx, platform, providerMessageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

// Close mocks the Close method
func (m *MessageRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- ShipmentRepo Mock ---

// ShipmentRepoMock mocks the ShipmentRepo interface
type ShipmentRepoMock struct {
	mock.Mock
}

// FindShipmentByTracking mocks the FindShipmentByTracking method
func (m *ShipmentRepoMock) FindShipmentByTracking(ctx context.Context, platform model.Platform, trackingNumber string) (*model.Shipment, error) {
	args := m.Called(ctx, platform, trackingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Shipment), args.Error(1)
}

// ApplyShipmentUpdate mocks the ApplyShipmentUpdate method
func (m *ShipmentRepoMock) ApplyShipmentUpdate(ctx context.Context, platform model.Platform, trackingNumber string, update storage.ShipmentUpdate) (*model.Shipment, bool, error) {
	args := m.Called(ctx, platform, trackingNumber, update)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Shipment), args.Bool(1), args.Error(2)
}

// Close mocks the Close method
func (m *ShipmentRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- CustomerRepo Mock ---

// CustomerRepoMock mocks the CustomerRepo interface
type CustomerRepoMock struct {
	mock.Mock
}

// FindCustomerByPlatformIdentity mocks the FindCustomerByPlatformIdentity method
func (m *CustomerRepoMock) FindCustomerByPlatformIdentity(ctx context.Context, identity string) (*model.Customer, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

// CreateCustomer mocks the CreateCustomer method
func (m *CustomerRepoMock) CreateCustomer(ctx context.Context, customer model.Customer) (*model.Customer, error) {
	args := m.Called(ctx, customer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

// Close mocks the Close method
func (m *CustomerRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- IntegrationLogRepo Mock ---

// IntegrationLogRepoMock mocks the IntegrationLogRepo interface
type IntegrationLogRepoMock struct {
	mock.Mock
}

// AppendIntegrationLog mocks the AppendIntegrationLog method
func (m *IntegrationLogRepoMock) AppendIntegrationLog(ctx context.Context, entry model.IntegrationLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// Close mocks the Close method
func (m *IntegrationLogRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
