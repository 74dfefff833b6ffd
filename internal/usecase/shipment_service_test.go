package usecase

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/storage"
)

func shipmentEvent() model.ShipmentEvent {
	eta := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	return model.ShipmentEvent{
		TrackingNumber:    "JNE0011223344",
		ProviderStatus:    "in_transit",
		EstimatedDelivery: &eta,
		Raw:               json.RawMessage(`{"awb":"JNE0011223344","status":"in_transit"}`),
	}
}

func TestApplyShipment_StatusAdvanced(t *testing.T) {
	service, m := newTestService()
	ctx := testContext(t)
	event := shipmentEvent()

	m.shipmentRepo.On("ApplyShipmentUpdate", mock.Anything, model.PlatformJNE, "JNE0011223344",
		mock.MatchedBy(func(u storage.ShipmentUpdate) bool {
			return u.Status != nil && *u.Status == model.ShipmentStatusInTransit &&
				u.EstimatedDelivery != nil && len(u.Metadata) > 0
		})).
		Return(&model.Shipment{TrackingNumber: "JNE0011223344", Status: model.ShipmentStatusInTransit}, true, nil)

	outcome, err := service.ApplyShipment(ctx, testAccount(), model.PlatformJNE, event)

	require.NoError(t, err)
	assert.Equal(t, ShipmentStatusChanged, outcome)
	m.shipmentRepo.AssertExpectations(t)
}

func TestApplyShipment_DuplicateDeliveryRefreshes(t *testing.T) {
	service, m := newTestService()
	ctx := testContext(t)
	event := shipmentEvent()

	// Same status already stored: no transition, metadata still refreshed.
	m.shipmentRepo.On("ApplyShipmentUpdate", mock.Anything, model.PlatformJNE, "JNE0011223344", mock.Anything).
		Return(&model.Shipment{Status: model.ShipmentStatusInTransit}, false, nil)

	outcome, err := service.ApplyShipment(ctx, testAccount(), model.PlatformJNE, event)

	require.NoError(t, err)
	assert.Equal(t, ShipmentRefreshed, outcome)
}

func TestApplyShipment_UnmappedStatusLeavesStatusUnchanged(t *testing.T) {
	service, m := newTestService()
	ctx := testContext(t)
	event := shipmentEvent()
	event.ProviderStatus = "WAREHOUSE_SCAN"

	m.shipmentRepo.On("ApplyShipmentUpdate", mock.Anything, model.PlatformJNE, "JNE0011223344",
		mock.MatchedBy(func(u storage.ShipmentUpdate) bool {
			return u.Status == nil && len(u.Metadata) > 0
		})).
		Return(&model.Shipment{Status: model.ShipmentStatusPickedUp}, false, nil)

	outcome, err := service.ApplyShipment(ctx, testAccount(), model.PlatformJNE, event)

	require.NoError(t, err)
	assert.Equal(t, ShipmentUnmappedStatus, outcome)
	m.shipmentRepo.AssertExpectations(t)
}

func TestApplyShipment_UnknownTrackingNumberSkipped(t *testing.T) {
	service, m := newTestService()
	ctx := testContext(t)
	event := shipmentEvent()

	m.shipmentRepo.On("ApplyShipmentUpdate", mock.Anything, model.PlatformJNE, "JNE0011223344", mock.Anything).
		Return(nil, false, apperrors.ErrNotFound)

	outcome, err := service.ApplyShipment(ctx, testAccount(), model.PlatformJNE, event)

	require.NoError(t, err)
	assert.Equal(t, ShipmentUnknownTarget, outcome)
}

func TestApplyShipment_DatabaseErrorIsRetryable(t *testing.T) {
	service, m := newTestService()
	ctx := testContext(t)
	event := shipmentEvent()

	m.shipmentRepo.On("ApplyShipmentUpdate", mock.Anything, model.PlatformJNE, "JNE0011223344", mock.Anything).
		Return(nil, false, apperrors.ErrDatabase)

	outcome, err := service.ApplyShipment(ctx, testAccount(), model.PlatformJNE, event)

	require.Error(t, err)
	assert.Equal(t, ShipmentFailed, outcome)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestApplyShipment_ValidationFailureIsFatal(t *testing.T) {
	service, m := newTestService()
	ctx := testContext(t)
	event := shipmentEvent()
	event.TrackingNumber = ""

	outcome, err := service.ApplyShipment(ctx, testAccount(), model.PlatformJNE, event)

	require.Error(t, err)
	assert.Equal(t, ShipmentFailed, outcome)
	assert.True(t, apperrors.IsFatal(err))
	m.shipmentRepo.AssertNotCalled(t, "ApplyShipmentUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
