package storage

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
)

const testTracking = "JNE0011223344"

func shipmentSelectForUpdatePattern() string {
	return regexp.QuoteMeta(`SELECT * FROM "shipments" WHERE company_id = $1 AND platform = $2 AND tracking_number = $3`) +
		`.*` + regexp.QuoteMeta(`FOR UPDATE`)
}

func shipmentRow(status model.ShipmentStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "company_id", "platform", "tracking_number", "status"}).
		AddRow(7, testTenantID, string(model.PlatformJNE), testTracking, string(status))
}

func TestApplyShipmentUpdate_StatusAdvances(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	t.Cleanup(teardown)
	ctx := contextWithTestTenant()

	mock.ExpectBegin()
	mock.ExpectQuery(shipmentSelectForUpdatePattern()).
		WithArgs(testTenantID, string(model.PlatformJNE), testTracking, 1).
		WillReturnRows(shipmentRow(model.ShipmentStatusPickedUp))
	// Map-based updates are ordered alphabetically: last_updated_at, status.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "shipments" SET "last_updated_at"=$1,"status"=$2 WHERE id = $3`)).
		WithArgs(AnyTime{}, string(model.ShipmentStatusInTransit), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	status := model.ShipmentStatusInTransit
	shipment, statusChanged, err := repo.ApplyShipmentUpdate(ctx, model.PlatformJNE, testTracking, ShipmentUpdate{
		Status: &status,
	})

	require.NoError(t, err)
	assert.True(t, statusChanged)
	require.NotNil(t, shipment)
	assert.Equal(t, model.ShipmentStatusInTransit, shipment.Status)
}

func TestApplyShipmentUpdate_RegressionLeavesStatus(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	t.Cleanup(teardown)
	ctx := contextWithTestTenant()

	raw := json.RawMessage(`{"awb":"JNE0011223344","status":"in_transit"}`)

	mock.ExpectBegin()
	mock.ExpectQuery(shipmentSelectForUpdatePattern()).
		WillReturnRows(shipmentRow(model.ShipmentStatusDelivered))
	// Stored status is terminal: only the snapshot and timestamp change.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "shipments" SET "last_metadata"=$1,"last_updated_at"=$2 WHERE id = $3`)).
		WithArgs(datatypes.JSON(raw), AnyTime{}, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	status := model.ShipmentStatusInTransit
	shipment, statusChanged, err := repo.ApplyShipmentUpdate(ctx, model.PlatformJNE, testTracking, ShipmentUpdate{
		Status:   &status,
		Metadata: raw,
	})

	require.NoError(t, err)
	assert.False(t, statusChanged)
	assert.Equal(t, model.ShipmentStatusDelivered, shipment.Status)
}

func TestApplyShipmentUpdate_SameStatusRefreshes(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	t.Cleanup(teardown)
	ctx := contextWithTestTenant()

	mock.ExpectBegin()
	mock.ExpectQuery(shipmentSelectForUpdatePattern()).
		WillReturnRows(shipmentRow(model.ShipmentStatusInTransit))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "shipments" SET "last_updated_at"=$1,"status"=$2 WHERE id = $3`)).
		WithArgs(AnyTime{}, string(model.ShipmentStatusInTransit), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	status := model.ShipmentStatusInTransit
	_, statusChanged, err := repo.ApplyShipmentUpdate(ctx, model.PlatformJNE, testTracking, ShipmentUpdate{
		Status: &status,
	})

	require.NoError(t, err)
	assert.False(t, statusChanged)
}

func TestApplyShipmentUpdate_DeliveryTimestamps(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	t.Cleanup(teardown)
	ctx := contextWithTestTenant()

	actual := time.Date(2026, 8, 30, 8, 15, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(shipmentSelectForUpdatePattern()).
		WillReturnRows(shipmentRow(model.ShipmentStatusOutForDelivery))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "shipments" SET "actual_delivery"=$1,"last_updated_at"=$2,"status"=$3 WHERE id = $4`)).
		WithArgs(actual, AnyTime{}, string(model.ShipmentStatusDelivered), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	status := model.ShipmentStatusDelivered
	shipment, statusChanged, err := repo.ApplyShipmentUpdate(ctx, model.PlatformJNE, testTracking, ShipmentUpdate{
		Status:         &status,
		ActualDelivery: &actual,
	})

	require.NoError(t, err)
	assert.True(t, statusChanged)
	require.NotNil(t, shipment.ActualDelivery)
	assert.Equal(t, actual, *shipment.ActualDelivery)
}

func TestApplyShipmentUpdate_UnknownTracking(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	t.Cleanup(teardown)
	ctx := contextWithTestTenant()

	mock.ExpectBegin()
	mock.ExpectQuery(shipmentSelectForUpdatePattern()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	status := model.ShipmentStatusInTransit
	shipment, statusChanged, err := repo.ApplyShipmentUpdate(ctx, model.PlatformJNE, "UNKNOWN123", ShipmentUpdate{
		Status: &status,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, shipment)
	assert.False(t, statusChanged)
}

func TestApplyShipmentUpdate_MissingTenant(t *testing.T) {
	repo, _, teardown := newMockRepo(t)
	t.Cleanup(teardown)

	status := model.ShipmentStatusPending
	_, _, err := repo.ApplyShipmentUpdate(context.Background(), model.PlatformJNE, testTracking, ShipmentUpdate{
		Status: &status,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestFindShipmentByTracking_Found(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	t.Cleanup(teardown)
	ctx := contextWithTestTenant()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "shipments" WHERE company_id = $1 AND platform = $2 AND tracking_number = $3`)).
		WithArgs(testTenantID, string(model.PlatformJNE), testTracking, 1).
		WillReturnRows(shipmentRow(model.ShipmentStatusInTransit))

	shipment, err := repo.FindShipmentByTracking(ctx, model.PlatformJNE, testTracking)

	require.NoError(t, err)
	require.NotNil(t, shipment)
	assert.Equal(t, model.ShipmentStatusInTransit, shipment.Status)
}

func TestFindShipmentByTracking_NotFound(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	t.Cleanup(teardown)
	ctx := contextWithTestTenant()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "shipments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	shipment, err := repo.FindShipmentByTracking(ctx, model.PlatformJNE, "GHOST1")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, shipment)
}
