package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShipmentStatus_Rank(t *testing.T) {
	tests := []struct {
		status   ShipmentStatus
		expected int
	}{
		{ShipmentStatusPending, 0},
		{ShipmentStatusPickedUp, 1},
		{ShipmentStatusInTransit, 2},
		{ShipmentStatusOutForDelivery, 3},
		{ShipmentStatusDelivered, 4},
		{ShipmentStatusFailed, 4},
		{ShipmentStatusCancelled, 4},
		{ShipmentStatusReturned, 4},
		{ShipmentStatus("BOGUS"), -1},
		{ShipmentStatus(""), -1},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.Rank())
		})
	}
}

func TestShipmentStatus_IsTerminal(t *testing.T) {
	assert.False(t, ShipmentStatusPending.IsTerminal())
	assert.False(t, ShipmentStatusPickedUp.IsTerminal())
	assert.False(t, ShipmentStatusInTransit.IsTerminal())
	assert.False(t, ShipmentStatusOutForDelivery.IsTerminal())
	assert.True(t, ShipmentStatusDelivered.IsTerminal())
	assert.True(t, ShipmentStatusFailed.IsTerminal())
	assert.True(t, ShipmentStatusCancelled.IsTerminal())
	assert.True(t, ShipmentStatusReturned.IsTerminal())
}

func TestIsProgressOrEqual(t *testing.T) {
	tests := []struct {
		name     string
		current  ShipmentStatus
		incoming ShipmentStatus
		expected bool
	}{
		{"forward progress", ShipmentStatusPending, ShipmentStatusInTransit, true},
		{"equal status is allowed", ShipmentStatusInTransit, ShipmentStatusInTransit, true},
		{"regression rejected", ShipmentStatusOutForDelivery, ShipmentStatusPickedUp, false},
		{"terminal never overwritten", ShipmentStatusDelivered, ShipmentStatusInTransit, false},
		{"terminal not replaced by other terminal", ShipmentStatusDelivered, ShipmentStatusReturned, false},
		{"terminal equal is allowed", ShipmentStatusDelivered, ShipmentStatusDelivered, true},
		{"skip straight to delivered", ShipmentStatusPending, ShipmentStatusDelivered, true},
		{"failed over in_transit", ShipmentStatusInTransit, ShipmentStatusFailed, true},
		{"unknown incoming rejected", ShipmentStatusPending, ShipmentStatus("BOGUS"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsProgressOrEqual(tt.current, tt.incoming))
		})
	}
}

func TestMapCourierStatus(t *testing.T) {
	tests := []struct {
		provider      string
		expected      ShipmentStatus
		expectedFound bool
	}{
		{"pending", ShipmentStatusPending, true},
		{"picked_up", ShipmentStatusPickedUp, true},
		{"in_transit", ShipmentStatusInTransit, true},
		{"out_for_delivery", ShipmentStatusOutForDelivery, true},
		{"delivered", ShipmentStatusDelivered, true},
		{"failed", ShipmentStatusFailed, true},
		{"cancelled", ShipmentStatusCancelled, true},
		{"returned", ShipmentStatusReturned, true},
		{"WAREHOUSE_SCAN", "", false},
		{"DELIVERED", "", false}, // provider vocabulary is lowercase
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			actual, found := MapCourierStatus(tt.provider)
			assert.Equal(t, tt.expected, actual)
			assert.Equal(t, tt.expectedFound, found)
		})
	}
}
