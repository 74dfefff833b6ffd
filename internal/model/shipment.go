package model

import (
	"time"

	"gorm.io/datatypes"
)

// ShipmentStatus is the canonical lifecycle status of a courier consignment.
type ShipmentStatus string

const (
	ShipmentStatusPending        ShipmentStatus = "PENDING"
	ShipmentStatusPickedUp       ShipmentStatus = "PICKED_UP"
	ShipmentStatusInTransit      ShipmentStatus = "IN_TRANSIT"
	ShipmentStatusOutForDelivery ShipmentStatus = "OUT_FOR_DELIVERY"
	ShipmentStatusDelivered      ShipmentStatus = "DELIVERED"
	ShipmentStatusFailed         ShipmentStatus = "FAILED"
	ShipmentStatusCancelled      ShipmentStatus = "CANCELLED"
	ShipmentStatusReturned       ShipmentStatus = "RETURNED"
)

// statusRank orders the lifecycle. Terminal statuses share the top rank;
// which terminal state wins is decided by arrival order, never regressed.
var statusRank = map[ShipmentStatus]int{
	ShipmentStatusPending:        0,
	ShipmentStatusPickedUp:       1,
	ShipmentStatusInTransit:      2,
	ShipmentStatusOutForDelivery: 3,
	ShipmentStatusDelivered:      4,
	ShipmentStatusFailed:         4,
	ShipmentStatusCancelled:      4,
	ShipmentStatusReturned:       4,
}

// Rank returns the lifecycle ordering of the status. Unknown statuses rank -1.
func (s ShipmentStatus) Rank() int {
	rank, ok := statusRank[s]
	if !ok {
		return -1
	}
	return rank
}

// IsTerminal reports whether no further progress may be applied after s.
func (s ShipmentStatus) IsTerminal() bool {
	switch s {
	case ShipmentStatusDelivered, ShipmentStatusFailed, ShipmentStatusCancelled, ShipmentStatusReturned:
		return true
	}
	return false
}

// IsProgressOrEqual reports whether incoming may be stored over current.
// A terminal current status is never overwritten; otherwise the incoming
// status must be at least as advanced as the stored one.
func IsProgressOrEqual(current, incoming ShipmentStatus) bool {
	if incoming == current {
		return true
	}
	if current.IsTerminal() {
		return false
	}
	return incoming.Rank() >= current.Rank()
}

// MapCourierStatus translates a carrier status string into the canonical
// ShipmentStatus. It returns false for unrecognized statuses; the stored
// status must then be left untouched.
func MapCourierStatus(provider string) (ShipmentStatus, bool) {
	switch provider {
	case "pending":
		return ShipmentStatusPending, true
	case "picked_up":
		return ShipmentStatusPickedUp, true
	case "in_transit":
		return ShipmentStatusInTransit, true
	case "out_for_delivery":
		return ShipmentStatusOutForDelivery, true
	case "delivered":
		return ShipmentStatusDelivered, true
	case "failed":
		return ShipmentStatusFailed, true
	case "cancelled":
		return ShipmentStatusCancelled, true
	case "returned":
		return ShipmentStatusReturned, true
	default:
		return "", false
	}
}

// Shipment is a tracked courier consignment. Rows are created by the
// outbound dispatch flow; this service only updates them from carrier
// webhooks and never deletes them.
type Shipment struct {
	ID                int64          `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	CompanyID         string         `json:"company_id" gorm:"column:company_id;uniqueIndex:idx_shipments_company_platform_tracking,priority:1" validate:"required"` // CompanyID is implicitly the tenant ID
	AccountID         int64          `json:"account_id" gorm:"column:account_id;index"`
	Platform          Platform       `json:"platform" gorm:"column:platform;type:text;uniqueIndex:idx_shipments_company_platform_tracking,priority:2" validate:"required"`
	TrackingNumber    string         `json:"tracking_number" gorm:"column:tracking_number;uniqueIndex:idx_shipments_company_platform_tracking,priority:3" validate:"required"`
	Status            ShipmentStatus `json:"status" gorm:"column:status;type:text;default:PENDING"`
	EstimatedDelivery *time.Time     `json:"estimated_delivery,omitempty" gorm:"column:estimated_delivery"`
	ActualDelivery    *time.Time     `json:"actual_delivery,omitempty" gorm:"column:actual_delivery"`
	LastUpdatedAt     time.Time      `json:"last_updated_at,omitempty" gorm:"column:last_updated_at"`
	LastMetadata      datatypes.JSON `json:"last_metadata,omitempty" gorm:"type:jsonb;column:last_metadata"` // most recent raw webhook payload
	CreatedAt         time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Shipment) TableName() string {
	return "shipments"
}
