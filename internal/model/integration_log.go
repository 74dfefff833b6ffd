package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	LogStatusSuccess = "SUCCESS"
	LogStatusFailure = "FAILURE"
)

// IntegrationLog records one webhook processing attempt. Entries are
// append-only; nothing in this service updates or deletes them.
type IntegrationLog struct {
	// ID is the internal database primary key.
	ID int64 `json:"-" gorm:"primaryKey;autoIncrement"`
	// CompanyID identifies the company/tenant this log entry belongs to.
	CompanyID string `json:"company_id" gorm:"column:company_id;index" validate:"required"`
	// AccountID is the integration account the webhook was attributed to.
	AccountID int64 `json:"account_id" gorm:"column:account_id;index" validate:"required"`
	// Operation is the processing operation name, e.g. "webhook_facebook".
	Operation string `json:"operation" gorm:"column:operation;index" validate:"required"`
	// Status is SUCCESS or FAILURE.
	Status string `json:"status" gorm:"column:status" validate:"required,oneof=SUCCESS FAILURE"`
	// Message is a human-readable outcome description.
	Message string `json:"message,omitempty" gorm:"column:message"`
	// Payload is the raw webhook payload snapshot, retained for diagnosis.
	Payload datatypes.JSON `json:"payload,omitempty" gorm:"type:jsonb;column:payload"`
	// CreatedAt is the timestamp when the log record was created.
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (IntegrationLog) TableName() string {
	return "integration_logs"
}
