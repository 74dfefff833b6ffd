package model

import (
	"time"

	"gorm.io/datatypes"
)

// IntegrationAccount represents one configured provider account for a tenant.
// Accounts are created and edited by the management UI; this service only
// reads them and touches last_synced_at after successful processing.
type IntegrationAccount struct {
	ID           int64          `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	CompanyID    string         `json:"company_id" gorm:"column:company_id;uniqueIndex:idx_accounts_company_platform_name,priority:1" validate:"required"` // CompanyID is implicitly the tenant ID
	Platform     Platform       `json:"platform" gorm:"column:platform;type:text;uniqueIndex:idx_accounts_company_platform_name,priority:2" validate:"required"`
	AccountName  string         `json:"account_name" gorm:"column:account_name;uniqueIndex:idx_accounts_company_platform_name,priority:3"`
	Active       bool           `json:"active" gorm:"column:active;default:true;index"`
	Credentials  datatypes.JSON `json:"-" gorm:"type:jsonb;column:credentials"` // opaque token material, never interpreted here
	LastSyncedAt *time.Time     `json:"last_synced_at,omitempty" gorm:"column:last_synced_at;index"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty" gorm:"column:expires_at"`
	CreatedAt    time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (IntegrationAccount) TableName() string {
	return "integration_accounts"
}
