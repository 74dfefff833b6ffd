package model

import (
	"fmt"
	"strings"
	"time"
)

const CustomerTypeIndividual = "INDIVIDUAL"

// Customer is the counterpart identity of an inbound message. When no
// existing customer matches the sender, a lightweight placeholder is
// created with a synthetic identity derived from the provider identifier.
type Customer struct {
	ID               string    `json:"id" gorm:"primaryKey;type:text"`
	CompanyID        string    `json:"company_id" gorm:"column:company_id;uniqueIndex:idx_customers_company_identity,priority:1" validate:"required"` // CompanyID is implicitly the tenant ID
	PlatformIdentity string    `json:"platform_identity" gorm:"column:platform_identity;uniqueIndex:idx_customers_company_identity,priority:2" validate:"required"`
	Name             string    `json:"name,omitempty" gorm:"column:name;type:text"`
	Email            string    `json:"email,omitempty" gorm:"column:email;type:text"`
	Phone            string    `json:"phone,omitempty" gorm:"column:phone;type:text"`
	Type             string    `json:"type,omitempty" gorm:"column:type;type:text;default:INDIVIDUAL"`
	CreatedAt        time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt        time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Customer) TableName() string {
	return "customers"
}

// PlatformIdentity builds the synthetic identity a customer is matched by,
// e.g. "facebook:1029384756" or "waba:628123456789".
func PlatformIdentityFor(platform Platform, providerID string) string {
	return fmt.Sprintf("%s:%s", platform, providerID)
}

// SyntheticEmail derives a placeholder email from a provider identifier.
func SyntheticEmail(platform Platform, providerID string) string {
	return fmt.Sprintf("%s.%s@placeholder.local", platform, strings.ToLower(providerID))
}
