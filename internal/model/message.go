package model

import (
	"time"
)

const (
	MessageFlowInbound  = "INBOUND"
	MessageFlowOutbound = "OUTBOUND"
)

// MessageType is the canonical content type of a normalized message.
type MessageType string

const (
	MessageTypeText     MessageType = "TEXT"
	MessageTypeImage    MessageType = "IMAGE"
	MessageTypeDocument MessageType = "DOCUMENT"
	MessageTypeVideo    MessageType = "VIDEO"
	MessageTypeAudio    MessageType = "AUDIO"
)

// MapMessageType translates a provider content type string into the
// canonical MessageType. Unknown types default to TEXT.
func MapMessageType(provider string) MessageType {
	switch provider {
	case "text":
		return MessageTypeText
	case "image":
		return MessageTypeImage
	case "document", "file":
		return MessageTypeDocument
	case "video":
		return MessageTypeVideo
	case "audio", "voice":
		return MessageTypeAudio
	default:
		return MessageTypeText
	}
}

// Message is a normalized communication unit persisted from a messaging
// webhook. Messages are immutable facts; only the delivery status may be
// refined by later webhooks referencing the same provider message id.
type Message struct {
	ID                int64       `json:"-" gorm:"column:id;primaryKey;autoIncrement"`
	CompanyID         string      `json:"company_id" gorm:"column:company_id;uniqueIndex:idx_messages_company_platform_provider,priority:1" validate:"required"` // CompanyID is implicitly the tenant ID
	AccountID         int64       `json:"account_id" gorm:"column:account_id;index"`
	Platform          Platform    `json:"platform" gorm:"column:platform;type:text;uniqueIndex:idx_messages_company_platform_provider,priority:2" validate:"required"`
	ProviderMessageID string      `json:"provider_message_id" gorm:"column:provider_message_id;uniqueIndex:idx_messages_company_platform_provider,priority:3" validate:"required"`
	Flow              string      `json:"flow,omitempty" gorm:"column:flow"`
	FromID            string      `json:"from_id,omitempty" gorm:"column:from_id;index"`
	ToID              string      `json:"to_id,omitempty" gorm:"column:to_id;index"`
	Type              MessageType `json:"type,omitempty" gorm:"column:type;type:text"`
	Content           string      `json:"content,omitempty" gorm:"column:content"`
	Status            string      `json:"status,omitempty" gorm:"column:status"` // provider delivery status (sent/delivered/read)
	CustomerID        *string     `json:"customer_id,omitempty" gorm:"column:customer_id;index"`
	MessageTimestamp  int64       `json:"message_timestamp,omitempty" gorm:"column:message_timestamp"`
	CreatedAt         time.Time   `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (Message) TableName() string {
	return "messages"
}
