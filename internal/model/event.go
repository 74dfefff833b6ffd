package model

import (
	"encoding/json"
	"time"
)

// EventKind discriminates the normalized event variants.
type EventKind string

const (
	EventKindMessage  EventKind = "message"
	EventKindShipment EventKind = "shipment"
)

// NormalizedEvent is the platform-agnostic representation all provider
// payloads are parsed into. It is either a MessageEvent or a ShipmentEvent.
type NormalizedEvent interface {
	Kind() EventKind
}

// MessageEvent is a single normalized messaging event extracted from a
// provider payload.
type MessageEvent struct {
	ProviderMessageID string      `json:"provider_message_id" validate:"required"`
	SenderID          string      `json:"sender_id" validate:"required"`
	RecipientID       string      `json:"recipient_id"`
	Flow              string      `json:"flow"`
	Type              MessageType `json:"type"`
	Content           string      `json:"content"`
	Status            string      `json:"status,omitempty"` // delivery status refinement, when the webhook carries one
	Timestamp         int64       `json:"timestamp,omitempty"`
}

// Kind implements NormalizedEvent.
func (MessageEvent) Kind() EventKind { return EventKindMessage }

// ShipmentEvent is a single normalized courier tracking event.
type ShipmentEvent struct {
	TrackingNumber    string          `json:"tracking_number" validate:"required"`
	ProviderStatus    string          `json:"provider_status"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time      `json:"actual_delivery,omitempty"`
	Raw               json.RawMessage `json:"raw,omitempty"` // full payload, retained verbatim for the metadata blob
}

// Kind implements NormalizedEvent.
func (ShipmentEvent) Kind() EventKind { return EventKindShipment }
