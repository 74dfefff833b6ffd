package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
)

// courierFields names the payload keys a carrier uses for the tracking
// number, status and delivery timestamps. The three carriers share one
// webhook contract and differ only in field naming.
type courierFields struct {
	tracking  string
	status    string
	estimated string
	actual    string
}

// courierAdapter is the shared implementation behind the three carrier
// adapters.
type courierAdapter struct {
	platform model.Platform
	fields   courierFields
}

// Platform implements Adapter.
func (a *courierAdapter) Platform() model.Platform {
	return a.platform
}

// Parse extracts one ShipmentEvent from a carrier webhook. A payload
// without a tracking number yields zero events: carriers also send
// heartbeat and non-tracking notifications, which is not an error.
func (a *courierAdapter) Parse(ctx context.Context, raw []byte) ([]model.NormalizedEvent, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %w", apperrors.ErrUnparseablePayload, a.platform, err)
	}

	tracking := stringField(payload, a.fields.tracking)
	if tracking == "" {
		return nil, nil
	}

	event := model.ShipmentEvent{
		TrackingNumber:    tracking,
		ProviderStatus:    stringField(payload, a.fields.status),
		EstimatedDelivery: timeField(payload, a.fields.estimated),
		ActualDelivery:    timeField(payload, a.fields.actual),
		Raw:               json.RawMessage(raw),
	}

	return []model.NormalizedEvent{event}, nil
}

func stringField(payload map[string]json.RawMessage, key string) string {
	rawValue, ok := payload[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(rawValue, &s); err != nil {
		return ""
	}
	return s
}

func timeField(payload map[string]json.RawMessage, key string) *time.Time {
	s := stringField(payload, key)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// NewJNEAdapter creates the JNE carrier adapter
func NewJNEAdapter() Adapter {
	return &courierAdapter{
		platform: model.PlatformJNE,
		fields: courierFields{
			tracking:  "awb",
			status:    "status",
			estimated: "etd",
			actual:    "delivered_at",
		},
	}
}

// NewSicepatAdapter creates the SiCepat carrier adapter
func NewSicepatAdapter() Adapter {
	return &courierAdapter{
		platform: model.PlatformSicepat,
		fields: courierFields{
			tracking:  "waybill_number",
			status:    "status",
			estimated: "estimated_delivery",
			actual:    "delivery_date",
		},
	}
}

// NewAnterajaAdapter creates the AnterAja carrier adapter
func NewAnterajaAdapter() Adapter {
	return &courierAdapter{
		platform: model.PlatformAnteraja,
		fields: courierFields{
			tracking:  "tracking_number",
			status:    "state",
			estimated: "eta",
			actual:    "delivered_time",
		},
	}
}
