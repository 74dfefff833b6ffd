package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/observer"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/logger"
)

// facebookPayload is the Messenger page webhook envelope: a batch of
// entries, each carrying one or more messaging events.
type facebookPayload struct {
	Object string          `json:"object"`
	Entry  []facebookEntry `json:"entry"`
}

type facebookEntry struct {
	ID        string              `json:"id"`
	Time      int64               `json:"time"`
	Messaging []facebookMessaging `json:"messaging"`
}

type facebookMessaging struct {
	Sender    facebookParty    `json:"sender"`
	Recipient facebookParty    `json:"recipient"`
	Timestamp int64            `json:"timestamp"`
	Message   *facebookMessage `json:"message"`
	Delivery  *struct {
		Mids []string `json:"mids"`
	} `json:"delivery"`
}

type facebookParty struct {
	ID string `json:"id"`
}

type facebookMessage struct {
	Mid         string `json:"mid"`
	Text        string `json:"text"`
	Attachments []struct {
		Type    string `json:"type"`
		Payload struct {
			URL   string `json:"url"`
			Title string `json:"title"`
		} `json:"payload"`
	} `json:"attachments"`
}

// FacebookAdapter normalizes Facebook Messenger page webhooks.
type FacebookAdapter struct{}

// NewFacebookAdapter creates a Facebook Messenger adapter
func NewFacebookAdapter() *FacebookAdapter {
	return &FacebookAdapter{}
}

// Platform implements Adapter.
func (a *FacebookAdapter) Platform() model.Platform {
	return model.PlatformFacebook
}

// Parse flattens the entry/messaging batch into MessageEvents. Malformed
// messaging items are skipped individually; only a payload that cannot be
// decoded at all is an error.
func (a *FacebookAdapter) Parse(ctx context.Context, raw []byte) ([]model.NormalizedEvent, error) {
	log := logger.FromContext(ctx)

	var payload facebookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: facebook payload: %w", apperrors.ErrUnparseablePayload, err)
	}

	events := make([]model.NormalizedEvent, 0, len(payload.Entry))
	for i, entry := range payload.Entry {
		for j, item := range entry.Messaging {
			normalized, ok := a.normalizeMessaging(item)
			if !ok {
				log.Warn("Skipping malformed messaging item",
					zap.Int("entry_index", i),
					zap.Int("messaging_index", j),
				)
				observer.EntriesSkippedTotal.WithLabelValues(string(model.PlatformFacebook)).Inc()
				continue
			}
			events = append(events, normalized...)
		}
	}

	return events, nil
}

// normalizeMessaging converts one messaging item into MessageEvents.
// Delivery receipts become status refinements on the referenced mids.
func (a *FacebookAdapter) normalizeMessaging(item facebookMessaging) ([]model.NormalizedEvent, bool) {
	if item.Message != nil {
		msg := item.Message
		if msg.Mid == "" || item.Sender.ID == "" {
			return nil, false
		}

		msgType := model.MessageTypeText
		content := msg.Text
		if len(msg.Attachments) > 0 {
			att := msg.Attachments[0]
			msgType = model.MapMessageType(att.Type)
			content = placeholderContent(msgType, att.Payload.Title)
		}

		return []model.NormalizedEvent{model.MessageEvent{
			ProviderMessageID: msg.Mid,
			SenderID:          item.Sender.ID,
			RecipientID:       item.Recipient.ID,
			Flow:              model.MessageFlowInbound,
			Type:              msgType,
			Content:           content,
			Timestamp:         item.Timestamp / 1000, // Messenger timestamps are in milliseconds
		}}, true
	}

	if item.Delivery != nil {
		events := make([]model.NormalizedEvent, 0, len(item.Delivery.Mids))
		for _, mid := range item.Delivery.Mids {
			if mid == "" {
				continue
			}
			events = append(events, model.MessageEvent{
				ProviderMessageID: mid,
				SenderID:          item.Sender.ID,
				Flow:              model.MessageFlowOutbound,
				Type:              model.MessageTypeText,
				Status:            "delivered",
				Timestamp:         item.Timestamp / 1000,
			})
		}
		return events, true
	}

	return nil, false
}

// placeholderContent builds the descriptive stand-in stored for non-text
// messages; binary payload retrieval is out of scope.
func placeholderContent(msgType model.MessageType, filename string) string {
	switch msgType {
	case model.MessageTypeImage:
		return "Image received"
	case model.MessageTypeDocument:
		if filename != "" {
			return "Document: " + filename
		}
		return "Document received"
	case model.MessageTypeVideo:
		return "Video received"
	case model.MessageTypeAudio:
		return "Audio received"
	default:
		return ""
	}
}
