package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/observer"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/logger"
)

// wabaPayload is the WhatsApp Business Account webhook envelope: entries
// wrap changes, changes wrap message and status batches.
type wabaPayload struct {
	Object string      `json:"object"`
	Entry  []wabaEntry `json:"entry"`
}

type wabaEntry struct {
	ID      string       `json:"id"`
	Changes []wabaChange `json:"changes"`
}

type wabaChange struct {
	Field string    `json:"field"`
	Value wabaValue `json:"value"`
}

type wabaValue struct {
	Metadata struct {
		PhoneNumberID      string `json:"phone_number_id"`
		DisplayPhoneNumber string `json:"display_phone_number"`
	} `json:"metadata"`
	Messages []wabaMessage `json:"messages"`
	Statuses []wabaStatus  `json:"statuses"`
}

type wabaMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Document *struct {
		Filename string `json:"filename"`
	} `json:"document"`
}

type wabaStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
	Timestamp   string `json:"timestamp"`
}

// WabaAdapter normalizes WhatsApp Business Account webhooks.
type WabaAdapter struct{}

// NewWabaAdapter creates a WhatsApp Business adapter
func NewWabaAdapter() *WabaAdapter {
	return &WabaAdapter{}
}

// Platform implements Adapter.
func (a *WabaAdapter) Platform() model.Platform {
	return model.PlatformWaba
}

// Parse flattens the entry/changes batch into MessageEvents. Status
// items become delivery-status refinements for already-stored messages.
func (a *WabaAdapter) Parse(ctx context.Context, raw []byte) ([]model.NormalizedEvent, error) {
	log := logger.FromContext(ctx)

	var payload wabaPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: waba payload: %w", apperrors.ErrUnparseablePayload, err)
	}

	var events []model.NormalizedEvent
	for i, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for j, msg := range change.Value.Messages {
				ev, ok := a.normalizeMessage(msg, change.Value.Metadata.PhoneNumberID)
				if !ok {
					log.Warn("Skipping malformed waba message",
						zap.Int("entry_index", i),
						zap.Int("message_index", j),
					)
					observer.EntriesSkippedTotal.WithLabelValues(string(model.PlatformWaba)).Inc()
					continue
				}
				events = append(events, ev)
			}
			for _, st := range change.Value.Statuses {
				if st.ID == "" || st.Status == "" {
					observer.EntriesSkippedTotal.WithLabelValues(string(model.PlatformWaba)).Inc()
					continue
				}
				events = append(events, model.MessageEvent{
					ProviderMessageID: st.ID,
					SenderID:          st.RecipientID,
					Flow:              model.MessageFlowOutbound,
					Type:              model.MessageTypeText,
					Status:            st.Status,
					Timestamp:         parseUnixString(st.Timestamp),
				})
			}
		}
	}

	return events, nil
}

func (a *WabaAdapter) normalizeMessage(msg wabaMessage, recipientID string) (model.MessageEvent, bool) {
	if msg.ID == "" || msg.From == "" {
		return model.MessageEvent{}, false
	}

	msgType := model.MapMessageType(msg.Type)
	var content string
	switch {
	case msgType == model.MessageTypeText && msg.Text != nil:
		content = msg.Text.Body
	case msgType == model.MessageTypeDocument && msg.Document != nil:
		content = placeholderContent(msgType, msg.Document.Filename)
	default:
		content = placeholderContent(msgType, "")
	}

	return model.MessageEvent{
		ProviderMessageID: msg.ID,
		SenderID:          msg.From,
		RecipientID:       recipientID,
		Flow:              model.MessageFlowInbound,
		Type:              msgType,
		Content:           content,
		Timestamp:         parseUnixString(msg.Timestamp),
	}, true
}

func parseUnixString(s string) int64 {
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}
