package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/observer"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/storage"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/validator"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/logger"
)

// ShipmentOutcome describes what applying a ShipmentEvent did.
type ShipmentOutcome string

const (
	ShipmentStatusChanged  ShipmentOutcome = "status_changed"
	ShipmentRefreshed      ShipmentOutcome = "refreshed"
	ShipmentUnknownTarget  ShipmentOutcome = "unknown_tracking_number"
	ShipmentUnmappedStatus ShipmentOutcome = "unmapped_status"
	ShipmentFailed         ShipmentOutcome = "failed"
)

// ApplyShipment applies a normalized courier event to an existing
// shipment. Shipments are created by the outbound dispatch flow; an event
// for an unknown tracking number is not actionable here and is skipped.
// Unrecognized carrier statuses never overwrite the stored status, but
// the raw payload snapshot is still retained.
func (s *WebhookService) ApplyShipment(ctx context.Context, account *model.IntegrationAccount, platform model.Platform, event model.ShipmentEvent) (ShipmentOutcome, error) {
	log := logger.FromContext(ctx)

	if err := validator.Validate(event); err != nil {
		return ShipmentFailed, apperrors.NewFatal(err, "shipment event validation failed")
	}

	update := storage.ShipmentUpdate{
		EstimatedDelivery: event.EstimatedDelivery,
		ActualDelivery:    event.ActualDelivery,
		Metadata:          event.Raw,
	}

	outcome := ShipmentRefreshed
	mapped, ok := model.MapCourierStatus(event.ProviderStatus)
	if ok {
		update.Status = &mapped
	} else {
		log.Warn("Unrecognized carrier status, leaving stored status unchanged",
			zap.String("tracking_number", event.TrackingNumber),
			zap.String("provider_status", event.ProviderStatus),
		)
		observer.IncWebhookDropped(string(platform), account.CompanyID, observer.DropReasonUnmappedStatus)
		outcome = ShipmentUnmappedStatus
	}

	shipment, statusChanged, err := s.shipmentRepo.ApplyShipmentUpdate(ctx, platform, event.TrackingNumber, update)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Warn("Webhook for unknown tracking number, skipping",
				zap.String("tracking_number", event.TrackingNumber),
				zap.String("platform", string(platform)),
			)
			observer.IncWebhookDropped(string(platform), account.CompanyID, observer.DropReasonUnknownTarget)
			return ShipmentUnknownTarget, nil
		}
		return ShipmentFailed, handleRepositoryError(ctx, err, "ApplyShipmentUpdate", event.TrackingNumber)
	}

	if statusChanged {
		log.Info("Shipment status advanced",
			zap.String("tracking_number", event.TrackingNumber),
			zap.String("status", string(shipment.Status)),
		)
		return ShipmentStatusChanged, nil
	}

	return outcome, nil
}
