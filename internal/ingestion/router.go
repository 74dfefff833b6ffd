package ingestion

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/adapter"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/observer"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/tenant"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/usecase"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/logger"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/utils"
)

// RouterInterface is the dispatch contract consumed by the transports.
type RouterInterface interface {
	Dispatch(ctx context.Context, platform model.Platform, raw []byte, source string) error
}

// Router is the top-level webhook entry point: it selects the adapter for
// the declared platform, resolves the tenant's integration account,
// applies the normalized events and records the audit outcome. A
// malformed payload never crashes the host; the worst case is a FAILURE
// log entry and a non-fatal error to the caller.
type Router struct {
	registry *adapter.Registry
	service  *usecase.WebhookService
}

// NewRouter creates a new webhook router
func NewRouter(registry *adapter.Registry, service *usecase.WebhookService) *Router {
	return &Router{
		registry: registry,
		service:  service,
	}
}

// Dispatch routes one webhook delivery. source labels the transport
// ("http" or "relay") for metrics.
func (r *Router) Dispatch(ctx context.Context, platform model.Platform, raw []byte, source string) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}

	log := logger.FromContext(ctx).With(
		zap.String("platform", string(platform)),
		zap.String("company_id", companyID),
		zap.String("source", source),
	)
	ctx = logger.WithLogger(ctx, log)

	observer.WebhooksReceivedTotal.WithLabelValues(string(platform), companyID, source).Inc()
	start := utils.Now()
	defer func() {
		observer.WebhookProcessingDurationSeconds.WithLabelValues(string(platform), companyID, source).Observe(time.Since(start).Seconds())
	}()

	ad, ok := r.registry.Lookup(platform)
	if !ok {
		// Nothing is persisted or logged: there is no account to
		// attribute a log entry to for an unknown platform.
		return fmt.Errorf("%w: %s", apperrors.ErrUnsupportedPlatform, platform)
	}

	account, err := r.service.ResolveAccount(ctx, platform)
	if err != nil {
		observer.WebhooksFailedTotal.WithLabelValues(string(platform), companyID, source).Inc()
		return fmt.Errorf("account resolution failed: %w", err)
	}
	if account == nil {
		// Tenant removed or never configured the integration. Silent
		// success: providers must not be made to retry indefinitely.
		log.Info("No active integration account, webhook dropped")
		observer.IncWebhookDropped(string(platform), companyID, observer.DropReasonNoAccount)
		return nil
	}

	err = utils.WrapWithContextRecovery(func(ctx context.Context) error {
		return r.process(ctx, ad, account, platform, raw, source)
	})(ctx)
	if err != nil {
		observer.WebhooksFailedTotal.WithLabelValues(string(platform), companyID, source).Inc()
		return err
	}

	observer.WebhooksProcessedTotal.WithLabelValues(string(platform), companyID, source).Inc()
	return nil
}

// process parses and applies the payload once an account is resolved.
// Every path out of here leaves exactly one integration log entry.
func (r *Router) process(ctx context.Context, ad adapter.Adapter, account *model.IntegrationAccount, platform model.Platform, raw []byte, source string) error {
	log := logger.FromContext(ctx)
	operation := platform.OperationName()

	events, parseErr := ad.Parse(ctx, raw)
	if parseErr != nil {
		r.service.Audit(ctx, account, operation, model.LogStatusFailure,
			fmt.Sprintf("payload parse failed: %v", parseErr), raw)
		return fmt.Errorf("adapter parse failed: %w", parseErr)
	}

	if len(events) == 0 {
		log.Info("Webhook yielded no actionable events")
		observer.IncWebhookDropped(string(platform), account.CompanyID, observer.DropReasonNoActionable)
		r.service.Audit(ctx, account, operation, model.LogStatusSuccess, "no actionable events", raw)
		return nil
	}

	applied := 0
	var firstErr error
	for _, event := range events {
		observer.EventsNormalizedTotal.WithLabelValues(string(platform), string(event.Kind())).Inc()

		var applyErr error
		switch ev := event.(type) {
		case model.MessageEvent:
			_, applyErr = r.service.ApplyMessage(ctx, account, platform, ev)
		case model.ShipmentEvent:
			_, applyErr = r.service.ApplyShipment(ctx, account, platform, ev)
		default:
			log.Warn("Unknown normalized event kind", zap.String("kind", string(event.Kind())))
			continue
		}

		if applyErr != nil {
			if firstErr == nil {
				firstErr = applyErr
			}
			log.Error("Failed to apply normalized event",
				zap.String("kind", string(event.Kind())),
				zap.Error(applyErr),
			)
			continue
		}
		applied++
	}

	if firstErr != nil {
		r.service.Audit(ctx, account, operation, model.LogStatusFailure,
			fmt.Sprintf("applied %d/%d events, first error: %v", applied, len(events), firstErr), raw)
		return fmt.Errorf("webhook partially failed (%d/%d applied): %w", applied, len(events), firstErr)
	}

	r.service.TouchAccount(ctx, account)
	r.service.Audit(ctx, account, operation, model.LogStatusSuccess,
		fmt.Sprintf("applied %d event(s)", applied), raw)
	return nil
}
