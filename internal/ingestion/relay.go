package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/config"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/tenant"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/logger"
)

// RelayConsumer consumes raw webhook envelopes republished on JetStream
// by the edge gateway, on subjects of the form
// v1.webhooks.<platform>.<company_id>, and feeds them through the same
// router as the HTTP path. Deliveries are processed by a bounded worker
// pool; retryable failures are NAKed with delay so JetStream redelivers.
type RelayConsumer struct {
	nc           *nats.Conn
	sub          *nats.Subscription
	pool         *ants.Pool
	router       RouterInterface
	cfg          config.Config
	nakBaseDelay time.Duration
}

// NewRelayConsumer connects to NATS and creates the worker pool.
func NewRelayConsumer(cfg *config.Config, router RouterInterface) (*RelayConsumer, error) {
	nc, err := nats.Connect(cfg.Relay.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to NATS: %w", apperrors.ErrNATS, err)
	}

	pool, err := ants.NewPool(cfg.Relay.PoolSize,
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(cfg.Relay.QueueSize),
		ants.WithPanicHandler(func(r interface{}) {
			logger.Log.Error("[panic] Recovered from panic in relay worker", zap.Any("panic", r))
		}),
	)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create relay worker pool: %w", err)
	}

	return &RelayConsumer{
		nc:           nc,
		pool:         pool,
		router:       router,
		cfg:          *cfg,
		nakBaseDelay: cfg.Relay.NakBaseDelay,
	}, nil
}

// Setup ensures the stream and durable queue subscription exist.
func (c *RelayConsumer) Setup() error {
	js, err := c.nc.JetStream()
	if err != nil {
		return fmt.Errorf("%w: failed to get JetStream context: %w", apperrors.ErrNATS, err)
	}

	streamCfg := &nats.StreamConfig{
		Name:      c.cfg.Relay.Stream,
		Subjects:  c.cfg.Relay.SubjectList,
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    time.Duration(c.cfg.Relay.MaxAge) * 24 * time.Hour,
	}
	if _, err := js.AddStream(streamCfg); err != nil {
		if !strings.Contains(err.Error(), "already in use") {
			return fmt.Errorf("%w: failed to ensure stream %s: %w", apperrors.ErrNATS, c.cfg.Relay.Stream, err)
		}
	}

	sub, err := js.QueueSubscribe(
		c.cfg.Relay.SubjectList[0],
		c.cfg.Relay.QueueGroup,
		c.handleDelivery,
		nats.Durable(c.cfg.Relay.Consumer),
		nats.ManualAck(),
		nats.AckWait(c.cfg.Relay.AckWait),
		nats.MaxDeliver(c.cfg.Relay.MaxDeliver),
		nats.BindStream(c.cfg.Relay.Stream),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to subscribe: %w", apperrors.ErrNATS, err)
	}
	c.sub = sub

	logger.Log.Info("Relay consumer subscribed",
		zap.String("stream", c.cfg.Relay.Stream),
		zap.String("consumer", c.cfg.Relay.Consumer),
		zap.Strings("subjects", c.cfg.Relay.SubjectList),
	)
	return nil
}

// handleDelivery submits one delivery to the worker pool. Pool overload
// NAKs the message so JetStream redelivers it later.
func (c *RelayConsumer) handleDelivery(msg *nats.Msg) {
	err := c.pool.Submit(func() {
		c.processDelivery(msg)
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			logger.Log.Warn("Relay pool overloaded, NAKing delivery", zap.String("subject", msg.Subject))
		} else {
			logger.Log.Error("Failed to submit relay delivery to pool", zap.Error(err))
		}
		if nakErr := msg.NakWithDelay(c.nakBaseDelay); nakErr != nil {
			logger.Log.Error("Failed to NAK delivery", zap.Error(nakErr))
		}
	}
}

func (c *RelayConsumer) processDelivery(msg *nats.Msg) {
	platform, companyID, err := parseRelaySubject(msg.Subject)
	if err != nil {
		// Misrouted subject: poison, no point in redelivery.
		logger.Log.Warn("Dropping relay delivery with bad subject",
			zap.String("subject", msg.Subject), zap.Error(err))
		if ackErr := msg.Ack(); ackErr != nil {
			logger.Log.Error("Failed to ACK bad-subject delivery", zap.Error(ackErr))
		}
		return
	}

	ctx := tenant.WithCompanyID(context.Background(), companyID)
	ctx = tenant.WithRequestID(ctx, uuid.NewString())

	dispatchErr := c.router.Dispatch(ctx, platform, msg.Data, "relay")
	if dispatchErr == nil || !apperrors.IsRetryable(dispatchErr) {
		// Success, or a failure that redelivery cannot fix; either way
		// the attempt is recorded and the message is done.
		if ackErr := msg.Ack(); ackErr != nil {
			logger.Log.Error("Failed to ACK delivery", zap.Error(ackErr))
		}
		return
	}

	delay := c.nakBaseDelay
	if metadata, mErr := msg.Metadata(); mErr == nil && metadata.NumDelivered > 1 {
		delay = c.nakBaseDelay * time.Duration(metadata.NumDelivered)
	}
	logger.Log.Warn("Retryable relay failure, NAKing with delay",
		zap.String("subject", msg.Subject),
		zap.Duration("delay", delay),
		zap.Error(dispatchErr),
	)
	if nakErr := msg.NakWithDelay(delay); nakErr != nil {
		logger.Log.Error("Failed to NAK delivery", zap.Error(nakErr))
	}
}

// parseRelaySubject extracts platform and company from
// v1.webhooks.<platform>.<company_id>.
func parseRelaySubject(subject string) (model.Platform, string, error) {
	parts := strings.Split(subject, ".")
	if len(parts) != 4 || parts[0] != "v1" || parts[1] != "webhooks" {
		return "", "", fmt.Errorf("unexpected relay subject format: %s", subject)
	}
	platform, ok := model.ParsePlatform(parts[2])
	if !ok {
		return "", "", fmt.Errorf("unknown platform in relay subject: %s", parts[2])
	}
	if parts[3] == "" {
		return "", "", fmt.Errorf("empty company id in relay subject: %s", subject)
	}
	return platform, parts[3], nil
}

// Stop drains the subscription and releases the worker pool.
func (c *RelayConsumer) Stop() {
	if c.sub != nil {
		if err := c.sub.Drain(); err != nil {
			logger.Log.Warn("Failed to drain relay subscription", zap.Error(err))
		}
	}
	if c.pool != nil {
		c.pool.Release()
	}
	if c.nc != nil {
		c.nc.Close()
	}
	logger.Log.Info("Relay consumer stopped")
}
