package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/feral-file/ff-vesting/internal/adapter"
	"github.com/feral-file/ff-vesting/internal/domain"
	"github.com/feral-file/ff-vesting/internal/logger"
	"github.com/feral-file/ff-vesting/internal/messaging"
)

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	PublishTimeout time.Duration
}

type publisher struct {
	nc             adapter.NatsConn
	js             adapter.JetStream
	streamName     string
	json           adapter.JSON
	publishTimeout time.Duration
}

// NewPublisher creates a new NATS JetStream publisher
func NewPublisher(cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	publishTimeout := cfg.PublishTimeout
	if publishTimeout == 0 {
		publishTimeout = 10 * time.Second
	}

	return &publisher{
		nc:             nc,
		js:             js,
		streamName:     cfg.StreamName,
		json:           jsonAdapter,
		publishTimeout: publishTimeout,
	}, nil
}

// PublishEvent publishes a vesting event to NATS JetStream. Transient publish
// failures are retried with exponential backoff up to the publish timeout.
func (p *publisher) PublishEvent(ctx context.Context, event *domain.VestingEvent) error {
	if !event.Valid() {
		return fmt.Errorf("%w: invalid event", domain.ErrInvalidArgument)
	}

	logger.Debug("Publishing NATS event", zap.Any("event", event))

	data, err := p.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := p.buildSubject(event)

	operation := func() error {
		_, err := p.js.Publish(ctx, subject, data)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = p.publishTimeout
	// The first retry must fit inside the publish budget, so the initial
	// interval scales with the timeout instead of the library default
	b.InitialInterval = p.publishTimeout / 20
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// buildSubject constructs the NATS subject based on the event
func (p *publisher) buildSubject(event *domain.VestingEvent) string {
	// Format: vesting.{event_type}
	// e.g., vesting.schedule_created, vesting.tokens_released
	return fmt.Sprintf("vesting.%s", event.Type)
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}

	p.nc.Close()
}
