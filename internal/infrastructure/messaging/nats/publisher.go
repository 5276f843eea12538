package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dreschagin/seqpulse/pkg/logger"
	"github.com/nats-io/nats.go"
)

// NATSPublisher ships verdict-created events to JetStream so downstream
// consumers (chat bots, deploy dashboards) react without polling the API.
type NATSPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logger.Logger
}

func NewNATSPublisher(natsURL string, log *logger.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	log.Info("Connected to NATS", "url", natsURL)

	return &NATSPublisher{
		nc:     nc,
		js:     js,
		logger: log,
	}, nil
}

// PublishEvent publishes asynchronously. Verdict events are advisory; a lost
// event never fails the analysis job that produced it.
func (p *NATSPublisher) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = p.js.PublishAsync(subject, data)
	if err != nil {
		p.logger.Error("Failed to publish event", err,
			"subject", subject,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published",
		"subject", subject,
		"size", len(data),
	)

	return nil
}

func (p *NATSPublisher) Close() error {
	if p.nc != nil {
		p.logger.Info("Closing NATS connection")
		p.nc.Close()
	}
	return nil
}
