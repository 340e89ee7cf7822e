package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing events to NATS
// JetStream. A nil Publisher is valid and publishes nothing, so callers
// don't need to branch on whether NATS is configured.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishSearchPerformed publishes a committed search event.
func (p *Publisher) PublishSearchPerformed(ctx context.Context, event SearchPerformed) error {
	return p.publish(ctx, SubjectSearchPerformed, event)
}

// PublishQuotaExceeded publishes a quota rejection event.
func (p *Publisher) PublishQuotaExceeded(ctx context.Context, event QuotaExceeded) error {
	return p.publish(ctx, SubjectQuotaExceeded, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
