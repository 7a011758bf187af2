package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox/registry"
)

// attempt is the result of trying to publish one row.
type attempt struct {
	topic   string
	eventID string
	err     error
	// reason is set when the row must leave the queue.
	reason enums.OutboxDLQErrorReason
}

// deliver resolves and publishes one event without touching the database.
func (s *Service) deliver(ctx context.Context, event models.OutboxEvent) attempt {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return attempt{err: err, reason: enums.OutboxDLQReasonNonRetryable}
	}
	a := attempt{topic: resolved.Descriptor.Topic, eventID: resolved.Envelope.EventID}

	a.err = s.publish(ctx, event, a)
	var permanent registry.NonRetryableError
	switch {
	case a.err == nil:
	case errors.As(a.err, &permanent):
		a.reason = enums.OutboxDLQReasonNonRetryable
	case event.AttemptCount+1 >= s.maxAttempts:
		a.err = fmt.Errorf("max publish attempts reached: %w", a.err)
		a.reason = enums.OutboxDLQReasonMaxAttempts
	}
	return a
}

// settle records the attempt on the claimed row.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, a attempt) error {
	fields := s.eventFields(event, a)
	switch {
	case a.err == nil:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.IncPublished(string(event.EventType))
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")

	case a.reason != "":
		fields["error_reason"] = a.reason
		s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox event dead-lettered")
		msg := a.err.Error()
		if err := s.dlq.InsertTx(tx, models.OutboxDLQ{
			EventID:       event.ID,
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Payload:       event.Payload,
			ErrorReason:   a.reason,
			ErrorMessage:  &msg,
			AttemptCount:  event.AttemptCount + 1,
			FailedAt:      s.now().UTC(),
		}); err != nil {
			return fmt.Errorf("insert dlq %s: %w", event.ID, err)
		}
		if err := s.repo.MarkTerminalTx(tx, event.ID, a.err, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
		s.metrics.IncDeadLettered(string(a.reason))

	default:
		s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox publish failed")
		s.metrics.IncFailure(string(event.EventType))
		if err := s.repo.MarkFailedTx(tx, event.ID, a.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, a attempt) error {
	pub := s.publisherFactory(a.topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", a.topic))
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       a.eventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", a.topic))
	}
	_, err := result.Get(ctx)
	return err
}

func (s *Service) eventFields(event models.OutboxEvent, a attempt) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount + 1,
	}
	if a.eventID != "" {
		fields["event_id"] = a.eventID
	}
	if a.topic != "" {
		fields["topic"] = a.topic
	}
	if a.err != nil {
		fields["error"] = a.err.Error()
	}
	return fields
}

// gcpPublisher adapts the Pub/Sub publisher to the narrow interfaces above.
type gcpPublisher struct{ p *gcppubsub.Publisher }

func wrapPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return gcpPublisher{p: p}
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return gcpResult{r: g.p.Publish(ctx, msg)}
}

type gcpResult struct{ r *gcppubsub.PublishResult }

func (g gcpResult) Get(ctx context.Context) (string, error) {
	if g.r == nil {
		return "", errNilResult
	}
	return g.r.Get(ctx)
}
