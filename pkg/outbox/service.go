package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
)

// DomainEvent is what services hand to Emit; Data is marshalled into the
// envelope's data field.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

type Service struct {
	repo  *Repository
	dlq   *DLQRepository
	logg  *logger.Logger
	now   func() time.Time
	newID func() uuid.UUID
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, dlq: NewDLQRepository(repo.db), logg: logg, now: time.Now, newID: uuid.New}
}

// Emit queues event on tx. The row becomes visible to the publisher only when
// tx commits.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	if err := validateEvent(event); err != nil {
		return err
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal %s data: %w", event.EventType, err)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	if event.Version <= 0 {
		event.Version = CurrentEnvelopeVersion
	}

	id := s.newID()
	payload, err := json.Marshal(PayloadEnvelope{
		Version:    event.Version,
		EventID:    id.String(),
		OccurredAt: event.OccurredAt.UTC(),
		Actor:      event.Actor,
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	row := &models.OutboxEvent{
		ID:            id,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
		CreatedAt:     event.OccurredAt.UTC(),
	}
	if err := s.repo.Insert(tx.WithContext(ctx), row); err != nil {
		return err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_id":       id.String(),
			"event_type":     event.EventType,
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID.String(),
		})
		s.logg.Info(logCtx, "outbox event queued")
	}
	return nil
}

// Requeue moves a dead-lettered event back into the publish queue.
func (s *Service) Requeue(ctx context.Context, tx *gorm.DB, eventID uuid.UUID) error {
	if tx == nil {
		return errTxRequired
	}
	tx = tx.WithContext(ctx)
	removed, err := s.dlq.DeleteTx(tx, eventID)
	if err != nil {
		return fmt.Errorf("delete dlq %s: %w", eventID, err)
	}
	if !removed {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "event %s is not dead-lettered", eventID)
	}
	reset, err := s.repo.ResetAttemptsTx(tx, eventID)
	if err != nil {
		return fmt.Errorf("reset attempts %s: %w", eventID, err)
	}
	if !reset {
		return pkgerrors.Newf(pkgerrors.CodeConflict, "event %s was already published or purged", eventID)
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "event_id", eventID.String()), "outbox event requeued")
	}
	return nil
}

func validateEvent(event DomainEvent) error {
	switch {
	case !event.EventType.IsValid():
		return fmt.Errorf("invalid event type %q", event.EventType)
	case !event.AggregateType.IsValid():
		return fmt.Errorf("invalid aggregate type %q", event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return errors.New("aggregate id is required")
	}
	return nil
}
