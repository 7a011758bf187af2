// Package registry maps outbox event types to their topic and payload schema
// and decodes stored rows before they are published.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/kitchenledger-backend/pkg/config"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that can never publish; the dispatcher
// dead-letters it instead of retrying.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func nonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// topicClass splits events between the stock-movement stream and the
// document lifecycle stream.
type topicClass int

const (
	documentsStream topicClass = iota
	inventoryStream
)

type schema struct {
	event     enums.OutboxEventType
	aggregate enums.OutboxAggregateType
	stream    topicClass
	payload   func() any
}

func typed[T any]() func() any {
	return func() any { return new(T) }
}

var schemas = []schema{
	{enums.EventSalesOrderCompleted, enums.AggregateSalesOrder, documentsStream, typed[payloads.SalesOrderCompletedEvent]()},
	{enums.EventPurchaseOrderReceived, enums.AggregatePurchaseOrder, documentsStream, typed[payloads.PurchaseOrderReceivedEvent]()},
	{enums.EventStockRequestApproved, enums.AggregateStockRequest, documentsStream, typed[payloads.StockRequestApprovedEvent]()},
	{enums.EventStockTransferShipped, enums.AggregateStockTransfer, documentsStream, typed[payloads.StockTransferEvent]()},
	{enums.EventStockTransferReceived, enums.AggregateStockTransfer, documentsStream, typed[payloads.StockTransferEvent]()},
	{enums.EventLowStockDetected, enums.AggregateStockLevel, inventoryStream, typed[payloads.LowStockDetectedEvent]()},
	{enums.EventLowStockDigest, enums.AggregateOrganization, inventoryStream, typed[payloads.LowStockDigestEvent]()},
}

// EventRegistry is immutable after construction and safe for concurrent use.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topics := map[topicClass]string{
		documentsStream: cfg.DocumentsTopic,
		inventoryStream: cfg.InventoryTopic,
	}
	var errs []error
	if cfg.InventoryTopic == "" {
		errs = append(errs, errors.New("inventory topic is required"))
	}
	if cfg.DocumentsTopic == "" {
		errs = append(errs, errors.New("documents topic is required"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	entries := make(map[enums.OutboxEventType]EventDescriptor, len(schemas))
	for _, s := range schemas {
		entries[s.event] = EventDescriptor{
			EventType:      s.event,
			AggregateType:  s.aggregate,
			Topic:          topics[s.stream],
			PayloadFactory: s.payload,
		}
	}
	return &EventRegistry{entries: entries}, nil
}

// Resolve checks the row against its descriptor and decodes the typed
// payload. Every failure is non-retryable: the row will not change.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, nonRetryable("decode envelope: %w", err)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nonRetryable("payload missing for %s", event.EventType)
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
