package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kitchenledger-backend/pkg/config"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		InventoryTopic: "inventory-topic",
		DocumentsTopic: "documents-topic",
	})
	require.NoError(t, err)
	return reg
}

func envelopeOf(t *testing.T, data any) json.RawMessage {
	t.Helper()
	raw, ok := data.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(data)
		require.NoError(t, err)
	}
	out, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.CurrentEnvelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return out
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg := testRegistry(t)
	orderID := uuid.New()

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventSalesOrderCompleted,
		AggregateType: enums.AggregateSalesOrder,
		AggregateID:   orderID,
		Payload: envelopeOf(t, payloads.SalesOrderCompletedEvent{
			SalesOrderID:   orderID,
			OrganizationID: uuid.New(),
			OutletID:       uuid.New(),
			OrderNo:        "JKT01-20260115-0001",
			ItemCount:      2,
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, "documents-topic", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	payload, ok := resolved.Payload.(*payloads.SalesOrderCompletedEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, orderID, payload.SalesOrderID)
	assert.Equal(t, 2, payload.ItemCount)
}

func TestResolveRoutesLowStockToInventoryTopic(t *testing.T) {
	resolved, err := testRegistry(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventLowStockDetected,
		AggregateType: enums.AggregateStockLevel,
		AggregateID:   uuid.New(),
		Payload: envelopeOf(t, payloads.LowStockDetectedEvent{
			OrganizationID: uuid.New(),
			OutletID:       uuid.New(),
			IngredientID:   uuid.New(),
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "inventory-topic", resolved.Descriptor.Topic)
}

func TestResolveRejectsBadRows(t *testing.T) {
	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     enums.OutboxEventType("ingredient_renamed"),
			AggregateType: enums.AggregateStockLevel,
			AggregateID:   uuid.New(),
		},
		"aggregate mismatch": {
			EventType:     enums.EventLowStockDetected,
			AggregateType: enums.AggregateSalesOrder,
			AggregateID:   uuid.New(),
		},
		"missing aggregate id": {
			EventType:     enums.EventStockTransferShipped,
			AggregateType: enums.AggregateStockTransfer,
		},
		"null payload": {
			EventType:     enums.EventLowStockDigest,
			AggregateType: enums.AggregateOrganization,
			AggregateID:   uuid.New(),
		},
	}
	reg := testRegistry(t)
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			event.Payload = envelopeOf(t, []byte("null"))
			_, err := reg.Resolve(event)
			var nonRetry NonRetryableError
			assert.True(t, errors.As(err, &nonRetry), "got %v", err)
		})
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{DocumentsTopic: "docs"})
	assert.ErrorContains(t, err, "inventory topic")
	_, err = NewEventRegistry(config.PubSubConfig{InventoryTopic: "inv"})
	assert.ErrorContains(t, err, "documents topic")
}
