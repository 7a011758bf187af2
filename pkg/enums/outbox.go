package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateSalesOrder    OutboxAggregateType = "sales_order"
	AggregatePurchaseOrder OutboxAggregateType = "purchase_order"
	AggregateStockRequest  OutboxAggregateType = "stock_request"
	AggregateStockTransfer OutboxAggregateType = "stock_transfer"
	AggregateStockLevel    OutboxAggregateType = "stock_level"
	AggregateOrganization  OutboxAggregateType = "organization"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateSalesOrder,
	AggregatePurchaseOrder,
	AggregateStockRequest,
	AggregateStockTransfer,
	AggregateStockLevel,
	AggregateOrganization,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventSalesOrderCompleted   OutboxEventType = "sales_order_completed"
	EventPurchaseOrderReceived OutboxEventType = "purchase_order_received"
	EventStockRequestApproved  OutboxEventType = "stock_request_approved"
	EventStockTransferShipped  OutboxEventType = "stock_transfer_shipped"
	EventStockTransferReceived OutboxEventType = "stock_transfer_received"
	EventLowStockDetected      OutboxEventType = "low_stock_detected"
	EventLowStockDigest        OutboxEventType = "low_stock_digest"
)

var validOutboxEventTypes = []OutboxEventType{
	EventSalesOrderCompleted,
	EventPurchaseOrderReceived,
	EventStockRequestApproved,
	EventStockTransferShipped,
	EventStockTransferReceived,
	EventLowStockDetected,
	EventLowStockDigest,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why an event left the outbox for the
// dead-letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

// IsValid reports whether the value matches the outbox_dlq_error_reason enum.
func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}

// ParseOutboxDLQErrorReason converts raw input into OutboxDLQErrorReason.
func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	reason := OutboxDLQErrorReason(value)
	if !reason.IsValid() {
		return "", fmt.Errorf("invalid dead-letter reason %q", value)
	}
	return reason, nil
}
