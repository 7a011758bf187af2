package enums

import "fmt"

// StockRequestStatus tracks an outlet's replenishment request to the central kitchen.
type StockRequestStatus string

const (
	StockRequestStatusPending   StockRequestStatus = "PENDING"
	StockRequestStatusApproved  StockRequestStatus = "APPROVED"
	StockRequestStatusRejected  StockRequestStatus = "REJECTED"
	StockRequestStatusFulfilled StockRequestStatus = "FULFILLED"
	StockRequestStatusCancelled StockRequestStatus = "CANCELLED"
)

var validStockRequestStatuses = []StockRequestStatus{
	StockRequestStatusPending,
	StockRequestStatusApproved,
	StockRequestStatusRejected,
	StockRequestStatusFulfilled,
	StockRequestStatusCancelled,
}

// IsValid reports whether the value is a known StockRequestStatus.
func (s StockRequestStatus) IsValid() bool {
	for _, candidate := range validStockRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockRequestStatus converts raw input into a StockRequestStatus.
func ParseStockRequestStatus(value string) (StockRequestStatus, error) {
	for _, candidate := range validStockRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock request status %q", value)
}
