package enums

import "fmt"

// StockTransferStatus tracks goods moving between two outlets.
type StockTransferStatus string

const (
	StockTransferStatusDraft     StockTransferStatus = "DRAFT"
	StockTransferStatusShipped   StockTransferStatus = "SHIPPED"
	StockTransferStatusReceived  StockTransferStatus = "RECEIVED"
	StockTransferStatusCancelled StockTransferStatus = "CANCELLED"
)

var validStockTransferStatuses = []StockTransferStatus{
	StockTransferStatusDraft,
	StockTransferStatusShipped,
	StockTransferStatusReceived,
	StockTransferStatusCancelled,
}

// IsValid reports whether the value is a known StockTransferStatus.
func (s StockTransferStatus) IsValid() bool {
	for _, candidate := range validStockTransferStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockTransferStatus converts raw input into a StockTransferStatus.
func ParseStockTransferStatus(value string) (StockTransferStatus, error) {
	for _, candidate := range validStockTransferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock transfer status %q", value)
}
