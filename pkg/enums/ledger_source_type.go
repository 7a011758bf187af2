package enums

import "fmt"

// LedgerSourceType names the cause of an inventory ledger movement.
type LedgerSourceType string

const (
	LedgerSourcePurchase    LedgerSourceType = "PURCHASE"
	LedgerSourceSale        LedgerSourceType = "SALE"
	LedgerSourceAdjustment  LedgerSourceType = "ADJUSTMENT"
	LedgerSourceTransferIn  LedgerSourceType = "TRANSFER_IN"
	LedgerSourceTransferOut LedgerSourceType = "TRANSFER_OUT"
)

var validLedgerSourceTypes = []LedgerSourceType{
	LedgerSourcePurchase,
	LedgerSourceSale,
	LedgerSourceAdjustment,
	LedgerSourceTransferIn,
	LedgerSourceTransferOut,
}

// String implements fmt.Stringer.
func (l LedgerSourceType) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LedgerSourceType.
func (l LedgerSourceType) IsValid() bool {
	for _, candidate := range validLedgerSourceTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLedgerSourceType converts raw input into a LedgerSourceType.
func ParseLedgerSourceType(value string) (LedgerSourceType, error) {
	for _, candidate := range validLedgerSourceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger source type %q", value)
}

// IsInflow reports whether the source type adds stock at the posting outlet.
func (l LedgerSourceType) IsInflow() bool {
	return l == LedgerSourcePurchase || l == LedgerSourceTransferIn
}
