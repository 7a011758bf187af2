package enums

import "fmt"

// DocumentType identifies a numbered transactional document.
type DocumentType string

const (
	DocumentSalesOrder    DocumentType = "SALES_ORDER"
	DocumentPurchaseOrder DocumentType = "PURCHASE_ORDER"
	DocumentStockRequest  DocumentType = "STOCK_REQUEST"
	DocumentStockTransfer DocumentType = "STOCK_TRANSFER"
)

var validDocumentTypes = []DocumentType{
	DocumentSalesOrder,
	DocumentPurchaseOrder,
	DocumentStockRequest,
	DocumentStockTransfer,
}

// String implements fmt.Stringer.
func (d DocumentType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DocumentType.
func (d DocumentType) IsValid() bool {
	for _, candidate := range validDocumentTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDocumentType converts raw input into a DocumentType.
func ParseDocumentType(value string) (DocumentType, error) {
	for _, candidate := range validDocumentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document type %q", value)
}

// Prefix returns the fixed reference-number prefix. Sales orders are prefixed
// with the outlet code instead and return an empty string here.
func (d DocumentType) Prefix() string {
	switch d {
	case DocumentPurchaseOrder:
		return "PO"
	case DocumentStockRequest:
		return "SR"
	case DocumentStockTransfer:
		return "ST"
	default:
		return ""
	}
}
