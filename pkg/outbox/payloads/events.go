package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesOrderCompletedEvent is emitted once a sale has deducted its stock.
type SalesOrderCompletedEvent struct {
	SalesOrderID   uuid.UUID       `json:"sales_order_id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	OutletID       uuid.UUID       `json:"outlet_id"`
	OrderNo        string          `json:"order_no"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	ItemCount      int             `json:"item_count"`
	OrderedAt      time.Time       `json:"ordered_at"`
}

// PurchaseOrderReceivedEvent is emitted when a purchase order lands in stock.
type PurchaseOrderReceivedEvent struct {
	PurchaseOrderID uuid.UUID       `json:"purchase_order_id"`
	OrganizationID  uuid.UUID       `json:"organization_id"`
	OutletID        uuid.UUID       `json:"outlet_id"`
	SupplierID      uuid.UUID       `json:"supplier_id"`
	PONo            string          `json:"po_no"`
	ReceivedValue   decimal.Decimal `json:"received_value"`
	ReceivedBy      uuid.UUID       `json:"received_by"`
}

// StockRequestApprovedEvent tells the central kitchen what it must ship.
type StockRequestApprovedEvent struct {
	StockRequestID uuid.UUID          `json:"stock_request_id"`
	OrganizationID uuid.UUID          `json:"organization_id"`
	FromOutletID   uuid.UUID          `json:"from_outlet_id"`
	ToOutletID     uuid.UUID          `json:"to_outlet_id"`
	RequestNo      string             `json:"request_no"`
	Lines          []ApprovedLinePart `json:"lines"`
}

type ApprovedLinePart struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	RequestedQty decimal.Decimal `json:"requested_qty"`
	ApprovedQty  decimal.Decimal `json:"approved_qty"`
}

// StockTransferEvent covers both the shipped and received transitions.
type StockTransferEvent struct {
	StockTransferID uuid.UUID  `json:"stock_transfer_id"`
	OrganizationID  uuid.UUID  `json:"organization_id"`
	FromOutletID    uuid.UUID  `json:"from_outlet_id"`
	ToOutletID      uuid.UUID  `json:"to_outlet_id"`
	TransferNo      string     `json:"transfer_no"`
	StockRequestID  *uuid.UUID `json:"stock_request_id,omitempty"`
	Status          string     `json:"status"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

// LowStockDetectedEvent fires when a row crosses down through its reorder level.
type LowStockDetectedEvent struct {
	OrganizationID uuid.UUID       `json:"organization_id"`
	OutletID       uuid.UUID       `json:"outlet_id"`
	IngredientID   uuid.UUID       `json:"ingredient_id"`
	QtyOnHand      decimal.Decimal `json:"qty_on_hand"`
	MinQty         decimal.Decimal `json:"min_qty"`
	UnitID         uuid.UUID       `json:"unit_id"`
}

// LowStockDigestEvent summarises every row at or below its reorder level for
// one organization.
type LowStockDigestEvent struct {
	OrganizationID uuid.UUID            `json:"organization_id"`
	GeneratedAt    time.Time            `json:"generated_at"`
	Items          []LowStockDigestItem `json:"items"`
}

type LowStockDigestItem struct {
	OutletID       uuid.UUID       `json:"outlet_id"`
	OutletName     string          `json:"outlet_name"`
	IngredientID   uuid.UUID       `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	QtyOnHand      decimal.Decimal `json:"qty_on_hand"`
	MinQty         decimal.Decimal `json:"min_qty"`
	Shortage       decimal.Decimal `json:"shortage"`
}
