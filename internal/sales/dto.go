package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
)

// CreateItemInput is one menu line of a sale.
type CreateItemInput struct {
	MenuID uuid.UUID `json:"menu_id" validate:"required"`
	Qty    int       `json:"qty" validate:"required,gt=0"`
	Notes  *string   `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// CreateOrderInput is a point-of-sale transaction at one outlet.
type CreateOrderInput struct {
	OutletID      uuid.UUID         `json:"outlet_id" validate:"required"`
	PaymentMethod *string           `json:"payment_method,omitempty" validate:"omitempty,max=50"`
	CustomerName  *string           `json:"customer_name,omitempty" validate:"omitempty,max=255"`
	Notes         *string           `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Items         []CreateItemInput `json:"items" validate:"required,min=1,dive"`
}

// ListFilter narrows the order list.
type ListFilter struct {
	OutletID *uuid.UUID
	Limit    int
	Cursor   string
}

// OrderPage is one page of orders, newest first.
type OrderPage struct {
	Items      []models.SalesOrder `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

// ReportFilter bounds a sales report. Only the calendar dates of From and
// To are used; both days are included.
type ReportFilter struct {
	OutletID *uuid.UUID
	From     *time.Time
	To       *time.Time
}

// ReportLine is one sold menu line joined with its order and menu.
type ReportLine struct {
	OrderID         uuid.UUID       `gorm:"column:order_id"`
	OrderTotal      decimal.Decimal `gorm:"column:order_total"`
	MenuID          uuid.UUID       `gorm:"column:menu_id"`
	MenuName        string          `gorm:"column:menu_name"`
	Category        *string         `gorm:"column:category"`
	Qty             int             `gorm:"column:qty"`
	PriceAtThatTime decimal.Decimal `gorm:"column:price_at_that_time"`
	HPPAtThatTime   decimal.Decimal `gorm:"column:hpp_at_that_time"`
	TotalItemAmount decimal.Decimal `gorm:"column:total_item_amount"`
}

// MenuPerformance is one menu's row of the menu-engineering report.
type MenuPerformance struct {
	MenuID             uuid.UUID       `json:"menu_id"`
	MenuName           string          `json:"menu_name"`
	Category           *string         `json:"category,omitempty"`
	TotalQtySold       int             `json:"total_qty_sold"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	AvgPrice           decimal.Decimal `json:"avg_price"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	TotalProfit        decimal.Decimal `json:"total_profit"`
	ProfitMargin       decimal.Decimal `json:"profit_margin"`
	PopularityScore    decimal.Decimal `json:"popularity_score"`
	ProfitabilityScore decimal.Decimal `json:"profitability_score"`
	Classification     enums.MenuClass `json:"classification"`
}

// MenuEngineeringReport classifies every menu sold in the window.
type MenuEngineeringReport struct {
	From  string            `json:"from"`
	To    string            `json:"to"`
	Items []MenuPerformance `json:"items"`
}

// DailyTotals summarizes the orders of one business day.
type DailyTotals struct {
	TotalTransactions int             `json:"total_transactions"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AvgTransaction    decimal.Decimal `json:"avg_transaction"`
	MaxTransaction    decimal.Decimal `json:"max_transaction"`
	MinTransaction    decimal.Decimal `json:"min_transaction"`
}

// TopSeller is a menu ranked by quantity sold.
type TopSeller struct {
	MenuID       uuid.UUID       `json:"menu_id"`
	MenuName     string          `json:"menu_name"`
	TotalQtySold int             `json:"total_qty_sold"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// DailySummary is the sales summary of one business day.
type DailySummary struct {
	Date            string      `json:"date"`
	Summary         DailyTotals `json:"summary"`
	TopSellingItems []TopSeller `json:"top_selling_items"`
}
