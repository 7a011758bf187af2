package sales

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
)

const (
	dayLayout           = "2006-01-02"
	defaultReportWindow = 30
	topSellerLimit      = 10
)

// Reports derives sales analytics from the frozen cost snapshots, so a
// recipe or cost change after the sale never moves a past result.
type Reports interface {
	MenuEngineering(ctx context.Context, organizationID uuid.UUID, filter ReportFilter) (*MenuEngineeringReport, error)
	DailySummary(ctx context.Context, organizationID uuid.UUID, outletID *uuid.UUID, day *time.Time) (*DailySummary, error)
}

type reports struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// NewReports binds the sales reports to the business timezone used for
// day boundaries.
func NewReports(repo Repository, loc *time.Location) (Reports, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &reports{repo: repo, loc: loc, now: time.Now}, nil
}

// MenuEngineering scores each menu's popularity (quantity sold against the
// average menu) and profitability (margin against the average margin).
// A score of exactly 1 counts as above average. The window defaults to the
// 30 days ending today.
func (r *reports) MenuEngineering(ctx context.Context, organizationID uuid.UUID, filter ReportFilter) (*MenuEngineeringReport, error) {
	to := r.today()
	if filter.To != nil {
		to = r.civilDay(*filter.To)
	}
	from := to.AddDate(0, 0, -defaultReportWindow)
	if filter.From != nil {
		from = r.civilDay(*filter.From)
	}
	if from.After(to) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start_date must not be after end_date").
			WithDetails(map[string]any{"start_date": from.Format(dayLayout), "end_date": to.Format(dayLayout)})
	}

	lines, err := r.repo.ReportLines(ctx, organizationID, filter.OutletID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales lines")
	}

	return &MenuEngineeringReport{
		From:  from.Format(dayLayout),
		To:    to.Format(dayLayout),
		Items: classifyMenus(lines),
	}, nil
}

type menuTotals struct {
	row      MenuPerformance
	priceSum decimal.Decimal
	lines    int64
	margin   decimal.Decimal
}

func classifyMenus(lines []ReportLine) []MenuPerformance {
	byMenu := map[uuid.UUID]*menuTotals{}
	var order []uuid.UUID
	for _, line := range lines {
		t, ok := byMenu[line.MenuID]
		if !ok {
			t = &menuTotals{row: MenuPerformance{MenuID: line.MenuID, MenuName: line.MenuName, Category: line.Category}}
			byMenu[line.MenuID] = t
			order = append(order, line.MenuID)
		}
		qty := decimal.NewFromInt(int64(line.Qty))
		t.row.TotalQtySold += line.Qty
		t.row.TotalRevenue = t.row.TotalRevenue.Add(line.TotalItemAmount)
		t.row.TotalCost = t.row.TotalCost.Add(line.HPPAtThatTime.Mul(qty))
		t.priceSum = t.priceSum.Add(line.PriceAtThatTime)
		t.lines++
	}
	if len(order) == 0 {
		return []MenuPerformance{}
	}

	menus := decimal.NewFromInt(int64(len(order)))
	var totalQty int64
	marginSum := decimal.Zero
	for _, id := range order {
		t := byMenu[id]
		t.row.TotalProfit = t.row.TotalRevenue.Sub(t.row.TotalCost)
		if t.row.TotalRevenue.IsPositive() {
			t.margin = t.row.TotalProfit.Div(t.row.TotalRevenue).Mul(decimal.NewFromInt(100))
		}
		totalQty += int64(t.row.TotalQtySold)
		marginSum = marginSum.Add(t.margin)
	}

	out := make([]MenuPerformance, 0, len(order))
	for _, id := range order {
		t := byMenu[id]
		row := t.row
		qty := decimal.NewFromInt(int64(row.TotalQtySold))

		// qty / (totalQty/menus) >= 1, kept in integers to avoid rounding at
		// the boundary.
		popular := false
		if totalQty > 0 {
			row.PopularityScore = qty.Mul(menus).Div(decimal.NewFromInt(totalQty)).Round(4)
			popular = qty.Mul(menus).GreaterThanOrEqual(decimal.NewFromInt(totalQty))
		}
		profitable := false
		if marginSum.IsPositive() {
			row.ProfitabilityScore = t.margin.Mul(menus).Div(marginSum).Round(4)
			profitable = t.margin.Mul(menus).GreaterThanOrEqual(marginSum)
		}

		row.AvgPrice = t.priceSum.Div(decimal.NewFromInt(t.lines)).Round(2)
		row.ProfitMargin = t.margin.Round(2)
		row.Classification = enums.ClassifyMenu(popular, profitable)
		out = append(out, row)
	}

	slices.SortStableFunc(out, func(a, b MenuPerformance) int {
		if c := cmp.Compare(b.TotalQtySold, a.TotalQtySold); c != 0 {
			return c
		}
		return cmp.Compare(a.MenuName, b.MenuName)
	})
	return out
}

// DailySummary totals the orders of one business day (today by default)
// and ranks its ten best-selling menus by quantity.
func (r *reports) DailySummary(ctx context.Context, organizationID uuid.UUID, outletID *uuid.UUID, day *time.Time) (*DailySummary, error) {
	start := r.today()
	if day != nil {
		start = r.civilDay(*day)
	}

	lines, err := r.repo.ReportLines(ctx, organizationID, outletID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales lines")
	}

	summary := &DailySummary{Date: start.Format(dayLayout), TopSellingItems: []TopSeller{}}
	seen := map[uuid.UUID]struct{}{}
	sellers := map[uuid.UUID]*TopSeller{}
	totals := &summary.Summary
	for _, line := range lines {
		if _, ok := seen[line.OrderID]; !ok {
			seen[line.OrderID] = struct{}{}
			if totals.TotalTransactions == 0 || line.OrderTotal.GreaterThan(totals.MaxTransaction) {
				totals.MaxTransaction = line.OrderTotal
			}
			if totals.TotalTransactions == 0 || line.OrderTotal.LessThan(totals.MinTransaction) {
				totals.MinTransaction = line.OrderTotal
			}
			totals.TotalTransactions++
			totals.TotalRevenue = totals.TotalRevenue.Add(line.OrderTotal)
		}

		seller, ok := sellers[line.MenuID]
		if !ok {
			seller = &TopSeller{MenuID: line.MenuID, MenuName: line.MenuName}
			sellers[line.MenuID] = seller
		}
		seller.TotalQtySold += line.Qty
		seller.TotalRevenue = seller.TotalRevenue.Add(line.TotalItemAmount)
	}
	if totals.TotalTransactions > 0 {
		totals.AvgTransaction = totals.TotalRevenue.Div(decimal.NewFromInt(int64(totals.TotalTransactions))).Round(2)
	}

	for _, seller := range sellers {
		summary.TopSellingItems = append(summary.TopSellingItems, *seller)
	}
	slices.SortFunc(summary.TopSellingItems, func(a, b TopSeller) int {
		if c := cmp.Compare(b.TotalQtySold, a.TotalQtySold); c != 0 {
			return c
		}
		return cmp.Compare(a.MenuName, b.MenuName)
	})
	if len(summary.TopSellingItems) > topSellerLimit {
		summary.TopSellingItems = summary.TopSellingItems[:topSellerLimit]
	}
	return summary, nil
}

func (r *reports) today() time.Time {
	return r.civilDay(r.now().In(r.loc))
}

// civilDay is midnight in the business timezone of the calendar date t
// carries, whatever t's own location.
func (r *reports) civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, r.loc)
}
