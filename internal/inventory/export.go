package inventory

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/pagination"
)

const (
	ledgerSheet     = "Ledger"
	maxExportedRows = 50000
)

var ledgerHeadings = []string{
	"Created At", "Outlet", "Ingredient", "Source Type", "Source ID",
	"Change Qty", "Unit", "Unit Cost", "Total Cost", "Remarks",
}

// ExportLedgerXLSX writes every ledger row matching filter, newest first, as
// a single-sheet workbook.
func (s *service) ExportLedgerXLSX(ctx context.Context, organizationID uuid.UUID, filter LedgerFilter, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "prepare ledger sheet")
	}
	for i, h := range ledgerHeadings {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ledgerSheet, cell, h); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write ledger heading")
		}
	}

	filter.Limit = pagination.MaxLimit
	filter.Cursor = ""
	rowNo := 2
	for rowNo-2 < maxExportedRows {
		page, err := s.ListLedger(ctx, organizationID, filter)
		if err != nil {
			return err
		}
		for _, row := range page.Items {
			if err := writeLedgerRow(f, rowNo, row); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write ledger row")
			}
			rowNo++
		}
		if page.NextCursor == "" {
			break
		}
		filter.Cursor = page.NextCursor
	}

	if err := f.Write(w); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write ledger workbook")
	}
	return nil
}

func writeLedgerRow(f *excelize.File, rowNo int, row LedgerView) error {
	sourceID := ""
	if row.SourceID != nil {
		sourceID = row.SourceID.String()
	}
	remarks := ""
	if row.Remarks != nil {
		remarks = *row.Remarks
	}
	values := []any{
		row.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		row.OutletName,
		row.IngredientName,
		string(row.SourceType),
		sourceID,
		row.ChangeQty.InexactFloat64(),
		row.UnitSymbol,
		nullFloat(row.UnitCost),
		nullFloat(row.TotalCost),
		remarks,
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(ledgerSheet, cell, &values)
}

func nullFloat(v decimal.NullDecimal) any {
	if !v.Valid {
		return ""
	}
	return v.Decimal.InexactFloat64()
}
