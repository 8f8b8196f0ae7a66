package telegram

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/tankist/marketbot/internal/order"
)

const exportSheet = "Orders"

// BuildOrdersWorkbook renders order summaries into an xlsx workbook for the
// admin export command.
func BuildOrdersWorkbook(rows []order.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := []string{"ID", "User ID", "Username", "Product", "Status", "Created"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, err
		}
	}

	for r, row := range rows {
		values := []any{
			row.ID,
			row.UserID,
			row.Username,
			row.Category,
			row.Status,
			row.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}
