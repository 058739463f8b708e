package billing

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/hitoshi/agencytime/internal/model"
)

// XLSXContentType はWriteXLSXが出力するファイルのMIMEタイプ。
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var summaryHeaders = []string{"CustomerID", "Month", "TotalHours", "HourlyFee", "TotalCost"}

// WriteXLSX は月次集計を1シートのXLSXとしてwに書き出す。
func WriteXLSX(w io.Writer, customerID int64, rows []model.MonthlySummary) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := file.GetSheetName(0)
	for col, header := range summaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("set excel header %s: %w", cell, err)
		}
	}

	for i, summary := range rows {
		row := i + 2
		values := []any{
			customerID,
			summary.Month.UTC().Format("2006-01"),
			summary.TotalHours,
			summary.HourlyFee,
			summary.TotalCost,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("set excel value %s: %w", cell, err)
			}
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write excel output: %w", err)
	}
	return nil
}

// XLSXFilename はダウンロード用のファイル名を返す。
func XLSXFilename(customerID int64) string {
	return fmt.Sprintf("customer-%d-monthly-summary.xlsx", customerID)
}
