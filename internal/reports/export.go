package reports

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the media type of exported workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const sheet = "Sheet1"

// CashFlowXLSX writes one row per day with the running balance.
func CashFlowXLSX(rows []CashFlowDay) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := header(f, "Data", "Entradas", "Saídas", "Saldo"); err != nil {
		return nil, err
	}
	for i, row := range rows {
		cells := []any{
			row.Date.Format("02/01/2006"),
			row.Inflows.InexactFloat64(),
			row.Outflows.InexactFloat64(),
			row.Inflows.Sub(row.Outflows).InexactFloat64(),
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &cells); err != nil {
			return nil, err
		}
	}
	return write(f)
}

// PayablesXLSX writes the accounts payable list.
func PayablesXLSX(rows []Payable) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := header(f, "Tipo", "Descrição", "Vencimento", "Valor"); err != nil {
		return nil, err
	}
	for i, row := range rows {
		due := ""
		if !row.DueDate.IsZero() {
			due = row.DueDate.Format("02/01/2006")
		}
		cells := []any{string(row.Kind), row.Description, due, row.Amount.InexactFloat64()}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &cells); err != nil {
			return nil, err
		}
	}
	return write(f)
}

func header(f *excelize.File, titles ...string) error {
	cells := make([]any, len(titles))
	for i, t := range titles {
		cells[i] = t
	}
	return f.SetSheetRow(sheet, "A1", &cells)
}

func write(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("reports: write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
