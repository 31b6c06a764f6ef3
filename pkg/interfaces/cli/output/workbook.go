package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockalloc/pkg/application/dto"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the output workbook besides the region sheets
const (
	ShipmentsSheet = "Today's FBA Shipments"
	ErrorsSheet    = "Errors"
)

var shipmentHeaders = []string{
	"Amazon Order Id",
	"Merchant SKU",
	"Shipped Quantity",
	"FC",
	"MOQ",
	"Modi SKU",
	"Ship To State",
	"NetAmt",
	"code1",
	"code2",
}

var reportHeaders = append(append([]string{}, shipmentHeaders...),
	"Scancode",
	"MRP",
	"Allocated Qty",
	"MRP*Quantity",
	"Discount",
)

var errorHeaders = append(append([]string{}, reportHeaders...), "Error Reasons")

// WriteWorkbook saves the shipment table, the clean lines of every region and
// the combined errors to one workbook. It returns the sheet names in order.
func WriteWorkbook(report *dto.Report, path string) ([]string, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	w := &sheetWriter{file: f, headerStyle: headerStyle}

	shipmentRows := make([][]interface{}, len(report.Shipments))
	for i, shipment := range report.Shipments {
		shipmentRows[i] = shipmentRow(shipment)
	}
	w.write(ShipmentsSheet, shipmentHeaders, shipmentRows)

	for _, region := range report.Regions {
		rows := make([][]interface{}, len(region.Clean))
		for i, line := range region.Clean {
			rows[i] = reportRow(line)
		}
		w.write(region.Region.SheetName, reportHeaders, rows)
	}

	errorRows := make([][]interface{}, len(report.Errors))
	for i, line := range report.Errors {
		errorRows[i] = append(reportRow(line), joinReasons(line.ErrorReasons))
	}
	w.write(ErrorsSheet, errorHeaders, errorRows)

	if w.err != nil {
		return nil, w.err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("failed to save workbook %s: %w", path, err)
	}

	return w.sheets, nil
}

// sheetWriter keeps the first error so sheets can be written without
// checking after every call
type sheetWriter struct {
	file        *excelize.File
	headerStyle int
	sheets      []string
	err         error
}

func (w *sheetWriter) write(name string, headers []string, rows [][]interface{}) {
	if w.err != nil {
		return
	}

	if _, err := w.file.NewSheet(name); err != nil {
		w.err = fmt.Errorf("failed to create sheet %q: %w", name, err)
		return
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := w.file.SetSheetRow(name, "A1", &header); err != nil {
		w.err = fmt.Errorf("failed to write header of %q: %w", name, err)
		return
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := w.file.SetCellStyle(name, "A1", lastCol+"1", w.headerStyle); err != nil {
		w.err = fmt.Errorf("failed to style header of %q: %w", name, err)
		return
	}
	if err := w.file.SetColWidth(name, "A", lastCol, 18); err != nil {
		w.err = fmt.Errorf("failed to size columns of %q: %w", name, err)
		return
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := w.file.SetSheetRow(name, cell, &row); err != nil {
			w.err = fmt.Errorf("failed to write row %d of %q: %w", i+2, name, err)
			return
		}
	}

	w.sheets = append(w.sheets, name)
}

func shipmentRow(s entities.Shipment) []interface{} {
	return []interface{}{
		string(s.OrderID),
		string(s.SKU),
		number(s.ShippedQuantity),
		s.FC,
		number(s.MOQ),
		s.ModiSKU,
		s.ShipToState,
		number(s.NetAmount),
		s.LedgerName,
		s.LedgerCode,
	}
}

func reportRow(line entities.ReportLine) []interface{} {
	return []interface{}{
		string(line.OrderID),
		string(line.SKU),
		line.RequiredQuantity.InexactFloat64(),
		line.FC,
		number(line.MOQ),
		line.ModiSKU,
		line.ShipToState,
		number(line.NetAmount),
		line.LedgerName,
		line.LedgerCode,
		string(line.Barcode),
		number(line.MRP),
		number(line.Allocated),
		number(line.MRPTotal),
		number(line.Discount),
	}
}

// number renders a missing value as an empty cell
func number(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

func joinReasons(reasons []entities.ErrorReason) string {
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, "; ")
}
