package xlsx

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
	"github.com/vsinha/stockalloc/pkg/infrastructure/repositories/csv"
	"github.com/xuri/excelize/v2"
)

// ErrMissingColumn is returned when a sheet lacks a required column
var ErrMissingColumn = csv.ErrMissingColumn

// ErrMissingSheet is returned when a workbook lacks a required sheet
var ErrMissingSheet = errors.New("missing sheet")

// Sheet and column names of the workbooks
const (
	BilledShipmentsSheet = "Amz fulfilled shipments"

	ColAmazonOrderID   = "Amazon Order Id"
	ColSKU             = "SKU"
	ColShippedQuantity = "Shipped Quantity"
	ColFC              = "FC"
	ColMOQ             = "MOQ"
	ColModiSKU         = "Modi SKU"

	ColStockModiSKU  = "MODI_ SKU"
	ColStockScancode = "Scancode"
	ColStockMRP      = "MRP"
	ColStock         = "Stock"
)

// StockSheet is the stock of one region read from the seed workbook
type StockSheet struct {
	Region  entities.Region
	Records []entities.StockRecord
	Skipped int
}

// Loader handles loading marketplace and stock data from Excel workbooks
type Loader struct{}

// NewLoader creates a new workbook loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadBilledShipments loads the shipments already billed in the sale &
// inventory report. Rows without a numeric quantity cannot match a shipment
// and are left out.
func (l *Loader) LoadBilledShipments(filename string) ([]entities.BilledShipment, error) {
	sheet, err := readSheet(filename, BilledShipmentsSheet)
	if err != nil {
		return nil, err
	}

	cols, err := sheet.Columns(ColAmazonOrderID, ColSKU, ColShippedQuantity, ColFC)
	if err != nil {
		return nil, fmt.Errorf("billed shipments %s: %w", filename, err)
	}

	billed := make([]entities.BilledShipment, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		qty := csv.ParseNullDecimal(csv.Cell(row, cols[2]))
		if !qty.Valid {
			continue
		}
		billed = append(billed, entities.BilledShipment{
			OrderID:         entities.OrderID(csv.Cell(row, cols[0])),
			SKU:             entities.SKU(csv.Cell(row, cols[1])),
			ShippedQuantity: qty.Decimal,
			FC:              csv.Cell(row, cols[3]),
		})
	}

	return billed, nil
}

// LoadViability loads the SKU to pack multiple mapping from the first sheet
func (l *Loader) LoadViability(filename string) ([]entities.ViabilityEntry, error) {
	sheet, err := readSheet(filename, "")
	if err != nil {
		return nil, err
	}

	cols, err := sheet.Columns(ColSKU, ColMOQ, ColModiSKU)
	if err != nil {
		return nil, fmt.Errorf("viability sheet %s: %w", filename, err)
	}

	entries := make([]entities.ViabilityEntry, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		entries = append(entries, entities.ViabilityEntry{
			SKU:     entities.SKU(csv.Cell(row, cols[0])),
			MOQ:     csv.ParseNullDecimal(csv.Cell(row, cols[1])),
			ModiSKU: csv.Cell(row, cols[2]),
		})
	}

	return entries, nil
}

// LoadStockWorkbook reads one "<Region> Data" sheet per region. Rows without
// a stock SKU or scancode are skipped and counted; a blank stock cell counts
// as zero.
func (l *Loader) LoadStockWorkbook(filename string, regions []entities.Region) ([]StockSheet, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", filename, err)
	}
	defer f.Close()

	sheets := make([]StockSheet, 0, len(regions))
	for _, region := range regions {
		sheet, err := readRows(f, region.StockSheet)
		if err != nil {
			return nil, fmt.Errorf("stock workbook %s: %w", filename, err)
		}

		cols, err := sheet.Columns(ColStockModiSKU, ColStockScancode, ColStockMRP, ColStock)
		if err != nil {
			return nil, fmt.Errorf("stock workbook %s, sheet %q: %w", filename, region.StockSheet, err)
		}

		result := StockSheet{Region: region}
		for i, row := range sheet.Rows {
			stock := decimal.Zero
			if raw := csv.Cell(row, cols[3]); raw != "" {
				parsed := csv.ParseNullDecimal(raw)
				if !parsed.Valid {
					return nil, fmt.Errorf("sheet %q row %d: invalid stock %q", region.StockSheet, i+2, raw)
				}
				stock = parsed.Decimal
			}

			record, err := entities.NewStockRecord(
				csv.Cell(row, cols[0]),
				entities.Barcode(csv.Cell(row, cols[1])),
				csv.ParseNullDecimal(csv.Cell(row, cols[2])),
				stock,
			)
			if err != nil {
				if stock.IsNegative() {
					return nil, fmt.Errorf("sheet %q row %d: %w", region.StockSheet, i+2, err)
				}
				result.Skipped++
				continue
			}
			result.Records = append(result.Records, *record)
		}
		sheets = append(sheets, result)
	}

	return sheets, nil
}

// readSheet opens the workbook and reads the named sheet, or the first sheet
// when name is empty
func readSheet(filename, name string) (*csv.Table, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", filename, err)
	}
	defer f.Close()

	if name == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: workbook %s has no sheets", ErrMissingSheet, filename)
		}
		name = list[0]
	}

	sheet, err := readRows(f, name)
	if err != nil {
		return nil, fmt.Errorf("workbook %s: %w", filename, err)
	}
	return sheet, nil
}

func readRows(f *excelize.File, name string) (*csv.Table, error) {
	if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingSheet, name)
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}
	return csv.NewTable(rows), nil
}
