package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
)

// ErrMissingColumn is returned when a report lacks a required column
var ErrMissingColumn = errors.New("missing column")

// Column names of the marketplace reports
const (
	ColAmazonOrderID   = "Amazon Order Id"
	ColMerchantSKU     = "Merchant SKU"
	ColShippedQuantity = "Shipped Quantity"
	ColFC              = "FC"

	ColOrderID     = "Order Id"
	ColShipToState = "Ship To State"
	ColBillToState = "Bill To State"

	ColOrdersOrderID       = "amazon-order-id"
	ColOrdersSKU           = "sku"
	ColOrdersItemStatus    = "item-status"
	ColOrdersItemPrice     = "item-price"
	ColOrdersShippingPrice = "shipping-price"
	ColOrdersGiftWrapPrice = "gift-wrap-price"
	ColOrdersItemPromotion = "item-promotion-discount"
	ColOrdersShipPromotion = "ship-promotion-discount"
)

// Loader handles loading marketplace reports from delimited text files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadShipments loads the FBA shipments report
func (l *Loader) LoadShipments(filename string) ([]entities.Shipment, error) {
	table, err := readTable(filename, ',')
	if err != nil {
		return nil, fmt.Errorf("failed to read shipments file: %w", err)
	}

	cols, err := table.Columns(ColAmazonOrderID, ColMerchantSKU, ColShippedQuantity, ColFC)
	if err != nil {
		return nil, fmt.Errorf("shipments file %s: %w", filename, err)
	}

	shipments := make([]entities.Shipment, 0, len(table.Rows))
	for _, row := range table.Rows {
		shipments = append(shipments, entities.Shipment{
			OrderID:         entities.OrderID(Cell(row, cols[0])),
			SKU:             entities.SKU(Cell(row, cols[1])),
			ShippedQuantity: ParseNullDecimal(Cell(row, cols[2])),
			FC:              Cell(row, cols[3]),
		})
	}

	return shipments, nil
}

// LoadStates loads order id to state pairs from a GST MTR report. column
// names the state column to read (Ship To State for B2C, Bill To State for B2B).
func (l *Loader) LoadStates(filename, column string) ([]entities.StateEntry, error) {
	table, err := readTable(filename, ',')
	if err != nil {
		return nil, fmt.Errorf("failed to read GST report: %w", err)
	}

	cols, err := table.Columns(ColOrderID, column)
	if err != nil {
		return nil, fmt.Errorf("GST report %s: %w", filename, err)
	}

	states := make([]entities.StateEntry, 0, len(table.Rows))
	for _, row := range table.Rows {
		states = append(states, entities.StateEntry{
			OrderID: entities.OrderID(Cell(row, cols[0])),
			State:   Cell(row, cols[1]),
		})
	}

	return states, nil
}

// LoadOrders loads the tab separated All Orders report. Non-numeric price
// cells count as zero.
func (l *Loader) LoadOrders(filename string) ([]entities.OrderLine, error) {
	table, err := readTable(filename, '\t')
	if err != nil {
		return nil, fmt.Errorf("failed to read orders file: %w", err)
	}

	cols, err := table.Columns(
		ColOrdersOrderID,
		ColOrdersSKU,
		ColOrdersItemStatus,
		ColOrdersItemPrice,
		ColOrdersShippingPrice,
		ColOrdersGiftWrapPrice,
		ColOrdersItemPromotion,
		ColOrdersShipPromotion,
	)
	if err != nil {
		return nil, fmt.Errorf("orders file %s: %w", filename, err)
	}

	orders := make([]entities.OrderLine, 0, len(table.Rows))
	for _, row := range table.Rows {
		orders = append(orders, entities.OrderLine{
			OrderID:               entities.OrderID(Cell(row, cols[0])),
			SKU:                   entities.SKU(Cell(row, cols[1])),
			ItemStatus:            Cell(row, cols[2]),
			ItemPrice:             parseOrZero(Cell(row, cols[3])),
			ShippingPrice:         parseOrZero(Cell(row, cols[4])),
			GiftWrapPrice:         parseOrZero(Cell(row, cols[5])),
			ItemPromotionDiscount: parseOrZero(Cell(row, cols[6])),
			ShipPromotionDiscount: parseOrZero(Cell(row, cols[7])),
		})
	}

	return orders, nil
}

// FindFirst returns the lexically first file in dir matching pattern.
// found is false when nothing matches.
func FindFirst(dir, pattern string) (path string, found bool, err error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	sort.Strings(matches)
	return matches[0], true, nil
}

// ParseNullDecimal parses a numeric cell. Blank or non-numeric cells are missing.
func ParseNullDecimal(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func parseOrZero(s string) decimal.Decimal {
	return ParseNullDecimal(s).Decimal
}

// Table is a header row plus data rows read from a delimited file or a sheet
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable splits raw rows into header and data rows
func NewTable(rows [][]string) *Table {
	if len(rows) == 0 {
		return &Table{}
	}
	return &Table{Header: rows[0], Rows: rows[1:]}
}

func readTable(filename string, delimiter rune) (*Table, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s is empty", filename)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", filename, err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	return &Table{Header: header, Rows: records}, nil
}

// Columns resolves column positions by name, ignoring case, surrounding
// whitespace and a UTF-8 byte order mark. The first of duplicate headers wins.
func (t *Table) Columns(names ...string) ([]int, error) {
	index := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		key := normalizeHeader(h)
		if _, exists := index[key]; !exists {
			index[key] = i
		}
	}

	positions := make([]int, len(names))
	for i, name := range names {
		pos, ok := index[normalizeHeader(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		positions[i] = pos
	}
	return positions, nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

// Cell returns the trimmed value at i, or "" past the end of a short row
func Cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
