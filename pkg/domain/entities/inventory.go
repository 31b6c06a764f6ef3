package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StockRecord represents the stock held under one scancode for a stock SKU in a region
type StockRecord struct {
	ModiSKU  string              `db:"modi_sku"`
	Scancode Barcode             `db:"scancode"`
	MRP      decimal.NullDecimal `db:"mrp"`
	Stock    decimal.Decimal     `db:"stock"`
}

// NewStockRecord creates a validated StockRecord
func NewStockRecord(modiSKU string, scancode Barcode, mrp decimal.NullDecimal, stock decimal.Decimal) (*StockRecord, error) {
	if modiSKU == "" {
		return nil, fmt.Errorf("modi sku cannot be empty")
	}
	if scancode == "" {
		return nil, fmt.Errorf("scancode cannot be empty")
	}
	if stock.IsNegative() {
		return nil, fmt.Errorf("stock cannot be negative, got %s", stock)
	}

	return &StockRecord{
		ModiSKU:  modiSKU,
		Scancode: scancode,
		MRP:      mrp,
		Stock:    stock,
	}, nil
}
