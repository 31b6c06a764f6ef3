package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderID represents an Amazon order identifier
type OrderID string

// SKU represents a merchant stock-keeping unit
type SKU string

// Barcode represents a pack- or lot-level stock identifier (scancode)
type Barcode string

// DemandKey identifies the demand of one SKU within one order
type DemandKey struct {
	OrderID OrderID
	SKU     SKU
}

// String returns the key in "order|sku" form
func (k DemandKey) String() string {
	return fmt.Sprintf("%s|%s", k.OrderID, k.SKU)
}

// PassThrough holds the columns that travel with a demand line unchanged
// through allocation, including onto shortage clones.
type PassThrough struct {
	FC          string
	ModiSKU     string
	ShipToState string
	MOQ         decimal.NullDecimal
	LedgerName  string
	LedgerCode  string
	NetAmount   decimal.NullDecimal
	MRP         decimal.NullDecimal
}

// DemandLine represents one (order, SKU, barcode) combination eligible for
// fulfillment in a region. RequiredQuantity repeats across every line of the
// same DemandKey; AvailableStock repeats across every line of the same Barcode.
type DemandLine struct {
	OrderID          OrderID
	SKU              SKU
	Barcode          Barcode
	RequiredQuantity decimal.Decimal
	AvailableStock   decimal.Decimal
	PassThrough
}

// Key returns the (order, SKU) pair the line contributes to
func (l DemandLine) Key() DemandKey {
	return DemandKey{OrderID: l.OrderID, SKU: l.SKU}
}
