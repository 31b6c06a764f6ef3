package entities

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Shipment represents one row of the consolidated FBA shipment table
type Shipment struct {
	OrderID         OrderID             `json:"amazon_order_id"`
	SKU             SKU                 `json:"merchant_sku"`
	ShippedQuantity decimal.NullDecimal `json:"shipped_quantity"`
	FC              string              `json:"fc"`
	MOQ             decimal.NullDecimal `json:"moq"`
	ModiSKU         string              `json:"modi_sku"`
	ShipToState     string              `json:"ship_to_state"`
	NetAmount       decimal.NullDecimal `json:"net_amount"`
	LedgerName      string              `json:"ledger_name"`
	LedgerCode      string              `json:"ledger_code"`
}

// Key returns the (order, SKU) pair of the shipment
func (s Shipment) Key() DemandKey {
	return DemandKey{OrderID: s.OrderID, SKU: s.SKU}
}

// Fingerprint identifies a shipment by order, SKU, quantity and FC, the way
// the billed-shipments report does
func (s Shipment) Fingerprint() string {
	return ShipmentFingerprint(s.OrderID, s.SKU, s.ShippedQuantity.Decimal, s.FC)
}

// BilledShipment is a shipment already present in the sale & inventory report
type BilledShipment struct {
	OrderID         OrderID
	SKU             SKU
	ShippedQuantity decimal.Decimal
	FC              string
}

// Fingerprint identifies the billed shipment
func (b BilledShipment) Fingerprint() string {
	return ShipmentFingerprint(b.OrderID, b.SKU, b.ShippedQuantity, b.FC)
}

// ShipmentFingerprint concatenates the identifying fields of a shipment
func ShipmentFingerprint(orderID OrderID, sku SKU, qty decimal.Decimal, fc string) string {
	var b strings.Builder
	b.WriteString(string(orderID))
	b.WriteString(string(sku))
	b.WriteString(qty.String())
	b.WriteString(fc)
	return b.String()
}

// ViabilityEntry maps a merchant SKU to its pack multiple and stock SKU
type ViabilityEntry struct {
	SKU     SKU
	MOQ     decimal.NullDecimal
	ModiSKU string
}

// StateEntry records the state an order was shipped or billed to
type StateEntry struct {
	OrderID OrderID
	State   string
}

// OrderLine is one line of the marketplace "All Orders" export
type OrderLine struct {
	OrderID               OrderID
	SKU                   SKU
	ItemStatus            string
	ItemPrice             decimal.Decimal
	ShippingPrice         decimal.Decimal
	GiftWrapPrice         decimal.Decimal
	ItemPromotionDiscount decimal.Decimal
	ShipPromotionDiscount decimal.Decimal
}

// NetAmount is the amount collected for the line after promotions
func (o OrderLine) NetAmount() decimal.Decimal {
	return o.ItemPrice.
		Add(o.ShippingPrice).
		Add(o.GiftWrapPrice).
		Sub(o.ItemPromotionDiscount).
		Sub(o.ShipPromotionDiscount)
}

// IsFulfilledByAmazon reports whether the line is an FBA line in a shipping state
func (o OrderLine) IsFulfilledByAmazon() bool {
	if !strings.Contains(string(o.SKU), "FBA") {
		return false
	}
	return o.ItemStatus == "Shipping" || o.ItemStatus == "Shipped"
}
