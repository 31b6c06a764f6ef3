package services

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
)

// TableInputs holds the parsed daily reports the shipment table is built from
type TableInputs struct {
	Shipments []entities.Shipment
	Billed    []entities.BilledShipment
	Viability []entities.ViabilityEntry
	ShipTo    []entities.StateEntry // B2C "Ship To State"
	BillTo    []entities.StateEntry // B2B "Bill To State"
	Orders    []entities.OrderLine
}

// BuildStats counts the rows each build step removed
type BuildStats struct {
	Input        int
	Excluded     int
	Billed       int
	MissingKey   int
	Consolidated int
}

// RegionRow is one line of a region table. Unresolved rows have no barcode
// or no numeric shipped quantity and never reach the allocator.
type RegionRow struct {
	Line     entities.DemandLine
	Resolved bool
}

// TableBuilder turns the daily reports into the consolidated shipment table
// and the per-region demand tables
type TableBuilder struct {
	regions  []entities.Region
	excluded map[string]bool
}

// NewTableBuilder creates a builder that drops shipments from the excluded FCs
func NewTableBuilder(regions []entities.Region, excludedFCs []string) *TableBuilder {
	excluded := make(map[string]bool, len(excludedFCs))
	for _, fc := range excludedFCs {
		excluded[strings.TrimSpace(fc)] = true
	}
	return &TableBuilder{
		regions:  regions,
		excluded: excluded,
	}
}

// BuildShipments filters, enriches and consolidates the shipments report into
// one row per (order, SKU), ordered by order then SKU
func (b *TableBuilder) BuildShipments(in TableInputs) ([]entities.Shipment, BuildStats) {
	stats := BuildStats{Input: len(in.Shipments)}

	billed := make(map[string]bool, len(in.Billed))
	for _, shipment := range in.Billed {
		billed[shipment.Fingerprint()] = true
	}

	viability := firstViability(in.Viability)
	shipTo := firstState(in.ShipTo)
	billTo := firstState(in.BillTo)
	netAmounts := firstNetAmount(in.Orders)

	enriched := make([]entities.Shipment, 0, len(in.Shipments))
	for _, shipment := range in.Shipments {
		if b.excluded[shipment.FC] {
			stats.Excluded++
			continue
		}
		if shipment.ShippedQuantity.Valid && billed[shipment.Fingerprint()] {
			stats.Billed++
			continue
		}

		if entry, ok := viability[shipment.SKU]; ok {
			shipment.MOQ = entry.MOQ
			shipment.ModiSKU = entry.ModiSKU
		}
		shipment.ShippedQuantity = multiply(shipment.ShippedQuantity, shipment.MOQ)

		shipment.ShipToState = shipTo[shipment.OrderID]
		if shipment.ShipToState == "" {
			shipment.ShipToState = billTo[shipment.OrderID]
		}

		if net, ok := netAmounts[shipment.Key()]; ok {
			shipment.NetAmount = decimal.NewNullDecimal(net)
		}

		shipment.LedgerName, shipment.LedgerCode = entities.AssignLedger(b.regions, shipment.FC, shipment.ShipToState)
		enriched = append(enriched, shipment)
	}

	consolidated, missingKey := consolidate(enriched)
	stats.MissingKey = missingKey
	stats.Consolidated = len(consolidated)

	return consolidated, stats
}

// BuildRegionTable selects the region's shipments and expands each into one
// row per matching stock row, keeping stock order. A shipment without a
// matching stock row yields a single unresolved row.
func (b *TableBuilder) BuildRegionTable(region entities.Region, shipments []entities.Shipment, stock []entities.StockRecord) []RegionRow {
	byModiSKU := make(map[string][]entities.StockRecord)
	for _, record := range stock {
		if record.ModiSKU == "" {
			continue
		}
		byModiSKU[record.ModiSKU] = append(byModiSKU[record.ModiSKU], record)
	}

	var rows []RegionRow
	for _, shipment := range shipments {
		if !region.MatchesFC(shipment.FC) {
			continue
		}

		line := entities.DemandLine{
			OrderID:          shipment.OrderID,
			SKU:              shipment.SKU,
			RequiredQuantity: shipment.ShippedQuantity.Decimal,
			PassThrough: entities.PassThrough{
				FC:          shipment.FC,
				ModiSKU:     shipment.ModiSKU,
				ShipToState: shipment.ShipToState,
				MOQ:         shipment.MOQ,
				LedgerName:  shipment.LedgerName,
				LedgerCode:  shipment.LedgerCode,
				NetAmount:   shipment.NetAmount,
			},
		}

		matches := byModiSKU[shipment.ModiSKU]
		if shipment.ModiSKU == "" || len(matches) == 0 {
			rows = append(rows, RegionRow{Line: line})
			continue
		}

		for _, record := range matches {
			row := line
			row.Barcode = record.Scancode
			row.AvailableStock = record.Stock
			row.MRP = record.MRP
			rows = append(rows, RegionRow{
				Line:     row,
				Resolved: resolvable(shipment.ShippedQuantity, record),
			})
		}
	}

	return rows
}

// resolvable reports whether a row carries the barcode and quantities the
// allocator needs
func resolvable(shipped decimal.NullDecimal, stock entities.StockRecord) bool {
	return stock.Scancode != "" &&
		shipped.Valid && !shipped.Decimal.IsNegative() &&
		!stock.Stock.IsNegative()
}

func firstViability(entries []entities.ViabilityEntry) map[entities.SKU]entities.ViabilityEntry {
	result := make(map[entities.SKU]entities.ViabilityEntry, len(entries))
	for _, entry := range entries {
		if _, exists := result[entry.SKU]; !exists {
			result[entry.SKU] = entry
		}
	}
	return result
}

func firstState(entries []entities.StateEntry) map[entities.OrderID]string {
	result := make(map[entities.OrderID]string, len(entries))
	for _, entry := range entries {
		if _, exists := result[entry.OrderID]; !exists {
			result[entry.OrderID] = strings.TrimSpace(entry.State)
		}
	}
	return result
}

func firstNetAmount(orders []entities.OrderLine) map[entities.DemandKey]decimal.Decimal {
	result := make(map[entities.DemandKey]decimal.Decimal)
	for _, order := range orders {
		if !order.IsFulfilledByAmazon() {
			continue
		}
		key := entities.DemandKey{OrderID: order.OrderID, SKU: order.SKU}
		if _, exists := result[key]; !exists {
			result[key] = order.NetAmount()
		}
	}
	return result
}

func multiply(a, b decimal.NullDecimal) decimal.NullDecimal {
	if !a.Valid || !b.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(a.Decimal.Mul(b.Decimal))
}

// consolidate groups shipments by (order, SKU). Quantities are summed over
// the rows that have one; every other column takes the first non-empty value.
// Rows without an order id or SKU cannot be grouped and are dropped.
func consolidate(shipments []entities.Shipment) ([]entities.Shipment, int) {
	groups := make(map[entities.DemandKey]*entities.Shipment)
	var keys []entities.DemandKey
	dropped := 0

	for _, shipment := range shipments {
		if shipment.OrderID == "" || shipment.SKU == "" {
			dropped++
			continue
		}

		key := shipment.Key()
		group, exists := groups[key]
		if !exists {
			copied := shipment
			groups[key] = &copied
			keys = append(keys, key)
			continue
		}

		switch {
		case !group.ShippedQuantity.Valid:
			group.ShippedQuantity = shipment.ShippedQuantity
		case shipment.ShippedQuantity.Valid:
			group.ShippedQuantity.Decimal = group.ShippedQuantity.Decimal.Add(shipment.ShippedQuantity.Decimal)
		}
		fillFirst(group, shipment)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].OrderID != keys[j].OrderID {
			return keys[i].OrderID < keys[j].OrderID
		}
		return keys[i].SKU < keys[j].SKU
	})

	result := make([]entities.Shipment, len(keys))
	for i, key := range keys {
		result[i] = *groups[key]
	}
	return result, dropped
}

func fillFirst(group *entities.Shipment, next entities.Shipment) {
	firstString(&group.FC, next.FC)
	firstString(&group.ModiSKU, next.ModiSKU)
	firstString(&group.ShipToState, next.ShipToState)
	firstString(&group.LedgerName, next.LedgerName)
	firstString(&group.LedgerCode, next.LedgerCode)
	firstDecimal(&group.MOQ, next.MOQ)
	firstDecimal(&group.NetAmount, next.NetAmount)
}

func firstString(dst *string, next string) {
	if *dst == "" {
		*dst = next
	}
}

func firstDecimal(dst *decimal.NullDecimal, next decimal.NullDecimal) {
	if !dst.Valid {
		*dst = next
	}
}
