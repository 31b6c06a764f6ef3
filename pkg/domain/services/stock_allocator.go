package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
)

// ErrInvalidDemandLine is returned when a demand line cannot take part in allocation
var ErrInvalidDemandLine = errors.New("invalid demand line")

// StockAllocator distributes finite per-barcode stock across competing
// (order, SKU) demand lines in a single pass over the input order.
//
// Row order is significant: it decides which barcode serves a demand first
// (the first barcode with stock left wins) and which line a shortage record
// is cloned from (the last line of the key wins).
type StockAllocator struct{}

// NewStockAllocator creates a new stock allocator
func NewStockAllocator() *StockAllocator {
	return &StockAllocator{}
}

// allocationRun holds the trackers of one Allocate call. It is never shared.
type allocationRun struct {
	required  map[entities.DemandKey]decimal.Decimal
	stock     map[entities.Barcode]decimal.Decimal
	lastLine  map[entities.DemandKey]int
	keyOrder  []entities.DemandKey
	allocated []decimal.Decimal
}

func newAllocationRun(size int) *allocationRun {
	return &allocationRun{
		required:  make(map[entities.DemandKey]decimal.Decimal),
		stock:     make(map[entities.Barcode]decimal.Decimal),
		lastLine:  make(map[entities.DemandKey]int),
		allocated: make([]decimal.Decimal, size),
	}
}

// Allocate returns one record per input line, in input order, followed by one
// shortage record per (order, SKU) key whose demand was not met. The input
// slice is not modified.
func (a *StockAllocator) Allocate(lines []entities.DemandLine) ([]entities.AllocationRecord, error) {
	if err := ValidateDemandLines(lines); err != nil {
		return nil, err
	}

	run := newAllocationRun(len(lines))
	for i, line := range lines {
		run.allocateLine(i, line)
	}

	records := make([]entities.AllocationRecord, 0, len(lines))
	for i, line := range lines {
		records = append(records, entities.NewAllocationRecord(line, run.allocated[i]))
	}

	for _, key := range run.keyOrder {
		deficit := run.required[key]
		if deficit.IsPositive() {
			records = append(records, entities.NewShortageRecord(lines[run.lastLine[key]], deficit))
		}
	}

	return records, nil
}

func (r *allocationRun) allocateLine(i int, line entities.DemandLine) {
	key := line.Key()
	r.lastLine[key] = i

	if _, seen := r.required[key]; !seen {
		r.required[key] = line.RequiredQuantity
		r.keyOrder = append(r.keyOrder, key)
	}

	required := r.required[key]
	if !required.IsPositive() {
		return
	}

	if _, seen := r.stock[line.Barcode]; !seen {
		r.stock[line.Barcode] = line.AvailableStock
	}

	available := r.stock[line.Barcode]
	if !available.IsPositive() {
		return
	}

	amount := decimal.Min(required, available)
	r.allocated[i] = amount
	r.stock[line.Barcode] = available.Sub(amount)
	r.required[key] = required.Sub(amount)
}

// ValidateDemandLines rejects lines without identifiers and lines carrying
// negative required or available quantities
func ValidateDemandLines(lines []entities.DemandLine) error {
	for i, line := range lines {
		switch {
		case line.OrderID == "":
			return fmt.Errorf("%w: row %d: order id is empty", ErrInvalidDemandLine, i)
		case line.SKU == "":
			return fmt.Errorf("%w: row %d: sku is empty", ErrInvalidDemandLine, i)
		case line.Barcode == "":
			return fmt.Errorf("%w: row %d: barcode is empty", ErrInvalidDemandLine, i)
		case line.RequiredQuantity.IsNegative():
			return fmt.Errorf("%w: row %d: required quantity %s is negative", ErrInvalidDemandLine, i, line.RequiredQuantity)
		case line.AvailableStock.IsNegative():
			return fmt.Errorf("%w: row %d: available stock %s is negative", ErrInvalidDemandLine, i, line.AvailableStock)
		}
	}
	return nil
}
