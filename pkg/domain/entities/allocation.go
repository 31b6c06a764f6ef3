package entities

import "github.com/shopspring/decimal"

// AllocationRecord is a demand line annotated with the quantity allocated to it.
// Allocated is invalid (missing) for lines that never reached the allocator,
// and negative for shortage records.
type AllocationRecord struct {
	DemandLine
	Allocated decimal.NullDecimal
	Shortage  bool
}

// NewAllocationRecord annotates a demand line with an allocated quantity
func NewAllocationRecord(line DemandLine, allocated decimal.Decimal) AllocationRecord {
	return AllocationRecord{
		DemandLine: line,
		Allocated:  decimal.NewNullDecimal(allocated),
	}
}

// NewUnallocatedRecord wraps a line whose stock could not be resolved.
// Its allocated quantity stays missing.
func NewUnallocatedRecord(line DemandLine) AllocationRecord {
	return AllocationRecord{DemandLine: line}
}

// NewShortageRecord clones the given line and overrides the two fields that
// describe a shortage: the allocated quantity becomes the negated deficit and
// the available stock is forced to zero.
func NewShortageRecord(last DemandLine, deficit decimal.Decimal) AllocationRecord {
	clone := last
	clone.AvailableStock = decimal.Zero
	return AllocationRecord{
		DemandLine: clone,
		Allocated:  decimal.NewNullDecimal(deficit.Neg()),
		Shortage:   true,
	}
}

// IsZeroAllocation reports whether the record carries an allocated quantity of exactly zero
func (r AllocationRecord) IsZeroAllocation() bool {
	return r.Allocated.Valid && r.Allocated.Decimal.IsZero()
}
