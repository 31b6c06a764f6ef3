package shared

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
)

// AllocationContext holds the allocation outcome of one (order, SKU) demand
type AllocationContext struct {
	AllocatedQty    decimal.Decimal
	RemainingDemand decimal.Decimal
	HasAllocation   bool
}

// AllocationMap manages allocation context by demand key
type AllocationMap map[entities.DemandKey]*AllocationContext

// NewAllocationMapFromRecords folds allocator output into per-key context.
// Positive allocations add to AllocatedQty; shortage records set RemainingDemand.
// Records with a missing allocation register the key without quantities.
func NewAllocationMapFromRecords(records []entities.AllocationRecord) AllocationMap {
	allocMap := make(AllocationMap)
	for _, record := range records {
		key := record.Key()
		context, exists := allocMap[key]
		if !exists {
			context = &AllocationContext{}
			allocMap[key] = context
		}

		if !record.Allocated.Valid {
			continue
		}
		if record.Shortage {
			context.RemainingDemand = context.RemainingDemand.Add(record.Allocated.Decimal.Neg())
			continue
		}
		if record.Allocated.Decimal.IsPositive() {
			context.AllocatedQty = context.AllocatedQty.Add(record.Allocated.Decimal)
			context.HasAllocation = true
		}
	}
	return allocMap
}

// GetShortKeys returns the keys with unmet demand, sorted
func (am AllocationMap) GetShortKeys() []entities.DemandKey {
	var keys []entities.DemandKey
	for key, context := range am {
		if context.RemainingDemand.IsPositive() {
			keys = append(keys, key)
		}
	}
	sortKeys(keys)
	return keys
}

// GetTotalAllocated returns the total allocated quantity across all keys
func (am AllocationMap) GetTotalAllocated() decimal.Decimal {
	total := decimal.Zero
	for _, context := range am {
		total = total.Add(context.AllocatedQty)
	}
	return total
}

// GetTotalDemand returns the total demand (allocated + remaining) across all keys
func (am AllocationMap) GetTotalDemand() decimal.Decimal {
	total := decimal.Zero
	for _, context := range am {
		total = total.Add(context.AllocatedQty).Add(context.RemainingDemand)
	}
	return total
}

// GetCoverageRatio returns the overall allocation coverage ratio (0.0 to 1.0)
func (am AllocationMap) GetCoverageRatio() float64 {
	totalDemand := am.GetTotalDemand()
	if totalDemand.IsZero() {
		return 0.0
	}
	ratio, _ := am.GetTotalAllocated().Div(totalDemand).Float64()
	return ratio
}

func sortKeys(keys []entities.DemandKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].OrderID != keys[j].OrderID {
			return keys[i].OrderID < keys[j].OrderID
		}
		return keys[i].SKU < keys[j].SKU
	})
}
