package services

import (
	"github.com/shopspring/decimal"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
)

// RecomputeFinancials scales the order's net amount to the allocated quantity
// and derives the MRP total and discount for it.
//
//	NetAmount = NetAmount * Allocated / RequiredQuantity
//	MRPTotal  = MRP * Allocated
//	Discount  = MRPTotal - NetAmount
//
// RequiredQuantity is the shipped quantity before allocation. A missing
// operand or a zero denominator leaves the derived value missing.
func RecomputeFinancials(record entities.AllocationRecord) entities.ReportLine {
	line := entities.ReportLine{AllocationRecord: record}

	allocated := record.Allocated
	line.NetAmount = scaleNetAmount(record.NetAmount, allocated, record.RequiredQuantity)

	if record.MRP.Valid && allocated.Valid {
		line.MRPTotal = decimal.NewNullDecimal(record.MRP.Decimal.Mul(allocated.Decimal))
	}
	if line.MRPTotal.Valid && line.NetAmount.Valid {
		line.Discount = decimal.NewNullDecimal(line.MRPTotal.Decimal.Sub(line.NetAmount.Decimal))
	}

	return line
}

func scaleNetAmount(net, allocated decimal.NullDecimal, shipped decimal.Decimal) decimal.NullDecimal {
	if !net.Valid || !allocated.Valid || shipped.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(net.Decimal.Mul(allocated.Decimal).Div(shipped))
}
